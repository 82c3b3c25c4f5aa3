// Package format renders content items into platform-safe message text.
//
// Formatting is pure: the same item always yields the same text. Outbound
// URLs are obfuscated so the destination platform's link recognition does
// not reject or flag the message; a trailing instruction line tells the
// human reader how to undo it.
package format

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/nbadran/instadm/internal/domain"
)

// narrativeLimit caps free-text narrative fields.
const narrativeLimit = 200

// reverseHint is appended whenever obfuscated media links are present.
const reverseHint = "💡 To access links: Remove spaces from dots and change hxxps to https"

// Message renders one content item as a dispatchable text payload.
func Message(item *domain.ContentItem) string {
	var b strings.Builder

	writeBody(&b, item)
	hasMedia := writeMedia(&b, item)
	if hasMedia {
		b.WriteString("\n" + reverseHint + "\n")
	}

	return strings.TrimSpace(b.String())
}

func writeBody(b *strings.Builder, item *domain.ContentItem) {
	switch item.Kind {
	case domain.KindLegend:
		fmt.Fprintf(b, "🏛️ *Legend: %s*\n\n", pick(item.NameAr, item.NameEn))
		fmt.Fprintf(b, "📖 %s\n\n", pick(item.DescriptionAr, item.DescriptionEn))

	case domain.KindMartyr:
		fmt.Fprintf(b, "🌹 *Martyr: %s*\n\n", pick(item.NameAr, item.NameEn))
		if alias := pick(item.AliasAr, item.AliasEn); alias != "" {
			fmt.Fprintf(b, "⚔️ Known As: %s\n", alias)
		}
		if item.FamilyStatus != "" {
			fmt.Fprintf(b, "👨‍👩‍👧‍👦 Family Status: %s\n", item.FamilyStatus)
		}
		if item.Children > 0 {
			fmt.Fprintf(b, "👶 Children: %d\n", item.Children)
		}
		if item.MemorialDate != "" {
			fmt.Fprintf(b, "📅 Date: %s\n", item.MemorialDate)
		}
		if story := pick(item.StoryAr, item.StoryEn); story != "" {
			fmt.Fprintf(b, "📖 %s\n", truncate(story, narrativeLimit))
		}
		b.WriteString("\n")

	case domain.KindLocation:
		fmt.Fprintf(b, "📍 *Location: %s*\n\n", pick(item.NameAr, item.NameEn))
		fmt.Fprintf(b, "📖 %s\n", pick(item.DescriptionAr, item.DescriptionEn))
		if item.Latitude != 0 || item.Longitude != 0 {
			fmt.Fprintf(b, "🌍 Coordinates: %g, %g\n", item.Latitude, item.Longitude)
		}
		b.WriteString("\n")

	case domain.KindActivity:
		fmt.Fprintf(b, "🎯 *Activity: %s*\n\n", pick(item.NameAr, item.NameEn))
		fmt.Fprintf(b, "📖 %s\n", pick(item.DescriptionAr, item.DescriptionEn))
		if item.Date != "" {
			fmt.Fprintf(b, "📅 Date: %s\n", item.Date)
		}
		if item.Time != "" {
			fmt.Fprintf(b, "⏰ Time: %s\n", item.Time)
		}
		if item.DurationHours > 0 {
			fmt.Fprintf(b, "⏳ Duration: %gh\n", item.DurationHours)
		}
		b.WriteString("\n")

	case domain.KindNews:
		fmt.Fprintf(b, "📰 *News: %s*\n\n", pick(item.TitleAr, item.TitleEn))
		fmt.Fprintf(b, "📖 %s\n", pick(item.DescriptionAr, item.DescriptionEn))
		if item.PublishDate != "" {
			fmt.Fprintf(b, "📅 Published: %s\n", item.PublishDate)
		}
		b.WriteString("\n")

	case domain.KindLiveNews:
		fmt.Fprintf(b, "🔴 *LIVE NEWS: %s*\n\n", pick(item.TitleAr, item.TitleEn))
		fmt.Fprintf(b, "📖 %s\n", pick(item.DescriptionAr, item.DescriptionEn))
		if item.LiveStartTime != "" {
			fmt.Fprintf(b, "⏰ Started: %s\n", item.LiveStartTime)
		}
		if item.LiveDurationHours > 0 {
			fmt.Fprintf(b, "⏳ Duration: %gh\n", item.LiveDurationHours)
		}
		b.WriteString("\n")

	default:
		fmt.Fprintf(b, "📄 %s\n\n", item.Name())
		fmt.Fprintf(b, "%s\n\n", pick(item.DescriptionAr, item.DescriptionEn))
	}
}

// writeMedia appends every valid media reference through obfuscation and
// reports whether anything was written. Invalid URLs are silently skipped.
func writeMedia(b *strings.Builder, item *domain.ContentItem) bool {
	hasMedia := false

	if IsLinkableURL(item.MainIcon) {
		fmt.Fprintf(b, "\n📎 ICON:\n%s\n", ObfuscateURL(item.MainIcon))
		hasMedia = true
	}
	if IsLinkableURL(item.MainImage) {
		fmt.Fprintf(b, "\n🖼️ IMAGE:\n%s\n", ObfuscateURL(item.MainImage))
		hasMedia = true
	}

	hasMedia = writeMediaList(b, "📷 IMAGES", item.Images) || hasMedia
	hasMedia = writeMediaList(b, "🌐 360° PHOTOS", item.Photos360) || hasMedia
	hasMedia = writeMediaList(b, "🎥 VIDEOS", item.Videos) || hasMedia

	return hasMedia
}

func writeMediaList(b *strings.Builder, header string, refs []domain.MediaRef) bool {
	if len(refs) == 0 {
		return false
	}
	wrote := false
	for i, ref := range refs {
		if !IsLinkableURL(ref.URL) {
			continue
		}
		if !wrote {
			fmt.Fprintf(b, "\n%s:\n", header)
			wrote = true
		}
		fmt.Fprintf(b, "%d. %s\n", i+1, ObfuscateURL(ref.URL))
	}
	return wrote
}

// IsLinkableURL reports whether s is an http(s) URL worth including.
// Data URIs and unparseable strings are excluded.
func IsLinkableURL(s string) bool {
	if s == "" || strings.HasPrefix(s, "data:") {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// ObfuscateURL rewrites the scheme to a non-auto-linking variant and pads
// every dot so the platform does not recognize the string as a link. The
// transformation is mechanically reversible (hxxps → https, " . " → ".").
func ObfuscateURL(u string) string {
	u = strings.Replace(u, "https://", "hxxps://", 1)
	u = strings.Replace(u, "http://", "hxxp://", 1)
	return strings.ReplaceAll(u, ".", " . ")
}

// DeobfuscateURL reverses ObfuscateURL. Exposed for tests and tooling; the
// human-readable reversal instructions live in the message itself.
func DeobfuscateURL(u string) string {
	u = strings.ReplaceAll(u, " . ", ".")
	u = strings.Replace(u, "hxxps://", "https://", 1)
	return strings.Replace(u, "hxxp://", "http://", 1)
}

// pick returns the primary-language field, falling back to the secondary.
func pick(primary, fallback string) string {
	if primary != "" {
		return primary
	}
	return fallback
}

// truncate caps s at limit runes, appending an ellipsis marker when cut.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}
