package format

import (
	"net/url"
	"strings"
	"testing"

	"github.com/nbadran/instadm/internal/domain"
)

func TestMessageIsIdempotent(t *testing.T) {
	t.Parallel()

	item := &domain.ContentItem{
		ID:            "n1",
		Kind:          domain.KindNews,
		TitleAr:       "عنوان",
		DescriptionEn: "Something happened",
		PublishDate:   "2026-08-01",
		MainImage:     "https://cdn.example.com/a.jpg",
	}

	first := Message(item)
	second := Message(item)
	if first != second {
		t.Errorf("formatting is not deterministic:\nfirst:  %q\nsecond: %q", first, second)
	}
}

func TestMessageBilingualFallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		item domain.ContentItem
		want string
	}{
		{
			name: "primary wins",
			item: domain.ContentItem{Kind: domain.KindLegend, NameAr: "الأسطورة", NameEn: "The Legend"},
			want: "الأسطورة",
		},
		{
			name: "fallback when primary absent",
			item: domain.ContentItem{Kind: domain.KindLegend, NameEn: "The Legend"},
			want: "The Legend",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Message(&tt.item)
			if !strings.Contains(got, tt.want) {
				t.Errorf("expected %q in output, got:\n%s", tt.want, got)
			}
		})
	}
}

func TestMessageTruncatesNarrative(t *testing.T) {
	t.Parallel()

	item := &domain.ContentItem{
		Kind:    domain.KindMartyr,
		NameEn:  "Name",
		StoryEn: strings.Repeat("x", 300),
	}

	got := Message(item)
	if !strings.Contains(got, strings.Repeat("x", 200)+"...") {
		t.Error("expected narrative truncated at 200 characters with ellipsis")
	}
	if strings.Contains(got, strings.Repeat("x", 201)) {
		t.Error("narrative exceeded the 200-character budget")
	}
}

func TestMessageShortNarrativeNotTruncated(t *testing.T) {
	t.Parallel()

	item := &domain.ContentItem{Kind: domain.KindMartyr, NameEn: "Name", StoryEn: "short story"}
	got := Message(item)
	if !strings.Contains(got, "short story") || strings.Contains(got, "short story...") {
		t.Errorf("short narrative must pass through unmodified, got:\n%s", got)
	}
}

func TestMessageAppendsReversalHintOnlyWithMedia(t *testing.T) {
	t.Parallel()

	plain := &domain.ContentItem{Kind: domain.KindNews, TitleEn: "t", DescriptionEn: "d"}
	if strings.Contains(Message(plain), "hxxps") || strings.Contains(Message(plain), "💡") {
		t.Error("item without media must not carry the reversal hint")
	}

	withMedia := &domain.ContentItem{
		Kind:      domain.KindNews,
		TitleEn:   "t",
		MainImage: "https://cdn.example.com/pic.jpg",
	}
	got := Message(withMedia)
	if !strings.Contains(got, reverseHint) {
		t.Errorf("expected reversal hint with media, got:\n%s", got)
	}
	if !strings.Contains(got, "hxxps://cdn") {
		t.Errorf("expected obfuscated URL in output, got:\n%s", got)
	}
}

func TestMessageSkipsInvalidMediaURLs(t *testing.T) {
	t.Parallel()

	item := &domain.ContentItem{
		Kind:     domain.KindGeneric,
		NameEn:   "g",
		Images:   []domain.MediaRef{{URL: "data:image/png;base64,AAAA"}, {URL: "ftp://x.y/z"}},
		Videos:   []domain.MediaRef{{URL: ""}},
		MainIcon: "not a url at all\x7f://",
	}

	got := Message(item)
	if strings.Contains(got, "IMAGES") || strings.Contains(got, "VIDEOS") || strings.Contains(got, "ICON") {
		t.Errorf("invalid URLs must be silently omitted, got:\n%s", got)
	}
	if strings.Contains(got, reverseHint) {
		t.Error("no hint when every media reference was dropped")
	}
}

func TestMessageNumbersMediaLists(t *testing.T) {
	t.Parallel()

	item := &domain.ContentItem{
		Kind:   domain.KindLocation,
		NameEn: "Old City",
		Images: []domain.MediaRef{
			{URL: "https://cdn.example.com/1.jpg"},
			{URL: "https://cdn.example.com/2.jpg"},
		},
	}

	got := Message(item)
	if !strings.Contains(got, "1. hxxps://cdn") || !strings.Contains(got, "2. hxxps://cdn") {
		t.Errorf("expected numbered media entries, got:\n%s", got)
	}
}

func TestObfuscateURLRoundTrip(t *testing.T) {
	t.Parallel()

	original := "https://example.com/a.b"
	obfuscated := ObfuscateURL(original)

	// The obfuscated form must no longer parse as an http(s) URL.
	if u, err := url.Parse(obfuscated); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		t.Errorf("obfuscated form still parses as %s URL: %q", u.Scheme, obfuscated)
	}
	if strings.Contains(obfuscated, "https://") {
		t.Errorf("scheme not rewritten: %q", obfuscated)
	}

	if got := DeobfuscateURL(obfuscated); got != original {
		t.Errorf("round trip failed: got %q, want %q", got, original)
	}
}

func TestObfuscateURLHTTP(t *testing.T) {
	t.Parallel()

	obfuscated := ObfuscateURL("http://example.com/x")
	if !strings.HasPrefix(obfuscated, "hxxp://") {
		t.Errorf("expected hxxp scheme, got %q", obfuscated)
	}
	if got := DeobfuscateURL(obfuscated); got != "http://example.com/x" {
		t.Errorf("round trip failed: %q", got)
	}
}

func TestIsLinkableURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want bool
	}{
		{"https://example.com/a.jpg", true},
		{"http://example.com", true},
		{"data:image/png;base64,AAAA", false},
		{"ftp://example.com/f", false},
		{"", false},
		{"://bad", false},
	}

	for _, tt := range tests {
		if got := IsLinkableURL(tt.in); got != tt.want {
			t.Errorf("IsLinkableURL(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
