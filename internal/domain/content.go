package domain

import (
	"encoding/json"
	"fmt"
)

// ContentKind tags the shape of a ContentItem.
type ContentKind string

const (
	KindLegend   ContentKind = "legend"
	KindMartyr   ContentKind = "martyr"
	KindLocation ContentKind = "location"
	KindActivity ContentKind = "activity"
	KindNews     ContentKind = "news"
	KindLiveNews ContentKind = "liveNews"
	KindGeneric  ContentKind = "generic"
)

// MediaRef is a media reference attached to a content item. Upstream
// producers send either a bare URL string or an object with a url field,
// so it unmarshals from both shapes.
type MediaRef struct {
	URL     string `json:"url"`
	Caption string `json:"caption,omitempty"`
}

// UnmarshalJSON accepts "https://..." as well as {"url": "...", ...}.
func (m *MediaRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &m.URL)
	}
	type plain MediaRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("unmarshal media ref: %w", err)
	}
	*m = MediaRef(p)
	return nil
}

// ContentItem is one shareable content entry. Text fields are bilingual;
// the primary (Arabic) field wins and the English one is the fallback.
// Immutable input to the formatter.
type ContentItem struct {
	ID   string      `json:"id"`
	Kind ContentKind `json:"type"`

	NameAr string `json:"nameAr,omitempty"`
	NameEn string `json:"nameEn,omitempty"`

	TitleAr string `json:"titleAr,omitempty"`
	TitleEn string `json:"titleEn,omitempty"`

	DescriptionAr string `json:"descriptionAr,omitempty"`
	DescriptionEn string `json:"descriptionEn,omitempty"`

	// Martyr fields.
	AliasAr      string `json:"aliasAr,omitempty"`
	AliasEn      string `json:"aliasEn,omitempty"`
	FamilyStatus string `json:"familyStatus,omitempty"`
	Children     int    `json:"numberOfChildren,omitempty"`
	MemorialDate string `json:"memorialDate,omitempty"`
	StoryAr      string `json:"storyAr,omitempty"`
	StoryEn      string `json:"storyEn,omitempty"`

	// Location fields.
	Latitude  float64 `json:"latitude,omitempty"`
	Longitude float64 `json:"longitude,omitempty"`

	// Activity fields.
	Date          string  `json:"date,omitempty"`
	Time          string  `json:"time,omitempty"`
	DurationHours float64 `json:"durationHours,omitempty"`

	// News fields.
	PublishDate string `json:"publishDate,omitempty"`

	// Live-news fields.
	LiveStartTime     string  `json:"liveStartTime,omitempty"`
	LiveDurationHours float64 `json:"liveDurationHours,omitempty"`

	// Media references.
	MainIcon  string     `json:"mainIcon,omitempty"`
	MainImage string     `json:"mainImage,omitempty"`
	Images    []MediaRef `json:"images,omitempty"`
	Photos360 []MediaRef `json:"photos360,omitempty"`
	Videos    []MediaRef `json:"videos,omitempty"`
}

// Name returns the item's primary display name with bilingual fallback.
func (c *ContentItem) Name() string {
	for _, s := range []string{c.NameAr, c.NameEn, c.TitleAr, c.TitleEn} {
		if s != "" {
			return s
		}
	}
	return ""
}
