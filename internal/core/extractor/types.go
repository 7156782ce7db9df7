package extractor

import (
	"context"
	"fmt"
	"strings"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// Quality is the caller's preferred rendition
type Quality string

const (
	QualityHD   Quality = "hd"
	QualitySD   Quality = "sd"
	QualityAuto Quality = "auto"
)

// ParseQuality converts a query value to a Quality. Empty means auto.
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case "":
		return QualityAuto, nil
	case QualityHD, QualitySD, QualityAuto:
		return q, nil
	default:
		return "", fmt.Errorf("invalid quality %q: must be hd, sd or auto", s)
	}
}

// Extractor resolves a post URL on one platform into media links
type Extractor interface {
	// Name returns the platform this extractor serves
	Name() platform.Tag

	// Extract runs the extractor's strategies in order until one yields media.
	// The URL has already passed host validation.
	Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error)
}

// ExtractedMedia is the platform-agnostic result of an extraction.
// Every field except the media links is optional.
type ExtractedMedia struct {
	Title           string
	Author          string
	DurationSeconds int
	ThumbnailURL    string
	VideoURLs       map[string]string // keyed by quality label ("hd", "sd")
	AudioURL        string
	ImageURLs       []string
	ViewCount       int64
	LikeCount       int64
	UploadDate      string
	Description     string

	// Note explains a degraded result, e.g. a platform that needs login
	Note string
}

// HasMedia reports whether at least one downloadable link was found
func (m *ExtractedMedia) HasMedia() bool {
	if m == nil {
		return false
	}
	for _, u := range m.VideoURLs {
		if u != "" {
			return true
		}
	}
	return m.AudioURL != "" || len(m.ImageURLs) > 0
}

// usable reports whether a strategy result ends the chain
func (m *ExtractedMedia) usable() bool {
	return m.HasMedia() || (m != nil && m.Note != "")
}

// SetVideo records a video link under a quality label
func (m *ExtractedMedia) SetVideo(label, u string) {
	if u == "" {
		return
	}
	if m.VideoURLs == nil {
		m.VideoURLs = make(map[string]string)
	}
	m.VideoURLs[label] = u
}

// SetSingleVideo stores one link under every quality label, for platforms
// that expose a single rendition
func (m *ExtractedMedia) SetSingleVideo(u string) {
	m.SetVideo(string(QualityHD), u)
	m.SetVideo(string(QualitySD), u)
}

// AddImage appends an image link, skipping blanks and duplicates
func (m *ExtractedMedia) AddImage(u string) {
	if u == "" {
		return
	}
	for _, existing := range m.ImageURLs {
		if existing == u {
			return
		}
	}
	m.ImageURLs = append(m.ImageURLs, u)
}

// fillFrom copies metadata fields that are empty in m from other.
// Media links are never copied.
func (m *ExtractedMedia) fillFrom(other *ExtractedMedia) {
	if m == nil || other == nil {
		return
	}
	if m.Title == "" {
		m.Title = other.Title
	}
	if m.Author == "" {
		m.Author = other.Author
	}
	if m.DurationSeconds == 0 {
		m.DurationSeconds = other.DurationSeconds
	}
	if m.ThumbnailURL == "" {
		m.ThumbnailURL = other.ThumbnailURL
	}
	if m.ViewCount == 0 {
		m.ViewCount = other.ViewCount
	}
	if m.LikeCount == 0 {
		m.LikeCount = other.LikeCount
	}
	if m.UploadDate == "" {
		m.UploadDate = other.UploadDate
	}
	if m.Description == "" {
		m.Description = other.Description
	}
}

func truncateText(s string, maxLen int) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, "\n", " "))
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-3]) + "..."
}
