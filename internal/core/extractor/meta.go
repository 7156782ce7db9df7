package extractor

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// document wraps a parsed HTML page for meta-tag and script lookups
type document struct {
	doc *goquery.Document
}

func parseDocument(body []byte) (*document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &document{doc: doc}, nil
}

// meta returns the content of the first non-empty <meta> whose property or
// name matches one of keys, trying keys in order
func (d *document) meta(keys ...string) string {
	for _, key := range keys {
		var found string
		d.doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			prop, _ := s.Attr("property")
			name, _ := s.Attr("name")
			if !strings.EqualFold(prop, key) && !strings.EqualFold(name, key) {
				return true
			}
			if content := strings.TrimSpace(s.AttrOr("content", "")); content != "" {
				found = content
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

// metaAll returns every non-empty content value for key
func (d *document) metaAll(key string) []string {
	var out []string
	d.doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		prop, _ := s.Attr("property")
		name, _ := s.Attr("name")
		if strings.EqualFold(prop, key) || strings.EqualFold(name, key) {
			if content := strings.TrimSpace(s.AttrOr("content", "")); content != "" {
				out = append(out, content)
			}
		}
	})
	return out
}

func (d *document) title() string {
	return strings.TrimSpace(d.doc.Find("title").First().Text())
}

// scripts returns the text of every inline <script>
func (d *document) scripts() []string {
	var out []string
	d.doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			out = append(out, text)
		}
	})
	return out
}

// linkedData decodes every application/ld+json block. Arrays are flattened.
func (d *document) linkedData() []map[string]any {
	var out []map[string]any
	d.doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		if raw == "" {
			return
		}
		var obj map[string]any
		if err := json.Unmarshal([]byte(raw), &obj); err == nil {
			out = append(out, obj)
			return
		}
		var arr []map[string]any
		if err := json.Unmarshal([]byte(raw), &arr); err == nil {
			out = append(out, arr...)
		}
	})
	return out
}

// openGraph maps the common Open Graph tags onto an ExtractedMedia.
// og:image becomes the thumbnail; callers decide whether it is also media.
func (d *document) openGraph() *ExtractedMedia {
	m := &ExtractedMedia{
		Title:        d.meta("og:title", "twitter:title"),
		Description:  d.meta("og:description", "description", "twitter:description"),
		ThumbnailURL: d.meta("og:image", "og:image:secure_url", "twitter:image"),
	}
	if video := d.meta("og:video:secure_url", "og:video:url", "og:video"); video != "" {
		m.SetSingleVideo(video)
	}
	if m.Title == "" {
		m.Title = d.title()
	}
	return m
}

// ldString reads a string field from linked data, following one level of
// nested objects such as author.name
func ldString(obj map[string]any, path ...string) string {
	var cur any = obj
	for _, key := range path {
		switch v := cur.(type) {
		case map[string]any:
			cur = v[key]
		case []any:
			if len(v) == 0 {
				return ""
			}
			m, ok := v[0].(map[string]any)
			if !ok {
				return ""
			}
			cur = m[key]
		default:
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return strings.TrimSpace(v)
	case []any:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// ldStrings reads a field that may be a string or a list of strings
func ldStrings(obj map[string]any, key string) []string {
	switch v := obj[key].(type) {
	case string:
		if v != "" {
			return []string{v}
		}
	case []any:
		var out []string
		for _, item := range v {
			switch it := item.(type) {
			case string:
				out = append(out, it)
			case map[string]any:
				if u, ok := it["url"].(string); ok {
					out = append(out, u)
				}
			}
		}
		return out
	case map[string]any:
		if u, ok := v["url"].(string); ok {
			return []string{u}
		}
	}
	return nil
}
