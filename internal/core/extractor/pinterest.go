package extractor

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// PinterestExtractor resolves pins. Image-only pins are valid results.
type PinterestExtractor struct {
	client *Client
	chain  *chain
}

func NewPinterestExtractor(client *Client, log *zap.Logger) *PinterestExtractor {
	e := &PinterestExtractor{client: client}
	e.chain = &chain{
		tag: platform.Pinterest,
		strategies: []Strategy{
			{Name: "page", Run: e.fromPage},
		},
		failure: "Failed to extract Pinterest media",
		log:     log,
	}
	return e
}

func (e *PinterestExtractor) Name() platform.Tag {
	return platform.Pinterest
}

func (e *PinterestExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

func (e *PinterestExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := e.client.FetchPost(ctx, platform.Pinterest, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return parsePinterestPage(page.Body)
}

func parsePinterestPage(body []byte) (*ExtractedMedia, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	m := doc.openGraph()
	m.Author = pinnerName(doc.meta("pinterestapp:pinner"))

	if len(m.VideoURLs) == 0 {
		// video pins keep their mp4 rendition in the embedded state
		m.SetSingleVideo(scanVideoURL(doc.scripts(), "pinimg.com"))
	}

	for _, ld := range doc.linkedData() {
		if m.Author == "" {
			m.Author = ldString(ld, "author", "name")
		}
		if m.UploadDate == "" {
			m.UploadDate = ldString(ld, "datePublished")
		}
		for _, img := range ldStrings(ld, "image") {
			m.AddImage(img)
		}
	}

	if len(m.VideoURLs) == 0 {
		m.AddImage(m.ThumbnailURL)
	}
	return m, nil
}

// pinnerName turns https://www.pinterest.com/someone/ into "someone"
func pinnerName(v string) string {
	if v == "" {
		return ""
	}
	u, err := url.Parse(v)
	if err != nil || u.Host == "" {
		return v
	}
	return strings.Trim(u.Path, "/")
}

// scanVideoURL returns the first quoted mp4 URL under /videos/ whose text
// contains marker. Slashes inside scripts are often escaped.
func scanVideoURL(scripts []string, marker string) string {
	for _, script := range scripts {
		idx := strings.Index(script, marker)
		for idx >= 0 {
			start := strings.LastIndexByte(script[:idx], '"')
			end := strings.IndexByte(script[idx:], '"')
			if start >= 0 && end > 0 {
				candidate := unescapeJSON(script[start+1 : idx+end])
				if strings.HasPrefix(candidate, "http") &&
					strings.Contains(candidate, "/videos/") &&
					strings.Contains(candidate, ".mp4") {
					return candidate
				}
			}
			next := strings.Index(script[idx+len(marker):], marker)
			if next < 0 {
				break
			}
			idx += len(marker) + next
		}
	}
	return ""
}
