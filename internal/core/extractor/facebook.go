package extractor

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const facebookDegradedNote = "Facebook videos require authentication and complex extraction. Consider using Facebook Graph API."

// FacebookExtractor resolves public Facebook videos. When nothing playable is
// exposed it can return a metadata-only result with an explanatory note.
type FacebookExtractor struct {
	client   *Client
	degraded bool
	chain    *chain
}

func NewFacebookExtractor(client *Client, degraded bool, log *zap.Logger) *FacebookExtractor {
	e := &FacebookExtractor{client: client, degraded: degraded}
	e.chain = &chain{
		tag:        platform.Facebook,
		strategies: []Strategy{{Name: "page", Run: e.fromPage}},
		failure:    "Failed to extract Facebook video",
		log:        log,
	}
	return e
}

func (e *FacebookExtractor) Name() platform.Tag {
	return platform.Facebook
}

func (e *FacebookExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

func (e *FacebookExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := e.client.FetchPost(ctx, platform.Facebook, rawURL, http.Header{
		"Sec-Fetch-Mode": {"navigate"},
	})
	if err != nil {
		return nil, err
	}
	m, err := parseFacebookPage(page.Body)
	if err != nil {
		return nil, err
	}
	return degrade(m, e.degraded, facebookDegradedNote), nil
}

func parseFacebookPage(body []byte) (*ExtractedMedia, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	m := doc.openGraph()
	scripts := doc.scripts()

	hd := scanString(scripts, "browser_native_hd_url", "playable_url_quality_hd", "hd_src")
	sd := scanString(scripts, "browser_native_sd_url", "playable_url", "sd_src")
	if hd != "" || sd != "" {
		m.VideoURLs = nil
		if hd == "" {
			hd = sd
		}
		if sd == "" {
			sd = hd
		}
		m.SetVideo(string(QualityHD), hd)
		m.SetVideo(string(QualitySD), sd)
	}
	if m.Author == "" {
		m.Author = scanString(scripts, "owner_name")
	}
	return m, nil
}

// degrade turns a page without playable media into a metadata-only result
// carrying note, so the caller can explain why no links are present
func degrade(m *ExtractedMedia, enabled bool, note string) *ExtractedMedia {
	if !enabled || m.HasMedia() {
		return m
	}
	m.VideoURLs = map[string]string{}
	m.Note = note
	return m
}
