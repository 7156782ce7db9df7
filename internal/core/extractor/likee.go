package extractor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const likeeDegradedNote = "Likee extraction requires specialized handling. This is a basic implementation."

type LikeeExtractor struct {
	client   *Client
	degraded bool
	chain    *chain
}

func NewLikeeExtractor(client *Client, degraded bool, log *zap.Logger) *LikeeExtractor {
	e := &LikeeExtractor{client: client, degraded: degraded}
	e.chain = &chain{
		tag:        platform.Likee,
		strategies: []Strategy{{Name: "page", Run: e.fromPage}},
		failure:    "Failed to extract Likee video",
		log:        log,
	}
	return e
}

func (e *LikeeExtractor) Name() platform.Tag {
	return platform.Likee
}

func (e *LikeeExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

func (e *LikeeExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := e.client.FetchPost(ctx, platform.Likee, rawURL, nil)
	if err != nil {
		return nil, err
	}
	m, err := parseLikeePage(page.Body)
	if err != nil {
		return nil, err
	}
	return degrade(m, e.degraded, likeeDegradedNote), nil
}

func parseLikeePage(body []byte) (*ExtractedMedia, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	m := doc.openGraph()
	if t := doc.title(); t != "" {
		m.Title = strings.TrimSpace(strings.TrimSuffix(t, "- Likee"))
	}

	scripts := doc.scripts()
	if v := scanString(scripts, "video_url", "videoUrl"); v != "" {
		m.SetSingleVideo(v)
	}
	if m.Author == "" {
		m.Author = scanString(scripts, "nick_name", "likeeId")
	}
	m.ViewCount = scanInt(scripts, "play_count")
	m.LikeCount = scanInt(scripts, "like_count")
	return m, nil
}
