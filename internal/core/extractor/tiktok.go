package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"path"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const tiktokOEmbedURL = "https://www.tiktok.com/oembed"

// playable address keys, in priority order
var tiktokVideoKeys = []string{"playAddr", "downloadAddr", "playUrl", "videoUrl"}

var tiktokImageTransform = regexp.MustCompile(`~tplv-[^/?]*$`)

// TikTokExtractor resolves TikTok posts
type TikTokExtractor struct {
	client  *Client
	browser *Browser
	chain   *chain
}

// NewTikTokExtractor builds the extractor. browser may be nil.
func NewTikTokExtractor(client *Client, browser *Browser, log *zap.Logger) *TikTokExtractor {
	e := &TikTokExtractor{client: client, browser: browser}
	strategies := []Strategy{
		{Name: "oembed", Run: e.fromOEmbed},
		{Name: "page", Run: e.fromPage},
	}
	if browser != nil {
		strategies = append(strategies, renderStrategy(browser, platform.TikTok, parseTikTokPage))
	}
	strategies = append(strategies, Strategy{Name: "placeholder", Run: tiktokPlaceholder})

	e.chain = &chain{
		tag:        platform.TikTok,
		strategies: strategies,
		failure:    "Failed to extract TikTok video",
		log:        log,
	}
	return e
}

func (e *TikTokExtractor) Name() platform.Tag {
	return platform.TikTok
}

func (e *TikTokExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

type tiktokOEmbed struct {
	Title          string `json:"title"`
	AuthorName     string `json:"author_name"`
	AuthorUniqueID string `json:"author_unique_id"`
	ThumbnailURL   string `json:"thumbnail_url"`
}

// fromOEmbed reads public metadata. The video link is guessed from the
// thumbnail object path and is frequently wrong.
func (e *TikTokExtractor) fromOEmbed(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	var data tiktokOEmbed
	endpoint := tiktokOEmbedURL + "?url=" + url.QueryEscape(rawURL)
	if err := e.client.GetJSON(ctx, endpoint, nil, &data); err != nil {
		return nil, err
	}

	author := data.AuthorUniqueID
	if author == "" {
		author = data.AuthorName
	}
	m := &ExtractedMedia{
		Title:        truncateText(data.Title, 100),
		Author:       author,
		ThumbnailURL: data.ThumbnailURL,
		Description:  data.Title,
	}
	m.SetSingleVideo(videoFromThumbnail(data.ThumbnailURL))
	return m, nil
}

func (e *TikTokExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := e.client.FetchPost(ctx, platform.TikTok, rawURL, http.Header{
		"Referer": {"https://www.tiktok.com/"},
	})
	if err != nil {
		return nil, err
	}
	return parseTikTokPage(page.Body)
}

// parseTikTokPage scans embedded state scripts for a playable address
func parseTikTokPage(body []byte) (*ExtractedMedia, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}
	scripts := doc.scripts()

	m := &ExtractedMedia{
		Author:          scanString(scripts, "uniqueId"),
		Description:     scanString(scripts, "desc"),
		ThumbnailURL:    scanString(scripts, "cover", "originCover"),
		ViewCount:       scanInt(scripts, "playCount"),
		LikeCount:       scanInt(scripts, "diggCount"),
		UploadDate:      unixDate(scanInt(scripts, "createTime")),
		DurationSeconds: int(scanInt(scripts, "duration")),
	}
	m.Title = truncateText(m.Description, 100)
	if m.Title == "" {
		m.Title = doc.meta("og:title")
	}
	if m.ThumbnailURL == "" {
		m.ThumbnailURL = doc.meta("og:image")
	}
	m.SetSingleVideo(scanString(scripts, tiktokVideoKeys...))
	return m, nil
}

func tiktokPlaceholder(context.Context, string, Quality) (*ExtractedMedia, error) {
	return nil, errors.New("no playable address exposed; the post may need a signed session")
}

// videoFromThumbnail maps a cover image object URL such as
// https://p16-sign.tiktokcdn.com/obj/tos-maliva-p-0068/abc~tplv-noop.image
// to the sibling video object. Returns "" when the shape is unrecognized.
func videoFromThumbnail(thumb string) string {
	u, err := url.Parse(thumb)
	if err != nil || u.Host == "" || !strings.Contains(u.Path, "/obj/") {
		return ""
	}
	p := tiktokImageTransform.ReplaceAllString(u.Path, "")
	switch strings.ToLower(path.Ext(p)) {
	case ".jpeg", ".jpg", ".webp", ".image", ".png":
		p = strings.TrimSuffix(p, path.Ext(p))
	}
	if path.Ext(p) != "" || strings.HasSuffix(p, "/") {
		return ""
	}
	return u.Scheme + "://" + u.Host + p + ".mp4"
}
