package extractor

import (
	"context"
	"fmt"
	"net/url"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const instagramOEmbedURL = "https://api.instagram.com/oembed/"

// InstagramExtractor resolves public Instagram posts and reels
type InstagramExtractor struct {
	client *Client
	chain  *chain
}

func NewInstagramExtractor(client *Client, log *zap.Logger) *InstagramExtractor {
	e := &InstagramExtractor{client: client}
	e.chain = &chain{
		tag: platform.Instagram,
		strategies: []Strategy{
			{Name: "oembed", Run: e.fromOEmbed},
			{Name: "page", Run: e.fromPage},
			{Name: "auth", Run: instagramAuthRequired},
		},
		failure: "Failed to extract Instagram media",
		log:     log,
	}
	return e
}

func (e *InstagramExtractor) Name() platform.Tag {
	return platform.Instagram
}

func (e *InstagramExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

type instagramOEmbed struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// fromOEmbed only yields metadata; the thumbnail is not the post media
func (e *InstagramExtractor) fromOEmbed(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	var data instagramOEmbed
	endpoint := instagramOEmbedURL + "?url=" + url.QueryEscape(rawURL)
	if err := e.client.GetJSON(ctx, endpoint, nil, &data); err != nil {
		return nil, err
	}
	return &ExtractedMedia{
		Title:        truncateText(data.Title, 100),
		Author:       data.AuthorName,
		ThumbnailURL: data.ThumbnailURL,
		Description:  data.Title,
	}, nil
}

func (e *InstagramExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := e.client.FetchPost(ctx, platform.Instagram, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return parseInstagramPage(page.Body)
}

func parseInstagramPage(body []byte) (*ExtractedMedia, error) {
	doc, err := parseDocument(body)
	if err != nil {
		return nil, err
	}

	m := doc.openGraph()
	for _, img := range doc.metaAll("og:image") {
		m.AddImage(img)
	}

	for _, ld := range doc.linkedData() {
		if m.Author == "" {
			m.Author = ldString(ld, "author", "alternateName")
		}
		if m.Author == "" {
			m.Author = ldString(ld, "author", "name")
		}
		if m.UploadDate == "" {
			m.UploadDate = ldString(ld, "uploadDate")
		}
		if len(m.VideoURLs) == 0 {
			m.SetSingleVideo(ldString(ld, "video", "contentUrl"))
		}
		if len(m.VideoURLs) == 0 {
			m.SetSingleVideo(ldString(ld, "contentUrl"))
		}
		for _, img := range ldStrings(ld, "image") {
			m.AddImage(img)
		}
	}

	// a reel's og:image is its cover, not separate media
	if len(m.VideoURLs) > 0 {
		m.ImageURLs = nil
	}
	return m, nil
}

func instagramAuthRequired(context.Context, string, Quality) (*ExtractedMedia, error) {
	return nil, fmt.Errorf("%w: private and carousel posts are only served to logged-in sessions", ErrAuthRequired)
}
