package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

const twitterSyndicationURL = "https://cdn.syndication.twimg.com/tweet-result"

var (
	// Matches twitter.com and x.com URLs with status
	twitterURLRegex = regexp.MustCompile(`(?:twitter\.com|x\.com)/(?:[^/]+/)?(?:i/web/)?status(?:es)?/(\d+)`)
	resolutionRegex = regexp.MustCompile(`/(\d+)x(\d+)/`)
)

// TwitterExtractor handles Twitter/X media extraction
type TwitterExtractor struct {
	client *Client
	chain  *chain
}

func NewTwitterExtractor(client *Client, log *zap.Logger) *TwitterExtractor {
	t := &TwitterExtractor{client: client}
	t.chain = &chain{
		tag: platform.Twitter,
		strategies: []Strategy{
			{Name: "syndication", Run: t.fromSyndication},
			{Name: "page", Run: t.fromPage},
		},
		failure: "Failed to extract Twitter video",
		log:     log,
	}
	return t
}

func (t *TwitterExtractor) Name() platform.Tag {
	return platform.Twitter
}

func (t *TwitterExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return t.chain.run(ctx, rawURL, q)
}

// tweetID extracts the numeric status id from a post URL
func tweetID(rawURL string) (string, error) {
	matches := twitterURLRegex.FindStringSubmatch(strings.ToLower(rawURL))
	if len(matches) < 2 {
		return "", errors.New("could not extract tweet ID from URL")
	}
	return matches[1], nil
}

// fromSyndication uses the embed endpoint, which works for public tweets
func (t *TwitterExtractor) fromSyndication(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	id, err := tweetID(rawURL)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("id", id)
	params.Set("token", "x") // Required but value doesn't matter

	var data syndicationResponse
	if err := t.client.GetJSON(ctx, twitterSyndicationURL+"?"+params.Encode(), nil, &data); err != nil {
		return nil, err
	}
	return parseSyndicationResponse(&data)
}

// fromPage reads player meta tags from the status page
func (t *TwitterExtractor) fromPage(ctx context.Context, rawURL string, _ Quality) (*ExtractedMedia, error) {
	page, err := t.client.FetchPost(ctx, platform.Twitter, rawURL, http.Header{
		// the server-rendered card is only served to crawlers
		"User-Agent": {"Twitterbot/1.0"},
	})
	if err != nil {
		return nil, err
	}
	doc, err := parseDocument(page.Body)
	if err != nil {
		return nil, err
	}

	m := doc.openGraph()
	m.VideoURLs = nil
	m.SetSingleVideo(doc.meta("twitter:player:stream", "og:video:secure_url", "og:video:url", "og:video"))
	if creator := doc.meta("twitter:creator"); creator != "" {
		m.Author = strings.TrimPrefix(creator, "@")
	}
	return m, nil
}

type twitterVariant struct {
	url     string
	bitrate int
	height  int
}

// parseSyndicationResponse picks the highest bitrate mp4 as hd and the
// best one at or below 480p as sd. Photo-only tweets yield ErrNoMedia.
func parseSyndicationResponse(data *syndicationResponse) (*ExtractedMedia, error) {
	if len(data.MediaDetails) == 0 && len(data.Video.Variants) == 0 {
		return nil, ErrNoMedia
	}

	m := &ExtractedMedia{
		Title:       truncateText(data.Text, 100),
		Author:      data.User.ScreenName,
		Description: data.Text,
		LikeCount:   data.FavoriteCount,
		UploadDate:  data.CreatedAt,
	}

	var variants []twitterVariant
	for _, media := range data.MediaDetails {
		if media.Type != "video" && media.Type != "animated_gif" {
			continue
		}
		if m.ThumbnailURL == "" {
			m.ThumbnailURL = media.MediaURLHTTPS
		}
		if m.DurationSeconds == 0 {
			m.DurationSeconds = media.VideoInfo.DurationMillis / 1000
		}
		for _, v := range media.VideoInfo.Variants {
			if v.ContentType != "video/mp4" {
				continue
			}
			_, h := extractResolutionFromURL(v.URL)
			variants = append(variants, twitterVariant{url: v.URL, bitrate: v.Bitrate, height: h})
		}
	}

	// Also check video field directly (for single video tweets)
	if len(variants) == 0 {
		for _, v := range data.Video.Variants {
			if v.Type != "video/mp4" {
				continue
			}
			_, h := extractResolutionFromURL(v.Src)
			variants = append(variants, twitterVariant{url: v.Src, height: h})
		}
	}

	if len(variants) > 0 {
		sort.SliceStable(variants, func(i, j int) bool {
			if variants[i].bitrate != variants[j].bitrate {
				return variants[i].bitrate > variants[j].bitrate
			}
			return variants[i].height > variants[j].height
		})
		m.SetVideo(string(QualityHD), variants[0].url)
		sd := variants[len(variants)-1]
		for _, v := range variants {
			if v.height > 0 && v.height <= 480 {
				sd = v
				break
			}
		}
		m.SetVideo(string(QualitySD), sd.url)
	}

	if !m.HasMedia() {
		return nil, ErrNoMedia
	}
	return m, nil
}

// Syndication API response structures
type syndicationResponse struct {
	Text          string `json:"text"`
	CreatedAt     string `json:"created_at"`
	FavoriteCount int64  `json:"favorite_count"`
	User          struct {
		ScreenName string `json:"screen_name"`
		Name       string `json:"name"`
	} `json:"user"`
	MediaDetails []struct {
		Type          string `json:"type"`
		MediaURLHTTPS string `json:"media_url_https"`
		VideoInfo     struct {
			DurationMillis int `json:"duration_millis"`
			Variants       []struct {
				Bitrate     int    `json:"bitrate"`
				ContentType string `json:"content_type"`
				URL         string `json:"url"`
			} `json:"variants"`
		} `json:"video_info"`
	} `json:"mediaDetails"`
	Video struct {
		Variants []struct {
			Type string `json:"type"`
			Src  string `json:"src"`
		} `json:"variants"`
	} `json:"video"`
}

func extractResolutionFromURL(u string) (width, height int) {
	matches := resolutionRegex.FindStringSubmatch(u)
	if len(matches) >= 3 {
		w, _ := strconv.Atoi(matches[1])
		h, _ := strconv.Atoi(matches[2])
		return w, h
	}
	return 0, 0
}
