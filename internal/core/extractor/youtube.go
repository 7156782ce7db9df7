package extractor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// youtubeResolver is the subset of *youtube.Client the extractor needs
type youtubeResolver interface {
	GetVideoContext(ctx context.Context, url string) (*youtube.Video, error)
	GetStreamURLContext(ctx context.Context, video *youtube.Video, format *youtube.Format) (string, error)
}

// YouTubeExtractor resolves videos through the player API
type YouTubeExtractor struct {
	yt    youtubeResolver
	chain *chain
}

func NewYouTubeExtractor(client *Client, log *zap.Logger) *YouTubeExtractor {
	return newYouTubeExtractor(&youtube.Client{HTTPClient: client.HTTPClient()}, log)
}

func newYouTubeExtractor(yt youtubeResolver, log *zap.Logger) *YouTubeExtractor {
	e := &YouTubeExtractor{yt: yt}
	e.chain = &chain{
		tag: platform.YouTube,
		strategies: []Strategy{
			{Name: "player", Run: e.fromPlayer},
		},
		failure: "Failed to extract YouTube video",
		log:     log,
	}
	return e
}

func (e *YouTubeExtractor) Name() platform.Tag {
	return platform.YouTube
}

func (e *YouTubeExtractor) Extract(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	return e.chain.run(ctx, rawURL, q)
}

func (e *YouTubeExtractor) fromPlayer(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	video, err := e.yt.GetVideoContext(ctx, rawURL)
	if err != nil {
		if isYouTubeNotFound(err) {
			return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, err
	}

	m := &ExtractedMedia{
		Title:           video.Title,
		Author:          video.Author,
		DurationSeconds: int(video.Duration.Seconds()),
		ThumbnailURL:    largestThumbnail(video.Thumbnails),
		ViewCount:       int64(video.Views),
		Description:     video.Description,
	}
	if !video.PublishDate.IsZero() {
		m.UploadDate = video.PublishDate.UTC().Format(time.RFC3339)
	}

	for label, f := range selectYouTubeFormats(video.Formats, q) {
		u, err := e.yt.GetStreamURLContext(ctx, video, f)
		if err != nil {
			return nil, fmt.Errorf("stream url for itag %d: %w", f.ItagNo, err)
		}
		m.SetVideo(label, u)
	}

	if audio := bestYouTubeAudio(video.Formats); audio != nil {
		u, err := e.yt.GetStreamURLContext(ctx, video, audio)
		if err == nil {
			m.AudioURL = u
		}
	}
	return m, nil
}

// selectYouTubeFormats picks combined audio+video formats for the quality
// hint: hd is the first at 720p or above, sd the first at 480p or below,
// falling back to the first available. auto yields both labels.
func selectYouTubeFormats(formats youtube.FormatList, q Quality) map[string]*youtube.Format {
	var combined []*youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.AudioChannels > 0 && f.Height > 0 {
			combined = append(combined, f)
		}
	}
	if len(combined) == 0 {
		return nil
	}

	pick := func(match func(*youtube.Format) bool) *youtube.Format {
		for _, f := range combined {
			if match(f) {
				return f
			}
		}
		return combined[0]
	}
	hd := func() *youtube.Format { return pick(func(f *youtube.Format) bool { return f.Height >= 720 }) }
	sd := func() *youtube.Format { return pick(func(f *youtube.Format) bool { return f.Height <= 480 }) }

	switch q {
	case QualityHD:
		return map[string]*youtube.Format{string(QualityHD): hd()}
	case QualitySD:
		return map[string]*youtube.Format{string(QualitySD): sd()}
	default:
		return map[string]*youtube.Format{
			string(QualityHD): hd(),
			string(QualitySD): sd(),
		}
	}
}

// bestYouTubeAudio returns the audio-only format with the highest bitrate
func bestYouTubeAudio(formats youtube.FormatList) *youtube.Format {
	var audio []*youtube.Format
	for i := range formats {
		f := &formats[i]
		if f.Height == 0 && strings.HasPrefix(f.MimeType, "audio/") {
			audio = append(audio, f)
		}
	}
	if len(audio) == 0 {
		return nil
	}
	sort.SliceStable(audio, func(i, j int) bool {
		return audio[i].Bitrate > audio[j].Bitrate
	})
	return audio[0]
}

func largestThumbnail(thumbs youtube.Thumbnails) string {
	var best string
	var area uint
	for _, t := range thumbs {
		if a := t.Width * t.Height; best == "" || a > area {
			best, area = t.URL, a
		}
	}
	return best
}

func isYouTubeNotFound(err error) bool {
	if errors.Is(err, youtube.ErrVideoPrivate) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "video unavailable") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "private video")
}
