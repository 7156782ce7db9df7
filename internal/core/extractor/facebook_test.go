package extractor

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

const facebookLoginWall = `<html><head>
<title>Facebook</title>
<meta property="og:title" content="Funny clip">
<meta property="og:image" content="https://scontent.xx.fbcdn.net/thumb.jpg">
</head></html>`

const facebookPlayable = `<html><head><meta property="og:title" content="Public video"></head><body>
<script>{"browser_native_sd_url":"https:\/\/video.xx.fbcdn.net\/sd.mp4","browser_native_hd_url":"https:\/\/video.xx.fbcdn.net\/hd.mp4","owner_name":"Page Name"}</script>
</body></html>`

func TestFacebookExtractor(t *testing.T) {
	mux := hostMux{
		"www.facebook.com/watch/":   htmlHandler(facebookLoginWall),
		"www.facebook.com/video/2/": htmlHandler(facebookPlayable),
		"www.facebook.com/gone/":    statusHandler(http.StatusNotFound),
	}
	client := newTestClient(t, mux)

	t.Run("degraded mode returns note", func(t *testing.T) {
		e := NewFacebookExtractor(client, true, testLogger())
		got, err := e.Extract(context.Background(), "https://www.facebook.com/watch/?v=1", QualityAuto)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got.Note != facebookDegradedNote {
			t.Errorf("Note = %q", got.Note)
		}
		if got.HasMedia() {
			t.Errorf("degraded result has media: %v", got.VideoURLs)
		}
		if got.Title != "Funny clip" {
			t.Errorf("Title = %q", got.Title)
		}
	})

	t.Run("degraded mode off fails", func(t *testing.T) {
		e := NewFacebookExtractor(client, false, testLogger())
		_, err := e.Extract(context.Background(), "https://www.facebook.com/watch/?v=1", QualityAuto)
		var extErr *Error
		if !errors.As(err, &extErr) || extErr.Code != CodeExtractionFailed {
			t.Fatalf("err = %v, want EXTRACTION_FAILED", err)
		}
	})

	t.Run("playable urls", func(t *testing.T) {
		e := NewFacebookExtractor(client, true, testLogger())
		got, err := e.Extract(context.Background(), "https://www.facebook.com/video/2/", QualityAuto)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if got.VideoURLs["hd"] != "https://video.xx.fbcdn.net/hd.mp4" || got.VideoURLs["sd"] != "https://video.xx.fbcdn.net/sd.mp4" {
			t.Errorf("VideoURLs = %v", got.VideoURLs)
		}
		if got.Note != "" {
			t.Errorf("Note = %q, want empty", got.Note)
		}
		if got.Author != "Page Name" {
			t.Errorf("Author = %q", got.Author)
		}
	})

	t.Run("missing post is not degraded", func(t *testing.T) {
		e := NewFacebookExtractor(client, true, testLogger())
		_, err := e.Extract(context.Background(), "https://www.facebook.com/gone/", QualityAuto)
		var extErr *Error
		if !errors.As(err, &extErr) || extErr.Code != CodeContentNotFound {
			t.Fatalf("err = %v, want CONTENT_NOT_FOUND", err)
		}
	})
}

func TestLikeeExtractor(t *testing.T) {
	mux := hostMux{
		"likee.video/@dancer/video/1": htmlHandler(`<html><head><title>Dance challenge - Likee</title></head><body>
<script>window.data = {"video_url":"https:\/\/video.like.video\/v.mp4","nick_name":"dancer","play_count":99}</script>
</body></html>`),
		"likee.video/@dancer/video/2": htmlHandler(`<html><head><title>Another one - Likee</title></head></html>`),
	}
	client := newTestClient(t, mux)
	e := NewLikeeExtractor(client, true, testLogger())

	got, err := e.Extract(context.Background(), "https://likee.video/@dancer/video/1", QualitySD)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Title != "Dance challenge" || got.Author != "dancer" || got.ViewCount != 99 {
		t.Errorf("got %+v", got)
	}
	if got.VideoURLs["sd"] != "https://video.like.video/v.mp4" {
		t.Errorf("VideoURLs = %v", got.VideoURLs)
	}

	got, err = e.Extract(context.Background(), "https://likee.video/@dancer/video/2", QualityAuto)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Note != likeeDegradedNote || got.Title != "Another one" {
		t.Errorf("got %+v", got)
	}
}
