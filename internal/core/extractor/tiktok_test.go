package extractor

import (
	"context"
	"errors"
	"net/http"
	"testing"
)

const tiktokPageFixture = `<!DOCTYPE html>
<html><head>
<title>Dancing cat | TikTok</title>
<meta property="og:title" content="Dancing cat">
<meta property="og:image" content="https://p16.tiktokcdn.com/cover.jpeg">
</head><body>
<script id="__UNIVERSAL_DATA_FOR_REHYDRATION__" type="application/json">
{"itemInfo":{"itemStruct":{"desc":"Dancing cat #cats","createTime":"1700000000",
"video":{"duration":15,"playAddr":"https:\u002F\u002Fv16.tiktokcdn.com\u002Fabc\u002Fvideo.mp4","downloadAddr":"https:\u002F\u002Fv16.tiktokcdn.com\u002Fdl.mp4","cover":"https:\u002F\u002Fp16.tiktokcdn.com\u002Fc.jpeg"},
"author":{"uniqueId":"catlover"},"stats":{"playCount":1500,"diggCount":230}}}}
</script>
</body></html>`

func TestTikTokPageStrategy(t *testing.T) {
	mux := hostMux{
		"www.tiktok.com/oembed": jsonHandler(`{"title":"Dancing cat #cats","author_name":"Cat Lover","author_unique_id":"catlover","thumbnail_url":"https://p16.tiktokcdn.com/thumb.jpeg"}`),
		"www.tiktok.com/@catlover/video/1": func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Referer") == "" {
				t.Error("page request without Referer")
			}
			htmlHandler(tiktokPageFixture)(w, r)
		},
	}
	e := NewTikTokExtractor(newTestClient(t, mux), nil, testLogger())

	got, err := e.Extract(context.Background(), "https://www.tiktok.com/@catlover/video/1", QualityHD)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := "https://v16.tiktokcdn.com/abc/video.mp4"
	if got.VideoURLs["hd"] != want || got.VideoURLs["sd"] != want {
		t.Errorf("VideoURLs = %v, want playAddr for every quality", got.VideoURLs)
	}
	if got.Author != "catlover" {
		t.Errorf("Author = %q", got.Author)
	}
	if got.ViewCount != 1500 || got.LikeCount != 230 {
		t.Errorf("counts = %d/%d", got.ViewCount, got.LikeCount)
	}
	if got.DurationSeconds != 15 {
		t.Errorf("DurationSeconds = %d", got.DurationSeconds)
	}
	if got.UploadDate != "2023-11-14T22:13:20Z" {
		t.Errorf("UploadDate = %q", got.UploadDate)
	}
	if got.Title == "" {
		t.Error("Title is empty")
	}
}

func TestTikTokAllStrategiesFail(t *testing.T) {
	mux := hostMux{
		"www.tiktok.com/oembed":     statusHandler(http.StatusBadRequest),
		"www.tiktok.com/@a/video/1": htmlHandler("<html><script>{}</script></html>"),
	}
	e := NewTikTokExtractor(newTestClient(t, mux), nil, testLogger())

	_, err := e.Extract(context.Background(), "https://www.tiktok.com/@a/video/1", QualityAuto)
	var extErr *Error
	if !errors.As(err, &extErr) {
		t.Fatalf("err = %v, want *Error", err)
	}
	if extErr.Code != CodeExtractionFailed {
		t.Errorf("Code = %q", extErr.Code)
	}
}

func TestTikTokRemovedPost(t *testing.T) {
	mux := hostMux{
		"www.tiktok.com/oembed":     statusHandler(http.StatusBadRequest),
		"www.tiktok.com/@a/video/9": statusHandler(http.StatusNotFound),
	}
	e := NewTikTokExtractor(newTestClient(t, mux), nil, testLogger())

	_, err := e.Extract(context.Background(), "https://www.tiktok.com/@a/video/9", QualityAuto)
	var extErr *Error
	if !errors.As(err, &extErr) || extErr.Code != CodeContentNotFound {
		t.Fatalf("err = %v, want CONTENT_NOT_FOUND", err)
	}
}

func TestVideoFromThumbnail(t *testing.T) {
	tests := []struct {
		thumb string
		want  string
	}{
		{
			"https://p16-sign.tiktokcdn.com/obj/tos-maliva-p-0068/abc123~tplv-noop.image?x-expires=1",
			"https://p16-sign.tiktokcdn.com/obj/tos-maliva-p-0068/abc123.mp4",
		},
		{"https://p16-sign.tiktokcdn.com/obj/tos/abc.jpeg", "https://p16-sign.tiktokcdn.com/obj/tos/abc.mp4"},
		{"https://p16.tiktokcdn.com/img/abc.jpeg", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := videoFromThumbnail(tt.thumb); got != tt.want {
			t.Errorf("videoFromThumbnail(%q) = %q, want %q", tt.thumb, got, tt.want)
		}
	}
}
