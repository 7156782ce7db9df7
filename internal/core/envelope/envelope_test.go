package envelope

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"testing"

	"github.com/guiyumin/socialdl/internal/core/extractor"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

func TestSuccessPlaceholders(t *testing.T) {
	tests := []struct {
		tag       platform.Tag
		wantTitle string
	}{
		{platform.TikTok, "TikTok Video"},
		{platform.Instagram, "Instagram Post"},
		{platform.Pinterest, "Pinterest Pin"},
		{platform.Facebook, "Facebook Video"},
		{platform.Likee, "Likee Video"},
		{platform.YouTube, "YouTube Video"},
		{platform.Twitter, "Twitter Video"},
	}
	for _, tt := range tests {
		t.Run(string(tt.tag), func(t *testing.T) {
			resp := Success(tt.tag, &extractor.ExtractedMedia{})
			if !resp.Success || resp.Error != nil || resp.Data == nil {
				t.Fatalf("not a success envelope: %+v", resp)
			}
			if resp.Platform != string(tt.tag) {
				t.Errorf("Platform = %q", resp.Platform)
			}
			if resp.Data.Title != tt.wantTitle || resp.Data.Metadata.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", resp.Data.Title, tt.wantTitle)
			}
			if resp.Data.Author != "Unknown" || resp.Data.Metadata.Author != "Unknown" {
				t.Errorf("Author = %q", resp.Data.Author)
			}
		})
	}
}

func TestSuccessCopiesFields(t *testing.T) {
	m := &extractor.ExtractedMedia{
		Title:           "Clip",
		Author:          "alice",
		DurationSeconds: 30,
		ThumbnailURL:    "https://cdn/t.jpg",
		VideoURLs:       map[string]string{"hd": "https://cdn/hd.mp4", "sd": ""},
		AudioURL:        "https://cdn/a.m4a",
		ViewCount:       10,
		LikeCount:       2,
		UploadDate:      "2024-01-01T00:00:00Z",
		Note:            "n",
	}
	resp := Success(platform.YouTube, m)
	d := resp.Data
	if !reflect.DeepEqual(d.Downloads.Video, map[string]string{"hd": "https://cdn/hd.mp4"}) {
		t.Errorf("Video = %v", d.Downloads.Video)
	}
	if d.Downloads.Audio != m.AudioURL || d.Downloads.Note != "n" {
		t.Errorf("Downloads = %+v", d.Downloads)
	}
	if d.Duration != 30 || d.Metadata.Views != 10 || d.Metadata.Likes != 2 || d.Metadata.UploadDate != m.UploadDate {
		t.Errorf("Data = %+v", d)
	}

	m.VideoURLs["hd"] = "changed"
	if d.Downloads.Video["hd"] == "changed" {
		t.Error("envelope shares the extractor's map")
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode ErrorCode
		wantMsg  string
	}{
		{
			"extraction failure",
			&extractor.Error{Code: extractor.CodeExtractionFailed, Message: "Failed to extract TikTok video", Cause: errors.New("page: no media found")},
			ExtractionFailed,
			"Failed to extract TikTok video",
		},
		{
			"not found",
			&extractor.Error{Code: extractor.CodeContentNotFound, Message: "Failed to extract TikTok video", Cause: extractor.ErrNotFound},
			ContentNotFound,
			"Failed to extract TikTok video",
		},
		{"plain error", errors.New("dial tcp: timeout"), ExtractionFailed, "Failed to extract TikTok media"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := FromError(platform.TikTok, tt.err)
			if resp.Success || resp.Data != nil || resp.Error == nil {
				t.Fatalf("not a failure envelope: %+v", resp)
			}
			if resp.Error.Code != tt.wantCode || resp.Error.Message != tt.wantMsg {
				t.Errorf("Error = %+v", resp.Error)
			}
			if resp.Error.Details == "" {
				t.Error("Details is empty")
			}
		})
	}
}

func TestStatusCodes(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{InvalidURL, http.StatusBadRequest},
		{PlatformNotSupported, http.StatusBadRequest},
		{ExtractionFailed, http.StatusBadRequest},
		{ContentNotFound, http.StatusBadRequest},
		{RateLimitExceeded, http.StatusTooManyRequests},
		{ServerError, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := Failure(platform.TikTok, tt.code, "m", "d").StatusCode(); got != tt.want {
			t.Errorf("%s: StatusCode() = %d, want %d", tt.code, got, tt.want)
		}
	}
	if got := Success(platform.TikTok, nil).StatusCode(); got != http.StatusOK {
		t.Errorf("success StatusCode() = %d", got)
	}
}

func TestJSONShape(t *testing.T) {
	ok := Success(platform.Facebook, &extractor.ExtractedMedia{Title: "t", Note: "needs login"})
	raw, err := json.Marshal(ok)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatal(err)
	}
	if _, has := generic["error"]; has {
		t.Error("success envelope has error key")
	}
	data := generic["data"].(map[string]any)
	downloads := data["downloads"].(map[string]any)
	if downloads["note"] != "needs login" {
		t.Errorf("downloads = %v", downloads)
	}

	fail := Failure(platform.Unknown, PlatformNotSupported, "Platform not supported", "details")
	raw, err = json.Marshal(fail)
	if err != nil {
		t.Fatal(err)
	}
	generic = nil
	if err := json.Unmarshal(raw, &generic); err != nil {
		t.Fatal(err)
	}
	if _, has := generic["data"]; has {
		t.Error("failure envelope has data key")
	}

	var back DownloadResponse
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(back, fail) {
		t.Errorf("round trip = %+v, want %+v", back, fail)
	}
}
