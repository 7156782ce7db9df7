package cli

import (
	"strings"
	"testing"

	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/extractor"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

func TestRenderResponse(t *testing.T) {
	tests := []struct {
		name string
		resp envelope.DownloadResponse
		want []string
	}{
		{
			name: "video",
			resp: envelope.Success(platform.YouTube, &extractor.ExtractedMedia{
				Title:           "Never Gonna Give You Up",
				Author:          "Rick Astley",
				DurationSeconds: 213,
				VideoURLs:       map[string]string{"sd": "https://cdn/sd.mp4", "hd": "https://cdn/hd.mp4"},
				AudioURL:        "https://cdn/a.m4a",
			}),
			want: []string{"Never Gonna Give You Up", "Rick Astley", "YouTube", "(213s)", "HD https://cdn/hd.mp4", "SD https://cdn/sd.mp4", "https://cdn/a.m4a"},
		},
		{
			name: "images with note",
			resp: envelope.Success(platform.Facebook, &extractor.ExtractedMedia{
				ImageURLs: []string{"https://cdn/1.jpg", "https://cdn/2.jpg"},
				Note:      "requires login",
			}),
			want: []string{"Facebook Video", "Unknown", "Images (2)", "[2] https://cdn/2.jpg", "requires login"},
		},
		{
			name: "failure",
			resp: envelope.Failure(platform.TikTok, envelope.ExtractionFailed, "Failed to extract TikTok video", "page: no media found"),
			want: []string{"Failed to extract TikTok video", "[EXTRACTION_FAILED]", "page: no media found"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := renderResponse(tt.resp)
			for _, w := range tt.want {
				if !strings.Contains(out, w) {
					t.Errorf("output missing %q:\n%s", w, out)
				}
			}
		})
	}

	out := renderResponse(envelope.Success(platform.YouTube, &extractor.ExtractedMedia{
		VideoURLs: map[string]string{"sd": "s", "hd": "h"},
	}))
	if strings.Index(out, "HD h") > strings.Index(out, "SD s") {
		t.Error("video labels are not sorted")
	}
}
