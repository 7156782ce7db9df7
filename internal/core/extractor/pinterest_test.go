package extractor

import (
	"context"
	"testing"
)

func TestPinterestExtractor(t *testing.T) {
	imagePin := `<html><head>
<meta property="og:title" content="Cozy reading nook">
<meta property="og:image" content="https://i.pinimg.com/originals/aa/bb/cc.jpg">
<meta property="pinterestapp:pinner" content="https://www.pinterest.com/homedecor/">
</head></html>`

	videoPin := `<html><head>
<meta property="og:title" content="Pasta recipe">
<meta property="og:image" content="https://i.pinimg.com/videos/thumbnails/originals/xx.jpg">
</head><body>
<script id="__PWS_DATA__" type="application/json">{"videos":{"video_list":{"V_720P":{"url":"https:\/\/v1.pinimg.com\/videos\/mc\/720p\/xx.mp4","width":720}}}}</script>
</body></html>`

	mux := hostMux{
		"www.pinterest.com/pin/1/": htmlHandler(imagePin),
		"www.pinterest.com/pin/2/": htmlHandler(videoPin),
	}
	e := NewPinterestExtractor(newTestClient(t, mux), testLogger())

	tests := []struct {
		name       string
		url        string
		wantVideo  string
		wantImages int
		wantAuthor string
	}{
		{"image pin", "https://www.pinterest.com/pin/1/", "", 1, "homedecor"},
		{"video pin", "https://www.pinterest.com/pin/2/", "https://v1.pinimg.com/videos/mc/720p/xx.mp4", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Extract(context.Background(), tt.url, QualityAuto)
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}
			if got.VideoURLs["hd"] != tt.wantVideo {
				t.Errorf("video = %q, want %q", got.VideoURLs["hd"], tt.wantVideo)
			}
			if len(got.ImageURLs) != tt.wantImages {
				t.Errorf("ImageURLs = %v", got.ImageURLs)
			}
			if got.Author != tt.wantAuthor {
				t.Errorf("Author = %q, want %q", got.Author, tt.wantAuthor)
			}
		})
	}
}

func TestPinnerName(t *testing.T) {
	tests := map[string]string{
		"https://www.pinterest.com/someone/": "someone",
		"plainname":                          "plainname",
		"":                                   "",
	}
	for in, want := range tests {
		if got := pinnerName(in); got != want {
			t.Errorf("pinnerName(%q) = %q, want %q", in, got, want)
		}
	}
}
