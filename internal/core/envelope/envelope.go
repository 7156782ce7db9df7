// Package envelope builds the uniform success/failure response returned for
// every download request.
package envelope

import (
	"errors"
	"net/http"

	"github.com/guiyumin/socialdl/internal/core/extractor"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

// ErrorCode classifies a failed request
type ErrorCode string

const (
	InvalidURL           ErrorCode = "INVALID_URL"
	PlatformNotSupported ErrorCode = "PLATFORM_NOT_SUPPORTED"
	ContentNotFound      ErrorCode = "CONTENT_NOT_FOUND"
	RateLimitExceeded    ErrorCode = "RATE_LIMIT_EXCEEDED"
	ServerError          ErrorCode = "SERVER_ERROR"
	ExtractionFailed     ErrorCode = "EXTRACTION_FAILED"
)

// HTTPStatus maps a code to the status the gateway responds with.
// CONTENT_NOT_FOUND is a client-side failure and stays 400; the code is in the body.
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case RateLimitExceeded:
		return http.StatusTooManyRequests
	case ServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// DownloadResponse is the discriminated union returned to clients.
// Exactly one of Data and Error is set.
type DownloadResponse struct {
	Success  bool       `json:"success"`
	Platform string     `json:"platform"`
	Data     *Data      `json:"data,omitempty"`
	Error    *ErrorBody `json:"error,omitempty"`
}

type Data struct {
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Duration  int       `json:"duration,omitempty"`
	Thumbnail string    `json:"thumbnail,omitempty"`
	Downloads Downloads `json:"downloads"`
	Metadata  Metadata  `json:"metadata"`
}

type Downloads struct {
	Video  map[string]string `json:"video,omitempty"`
	Audio  string            `json:"audio,omitempty"`
	Images []string          `json:"images,omitempty"`
	Note   string            `json:"note,omitempty"`
}

type Metadata struct {
	Title       string `json:"title"`
	Author      string `json:"author"`
	Duration    int    `json:"duration,omitempty"`
	Thumbnail   string `json:"thumbnail,omitempty"`
	Views       int64  `json:"views,omitempty"`
	Likes       int64  `json:"likes,omitempty"`
	UploadDate  string `json:"uploadDate,omitempty"`
	Description string `json:"description,omitempty"`
}

type ErrorBody struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details"`
}

// StatusCode returns the HTTP status for the response
func (r DownloadResponse) StatusCode() int {
	if r.Success {
		return http.StatusOK
	}
	if r.Error == nil {
		return http.StatusInternalServerError
	}
	return r.Error.Code.HTTPStatus()
}

const unknownAuthor = "Unknown"

var placeholderTitles = map[platform.Tag]string{
	platform.TikTok:    "TikTok Video",
	platform.Instagram: "Instagram Post",
	platform.Pinterest: "Pinterest Pin",
	platform.Facebook:  "Facebook Video",
	platform.Likee:     "Likee Video",
	platform.YouTube:   "YouTube Video",
	platform.Twitter:   "Twitter Video",
}

// PlaceholderTitle is used when an extractor found no title
func PlaceholderTitle(tag platform.Tag) string {
	if t, ok := placeholderTitles[tag]; ok {
		return t
	}
	return "Media"
}

// Success builds a success envelope. Title and author are never empty.
func Success(tag platform.Tag, m *extractor.ExtractedMedia) DownloadResponse {
	if m == nil {
		m = &extractor.ExtractedMedia{}
	}
	title := m.Title
	if title == "" {
		title = PlaceholderTitle(tag)
	}
	author := m.Author
	if author == "" {
		author = unknownAuthor
	}

	return DownloadResponse{
		Success:  true,
		Platform: string(tag),
		Data: &Data{
			Title:     title,
			Author:    author,
			Duration:  m.DurationSeconds,
			Thumbnail: m.ThumbnailURL,
			Downloads: Downloads{
				Video:  copyVideo(m.VideoURLs),
				Audio:  m.AudioURL,
				Images: append([]string(nil), m.ImageURLs...),
				Note:   m.Note,
			},
			Metadata: Metadata{
				Title:       title,
				Author:      author,
				Duration:    m.DurationSeconds,
				Thumbnail:   m.ThumbnailURL,
				Views:       m.ViewCount,
				Likes:       m.LikeCount,
				UploadDate:  m.UploadDate,
				Description: m.Description,
			},
		},
	}
}

// Failure builds an error envelope
func Failure(tag platform.Tag, code ErrorCode, message, details string) DownloadResponse {
	return DownloadResponse{
		Success:  false,
		Platform: string(tag),
		Error: &ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	}
}

// FromError converts an extractor failure into an error envelope. Errors
// that are not *extractor.Error are reported as EXTRACTION_FAILED.
func FromError(tag platform.Tag, err error) DownloadResponse {
	var extErr *extractor.Error
	if errors.As(err, &extErr) {
		code := ExtractionFailed
		if extErr.Code == extractor.CodeContentNotFound {
			code = ContentNotFound
		}
		return Failure(tag, code, extErr.Message, extErr.Details())
	}
	details := ""
	if err != nil {
		details = err.Error()
	}
	return Failure(tag, ExtractionFailed, "Failed to extract "+tag.DisplayName()+" media", details)
}

func copyVideo(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		if v != "" {
			out[k] = v
		}
	}
	return out
}
