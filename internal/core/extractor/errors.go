package extractor

import (
	"errors"
	"fmt"
)

// Error codes carried by *Error. They match the response envelope codes.
const (
	CodeExtractionFailed = "EXTRACTION_FAILED"
	CodeContentNotFound  = "CONTENT_NOT_FOUND"
)

var (
	// ErrNoMedia means a page was fetched but held no usable media link
	ErrNoMedia = errors.New("no media found")
	// ErrNotFound means the platform reported the post as missing or removed
	ErrNotFound = errors.New("content not found")
	// ErrAuthRequired means the content is only visible to logged-in users
	ErrAuthRequired = errors.New("authentication required")
)

// Error is the failure returned by an extractor once every strategy is exhausted
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Details returns the underlying cause as text, or "" when there is none
func (e *Error) Details() string {
	if e.Cause == nil {
		return ""
	}
	return e.Cause.Error()
}

// StatusError is returned for non-2xx responses. Only a post page status
// counts as ErrNotFound; fixed API endpoints can 404 for live posts.
type StatusError struct {
	URL        string
	StatusCode int
	Post       bool
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Post && (e.StatusCode == 404 || e.StatusCode == 410)
}
