// Package downloader runs one download request through classification,
// extraction and normalization.
package downloader

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/config"
	"github.com/guiyumin/socialdl/internal/core/envelope"
	"github.com/guiyumin/socialdl/internal/core/extractor"
	"github.com/guiyumin/socialdl/internal/core/platform"
)

const DefaultRequestTimeout = 20 * time.Second

// State is a step of a single download run
type State string

const (
	StateReceived   State = "received"
	StateClassified State = "classified"
	StateDispatched State = "dispatched"
	StateExtracted  State = "extracted"
	StateNormalized State = "normalized"
	StateDone       State = "done"
)

var ErrInvalidRequest = errors.New("invalid request")

// Request is a validated download request
type Request struct {
	URL     string
	Quality extractor.Quality
}

// NewRequest trims and validates the inputs. Only http and https URLs with
// a host are accepted.
func NewRequest(rawURL, quality string) (Request, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return Request{}, fmt.Errorf("%w: URL parameter is required", ErrInvalidRequest)
	}
	u, err := url.ParseRequestURI(rawURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return Request{}, fmt.Errorf("%w: malformed URL %q", ErrInvalidRequest, rawURL)
	}
	q, err := extractor.ParseQuality(quality)
	if err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return Request{URL: rawURL, Quality: q}, nil
}

// Service dispatches requests to the registered extractors. It keeps no
// per-request state; each call is a fresh run.
type Service struct {
	registry *extractor.Registry
	timeout  time.Duration
	log      *zap.Logger
}

func New(registry *extractor.Registry, timeout time.Duration, log *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{registry: registry, timeout: timeout, log: log}
}

// NewFromConfig wires the outbound client, optional browser and the default
// extractor set
func NewFromConfig(cfg *config.Config, log *zap.Logger) (*Service, error) {
	client, err := extractor.NewClient(extractor.ClientConfig{
		Timeout:      cfg.Fetch.Timeout,
		UserAgent:    cfg.Fetch.UserAgent,
		ProxyURL:     cfg.Fetch.ProxyURL,
		MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	var browser *extractor.Browser
	if cfg.Browser.Enabled {
		browser = extractor.NewBrowser(extractor.BrowserConfig{
			Bin:         cfg.Browser.Bin,
			Headless:    !cfg.Browser.Visible,
			UserDataDir: cfg.Browser.UserDataDir,
			Timeout:     cfg.Browser.Timeout,
			UserAgent:   client.UserAgent(),
		})
	}

	registry := extractor.NewDefaultRegistry(client, extractor.Options{
		DegradedMode: cfg.Extractors.Degraded(),
		Browser:      browser,
		Logger:       log,
	})
	return New(registry, cfg.Extractors.RequestTimeout, log), nil
}

// Registry exposes the extractor set, e.g. for listing platforms
func (s *Service) Registry() *extractor.Registry {
	return s.registry
}

// Download classifies the URL and runs the matching extractor
func (s *Service) Download(ctx context.Context, req Request) envelope.DownloadResponse {
	return s.run(ctx, platform.Unknown, req)
}

// DownloadFor is Download restricted to one platform. A URL that
// classifies as anything else is rejected as INVALID_URL.
func (s *Service) DownloadFor(ctx context.Context, tag platform.Tag, req Request) envelope.DownloadResponse {
	return s.run(ctx, tag, req)
}

func (s *Service) run(ctx context.Context, want platform.Tag, req Request) envelope.DownloadResponse {
	log := s.log.With(zap.String("url", req.URL), zap.String("quality", string(req.Quality)))
	step := func(st State, fields ...zap.Field) {
		log.Debug("download state", append([]zap.Field{zap.String("state", string(st))}, fields...)...)
	}
	finish := func(resp envelope.DownloadResponse) envelope.DownloadResponse {
		step(StateNormalized, zap.Bool("success", resp.Success))
		step(StateDone)
		return resp
	}

	step(StateReceived)
	if req.Quality == "" {
		req.Quality = extractor.QualityAuto
	}

	tag := platform.Classify(req.URL)
	step(StateClassified, zap.String("platform", string(tag)))

	if want != platform.Unknown && tag != want {
		return finish(envelope.Failure(want, envelope.InvalidURL,
			"Invalid "+want.DisplayName()+" URL",
			"Please provide a valid "+want.DisplayName()+" URL"))
	}
	if tag == platform.Unknown {
		return finish(envelope.Failure(tag, envelope.PlatformNotSupported,
			"Platform not supported",
			"This URL platform is not currently supported"))
	}
	if err := platform.ValidateHost(req.URL, tag); err != nil {
		return finish(envelope.Failure(tag, envelope.InvalidURL,
			"Invalid "+tag.DisplayName()+" URL", err.Error()))
	}

	ext, ok := s.registry.Get(tag)
	if !ok {
		return finish(envelope.Failure(tag, envelope.PlatformNotSupported,
			"Platform extraction not implemented",
			tag.DisplayName()+" extraction is not yet implemented"))
	}
	step(StateDispatched, zap.String("platform", string(tag)))

	media, err := s.extract(ctx, ext, req)
	if err == nil && media == nil {
		err = &extractor.Error{
			Code:    extractor.CodeExtractionFailed,
			Message: "Failed to extract " + tag.DisplayName() + " media",
			Cause:   extractor.ErrNoMedia,
		}
	}
	step(StateExtracted, zap.Error(err))
	if err != nil {
		var panicErr *panicError
		if errors.As(err, &panicErr) {
			log.Error("extractor panic", zap.String("platform", string(tag)), zap.Any("panic", panicErr.value))
			return finish(envelope.Failure(tag, envelope.ServerError, "Internal server error", panicErr.Error()))
		}
		return finish(envelope.FromError(tag, err))
	}
	return finish(envelope.Success(tag, media))
}

type panicError struct {
	value any
}

func (p *panicError) Error() string {
	return fmt.Sprintf("extractor panic: %v", p.value)
}

type extractResult struct {
	media *extractor.ExtractedMedia
	err   error
}

// extract bounds the extractor by the request timeout even if it ignores
// its context
func (s *Service) extract(ctx context.Context, ext extractor.Extractor, req Request) (*extractor.ExtractedMedia, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	done := make(chan extractResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- extractResult{err: &panicError{value: r}}
			}
		}()
		m, err := ext.Extract(ctx, req.URL, req.Quality)
		done <- extractResult{media: m, err: err}
	}()

	select {
	case r := <-done:
		return r.media, r.err
	case <-ctx.Done():
		return nil, &extractor.Error{
			Code:    extractor.CodeExtractionFailed,
			Message: "Failed to extract " + ext.Name().DisplayName() + " media",
			Cause:   fmt.Errorf("request timed out after %s: %w", s.timeout, ctx.Err()),
		}
	}
}
