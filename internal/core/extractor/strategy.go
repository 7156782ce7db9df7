package extractor

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// Strategy is one way of extracting media from a post
type Strategy struct {
	Name string
	Run  func(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error)
}

// chain runs strategies in order. The first result with a usable media link
// wins. Metadata from earlier partial results fills gaps in the winner.
type chain struct {
	tag        platform.Tag
	strategies []Strategy
	failure    string
	log        *zap.Logger
}

func (c *chain) run(ctx context.Context, rawURL string, q Quality) (*ExtractedMedia, error) {
	var (
		partial  *ExtractedMedia
		errs     []error
		notFound bool
	)

	for _, s := range c.strategies {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			break
		}

		media, err := s.Run(ctx, rawURL, q)
		if err != nil {
			c.log.Debug("strategy failed",
				zap.String("platform", string(c.tag)),
				zap.String("strategy", s.Name),
				zap.Error(err))
			if errors.Is(err, ErrNotFound) {
				notFound = true
			}
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
			continue
		}

		if media.usable() {
			media.fillFrom(partial)
			c.log.Debug("strategy succeeded",
				zap.String("platform", string(c.tag)),
				zap.String("strategy", s.Name))
			return media, nil
		}

		if media != nil {
			if partial == nil {
				partial = media
			} else {
				partial.fillFrom(media)
			}
		}
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, ErrNoMedia))
	}

	code := CodeExtractionFailed
	if notFound {
		code = CodeContentNotFound
	}
	return nil, &Error{
		Code:    code,
		Message: c.failure,
		Cause:   errors.Join(errs...),
	}
}
