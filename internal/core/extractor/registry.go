package extractor

import (
	"go.uber.org/zap"

	"github.com/guiyumin/socialdl/internal/core/platform"
)

// Options configures the default extractor set
type Options struct {
	// DegradedMode lets Facebook and Likee return a metadata-only result
	// with a note instead of failing
	DegradedMode bool
	// Browser enables the headless render fallback where supported; may be nil
	Browser *Browser
	Logger  *zap.Logger
}

// Registry maps platform tags to their extractors
type Registry struct {
	byTag map[platform.Tag]Extractor
}

func NewRegistry() *Registry {
	return &Registry{byTag: make(map[platform.Tag]Extractor)}
}

// NewDefaultRegistry registers an extractor for every supported platform
func NewDefaultRegistry(client *Client, opts Options) *Registry {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	r := NewRegistry()
	r.Register(NewTikTokExtractor(client, opts.Browser, log))
	r.Register(NewInstagramExtractor(client, log))
	r.Register(NewPinterestExtractor(client, log))
	r.Register(NewFacebookExtractor(client, opts.DegradedMode, log))
	r.Register(NewLikeeExtractor(client, opts.DegradedMode, log))
	r.Register(NewYouTubeExtractor(client, log))
	r.Register(NewTwitterExtractor(client, log))
	return r
}

// Register adds or replaces the extractor for e.Name()
func (r *Registry) Register(e Extractor) {
	r.byTag[e.Name()] = e
}

// Get returns the extractor for tag
func (r *Registry) Get(tag platform.Tag) (Extractor, bool) {
	e, ok := r.byTag[tag]
	return e, ok
}

// List returns registered extractors in classification order
func (r *Registry) List() []Extractor {
	var result []Extractor
	for _, tag := range platform.Tags() {
		if e, ok := r.byTag[tag]; ok {
			result = append(result, e)
		}
	}
	return result
}
