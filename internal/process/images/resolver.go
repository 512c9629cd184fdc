// Package images resolves one image URL per article through an ordered chain of strategies.
package images

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/observability"
)

// Source names the stage that produced an image.
type Source string

const (
	SourceFeed      Source = "feed"
	SourceHTML      Source = "html"
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
	SourceNone      Source = "none"
)

// Policy decides what happens to an article no stage could find an image for.
type Policy string

const (
	// PolicyFallback publishes the article with a static category image.
	PolicyFallback Policy = "fallback"
	// PolicySkip returns no image and the caller drops the article.
	PolicySkip Policy = "skip"
)

// ParsePolicy maps a config value to a Policy, defaulting to PolicyFallback.
func ParsePolicy(v string) (Policy, error) {
	switch Policy(strings.ToLower(strings.TrimSpace(v))) {
	case "", PolicyFallback:
		return PolicyFallback, nil
	case PolicySkip:
		return PolicySkip, nil
	default:
		return "", fmt.Errorf("unknown image policy %q", v)
	}
}

// GeneratorState tracks generator availability for one ingestion run.
type GeneratorState struct {
	mu         sync.Mutex
	warned     bool
	authFailed bool
}

// NewGeneratorState returns a fresh state with the generator enabled.
func NewGeneratorState() *GeneratorState {
	return &GeneratorState{}
}

// Disabled reports whether the generator was rejected earlier in the run.
func (s *GeneratorState) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.authFailed
}

func (s *GeneratorState) markAuthFailed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := !s.authFailed
	s.authFailed = true

	return first
}

func (s *GeneratorState) warnOnce() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	first := !s.warned
	s.warned = true

	return first
}

// Resolver runs the image chain. A Resolver is safe for concurrent use within one run.
type Resolver struct {
	generator Generator
	state     *GeneratorState
	policy    Policy
	logger    *zerolog.Logger
}

// NewResolver builds a resolver. generator may be nil; state must be per run.
func NewResolver(generator Generator, state *GeneratorState, policy Policy, logger *zerolog.Logger) *Resolver {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if state == nil {
		state = NewGeneratorState()
	}

	if policy == "" {
		policy = PolicyFallback
	}

	return &Resolver{generator: generator, state: state, policy: policy, logger: logger}
}

// Resolve returns the first image found by: feed fields, HTML scrape, generation, static fallback.
// With PolicySkip the last stage is replaced by ("", SourceNone).
func (r *Resolver) Resolve(ctx context.Context, item domain.FeedItem, meta ArticleMeta) (string, Source) {
	url, src := r.resolve(ctx, item, meta)
	observability.ImageResolutions.WithLabelValues(string(src)).Inc()

	return url, src
}

func (r *Resolver) resolve(ctx context.Context, item domain.FeedItem, meta ArticleMeta) (string, Source) {
	if u := FromFeedFields(item); u != "" {
		return u, SourceFeed
	}

	if u := FromHTML(item); u != "" {
		return u, SourceHTML
	}

	if u := r.generate(ctx, meta); u != "" {
		return u, SourceGenerated
	}

	r.logger.Debug().Str("title", meta.Title).Str("source", meta.Source).Msg("no usable image in feed item")

	if r.policy == PolicySkip {
		return "", SourceNone
	}

	return StaticFallback(meta.Category, meta.Title, item.Link), SourceFallback
}

func (r *Resolver) generate(ctx context.Context, meta ArticleMeta) string {
	if r.generator == nil || r.state.Disabled() {
		return ""
	}

	u, err := r.generator.Generate(ctx, BuildPrompt(meta))

	switch {
	case err == nil && IsRenderable(u):
		observability.ImageGenerations.WithLabelValues("success").Inc()
		return u
	case errors.Is(err, coreerrors.ErrGeneratorDisabled):
		if r.state.warnOnce() {
			r.logger.Warn().Msg("image generation credentials missing, using static images")
		}
	case errors.Is(err, coreerrors.ErrGeneratorAuth):
		observability.ImageGenerations.WithLabelValues("auth_failed").Inc()

		if r.state.markAuthFailed() {
			r.logger.Warn().Err(err).Msg("image generation token rejected, disabled for this run")
		}
	default:
		observability.ImageGenerations.WithLabelValues("error").Inc()
		r.logger.Warn().Err(err).Str("title", meta.Title).Msg("image generation failed")
	}

	return ""
}
