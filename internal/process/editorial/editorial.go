// Package editorial turns raw feed snippets into a publishable summary and long-form body.
package editorial

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/core/llm"
	"github.com/new20/newsai/internal/platform/htmlutils"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/platform/retry"
)

const (
	defaultMaxAttempts = 3
	defaultBaseDelay   = time.Second
	temperature        = 0.5
	maxTokens          = 1500

	// SummaryCharLimit bounds the locally generated fallback summary.
	SummaryCharLimit   = 800
	fallbackSentences  = 2
	summaryUnavailable = "Summary unavailable"
	ellipsis           = "..."

	statusSuccess = "success"
	statusError   = "error"
	statusSkipped = "skipped"

	logFieldTitle   = "title"
	logFieldAttempt = "attempt"
	logFieldDelay   = "retry_in"
)

// Input is the raw material for one article.
type Input struct {
	Title    string
	Snippet  string
	Body     string
	Source   string
	Category string
}

// Package is the editorial output for one article.
type Package struct {
	Summary  string
	Content  string
	Tags     []string
	Headline string

	// Generated is false when the local fallback produced the package.
	Generated bool
}

// Text is the long-form body when present, else the short summary.
func (p Package) Text() string {
	if p.Content != "" {
		return p.Content
	}

	return p.Summary
}

type llmPayload struct {
	ShortSummary string   `json:"short_summary"`
	Summary      string   `json:"summary"`
	Headline     string   `json:"headline"`
	ArticleBody  string   `json:"article_body"`
	Tags         []string `json:"tags"`
}

// Options tune the rewriter. Zero values select the defaults.
type Options struct {
	Model       string
	MaxAttempts int
	BaseDelay   time.Duration
}

// Rewriter calls the LLM gateway and falls back to a local summarizer when it keeps failing.
// A nil client disables generation entirely.
type Rewriter struct {
	client llm.Completer
	model  string
	policy retry.Policy
	logger *zerolog.Logger
}

// New creates a Rewriter.
func New(client llm.Completer, opts Options, logger *zerolog.Logger) *Rewriter {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}

	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}

	return &Rewriter{
		client: client,
		model:  opts.Model,
		policy: retry.Policy{MaxAttempts: opts.MaxAttempts, BaseDelay: opts.BaseDelay},
		logger: logger,
	}
}

// Enabled reports whether the rewriter has an LLM client.
func (r *Rewriter) Enabled() bool {
	return r != nil && r.client != nil
}

// Rewrite never fails: exhausted retries yield the deterministic fallback package.
func (r *Rewriter) Rewrite(ctx context.Context, in Input) Package {
	insight := strings.TrimSpace(strings.Join(nonEmpty(in.Snippet, in.Body), " "))
	if insight == "" {
		text := htmlutils.Sanitize(firstNonEmpty(in.Snippet, in.Body, in.Title))
		observability.RewriterAttempts.WithLabelValues(statusSkipped).Inc()

		return Package{Summary: text, Content: text, Headline: in.Title}
	}

	if !r.Enabled() {
		observability.RewriterAttempts.WithLabelValues(statusSkipped).Inc()

		return Fallback(in)
	}

	req := llm.Request{
		System:      systemPrompt,
		Prompt:      buildPrompt(in, insight),
		Model:       r.model,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}

	policy := r.policy
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		r.logger.Warn().Err(err).
			Str(logFieldTitle, in.Title).
			Int(logFieldAttempt, attempt).
			Dur(logFieldDelay, delay).
			Msg("editorial rewrite attempt failed")
	}

	return retry.DoWithFallback(ctx, policy, func(ctx context.Context, _ int) (Package, error) {
		pkg, err := r.generate(ctx, req, in)
		if err != nil {
			observability.RewriterAttempts.WithLabelValues(statusError).Inc()

			return Package{}, err
		}

		observability.RewriterAttempts.WithLabelValues(statusSuccess).Inc()

		return pkg, nil
	}, func(err error) Package {
		r.logger.Error().Err(err).Str(logFieldTitle, in.Title).Msg("editorial rewrite failed, using local summary")
		observability.RewriterFallbacks.Inc()

		return Fallback(in)
	})
}

func (r *Rewriter) generate(ctx context.Context, req llm.Request, in Input) (Package, error) {
	text, err := r.client.CompleteText(ctx, req)
	if err != nil {
		return Package{}, fmt.Errorf("complete: %w", err)
	}

	return ParseResponse(text, in)
}

// ParseResponse decodes the model's JSON answer, tolerating code fences and surrounding prose.
func ParseResponse(text string, in Input) (Package, error) {
	var payload llmPayload
	if err := json.Unmarshal([]byte(llm.ExtractJSON(text)), &payload); err != nil {
		return Package{}, fmt.Errorf("%w: %w", coreerrors.ErrInvalidPayload, err)
	}

	summary := firstNonEmpty(payload.ShortSummary, payload.Summary)

	content := strings.TrimSpace(payload.ArticleBody)
	if content == "" {
		if summary == "" {
			return Package{}, fmt.Errorf("%w: no summary or body", coreerrors.ErrInvalidPayload)
		}

		category := firstNonEmpty(in.Category, "AI technology")
		content = fmt.Sprintf("%s\n\n### Why it matters\n%s reports on developments in %s.", summary, in.Source, category)
	}

	return Package{
		Summary:   summary,
		Content:   content,
		Tags:      payload.Tags,
		Headline:  firstNonEmpty(payload.Headline, in.Title),
		Generated: true,
	}, nil
}

// Fallback builds a package from the first two sentences of the sanitized snippet or body.
func Fallback(in Input) Package {
	text := firstNonEmpty(htmlutils.Sanitize(in.Snippet), htmlutils.Sanitize(in.Body), in.Title, summaryUnavailable)

	var sentences []string

	for _, s := range strings.Split(text, ".") {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}

		if len(sentences) == fallbackSentences {
			break
		}
	}

	summary := text
	if len(sentences) > 0 {
		summary = strings.Join(sentences, ". ") + "."
	}

	summary = htmlutils.Truncate(summary, SummaryCharLimit, ellipsis)

	return Package{Summary: summary, Content: summary, Headline: in.Title}
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}

	return ""
}
