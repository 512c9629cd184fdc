package api

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/observability"
	"github.com/new20/newsai/internal/process/pipeline"
)

const (
	msgAdminRateLimited     = "Rate limit exceeded. Try again later."
	msgSubscribeRateLimited = "Please wait before trying again."
	msgEmailRequired        = "Email is required."
	msgEmailInvalid         = "Please provide a valid email address."
	msgAlreadySubscribed    = "Looks like you are already subscribed."
	msgSubscribeFailed      = "Unable to complete subscription right now. Please try again later."
	msgSubscribed           = "Thanks for subscribing!"
	msgStatsFailed          = "Unable to fetch stats right now."

	minEmailLength     = 5
	maxEmailLength     = 255
	maxSourceTagLength = 100
	statsTimeout       = 10 * time.Second

	subscriptionOK        = "ok"
	subscriptionDuplicate = "duplicate"
	subscriptionInvalid   = "invalid"
	subscriptionError     = "error"
)

var (
	emailPattern      = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)
	lineBreakPattern  = regexp.MustCompile(`[\r\n]+`)
	sourceTagReplacer = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "`", "")
)

type errorResponse struct {
	Success bool       `json:"success"`
	Error   string     `json:"error"`
	Debug   *DebugInfo `json:"debug,omitempty"`
}

// DebugInfo reports run counters alongside fetch-news responses.
type DebugInfo struct {
	RunID            string `json:"runId,omitempty"`
	DatabaseName     string `json:"databaseName"`
	SourcesLoaded    int    `json:"sourcesLoadedCount"`
	CategoriesLoaded int    `json:"categoriesLoadedCount"`
	RewriterEnabled  bool   `json:"openrouterEnabled"`
	pipeline.RunMetrics
}

// ArticleView is the JSON shape of a stored article.
type ArticleView struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Category        string    `json:"category"`
	Source          string    `json:"source"`
	SourceURL       string    `json:"source_url"`
	ImageURL        string    `json:"image_url"`
	ImportanceScore int       `json:"importance_score"`
	IsFeatured      bool      `json:"is_featured"`
	PublishedAt     time.Time `json:"published_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// FetchResponse is the fetch-news body. Error is only set on failures.
type FetchResponse struct {
	Success  bool          `json:"success"`
	Message  string        `json:"message,omitempty"`
	Error    string        `json:"error,omitempty"`
	Articles []ArticleView `json:"articles"`
	Count    int           `json:"count"`
	Debug    DebugInfo     `json:"debug"`
}

type subscribeRequest struct {
	Email  string `json:"email"`
	Source string `json:"source"`
}

type subscribeData struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

type subscribeResponse struct {
	Success bool          `json:"success"`
	Data    subscribeData `json:"data"`
	Message string        `json:"message"`
}

type statsResponse struct {
	Success bool `json:"success"`
	Data    struct {
		SubscriberCount int64 `json:"subscriberCount"`
	} `json:"data"`
}

type okResponse struct {
	Success bool `json:"success"`
}

func (s *Server) handleAuthenticate(c *fiber.Ctx) error {
	return c.JSON(okResponse{Success: true})
}

func (s *Server) handleFetchNews(c *fiber.Ctx) error {
	opts := pipeline.Options{SelfTest: strings.EqualFold(c.Get(headerSelfTest), "true")}

	// The run outlives a dropped client connection.
	res, err := s.runner.Run(context.WithoutCancel(c.UserContext()), opts)
	debug := s.debugFor(res)

	if err != nil {
		status := fiber.StatusInternalServerError
		if errors.Is(err, coreerrors.ErrRunInProgress) {
			status = fiber.StatusConflict
		}

		s.logger.Error().Err(err).Bool("self_test", opts.SelfTest).Msg("fetch-news failed")

		return c.Status(status).JSON(errorResponse{Error: err.Error(), Debug: &debug})
	}

	articles := lo.Map(res.Articles, func(a domain.StoredArticle, _ int) ArticleView { return toView(a) })

	return c.JSON(FetchResponse{
		Success:  true,
		Message:  res.Message,
		Articles: articles,
		Count:    len(articles),
		Debug:    debug,
	})
}

func (s *Server) debugFor(res pipeline.Result) DebugInfo {
	d := DebugInfo{
		RunID:            res.RunID,
		DatabaseName:     s.opts.DatabaseName,
		SourcesLoaded:    s.opts.SourcesLoaded,
		CategoriesLoaded: s.opts.CategoriesLoaded,
		RewriterEnabled:  s.opts.RewriterEnabled,
		RunMetrics:       res.Metrics,
	}

	if res.RunID != "" {
		d.SourcesLoaded = res.SourcesLoaded
		d.CategoriesLoaded = res.CategoriesLoaded
		d.RewriterEnabled = res.RewriterEnabled
	}

	return d
}

func (s *Server) handleSubscribe(c *fiber.Ctx) error {
	var req subscribeRequest
	if len(c.Body()) > 0 {
		// A malformed body is treated like a missing email.
		_ = c.BodyParser(&req)
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		observability.NewsletterSubscriptions.WithLabelValues(subscriptionInvalid).Inc()
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgEmailRequired})
	}

	if !ValidEmail(email) {
		observability.NewsletterSubscriptions.WithLabelValues(subscriptionInvalid).Inc()
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: msgEmailInvalid})
	}

	sub, err := s.subscribers.AddSubscriber(c.UserContext(), email, SanitizeSourceTag(req.Source))

	switch {
	case errors.Is(err, coreerrors.ErrDuplicateSubscriber):
		observability.NewsletterSubscriptions.WithLabelValues(subscriptionDuplicate).Inc()
		return c.Status(fiber.StatusConflict).JSON(errorResponse{Error: msgAlreadySubscribed})
	case err != nil:
		observability.NewsletterSubscriptions.WithLabelValues(subscriptionError).Inc()
		s.logger.Error().Err(err).Msg("newsletter subscription failed")

		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: msgSubscribeFailed})
	}

	observability.NewsletterSubscriptions.WithLabelValues(subscriptionOK).Inc()

	return c.JSON(subscribeResponse{
		Success: true,
		Data:    subscribeData{ID: sub.ID, CreatedAt: sub.CreatedAt},
		Message: msgSubscribed,
	})
}

func (s *Server) handleStats(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), statsTimeout)
	defer cancel()

	count, err := s.subscribers.SubscriberCount(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("newsletter stats failed")
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: msgStatsFailed})
	}

	var resp statsResponse
	resp.Success = true
	resp.Data.SubscriberCount = count

	return c.JSON(resp)
}

// ValidEmail reports whether email looks like a deliverable address.
func ValidEmail(email string) bool {
	if len(email) < minEmailLength || len(email) > maxEmailLength {
		return false
	}

	return emailPattern.MatchString(email)
}

// SanitizeSourceTag flattens line breaks, strips markup characters and caps the length.
func SanitizeSourceTag(tag string) string {
	tag = lineBreakPattern.ReplaceAllString(tag, " ")
	tag = strings.TrimSpace(sourceTagReplacer.Replace(tag))

	if r := []rune(tag); len(r) > maxSourceTagLength {
		tag = string(r[:maxSourceTagLength])
	}

	return tag
}

func toView(a domain.StoredArticle) ArticleView {
	return ArticleView{
		ID:              a.ID,
		Title:           a.Title,
		Summary:         a.Summary,
		Category:        a.Category,
		Source:          a.Source,
		SourceURL:       a.SourceURL,
		ImageURL:        a.ImageURL,
		ImportanceScore: a.ImportanceScore,
		IsFeatured:      a.IsFeatured,
		PublishedAt:     a.PublishedAt,
		CreatedAt:       a.CreatedAt,
	}
}
