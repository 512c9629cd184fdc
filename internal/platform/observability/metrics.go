package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_feeds_fetched_total",
		Help: "Feed fetch attempts by source type and outcome",
	}, []string{"type", "status"})

	FeedItemsFetched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_feed_items_fetched_total",
		Help: "Raw items returned by feeds",
	}, []string{"type"})

	FeedFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsai_feed_fetch_duration_seconds",
		Help:    "Duration of a single feed fetch",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	ArticlesDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_articles_dropped_total",
		Help: "Items rejected before persistence, by reason",
	}, []string{"reason"})

	ArticlesAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_articles_accepted_total",
		Help: "Articles that passed filtering and scoring, by category",
	}, []string{"category"})

	ImportanceScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsai_importance_score",
		Help:    "Distribution of computed importance scores",
		Buckets: []float64{5, 6, 7, 8, 9, 10, 11, 12},
	})

	RewriterAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_rewriter_attempts_total",
		Help: "Editorial rewriter calls by outcome",
	}, []string{"status"})

	RewriterFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsai_rewriter_fallbacks_total",
		Help: "Articles summarized by the local fallback after retries were exhausted",
	})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsai_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"model"})

	ImageResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_image_resolutions_total",
		Help: "Resolved article images by resolver stage",
	}, []string{"source"})

	ImageGenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_image_generations_total",
		Help: "Generative image API calls by outcome",
	}, []string{"status"})

	ImageMergeProtected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsai_image_merge_protected_total",
		Help: "Existing images kept over weaker incoming ones during upsert",
	})

	ImageBackfills = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_image_backfills_total",
		Help: "Backfilled article images by provider",
	}, []string{"provider"})

	ArticlesUpserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsai_articles_upserted_total",
		Help: "Articles written by the upsert step",
	})

	CategoryFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_category_fallbacks_total",
		Help: "Unknown categories replaced by the default category",
	}, []string{"category"})

	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_runs_total",
		Help: "Ingestion runs by outcome",
	}, []string{"status"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "newsai_run_duration_seconds",
		Help:    "Wall-clock duration of an ingestion run",
		Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 900},
	})

	LastRunTimestamp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsai_last_run_timestamp_seconds",
		Help: "Unix time of the last completed ingestion run",
	})

	HTTPRateLimited = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_http_rate_limited_total",
		Help: "Requests rejected by the per-IP limiter, by limiter name",
	}, []string{"limiter"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})

	NewsletterSubscriptions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsai_newsletter_subscriptions_total",
		Help: "Newsletter subscription attempts by outcome",
	}, []string{"status"})
)
