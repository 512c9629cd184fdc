package pipeline

// Run limits.
const (
	DefaultItemConcurrency = 4
	DefaultMaxItemsPerFeed = 15
	SelfTestMaxSources     = 2
	SelfTestMaxArticles    = 5
	maxTitleLength         = 200
)

// Placeholders for items with missing text.
const (
	defaultTitle   = "No title"
	defaultSnippet = "No summary available"
)

// MessageNoArticles is the run message when nothing passed the filters.
const MessageNoArticles = "No articles found"

// Run status labels.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Drop reasons recorded before the filter runs or after it passes.
const (
	dropReasonMissingURL    = "missing_source_url"
	dropReasonLowImportance = "below_importance"
	dropReasonMissingImage  = "missing_image"
)

// Log field constants
const (
	LogFieldRunID    = "run_id"
	LogFieldSelfTest = "self_test"
	LogFieldFeed     = "feed"
	LogFieldType     = "type"
	LogFieldTitle    = "title"
	LogFieldReason   = "reason"
)
