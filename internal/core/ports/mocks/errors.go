package mocks

import "errors"

// ErrArticleNotFound is returned when an article id doesn't exist.
var ErrArticleNotFound = errors.New("article not found")
