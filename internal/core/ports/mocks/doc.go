// Package mocks provides test doubles for ports interfaces.
//
// These mocks are simple, thread-safe, in-memory implementations suitable for
// unit testing. Each mock provides:
//
//   - Default behavior that mirrors the Postgres adapter
//   - Callback functions (xxxFn) for customizing behavior per test
//   - Helper methods for inspecting state
//
// # Usage Example
//
//	func TestMyService(t *testing.T) {
//		repo := mocks.NewArticleRepository()
//		repo.UpsertArticlesFn = func(context.Context, []domain.Article) ([]domain.StoredArticle, error) {
//			return nil, errors.New("db down")
//		}
//
//		svc := NewService(repo)
//		// ... test service behavior
//	}
//
// # Available Mocks
//
//   - ArticleRepository: implements ports.ArticleRepository
//   - SubscriberRepository: implements ports.SubscriberRepository
package mocks
