package backfill

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/samber/lo"

	"github.com/new20/newsai/internal/core/domain"
	"github.com/new20/newsai/internal/process/images"
)

const (
	diagnoseRowLimit   = 200
	diagnoseExamples   = 15
	diagnoseRemoteURLs = 25
)

// RecentLister lists the newest stored articles.
type RecentLister interface {
	RecentArticles(ctx context.Context, limit int) ([]domain.StoredArticle, error)
}

// RemoteCheck is the HEAD probe result for one stored image.
type RemoteCheck struct {
	Title       string
	URL         string
	OK          bool
	Status      int
	ContentType string
	Err         error
}

// Diagnosis counts image problems in recent rows.
type Diagnosis struct {
	Checked int
	Broken  []domain.StoredArticle
	Generic int
	Remote  []RemoteCheck
}

// Diagnose inspects the 200 most recent articles. With client non-nil it also probes the
// first 25 renderable images with HEAD requests, expecting an image/* content type.
func Diagnose(ctx context.Context, store RecentLister, client *http.Client) (Diagnosis, error) {
	rows, err := store.RecentArticles(ctx, diagnoseRowLimit)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("loading recent articles: %w", err)
	}

	d := Diagnosis{
		Checked: len(rows),
		Broken: lo.Filter(rows, func(a domain.StoredArticle, _ int) bool {
			return !images.IsRenderable(a.ImageURL)
		}),
		Generic: lo.CountBy(rows, func(a domain.StoredArticle) bool {
			return images.IsGenericFallback(strings.TrimSpace(a.ImageURL))
		}),
	}

	if client == nil {
		return d, nil
	}

	renderable := lo.Filter(rows, func(a domain.StoredArticle, _ int) bool { return images.IsRenderable(a.ImageURL) })

	for _, a := range renderable[:min(len(renderable), diagnoseRemoteURLs)] {
		d.Remote = append(d.Remote, probe(ctx, client, a))
	}

	return d, nil
}

func probe(ctx context.Context, client *http.Client, a domain.StoredArticle) RemoteCheck {
	u := strings.TrimSpace(a.ImageURL)
	check := RemoteCheck{Title: a.Title, URL: u}

	if strings.HasPrefix(u, "data:image/") {
		check.OK = true
		return check
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u, nil)
	if err != nil {
		check.Err = err
		return check
	}

	resp, err := client.Do(req)
	if err != nil {
		check.Err = err
		return check
	}
	defer resp.Body.Close()

	check.Status = resp.StatusCode
	check.ContentType = resp.Header.Get("Content-Type")
	check.OK = resp.StatusCode >= 200 && resp.StatusCode < 300 &&
		strings.HasPrefix(strings.ToLower(check.ContentType), "image/")

	return check
}

// Write prints the diagnosis in the operator report format.
func (d Diagnosis) Write(w io.Writer) {
	fmt.Fprintf(w, "Checked %d recent articles.\n", d.Checked)
	fmt.Fprintf(w, "Broken/non-renderable image_url: %d\n", len(d.Broken))
	fmt.Fprintf(w, "Generic fallback images: %d\n", d.Generic)

	if len(d.Broken) > 0 {
		fmt.Fprintln(w, "\nExamples of broken image_url values:")

		for _, a := range d.Broken[:min(len(d.Broken), diagnoseExamples)] {
			fmt.Fprintf(w, "- %s | %s | %s | %s | image_url=%q\n", a.ID, a.Category, a.Source, a.Title, a.ImageURL)
		}
	}

	if d.Remote == nil {
		return
	}

	fmt.Fprintf(w, "\nRemote image checks (first %d renderable URLs):\n", diagnoseRemoteURLs)

	for _, c := range d.Remote {
		switch {
		case c.Err != nil:
			fmt.Fprintf(w, "- BAD fetch-error | %s | %s | %v\n", c.Title, c.URL, c.Err)
		case c.Status == 0 && c.OK:
			fmt.Fprintf(w, "- OK data URI | %s\n", c.Title)
		default:
			verdict := "BAD"
			if c.OK {
				verdict = "OK"
			}

			ct := lo.Ternary(c.ContentType == "", "no-content-type", c.ContentType)
			fmt.Fprintf(w, "- %s %d %s | %s | %s\n", verdict, c.Status, ct, c.Title, c.URL)
		}
	}
}
