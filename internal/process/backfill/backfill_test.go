package backfill

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/new20/newsai/internal/core/domain"
	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/core/ports/mocks"
	"github.com/new20/newsai/internal/process/images"
)

var chipArticle = domain.StoredArticle{
	ID: "a1",
	Article: domain.Article{
		SourceURL: "https://lab.example.com/chip",
		Title:     "Nvidia unveils new chip: faster inference",
		Summary:   "The chip targets inference workloads in the data center. Inference costs drop.",
		Category:  "Technology",
		Source:    "Lab Blog",
	},
}

type staticProvider struct {
	name   string
	photos []Photo
	err    error
	calls  int
}

func (p *staticProvider) Name() string { return p.name }

func (p *staticProvider) Search(_ context.Context, _ string) ([]Photo, error) {
	p.calls++
	return p.photos, p.err
}

func TestKeywords(t *testing.T) {
	kw := Keywords(chipArticle)

	require.Len(t, kw, maxKeywords)
	assert.Equal(t, []string{"inference", "chip"}, kw[:2])
	assert.NotContains(t, kw, "the")
	assert.NotContains(t, kw, "new")
	assert.Contains(t, kw, "ai")
}

func TestQueries(t *testing.T) {
	kw := []string{"chip", "inference", "nvidia", "data", "center"}
	qs := Queries(chipArticle, kw)

	assert.Equal(t, []string{
		"Nvidia unveils new chip chip inference nvidia",
		"Nvidia unveils new chip technology",
		"technology chip inference nvidia",
		"chip inference nvidia data center technology",
	}, qs)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "OpenAI ships GPT", cleanTitle(`"OpenAI" ships GPT - and more`))
	assert.Equal(t, "Lab news", cleanTitle("Lab news | Site"))
}

func TestScorePhoto(t *testing.T) {
	kw := []string{"chip", "inference", "semiconductor"}

	tests := []struct {
		name  string
		photo Photo
		want  float64
	}{
		{name: "empty vocabulary", photo: Photo{}, want: 0},
		{
			name:  "keyword hits",
			photo: Photo{Description: "Close-up of a semiconductor chip used for inference"},
			want:  1 + 2 + 2,
		},
		{
			name:  "category and technology topic",
			photo: Photo{Description: "technology chip", ApprovedTopics: []string{"technology"}},
			want:  1 + 1 + 1.5,
		},
		{
			name:  "generic tag and copy space",
			photo: Photo{AltDescription: "abstract chip background", Tags: []string{"Abstract"}},
			want:  1 - 1 - 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ScorePhoto(tt.photo, chipArticle, kw), 0.001)
		})
	}
}

func TestResolve(t *testing.T) {
	match := Photo{Description: "semiconductor chip for inference", URL: "https://img.example.com/chip.jpg"}
	weak := Photo{Description: "sunset over the sea", Tags: []string{"sunset"}, URL: "https://img.example.com/sunset.jpg"}

	t.Run("first provider wins", func(t *testing.T) {
		first := &staticProvider{name: ProviderUnsplash, photos: []Photo{weak, match}}
		second := &staticProvider{name: ProviderPixabay, photos: []Photo{match}}

		res := New(mocks.NewArticleRepository(), []Provider{first, second}, 0, 0, nil).Resolve(context.Background(), chipArticle)

		assert.Equal(t, match.URL, res.URL)
		assert.Equal(t, ProviderUnsplash, res.Provider)
		assert.Zero(t, second.calls)
	})

	t.Run("falls through to second provider", func(t *testing.T) {
		first := &staticProvider{name: ProviderUnsplash, err: errors.New("boom")}
		second := &staticProvider{name: ProviderPixabay, photos: []Photo{match}}

		res := New(mocks.NewArticleRepository(), []Provider{first, second}, 0, 0, nil).Resolve(context.Background(), chipArticle)

		assert.Equal(t, ProviderPixabay, res.Provider)
	})

	t.Run("category fallback", func(t *testing.T) {
		p := &staticProvider{name: ProviderUnsplash, photos: []Photo{weak}}

		res := New(mocks.NewArticleRepository(), []Provider{p}, 0, 0, nil).Resolve(context.Background(), chipArticle)

		assert.Equal(t, ProviderFallback, res.Provider)
		assert.Equal(t, images.CategoryFallbackOrDefault("Technology"), res.URL)
		assert.Equal(t, maxQueries, p.calls)
	})
}

func TestRun(t *testing.T) {
	match := Photo{Description: "semiconductor chip for inference", URL: "https://img.example.com/chip.jpg"}
	second := chipArticle
	second.ID = "a2"
	second.SourceURL = "https://lab.example.com/chip-2"

	store := mocks.NewArticleRepository()
	store.Seed(chipArticle, second)

	updates := map[string]string{}
	store.UpdateArticleImageFn = func(_ context.Context, id, imageURL string) error {
		if id == "a2" {
			return errors.New("row locked")
		}

		updates[id] = imageURL

		return nil
	}

	report, err := New(store, []Provider{&staticProvider{name: ProviderUnsplash, photos: []Photo{match}}}, 5, 0, nil).
		Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Report{Processed: 2, Updated: 1}, report)
	assert.Equal(t, map[string]string{"a1": match.URL}, updates)
}

func TestRun_Errors(t *testing.T) {
	_, err := New(mocks.NewArticleRepository(), nil, 0, 0, nil).Run(context.Background())
	assert.ErrorIs(t, err, coreerrors.ErrMissingConfig)

	store := mocks.NewArticleRepository()
	store.ArticlesNeedingImagesFn = func(context.Context, int) ([]domain.StoredArticle, error) {
		return nil, errors.New("down")
	}

	_, err = New(store, []Provider{&staticProvider{}}, 0, 0, nil).Run(context.Background())
	assert.Error(t, err)
}

func TestUnsplash(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "Client-ID key", r.Header.Get("Authorization"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))

		if r.URL.Query().Get("query") == "limited" {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte("Rate Limit Exceeded"))

			return
		}

		_, _ = w.Write([]byte(`{"results":[{
			"description":"chip","alt_description":"a chip",
			"user":{"name":"Ann"},
			"tags":[{"title":"hardware"},{"source":{"title":"silicon"}}],
			"topic_submissions":{"technology":{"status":"approved"},"nature":{"status":"rejected"}},
			"links":{"html":"https://unsplash.com/p/1"},
			"urls":{"regular":"https://images.unsplash.com/photo-1"}
		}]}`))
	}))
	defer srv.Close()

	u := NewUnsplash(srv.Client(), srv.URL, "key", nil)

	photos, err := u.Search(context.Background(), "chip")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, "https://images.unsplash.com/photo-1", photos[0].URL)
	assert.Equal(t, []string{"hardware", "silicon"}, photos[0].Tags)
	assert.Equal(t, []string{"technology"}, photos[0].ApprovedTopics)
	assert.Equal(t, "Ann", photos[0].Author)

	photos, err = u.Search(context.Background(), "limited")
	require.NoError(t, err)
	assert.Empty(t, photos)

	before := hits.Load()
	photos, err = u.Search(context.Background(), "chip")
	require.NoError(t, err)
	assert.Empty(t, photos)
	assert.Equal(t, before, hits.Load())
}

func TestPixabay(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "fail" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("[ERROR 400] bad key"))

			return
		}

		assert.Equal(t, "secret", r.URL.Query().Get("key"))
		assert.Equal(t, "true", r.URL.Query().Get("editors_choice"))
		_, _ = w.Write([]byte(`{"hits":[{"tags":"robot, ai , ","user":"bob","webformatURL":"https://pixabay.com/w.jpg","previewURL":"https://pixabay.com/p.jpg"}]}`))
	}))
	defer srv.Close()

	p := NewPixabay(srv.Client(), srv.URL, "secret")

	photos, err := p.Search(context.Background(), "robot")
	require.NoError(t, err)
	require.Len(t, photos, 1)
	assert.Equal(t, []string{"robot", "ai"}, photos[0].Tags)
	assert.Equal(t, "https://pixabay.com/w.jpg", photos[0].URL)

	_, err = p.Search(context.Background(), "fail")
	assert.ErrorIs(t, err, coreerrors.ErrHTTPStatusNotOK)

	photos, err = NewPixabay(srv.Client(), srv.URL, "").Search(context.Background(), "robot")
	require.NoError(t, err)
	assert.Nil(t, photos)
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestDiagnose(t *testing.T) {
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodHead, r.Method)

		header := http.Header{"Content-Type": {"text/html"}}
		if strings.HasSuffix(r.URL.Path, ".jpg") {
			header.Set("Content-Type", "image/jpeg")
		}

		return &http.Response{StatusCode: http.StatusOK, Header: header, Body: http.NoBody, Request: r}, nil
	})}

	row := func(id, img string) domain.StoredArticle {
		return domain.StoredArticle{ID: id, Article: domain.Article{Title: "t" + id, SourceURL: "https://news.example.com/" + id, ImageURL: img}}
	}

	store := mocks.NewArticleRepository()
	store.Seed(
		row("1", "https://cdn.example.com/ok.jpg"),
		row("2", "https://cdn.example.com/page"),
		row("3", "/relative.png"),
		row("4", ""),
		row("5", "https://source.unsplash.com/featured/?ai"),
		row("6", "data:image/png;base64,AAAA"),
	)

	d, err := Diagnose(context.Background(), store, nil)
	require.NoError(t, err)
	assert.Equal(t, 6, d.Checked)
	assert.Len(t, d.Broken, 2)
	assert.Equal(t, 1, d.Generic)
	assert.Nil(t, d.Remote)

	d, err = Diagnose(context.Background(), store, client)
	require.NoError(t, err)
	require.Len(t, d.Remote, 4)
	assert.True(t, d.Remote[0].OK)
	assert.False(t, d.Remote[1].OK)
	assert.Equal(t, "text/html", d.Remote[1].ContentType)
	assert.True(t, d.Remote[3].OK)

	var buf bytes.Buffer
	d.Write(&buf)

	out := buf.String()
	assert.Contains(t, out, "Checked 6 recent articles.")
	assert.Contains(t, out, "Broken/non-renderable image_url: 2")
	assert.Contains(t, out, "- OK data URI | t6")
	assert.Contains(t, out, "- BAD 200 text/html | t2 | https://cdn.example.com/page")
	assert.Contains(t, out, `image_url="/relative.png"`)
}
