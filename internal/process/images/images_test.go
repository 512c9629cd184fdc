package images

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreerrors "github.com/new20/newsai/internal/core/errors"
)

func TestIsRenderable(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"https://good.example/a.jpg", true},
		{"http://good.example/a", true},
		{"data:image/png;base64,AAAA", true},
		{"", false},
		{"null", false},
		{"undefined", false},
		{"/relative/a.jpg", false},
		{"//cdn.example.com/a.jpg", false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRenderable(tt.url))
		})
	}
}

func TestIsGenericFallback(t *testing.T) {
	assert.True(t, IsGenericFallback("https://source.unsplash.com/featured/?ai"))
	assert.True(t, IsGenericFallback(CategoryFallback("Research")))
	assert.True(t, IsGenericFallback(CategoryFallbackOrDefault("Nope")))
	assert.False(t, IsGenericFallback("https://good.example/a.jpg"))
	assert.False(t, IsGenericFallback(""))
}

func TestStaticFallback_Deterministic(t *testing.T) {
	a := StaticFallback("Unknown", "Title", "https://x.example.com")
	b := StaticFallback("Unknown", "Title", "https://x.example.com")

	assert.Equal(t, a, b)
	assert.Contains(t, genericPool, a)
	assert.Equal(t, CategoryFallback("Business"), StaticFallback("Business", "Title", ""))
}

func TestHTMLImages_Order(t *testing.T) {
	markup := `<html><head>
<script type="application/ld+json">{"image":["https://ld.example.com/1.png"]}</script>
<meta property="og:image" content="https://og.example.com/og.jpg">
</head><body><img src="/inline.gif"></body></html>`

	assert.Equal(t, []string{
		"https://og.example.com/og.jpg",
		"/inline.gif",
		"https://ld.example.com/1.png",
	}, HTMLImages(markup))
}

func TestLooksLikeImage(t *testing.T) {
	assert.True(t, looksLikeImage("https://images.unsplash.com/photo-1?w=1200&fm=jpg"))
	assert.True(t, looksLikeImage("https://cdn.example.com/x.AVIF"))
	assert.False(t, looksLikeImage("https://cdn.example.com/page.html"))
	assert.False(t, looksLikeImage("ftp://cdn.example.com/x.png"))
}

func TestHuggingFaceGenerator(t *testing.T) {
	t.Run("raw image bytes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/stabilityai/sdxl", r.URL.Path)
			assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
			w.Header().Set("Content-Type", "image/jpeg")
			_, _ = w.Write([]byte{0xff, 0xd8})
		}))
		defer srv.Close()

		g := NewHuggingFaceGenerator(srv.Client(), srv.URL, "stabilityai/sdxl", "tok", time.Second)
		got, err := g.Generate(context.Background(), "prompt")
		require.NoError(t, err)
		assert.Equal(t, "data:image/jpeg;base64,/9g=", got)
	})

	t.Run("json payload", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"data":[{"b64_json":"QUJD"}]}`))
		}))
		defer srv.Close()

		got, err := NewHuggingFaceGenerator(srv.Client(), srv.URL, "m", "tok", time.Second).Generate(context.Background(), "p")
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,QUJD", got)
	})

	t.Run("auth rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		_, err := NewHuggingFaceGenerator(srv.Client(), srv.URL, "m", "tok", time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, coreerrors.ErrGeneratorAuth)
	})

	t.Run("server error", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("loading"))
		}))
		defer srv.Close()

		_, err := NewHuggingFaceGenerator(srv.Client(), srv.URL, "m", "tok", time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, coreerrors.ErrHTTPStatusNotOK)
	})

	t.Run("oversized image rejected", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(make([]byte, maxImageBytes+1))
		}))
		defer srv.Close()

		_, err := NewHuggingFaceGenerator(srv.Client(), srv.URL, "m", "tok", 5*time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, coreerrors.ErrInvalidPayload)
	})

	t.Run("missing token", func(t *testing.T) {
		_, err := NewHuggingFaceGenerator(nil, "https://unused.example", "m", "", time.Second).Generate(context.Background(), "p")
		assert.ErrorIs(t, err, coreerrors.ErrGeneratorDisabled)
	})
}
