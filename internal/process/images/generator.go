package images

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	coreerrors "github.com/new20/newsai/internal/core/errors"
	"github.com/new20/newsai/internal/platform/htmlutils"
)

const (
	negativePrompt   = "text, watermark, logo, politics, war, violence, weapons, gore"
	guidanceScale    = 7
	imageWidth       = 1024
	imageHeight      = 576
	promptSummaryMax = 260
	maxImageBytes    = 10 << 20
	errBodyPrefix    = 200

	defaultMimeType = "image/png"
)

// Generator produces an image (usually a data URI) for a text prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ArticleMeta is the article context used to synthesize a generation prompt.
type ArticleMeta struct {
	Title    string
	Summary  string
	Category string
	Source   string
}

// BuildPrompt describes an editorial photo for the article.
func BuildPrompt(meta ArticleMeta) string {
	summary := htmlutils.Truncate(htmlutils.Sanitize(meta.Summary), promptSummaryMax, "")
	title := strings.NewReplacer(`"`, "", "'", "").Replace(htmlutils.Sanitize(meta.Title))

	focus := "Focus on AI innovation."
	if meta.Category != "" {
		focus = fmt.Sprintf("Focus on %s innovation.", strings.ToLower(meta.Category))
	}

	authority := ""
	if meta.Source != "" {
		authority = fmt.Sprintf("As reported by %s.", meta.Source)
	}

	parts := []string{title + ".", summary, focus, authority,
		"Shot as high-resolution editorial photography, natural lighting, expressive but realistic."}

	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}

// HuggingFaceGenerator calls the Hugging Face text-to-image inference API.
type HuggingFaceGenerator struct {
	client   *http.Client
	endpoint string
	token    string
}

// NewHuggingFaceGenerator builds a generator for model under baseURL.
// An empty token or model yields a generator that always returns ErrGeneratorDisabled.
func NewHuggingFaceGenerator(client *http.Client, baseURL, model, token string, timeout time.Duration) *HuggingFaceGenerator {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	endpoint := ""
	if model != "" {
		endpoint = strings.TrimRight(baseURL, "/") + "/" + model
	}

	return &HuggingFaceGenerator{client: client, endpoint: endpoint, token: token}
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfParameters struct {
	NegativePrompt string  `json:"negative_prompt"`
	GuidanceScale  float64 `json:"guidance_scale"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
}

// Generate returns a data URI, ErrGeneratorDisabled without credentials, or ErrGeneratorAuth on 401/403.
func (g *HuggingFaceGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if g.token == "" || g.endpoint == "" {
		return "", coreerrors.ErrGeneratorDisabled
	}

	body, err := json.Marshal(hfRequest{
		Inputs: prompt,
		Parameters: hfParameters{
			NegativePrompt: negativePrompt,
			GuidanceScale:  guidanceScale,
			Width:          imageWidth,
			Height:         imageHeight,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+g.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", defaultMimeType)

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return "", fmt.Errorf("%w: status %d", coreerrors.ErrGeneratorAuth, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("%w: %d: %s", coreerrors.ErrHTTPStatusNotOK, resp.StatusCode, htmlutils.Truncate(string(data), errBodyPrefix, ""))
	case len(data) > maxImageBytes:
		return "", fmt.Errorf("%w: image larger than %d bytes", coreerrors.ErrInvalidPayload, maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if strings.Contains(contentType, "application/json") {
		return decodeJSONImage(data)
	}

	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty image body", coreerrors.ErrInvalidPayload)
	}

	mime := strings.TrimSpace(strings.Split(contentType, ";")[0])
	if !strings.HasPrefix(mime, "image/") {
		mime = defaultMimeType
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// decodeJSONImage handles models that wrap base64 image data in JSON.
func decodeJSONImage(data []byte) (string, error) {
	var list []struct {
		B64 string `json:"b64_json"`
	}
	if err := json.Unmarshal(data, &list); err == nil && len(list) > 0 && list[0].B64 != "" {
		return dataURI(list[0].B64), nil
	}

	var obj struct {
		ImageBase64 string `json:"image_base64"`
		Data        []struct {
			B64 string `json:"b64_json"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return "", fmt.Errorf("%w: %w", coreerrors.ErrInvalidPayload, err)
	}

	if obj.ImageBase64 != "" {
		return dataURI(obj.ImageBase64), nil
	}

	if len(obj.Data) > 0 && obj.Data[0].B64 != "" {
		return dataURI(obj.Data[0].B64), nil
	}

	return "", fmt.Errorf("%w: no image in json response", coreerrors.ErrInvalidPayload)
}

func dataURI(b64 string) string {
	return "data:" + defaultMimeType + ";base64," + b64
}
