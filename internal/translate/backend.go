// Package translate wraps a translation backend with caching and degradation.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/text/language"

	apperrors "github.com/screensub/platform/internal/errors"
)

// Backend is the external translation collaborator.
type Backend interface {
	// Translate converts text to targetLang. sourceLang may be empty, in
	// which case the backend auto-detects.
	Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error)

	// DetectLanguage returns the detected language tag of text.
	DetectLanguage(ctx context.Context, text string) (string, error)

	// IsAvailable reports whether the backend is configured and usable.
	IsAvailable() bool
}

// GoogleBackend calls the Google Cloud Translation v2 REST API.
type GoogleBackend struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// NewGoogleBackend creates a backend. An empty API key leaves the backend
// reporting unavailable rather than erroring per call.
func NewGoogleBackend(endpoint, apiKey string) *GoogleBackend {
	return &GoogleBackend{
		endpoint: strings.TrimRight(endpoint, "/"),
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// IsAvailable reports whether an API credential is configured.
func (g *GoogleBackend) IsAvailable() bool {
	return g.apiKey != ""
}

type translateRequest struct {
	Q      string `json:"q"`
	Target string `json:"target"`
	Source string `json:"source,omitempty"`
	Format string `json:"format"`
}

type translateResponse struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

type detectResponse struct {
	Data struct {
		Detections [][]struct {
			Language string `json:"language"`
		} `json:"detections"`
	} `json:"data"`
}

// Translate calls the v2 translate endpoint.
func (g *GoogleBackend) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	if !g.IsAvailable() {
		return "", apperrors.New(apperrors.StageTranslation, apperrors.CodeTranslationUnavailable, "no API key configured")
	}

	req := translateRequest{
		Q:      text,
		Target: NormalizeTag(targetLang),
		Format: "text",
	}
	if sourceLang != "" {
		req.Source = NormalizeTag(sourceLang)
	}

	var resp translateResponse
	if err := g.post(ctx, g.endpoint, req, &resp); err != nil {
		return "", err
	}
	if len(resp.Data.Translations) == 0 {
		return "", apperrors.New(apperrors.StageTranslation, apperrors.CodeTranslationFailed, "empty translation response")
	}
	return resp.Data.Translations[0].TranslatedText, nil
}

// DetectLanguage calls the v2 detect endpoint; falls back to "en" when the
// backend is unavailable.
func (g *GoogleBackend) DetectLanguage(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" || !g.IsAvailable() {
		return "en", nil
	}

	var resp detectResponse
	if err := g.post(ctx, g.endpoint+"/detect", struct {
		Q string `json:"q"`
	}{Q: text}, &resp); err != nil {
		return "en", err
	}
	if len(resp.Data.Detections) == 0 || len(resp.Data.Detections[0]) == 0 {
		return "en", nil
	}
	return resp.Data.Detections[0][0].Language, nil
}

func (g *GoogleBackend) post(ctx context.Context, url string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(err, apperrors.StageTranslation, apperrors.CodeTranslationFailed, "encode request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s?key=%s", url, g.apiKey), bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrap(err, apperrors.StageTranslation, apperrors.CodeTranslationFailed, "build request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := g.client.Do(httpReq)
	if err != nil {
		return apperrors.Wrap(err, apperrors.StageTranslation, apperrors.CodeTranslationFailed, "backend call")
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		slog.Error("translation API error", "status", httpResp.StatusCode, "body", string(snippet))
		return apperrors.Newf(apperrors.StageTranslation, apperrors.CodeTranslationFailed, "backend status %d", httpResp.StatusCode)
	}

	if err := json.NewDecoder(httpResp.Body).Decode(out); err != nil {
		return apperrors.Wrap(err, apperrors.StageTranslation, apperrors.CodeTranslationFailed, "decode response")
	}
	return nil
}

// NormalizeTag validates a language tag and reduces it to its base form,
// falling back to "en" when the tag does not parse.
func NormalizeTag(tag string) string {
	parsed, err := language.Parse(tag)
	if err != nil {
		slog.Debug("unparseable language tag, using en", "tag", tag)
		return "en"
	}
	base, _ := parsed.Base()
	return base.String()
}
