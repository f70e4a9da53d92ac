package translate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/screensub/platform/internal/errors"
)

func TestGoogleBackendTranslate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("missing API key in query: %s", r.URL.RawQuery)
		}
		var req translateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Q != "hello" || req.Target != "es" || req.Source != "en" {
			t.Errorf("request = %+v", req)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"translations": []map[string]string{{"translatedText": "hola"}},
			},
		})
	}))
	defer srv.Close()

	b := NewGoogleBackend(srv.URL, "test-key")
	got, err := b.Translate(context.Background(), "hello", "es", "en")
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if got != "hola" {
		t.Errorf("Translate = %q, want hola", got)
	}
}

func TestGoogleBackendHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	b := NewGoogleBackend(srv.URL, "test-key")
	_, err := b.Translate(context.Background(), "hello", "es", "en")
	if !apperrors.IsCode(err, apperrors.CodeTranslationFailed) {
		t.Errorf("err = %v, want TRANSLATION_FAILED", err)
	}
}

func TestGoogleBackendNoKey(t *testing.T) {
	b := NewGoogleBackend("http://unused", "")

	if b.IsAvailable() {
		t.Error("backend without key should report unavailable")
	}
	_, err := b.Translate(context.Background(), "hello", "es", "en")
	if !apperrors.IsCode(err, apperrors.CodeTranslationUnavailable) {
		t.Errorf("err = %v, want TRANSLATION_UNAVAILABLE", err)
	}
}

func TestGoogleBackendDetectLanguage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("path = %q, want /detect", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]any{
				"detections": [][]map[string]any{{{"language": "es"}}},
			},
		})
	}))
	defer srv.Close()

	b := NewGoogleBackend(srv.URL, "test-key")
	got, err := b.DetectLanguage(context.Background(), "hola mundo")
	if err != nil || got != "es" {
		t.Errorf("DetectLanguage = %q, %v, want es", got, err)
	}
}

func TestDetectLanguageDefaultsWithoutKey(t *testing.T) {
	b := NewGoogleBackend("http://unused", "")
	got, err := b.DetectLanguage(context.Background(), "whatever")
	if err != nil || got != "en" {
		t.Errorf("DetectLanguage = %q, %v, want en", got, err)
	}
}

func TestNormalizeTag(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"en-US", "en"},
		{"es", "es"},
		{"pt-BR", "pt"},
		{"zh-Hans", "zh"},
		{"garbage!!", "en"},
		{"", "en"},
	}
	for _, tt := range tests {
		if got := NormalizeTag(tt.in); got != tt.want {
			t.Errorf("NormalizeTag(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
