package translate

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/resilience"
)

type fakeBackend struct {
	calls     atomic.Int32
	available bool
	err       error
	prefix    string
}

func (f *fakeBackend) Translate(_ context.Context, text, targetLang, _ string) (string, error) {
	f.calls.Add(1)
	if f.err != nil {
		return "", f.err
	}
	return f.prefix + text, nil
}

func (f *fakeBackend) DetectLanguage(context.Context, string) (string, error) { return "en", nil }
func (f *fakeBackend) IsAvailable() bool                                      { return f.available }

type upperImprover struct{}

func (upperImprover) ImproveTranslation(text, _ string) string { return strings.ToUpper(text) }

func newTestCache(t *testing.T, b Backend) *Cache {
	t.Helper()
	c := NewCache(b, nil, time.Hour, time.Hour)
	t.Cleanup(c.Close)
	return c
}

func TestTranslateCachesWithinTTL(t *testing.T) {
	backend := &fakeBackend{available: true, prefix: "es:"}
	c := newTestCache(t, backend)

	first, err := c.Translate(context.Background(), "hello", "es", "en")
	if err != nil || first != "es:hello" {
		t.Fatalf("first Translate = %q, %v", first, err)
	}

	second, err := c.Translate(context.Background(), "hello", "es", "en")
	if err != nil || second != "es:hello" {
		t.Fatalf("second Translate = %q, %v", second, err)
	}
	if got := backend.calls.Load(); got != 1 {
		t.Errorf("backend calls = %d, want 1 (second lookup should hit cache)", got)
	}
}

func TestTranslateExpiryTriggersOneBackendCall(t *testing.T) {
	backend := &fakeBackend{available: true, prefix: "es:"}
	c := newTestCache(t, backend)

	clock := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	if _, err := c.Translate(context.Background(), "hello", "es", "en"); err != nil {
		t.Fatal(err)
	}

	clock = clock.Add(2 * time.Hour) // past TTL
	if _, err := c.Translate(context.Background(), "hello", "es", "en"); err != nil {
		t.Fatal(err)
	}
	if got := backend.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2 (expired entry refetched exactly once)", got)
	}
	if got := c.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1 (refetch overwrites entry)", got)
	}
}

func TestTranslateDistinctKeysByCase(t *testing.T) {
	backend := &fakeBackend{available: true, prefix: "es:"}
	c := newTestCache(t, backend)

	_, _ = c.Translate(context.Background(), "Hello", "es", "en")
	_, _ = c.Translate(context.Background(), "hello", "es", "en")

	if got := backend.calls.Load(); got != 2 {
		t.Errorf("backend calls = %d, want 2 (keys are not normalized)", got)
	}
}

func TestTranslateEmptyInputSkipsBackend(t *testing.T) {
	backend := &fakeBackend{available: true}
	c := newTestCache(t, backend)

	got, err := c.Translate(context.Background(), "   ", "es", "en")
	if err != nil || got != "   " {
		t.Fatalf("Translate(blank) = %q, %v", got, err)
	}
	if backend.calls.Load() != 0 {
		t.Error("blank input must not reach the backend")
	}
}

func TestTranslateUnavailableDegrades(t *testing.T) {
	backend := &fakeBackend{available: false}
	c := newTestCache(t, backend)

	got, err := c.Translate(context.Background(), "hello", "es", "en")
	if got != "hello" {
		t.Errorf("Translate = %q, want original text", got)
	}
	if !apperrors.IsCode(err, apperrors.CodeTranslationUnavailable) {
		t.Errorf("err = %v, want TRANSLATION_UNAVAILABLE", err)
	}
	if backend.calls.Load() != 0 {
		t.Error("unconfigured backend must not be called")
	}
}

func TestTranslateBackendFailureDegrades(t *testing.T) {
	backend := &fakeBackend{
		available: true,
		err:       apperrors.New(apperrors.StageTranslation, apperrors.CodeTranslationUnavailable, "quota"),
	}
	c := newTestCache(t, backend)

	got, err := c.Translate(context.Background(), "hello", "es", "en")
	if got != "hello" {
		t.Errorf("Translate = %q, want original text on failure", got)
	}
	if err == nil {
		t.Error("degraded call should surface the reason")
	}
	if c.Len() != 0 {
		t.Error("failed calls must not be cached")
	}
}

func TestTranslateImproveHookApplied(t *testing.T) {
	backend := &fakeBackend{available: true, prefix: "es:"}
	c := NewCache(backend, upperImprover{}, time.Hour, time.Hour)
	defer c.Close()

	got, err := c.Translate(context.Background(), "hello", "es", "en")
	if err != nil || got != "ES:HELLO" {
		t.Fatalf("Translate = %q, %v, want improved text", got, err)
	}

	// The improved form is what gets cached.
	cached, err := c.Translate(context.Background(), "hello", "es", "en")
	if err != nil || cached != "ES:HELLO" {
		t.Fatalf("cached Translate = %q, %v", cached, err)
	}
}

func TestSweepRemovesOnlyExpired(t *testing.T) {
	backend := &fakeBackend{available: true, prefix: "es:"}
	c := newTestCache(t, backend)

	clock := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return clock }

	_, _ = c.Translate(context.Background(), "old", "es", "en")
	clock = clock.Add(30 * time.Minute)
	_, _ = c.Translate(context.Background(), "new", "es", "en")

	clock = clock.Add(45 * time.Minute) // "old" expired at +60m, "new" lives to +75m
	c.sweepExpired()

	if got := c.Len(); got != 1 {
		t.Errorf("Len() after sweep = %d, want 1", got)
	}
	if _, ok := c.lookup(cacheKey{text: "new", source: "en", target: "es"}); !ok {
		t.Error("live entry should survive the sweep")
	}
}

func TestTranslateBreakerShortCircuits(t *testing.T) {
	backend := &fakeBackend{available: true, err: errors.New("down")}
	c := newTestCache(t, backend)
	c.retryCfg = resilience.RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, JitterFactor: 0.01}

	// Drive the breaker open (threshold defaults to 5; retries add calls).
	for i := 0; i < 10; i++ {
		_, _ = c.Translate(context.Background(), "hello", "es", "en")
	}

	before := backend.calls.Load()
	got, err := c.Translate(context.Background(), "hello", "es", "en")
	if got != "hello" || err == nil {
		t.Fatalf("Translate with open breaker = %q, %v", got, err)
	}
	if backend.calls.Load() != before {
		t.Error("open breaker should not let calls through")
	}
}
