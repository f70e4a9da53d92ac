package translate

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/resilience"
)

// Cache defaults.
const (
	DefaultTTL         = 60 * time.Minute
	DefaultSweepPeriod = 5 * time.Minute
)

// Improver post-processes a successful translation before it is cached.
type Improver interface {
	ImproveTranslation(text, targetLang string) string
}

// cacheKey is the exact tuple identity of an entry. Text is deliberately not
// normalized: differently-cased OCR outputs are distinct entries.
type cacheKey struct {
	text   string
	source string
	target string
}

type cacheEntry struct {
	translated string
	cachedAt   time.Time
	expiresAt  time.Time
}

// Cache memoizes translation calls with time-based expiry. Lookups are
// best-effort, not single-flight: concurrent misses may both call the
// backend, and the last writer wins on insert.
type Cache struct {
	backend  Backend
	improver Improver
	ttl      time.Duration
	sweep    time.Duration
	breaker  *resilience.Breaker
	retryCfg resilience.RetryConfig

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry

	now    func() time.Time
	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCache wraps backend with caching and starts the background sweep.
// A nil improver disables post-processing.
func NewCache(backend Backend, improver Improver, ttl, sweepPeriod time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweepPeriod <= 0 {
		sweepPeriod = DefaultSweepPeriod
	}
	c := &Cache{
		backend:  backend,
		improver: improver,
		ttl:      ttl,
		sweep:    sweepPeriod,
		breaker:  resilience.NewBreaker(resilience.Config{}),
		retryCfg: resilience.TranslateRetryConfig(),
		entries:  make(map[cacheKey]cacheEntry),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	c.wg.Add(1)
	go c.sweepLoop()
	return c
}

// Close stops the background sweep.
func (c *Cache) Close() {
	close(c.stopCh)
	c.wg.Wait()
}

// Translate returns the translation of text into targetLang. It degrades to
// returning text unchanged — with the degradation reason as the error — when
// the input is blank, the backend is unconfigured, or the call fails.
// Translation is never fatal to a pipeline cycle.
func (c *Cache) Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	key := cacheKey{text: text, source: sourceLang, target: targetLang}
	if cached, ok := c.lookup(key); ok {
		slog.Debug("translation cache hit", "target", targetLang)
		return cached, nil
	}

	if !c.backend.IsAvailable() {
		err := apperrors.New(apperrors.StageTranslation, apperrors.CodeTranslationUnavailable, "backend not configured")
		slog.Warn("translation degraded to original text", "reason", err.Message)
		return text, err
	}

	translated, err := resilience.ExecuteWithResult(c.breaker, func() (string, error) {
		var result string
		callErr := resilience.Retry(ctx, c.retryCfg, func() error {
			var innerErr error
			result, innerErr = c.backend.Translate(ctx, text, targetLang, sourceLang)
			return innerErr
		})
		return result, callErr
	})
	if err != nil {
		slog.Warn("translation failed, degrading to original text", "error", err)
		return text, apperrors.Wrap(err, apperrors.StageTranslation, apperrors.CodeTranslationFailed, "backend call failed")
	}

	if c.improver != nil {
		translated = c.improver.ImproveTranslation(translated, targetLang)
	}

	c.store(key, translated)
	return translated, nil
}

// lookup returns a live entry. Expired entries are logically absent even
// before the sweep removes them.
func (c *Cache) lookup(key cacheKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || !c.now().Before(entry.expiresAt) {
		return "", false
	}
	return entry.translated, true
}

func (c *Cache) store(key cacheKey, translated string) {
	now := c.now()
	c.mu.Lock()
	c.entries[key] = cacheEntry{
		translated: translated,
		cachedAt:   now,
		expiresAt:  now.Add(c.ttl),
	}
	c.mu.Unlock()
}

// Len reports the number of physically present entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) sweepLoop() {
	defer c.wg.Done()
	ticker := time.NewTicker(c.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.sweepExpired()
		}
	}
}

// sweepExpired removes entries whose expiry has passed.
func (c *Cache) sweepExpired() {
	now := c.now()
	c.mu.Lock()
	removed := 0
	for key, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, key)
			removed++
		}
	}
	c.mu.Unlock()

	if removed > 0 {
		slog.Debug("swept expired translation cache entries", "count", removed)
	}
}
