// Package pipeline coordinates capture, recognition, correction, and
// translation into subtitle events.
package pipeline

import (
	"context"
	"image"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/corona10/goimagehash"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/ocr"
	"github.com/screensub/platform/internal/profile"
	"github.com/screensub/platform/internal/region"
	"github.com/screensub/platform/internal/screen"
	"github.com/screensub/platform/internal/syncx"
	"github.com/screensub/platform/internal/textfix"
)

// Pipeline constants.
const (
	// Frames within this pHash Hamming distance of the previous frame skip
	// recognition entirely.
	MaxHashDistance = 3

	// Subtitle event channel buffer. Slow consumers drop events rather
	// than stall the pipeline.
	SubtitleChannelBuffer = 100
)

// Subtitle is one recognized-and-translated text event.
type Subtitle struct {
	Original   string    `json:"original"`
	Translated string    `json:"translated"`
	SourceLang string    `json:"source_lang"`
	TargetLang string    `json:"target_lang"`
	AreaID     string    `json:"area_id"`
	CapturedAt time.Time `json:"captured_at"`
}

// Translator converts repaired text into the target language. Implementations
// degrade to returning the input on failure.
type Translator interface {
	Translate(ctx context.Context, text, targetLang, sourceLang string) (string, error)
}

// Orchestrator runs one capture cycle end to end. Stages fail soft: a failed
// translation still emits the original text, and a failed capture or
// recognition surfaces through the error callback without stopping the
// schedule.
type Orchestrator struct {
	capturer   screen.Capturer
	engine     ocr.Engine
	fixer      *textfix.Engine
	translator Translator
	profiles   *profile.Store

	langs   *syncx.RWGuard[LanguagePair]
	latest  *syncx.RWGuard[Subtitle]
	onError func(stage apperrors.Stage, err error)

	mu       sync.Mutex
	delta    screen.ChangeDetector
	lastHash *goimagehash.ImageHash
	lastText string

	subtitleCh chan Subtitle
}

// LanguagePair is the source/target pair for a pipeline run.
type LanguagePair struct {
	Source string
	Target string
}

// New creates an orchestrator. translator may be nil, which disables
// translation entirely; onError may be nil.
func New(capturer screen.Capturer, engine ocr.Engine, fixer *textfix.Engine, translator Translator, profiles *profile.Store, langs LanguagePair, onError func(stage apperrors.Stage, err error)) *Orchestrator {
	return &Orchestrator{
		capturer:   capturer,
		engine:     engine,
		fixer:      fixer,
		translator: translator,
		profiles:   profiles,
		langs:      syncx.NewGuard(langs),
		latest:     syncx.NewGuard(Subtitle{}),
		onError:    onError,
		subtitleCh: make(chan Subtitle, SubtitleChannelBuffer),
	}
}

// Subtitles is the stream of emitted subtitle events.
func (o *Orchestrator) Subtitles() <-chan Subtitle {
	return o.subtitleCh
}

// Latest returns the most recently emitted subtitle.
func (o *Orchestrator) Latest() Subtitle {
	return o.latest.Get()
}

// SetLanguages replaces the language pair for subsequent cycles.
func (o *Orchestrator) SetLanguages(source, target string) {
	o.langs.Set(LanguagePair{Source: source, Target: target})
}

// Languages returns the current language pair.
func (o *Orchestrator) Languages() LanguagePair {
	return o.langs.Get()
}

// RunCycle executes one capture cycle for the region. It is the scheduler's
// cycle function. A nil error includes the quiet outcomes: unchanged frame,
// empty recognition, unchanged text.
func (o *Orchestrator) RunCycle(ctx context.Context, r region.Rect, _ string) error {
	img, err := o.capturer.Capture(r)
	if err != nil {
		return o.report(apperrors.StageCapture, err)
	}

	if o.frameUnchanged(img) {
		return nil
	}

	prof := o.profiles.GetForRegion(r)
	prepared := screen.Preprocess(img, prof)

	raw, err := o.engine.Recognize(ctx, prepared, prof)
	if err != nil {
		return o.report(apperrors.StageRecognition, err)
	}

	langs := o.langs.Get()
	cleaned := o.fixer.Clean(raw, langs.Source)
	if cleaned == "" {
		return nil
	}
	repaired := o.fixer.Repair(cleaned, langs.Source)

	o.mu.Lock()
	unchanged := repaired == o.lastText
	o.lastText = repaired
	o.mu.Unlock()
	if unchanged {
		return nil
	}

	translated := repaired
	if o.translator != nil && langs.Target != "" && langs.Target != langs.Source {
		translated, err = o.translator.Translate(ctx, repaired, langs.Target, langs.Source)
		if err != nil {
			// Degraded, not fatal: the backend already handed back the
			// original text.
			o.notify(apperrors.StageTranslation, err)
		}
	}

	o.emit(Subtitle{
		Original:   repaired,
		Translated: translated,
		SourceLang: langs.Source,
		TargetLang: langs.Target,
		AreaID:     r.AreaID(),
		CapturedAt: time.Now(),
	})
	return nil
}

// frameUnchanged compares the frame's perceptual hash against the previous
// one and records the new hash when the frame differs.
func (o *Orchestrator) frameUnchanged(img image.Image) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	// Byte-identical frames short-circuit before the pHash is computed.
	if !o.delta.Changed(img) {
		return true
	}

	hash, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return false
	}

	if o.lastHash == nil {
		o.lastHash = hash
		return false
	}

	dist, err := o.lastHash.Distance(hash)
	if err != nil {
		o.lastHash = hash
		return false
	}
	if dist <= MaxHashDistance {
		slog.Debug("skipping recognition for similar frame", "distance", dist)
		return true
	}

	o.lastHash = hash
	return false
}

// ResetFrameState clears the frame dedup state, forcing the next cycle to
// recognize. Called when the region changes.
func (o *Orchestrator) ResetFrameState() {
	o.mu.Lock()
	o.delta.Reset()
	o.lastHash = nil
	o.lastText = ""
	o.mu.Unlock()
}

func (o *Orchestrator) emit(sub Subtitle) {
	o.latest.Set(sub)
	select {
	case o.subtitleCh <- sub:
	default:
		slog.Debug("subtitle channel full, dropping event")
	}
	slog.Info("subtitle emitted",
		"area", sub.AreaID,
		"text", ellipsize(sub.Original, 80),
		"translated", sub.Translated != sub.Original)
}

// report surfaces a stage failure to the callback and returns it so the
// scheduler logs it.
func (o *Orchestrator) report(stage apperrors.Stage, err error) error {
	o.notify(stage, err)
	return err
}

func (o *Orchestrator) notify(stage apperrors.Stage, err error) {
	if o.onError != nil {
		o.onError(stage, err)
	}
}

// ellipsize truncates text for log and status previews.
func ellipsize(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return strings.TrimSpace(text[:limit]) + "..."
}
