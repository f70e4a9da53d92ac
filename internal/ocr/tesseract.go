package ocr

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"log/slog"
	"strings"

	"github.com/otiai10/gosseract/v2"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/profile"
)

// langMap translates BCP 47 profile tags to tesseract traineddata names.
var langMap = map[string]string{
	"en": "eng", "es": "spa", "fr": "fra", "de": "deu", "it": "ita",
	"pt": "por", "nl": "nld", "ru": "rus", "ja": "jpn", "ko": "kor",
	"zh": "chi_sim", "ar": "ara", "hi": "hin", "pl": "pol", "tr": "tur",
}

// Tesseract recognizes text with a local tesseract installation. A fresh
// client is created per call; gosseract clients are not safe for concurrent
// reuse and a cycle must never block on another cycle's client.
type Tesseract struct {
	fallbackLangs []string
	available     bool
}

// NewTesseract probes the local tesseract installation. fallbackLangs are the
// traineddata names used when a profile's language has no local mapping.
func NewTesseract(fallbackLangs []string) *Tesseract {
	t := &Tesseract{fallbackLangs: fallbackLangs}
	if len(t.fallbackLangs) == 0 {
		t.fallbackLangs = []string{"eng"}
	}

	client := gosseract.NewClient()
	defer client.Close()
	version := client.Version()
	t.available = version != ""
	if t.available {
		slog.Info("tesseract available", "version", version)
	} else {
		slog.Warn("tesseract not available, recognition disabled")
	}
	return t
}

// IsAvailable reports whether tesseract was found at startup.
func (t *Tesseract) IsAvailable() bool {
	return t.available
}

// Recognize runs tesseract over the frame, keeping lines that meet the
// profile's confidence floor.
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, p profile.Profile) (string, error) {
	if !t.available {
		return "", apperrors.New(apperrors.StageRecognition, apperrors.CodeRecognitionUnavailable, "tesseract not installed")
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if img == nil {
		return "", apperrors.New(apperrors.StageRecognition, apperrors.CodeInvalidArgument, "nil frame")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", apperrors.Wrap(err, apperrors.StageRecognition, apperrors.CodeRecognitionFailed, "encode frame")
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.languagesFor(p.Language)...); err != nil {
		return "", apperrors.Wrap(err, apperrors.StageRecognition, apperrors.CodeRecognitionFailed, "set language")
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", apperrors.Wrap(err, apperrors.StageRecognition, apperrors.CodeRecognitionFailed, "set frame")
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.StageRecognition, apperrors.CodeRecognitionFailed, "recognize")
	}

	minConfidence := p.MinimumConfidence * 100 // tesseract reports 0-100
	var lines []string
	for _, box := range boxes {
		if box.Confidence < minConfidence {
			slog.Debug("dropping low-confidence line", "confidence", box.Confidence, "text", box.Word)
			continue
		}
		if line := strings.TrimSpace(box.Word); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}

// languagesFor maps a profile language tag to tesseract language names.
func (t *Tesseract) languagesFor(tag string) []string {
	base := strings.ToLower(tag)
	if i := strings.IndexAny(base, "-_"); i > 0 {
		base = base[:i]
	}
	if name, ok := langMap[base]; ok {
		return []string{name}
	}
	return t.fallbackLangs
}
