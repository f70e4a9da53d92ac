// Package ocr defines the recognition engine interface and its tesseract
// implementation.
package ocr

import (
	"context"
	"image"

	"github.com/screensub/platform/internal/profile"
)

// Engine extracts text from a captured frame using a recognition profile.
type Engine interface {
	// Recognize returns the recognized text, possibly empty. An empty result
	// is a normal outcome, not an error.
	Recognize(ctx context.Context, img image.Image, p profile.Profile) (string, error)

	// IsAvailable reports whether the engine can recognize on this system.
	IsAvailable() bool
}
