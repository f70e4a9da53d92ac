// Package screen provides platform-agnostic screen region capture
package screen

import (
	"image"

	"github.com/kbinani/screenshot"

	apperrors "github.com/screensub/platform/internal/errors"
	"github.com/screensub/platform/internal/region"
)

// Capturer grabs a screen region as an image. One frame is owned by one
// pipeline cycle; implementations must not retain returned images.
type Capturer interface {
	Capture(r region.Rect) (image.Image, error)
}

// DisplayCapturer captures from the active displays.
type DisplayCapturer struct{}

// NewCapturer creates a display capturer.
func NewCapturer() *DisplayCapturer {
	return &DisplayCapturer{}
}

// Capture grabs the given region from the virtual desktop.
func (c *DisplayCapturer) Capture(r region.Rect) (image.Image, error) {
	if r.Empty() {
		return nil, apperrors.New(apperrors.StageCapture, apperrors.CodeInvalidArgument, "empty capture region")
	}

	img, err := screenshot.CaptureRect(r.Bounds())
	if err != nil {
		return nil, apperrors.Wrapf(err, apperrors.StageCapture, apperrors.CodeCaptureFailed, "capture %s", r.AreaID())
	}
	return img, nil
}

// NumDisplays reports how many displays are available for capture.
func NumDisplays() int {
	return screenshot.NumActiveDisplays()
}
