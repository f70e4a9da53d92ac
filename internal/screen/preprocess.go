package screen

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"

	"github.com/screensub/platform/internal/profile"
)

// Preprocess applies the profile's scale factor and optional binarization
// before recognition. Contrast, sharpness and deskew knobs ride along in the
// profile for the recognition engine itself.
func Preprocess(img image.Image, p profile.Profile) image.Image {
	if img == nil {
		return nil
	}

	out := img
	if p.TextScaleFactor > 0 && p.TextScaleFactor != 1.0 {
		w := uint(float64(img.Bounds().Dx()) * p.TextScaleFactor)
		if w > 0 {
			out = resize.Resize(w, 0, out, resize.Bilinear)
		}
	}

	if p.EnableBinarization {
		out = binarize(out, p.BinarizationThreshold)
	}
	return out
}

// binarize thresholds the image to black and white on luminance.
func binarize(img image.Image, threshold float64) image.Image {
	if threshold <= 0 || threshold >= 1 {
		threshold = 0.5
	}
	cutoff := uint32(threshold * 0xFFFF)

	bounds := img.Bounds()
	out := image.NewGray(bounds)
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.Gray16Model.Convert(img.At(x, y)).(color.Gray16)
			if uint32(c.Y) >= cutoff {
				out.SetGray(x, y, color.Gray{Y: 0xFF})
			} else {
				out.SetGray(x, y, color.Gray{Y: 0x00})
			}
		}
	}
	return out
}
