// Package profile manages per-region recognition profiles.
package profile

import (
	"time"

	"github.com/screensub/platform/internal/region"
)

// Profile holds the image-preprocessing and recognition knobs tuned for one
// screen region. Values are plain data; the store hands out copies only.
type Profile struct {
	// Image preprocessing
	Contrast             float64 `json:"contrast"`   // 0.5 to 2.0
	Brightness           float64 `json:"brightness"` // -1.0 to 1.0
	Sharpness            float64 `json:"sharpness"`  // 0.5 to 2.0
	EnableNoiseReduction bool    `json:"enableNoiseReduction"`
	EnableDeskew         bool    `json:"enableDeskew"`

	// Text recognition
	MinimumConfidence      float64 `json:"minimumConfidence"` // 0.0 to 1.0
	EnableWordSegmentation bool    `json:"enableWordSegmentation"`
	EnableLineSegmentation bool    `json:"enableLineSegmentation"`
	MinimumTextHeight      int     `json:"minimumTextHeight"` // pixels
	MaximumTextHeight      int     `json:"maximumTextHeight"` // pixels

	// Language and character set
	Language                     string `json:"language"`
	EnableNumberRecognition      bool   `json:"enableNumberRecognition"`
	EnableSymbolRecognition      bool   `json:"enableSymbolRecognition"`
	EnablePunctuationRecognition bool   `json:"enablePunctuationRecognition"`

	// Advanced
	TextScaleFactor       float64 `json:"textScaleFactor"` // 0.5 to 3.0
	EnableBinarization    bool    `json:"enableBinarization"`
	BinarizationThreshold float64 `json:"binarizationThreshold"` // 0.0 to 1.0

	// Area-specific
	AreaID       string    `json:"areaId"`
	LastModified time.Time `json:"lastModified"`
	Description  string    `json:"description"`
}

// Clone returns an independent copy.
func (p Profile) Clone() Profile {
	return p // no reference fields; value copy is a deep copy
}

// Default returns the baseline profile.
func Default() Profile {
	return Profile{
		Contrast:                     1.0,
		Brightness:                   0.0,
		Sharpness:                    1.0,
		EnableNoiseReduction:         true,
		EnableDeskew:                 true,
		MinimumConfidence:            0.6,
		EnableWordSegmentation:       true,
		EnableLineSegmentation:       true,
		MinimumTextHeight:            8,
		MaximumTextHeight:            100,
		Language:                     "en-US",
		EnableNumberRecognition:      true,
		EnableSymbolRecognition:      true,
		EnablePunctuationRecognition: true,
		TextScaleFactor:              1.0,
		BinarizationThreshold:        0.5,
		Description:                  "baseline",
	}
}

// SmallText returns a profile tuned for small text regions: upscaled input,
// lower confidence floor, tighter height bounds.
func SmallText() Profile {
	p := Default()
	p.Contrast = 1.2
	p.Brightness = 0.1
	p.Sharpness = 1.3
	p.MinimumConfidence = 0.5
	p.MinimumTextHeight = 6
	p.MaximumTextHeight = 50
	p.TextScaleFactor = 1.5
	p.Description = "small text"
	return p
}

// LargeText returns a profile tuned for large text regions.
func LargeText() Profile {
	p := Default()
	p.MinimumConfidence = 0.7
	p.MinimumTextHeight = 12
	p.MaximumTextHeight = 200
	p.Description = "large text"
	return p
}

// LowContrast returns a profile for washed-out overlays and faint subtitles.
func LowContrast() Profile {
	p := Default()
	p.Contrast = 1.5
	p.Brightness = 0.2
	p.Sharpness = 1.2
	p.MinimumConfidence = 0.4
	p.TextScaleFactor = 1.3
	p.EnableBinarization = true
	p.BinarizationThreshold = 0.4
	p.Description = "low contrast"
	return p
}

// ForSizeClass maps a region size class to its tuned default.
func ForSizeClass(class region.SizeClass) Profile {
	switch class {
	case region.SizeSmall:
		return SmallText()
	case region.SizeLarge:
		return LargeText()
	default:
		return Default()
	}
}
