// Package region defines screen-region geometry and identity.
package region

import (
	"fmt"
	"image"
)

// Size classification thresholds in square pixels.
const (
	DefaultSmallAreaThreshold = 10000
	DefaultLargeAreaThreshold = 100000
)

// SizeClass buckets a region by area for default profile selection.
type SizeClass int

const (
	SizeDefault SizeClass = iota
	SizeSmall
	SizeLarge
)

func (s SizeClass) String() string {
	return [...]string{"default", "small", "large"}[s]
}

// Rect is a screen region in virtual-desktop coordinates.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// AreaID derives the deterministic identity key used to persist per-region
// tuning. Equal geometry always yields the same key across sessions.
func (r Rect) AreaID() string {
	return fmt.Sprintf("area_%d_%d_%d_%d", r.X, r.Y, r.Width, r.Height)
}

// Area returns the region size in square pixels.
func (r Rect) Area() int {
	return r.Width * r.Height
}

// Empty reports whether the region has no area.
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Bounds converts to an image.Rectangle for capture backends.
func (r Rect) Bounds() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Classify buckets the region using the given thresholds. Zero thresholds
// fall back to the defaults.
func (r Rect) Classify(smallThreshold, largeThreshold int) SizeClass {
	if smallThreshold <= 0 {
		smallThreshold = DefaultSmallAreaThreshold
	}
	if largeThreshold <= 0 {
		largeThreshold = DefaultLargeAreaThreshold
	}
	switch area := r.Area(); {
	case area < smallThreshold:
		return SizeSmall
	case area > largeThreshold:
		return SizeLarge
	default:
		return SizeDefault
	}
}
