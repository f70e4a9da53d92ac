package screen

import (
	"crypto/md5"
	"image"
)

// ChangeDetector is a cheap identical-frame filter. It hashes a prefix of the
// frame's raw pixel buffer and reports whether the frame differs from the
// previous one. It catches byte-identical frames only; perceptual similarity
// is a separate, more expensive check.
type ChangeDetector struct {
	lastHash [16]byte
	seen     bool
}

// Changed reports whether img differs from the previously seen frame and
// records it as the new baseline when it does. Non-RGBA frames are always
// treated as changed.
func (d *ChangeDetector) Changed(img image.Image) bool {
	rgba, ok := img.(*image.RGBA)
	if !ok {
		return true
	}

	// Hash the first 4KB for speed; screen text changes show up early.
	hash := md5.Sum(rgba.Pix[:min(len(rgba.Pix), 4096)])
	if d.seen && hash == d.lastHash {
		return false
	}
	d.lastHash = hash
	d.seen = true
	return true
}

// Reset clears the baseline so the next frame always reports changed.
func (d *ChangeDetector) Reset() {
	d.seen = false
}
