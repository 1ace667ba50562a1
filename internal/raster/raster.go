// Package raster holds decoded pixel buffers and the transforms applied to
// them between decode and encode.
package raster

import (
	"image"
	"math"

	"github.com/disintegration/imaging"

	"batchconv/internal/failure"
)

// Raster is a decoded, non-premultiplied RGBA pixel buffer. The buffer is
// owned by whoever decoded it and must be released once the file it belongs
// to has been encoded.
type Raster struct {
	img *image.NRGBA
}

// FromImage copies img into a new Raster. Images that are already NRGBA with
// a zero origin are adopted without copying.
func FromImage(img image.Image) (*Raster, error) {
	if img == nil {
		return nil, failure.Errorf(failure.KindInvalidDimension, "raster", "nil image")
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, failure.Errorf(failure.KindInvalidDimension, "raster", "empty image %dx%d", b.Dx(), b.Dy())
	}

	if nrgba, ok := img.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return &Raster{img: nrgba}, nil
	}
	return &Raster{img: imaging.Clone(img)}, nil
}

func (r *Raster) Width() int {
	if r == nil || r.img == nil {
		return 0
	}
	return r.img.Rect.Dx()
}

func (r *Raster) Height() int {
	if r == nil || r.img == nil {
		return 0
	}
	return r.img.Rect.Dy()
}

// Image exposes the pixel buffer to encoders. It returns nil after Release.
func (r *Raster) Image() *image.NRGBA {
	if r == nil {
		return nil
	}
	return r.img
}

// Pix returns the raw samples, four bytes per pixel in R, G, B, A order.
func (r *Raster) Pix() []uint8 {
	if r == nil || r.img == nil {
		return nil
	}
	return r.img.Pix
}

// Released reports whether the pixel buffer has been dropped.
func (r *Raster) Released() bool { return r == nil || r.img == nil }

// Release drops the pixel buffer. It is safe to call more than once.
func (r *Raster) Release() {
	if r == nil {
		return
	}
	r.img = nil
}

// Resize scales r to targetWidth keeping the aspect ratio. It never upsamples:
// a non-positive target or one at least as wide as r returns r itself.
func Resize(r *Raster, targetWidth int) (*Raster, error) {
	if r.Released() {
		return nil, failure.Errorf(failure.KindInvalidDimension, "resize", "raster already released")
	}
	w, h := r.Width(), r.Height()
	if targetWidth <= 0 || targetWidth >= w {
		return r, nil
	}

	targetHeight := TargetHeight(w, h, targetWidth)
	if targetHeight <= 0 {
		return nil, failure.Errorf(failure.KindInvalidDimension, "resize",
			"%dx%d scaled to width %d has zero height", w, h, targetWidth)
	}

	return &Raster{img: imaging.Resize(r.img, targetWidth, targetHeight, imaging.Lanczos)}, nil
}

// TargetHeight is round(targetWidth * height / width).
func TargetHeight(width, height, targetWidth int) int {
	if width <= 0 {
		return 0
	}
	return int(math.Round(float64(targetWidth) * float64(height) / float64(width)))
}
