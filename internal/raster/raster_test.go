package raster

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"batchconv/internal/failure"
)

func newTestRaster(t *testing.T, w, h int) *Raster {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0x80, A: 0xff})
		}
	}
	r, err := FromImage(img)
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	return r
}

func TestResizeNoOp(t *testing.T) {
	r := newTestRaster(t, 40, 30)
	for _, target := range []int{0, -5, 40, 41, 4000} {
		got, err := Resize(r, target)
		if err != nil {
			t.Fatalf("Resize(%d): %v", target, err)
		}
		if got != r {
			t.Fatalf("Resize(%d) returned a new raster, want the input", target)
		}
	}
}

func TestResizeKeepsAspectRatio(t *testing.T) {
	cases := []struct {
		w, h, target int
	}{
		{800, 600, 400},
		{40, 30, 7},
		{101, 57, 50},
		{3, 1000, 1},
	}
	for _, tc := range cases {
		r := newTestRaster(t, tc.w, tc.h)
		got, err := Resize(r, tc.target)
		if err != nil {
			t.Fatalf("Resize(%dx%d -> %d): %v", tc.w, tc.h, tc.target, err)
		}
		if got.Width() != tc.target {
			t.Fatalf("width = %d, want %d", got.Width(), tc.target)
		}
		want := TargetHeight(tc.w, tc.h, tc.target)
		if diff := got.Height() - want; diff < -1 || diff > 1 {
			t.Fatalf("height = %d, want %d±1", got.Height(), want)
		}
		if r.Width() != tc.w {
			t.Fatalf("source raster was modified")
		}
	}
}

func TestResizeZeroHeightFails(t *testing.T) {
	r := newTestRaster(t, 1000, 1)
	_, err := Resize(r, 1)
	if !errors.Is(err, failure.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension, got %v", err)
	}
}

func TestRelease(t *testing.T) {
	r := newTestRaster(t, 4, 4)
	if len(r.Pix()) != 4*4*4 {
		t.Fatalf("unexpected pix length %d", len(r.Pix()))
	}
	r.Release()
	r.Release()
	if !r.Released() || r.Image() != nil || r.Width() != 0 {
		t.Fatalf("raster still holds pixels after Release")
	}
	if _, err := Resize(r, 2); !errors.Is(err, failure.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension for released raster, got %v", err)
	}
}

func TestFromImageRejectsEmpty(t *testing.T) {
	_, err := FromImage(image.NewNRGBA(image.Rect(0, 0, 0, 5)))
	if !errors.Is(err, failure.ErrInvalidDimension) {
		t.Fatalf("expected InvalidDimension, got %v", err)
	}
}
