package codec

import (
	"bytes"
	"errors"
	"testing"

	"batchconv/internal/failure"
	"batchconv/internal/raster"
	"batchconv/internal/settings"
	"batchconv/internal/testutil"
)

func params(t *testing.T, format settings.Format, lossless bool) settings.EncodeParameters {
	t.Helper()
	s := settings.Settings{Format: format, Tier: settings.TierHigh, Effort: settings.EffortFast, Lossless: lossless}
	p, err := settings.Translate(s)
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	return p
}

func TestRoundTripKeepsDimensions(t *testing.T) {
	reg := NewDefaultRegistry()

	for _, format := range settings.Formats {
		t.Run(string(format), func(t *testing.T) {
			src, err := raster.FromImage(testutil.Gradient(37, 21))
			if err != nil {
				t.Fatalf("FromImage: %v", err)
			}

			out, err := reg.Encode(src, params(t, format, false))
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}
			if len(out) == 0 {
				t.Fatalf("Encode returned no bytes")
			}

			back, err := reg.Decode(out, format.MIME())
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if back.Width() != 37 || back.Height() != 21 {
				t.Fatalf("round trip = %dx%d, want 37x21", back.Width(), back.Height())
			}
		})
	}
}

func TestPNGRoundTripIsExact(t *testing.T) {
	reg := NewDefaultRegistry()

	src, err := raster.FromImage(testutil.Gradient(16, 9))
	if err != nil {
		t.Fatalf("FromImage: %v", err)
	}
	want := append([]byte{}, src.Pix()...)

	out, err := reg.Encode(src, params(t, settings.FormatPNG, true))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := reg.Decode(out, "image/png")
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !bytes.Equal(back.Pix(), want) {
		t.Fatalf("PNG round trip changed pixel values")
	}
}

func TestDecodeUnsupportedMIME(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.Decode([]byte("GIF89a"), "image/gif")
	if !errors.Is(err, failure.ErrUnsupportedFormat) {
		t.Fatalf("expected UnsupportedFormat, got %v", err)
	}
}

func TestDecodeMalformed(t *testing.T) {
	reg := NewDefaultRegistry()
	for _, mime := range []string{"image/jpeg", "image/png", "image/webp", "image/avif"} {
		_, err := reg.Decode([]byte("definitely not an image"), mime)
		if !errors.Is(err, failure.ErrDecode) {
			t.Fatalf("%s: expected DecodeError, got %v", mime, err)
		}
	}
}

func TestDecodeUsesDeclaredType(t *testing.T) {
	reg := NewDefaultRegistry()
	_, err := reg.Decode(testutil.PNG(t, 4, 4), "image/jpeg")
	if !errors.Is(err, failure.ErrDecode) {
		t.Fatalf("expected DecodeError for PNG bytes declared as JPEG, got %v", err)
	}
}

func TestEncodeRejectsBadInput(t *testing.T) {
	reg := NewDefaultRegistry()

	released, _ := raster.FromImage(testutil.Gradient(4, 4))
	released.Release()
	if _, err := reg.Encode(released, params(t, settings.FormatPNG, false)); !errors.Is(err, failure.ErrEncode) {
		t.Fatalf("expected EncodeError for released raster, got %v", err)
	}

	ras, _ := raster.FromImage(testutil.Gradient(4, 4))
	p := params(t, settings.FormatPNG, false)
	if _, err := (JPEG{}).Encode(ras, p); !errors.Is(err, failure.ErrEncode) {
		t.Fatalf("expected EncodeError for mismatched parameters, got %v", err)
	}

	empty := NewRegistry()
	if _, err := empty.Encode(ras, p); !errors.Is(err, failure.ErrUnsupportedFormat) {
		t.Fatalf("expected UnsupportedFormat from empty registry, got %v", err)
	}
}

func TestRegistryMIMETypes(t *testing.T) {
	got := NewDefaultRegistry().MIMETypes()
	want := []string{"image/avif", "image/jpeg", "image/pjpeg", "image/png", "image/webp", "image/x-png"}
	if len(got) != len(want) {
		t.Fatalf("MIMETypes = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MIMETypes = %v, want %v", got, want)
		}
	}
}

func TestWebPMethodReachesEncoder(t *testing.T) {
	src, _ := raster.FromImage(testutil.Gradient(64, 64))
	encode := func(method int) []byte {
		t.Helper()
		p := settings.EncodeParameters{Format: settings.FormatWebP, WebP: settings.WebPParams{Quality: 75, Method: method}}
		out, err := (WebP{}).Encode(src, p)
		if err != nil {
			t.Fatalf("Encode method %d: %v", method, err)
		}
		if _, err := (WebP{}).Decode(out); err != nil {
			t.Fatalf("Decode method %d: %v", method, err)
		}
		return out
	}

	fast, thorough := encode(0), encode(settings.MaxWebPMethod)
	if bytes.Equal(fast, thorough) {
		t.Fatalf("method 0 and %d produced identical output", settings.MaxWebPMethod)
	}
}

func TestPNGCompressionBuckets(t *testing.T) {
	src, _ := raster.FromImage(testutil.Gradient(64, 64))
	var sizes []int
	for _, level := range []int{0, 1, 9} {
		p := settings.EncodeParameters{Format: settings.FormatPNG, PNG: settings.PNGParams{CompressionLevel: level}}
		out, err := (PNG{}).Encode(src, p)
		if err != nil {
			t.Fatalf("Encode level %d: %v", level, err)
		}
		sizes = append(sizes, len(out))
	}
	if sizes[0] <= sizes[2] {
		t.Fatalf("uncompressed PNG (%d bytes) should be larger than level 9 (%d bytes)", sizes[0], sizes[2])
	}
}
