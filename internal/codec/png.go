package codec

import (
	"bytes"
	"image/png"

	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

type PNG struct{}

func (PNG) Format() settings.Format { return settings.FormatPNG }

func (PNG) MIMETypes() []string { return []string{"image/png", "image/x-png"} }

func (PNG) Decode(data []byte) (*raster.Raster, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(settings.FormatPNG, err)
	}
	return raster.FromImage(img)
}

func (PNG) Encode(r *raster.Raster, p settings.EncodeParameters) ([]byte, error) {
	if err := checkEncodable(r, settings.FormatPNG, p); err != nil {
		return nil, err
	}

	enc := png.Encoder{CompressionLevel: pngCompression(p.PNG.CompressionLevel)}
	var buf bytes.Buffer
	if err := enc.Encode(&buf, r.Image()); err != nil {
		return nil, encodeErr(settings.FormatPNG, err)
	}
	return buf.Bytes(), nil
}

// pngCompression buckets the zlib-style 0-9 level into image/png's levels.
func pngCompression(level int) png.CompressionLevel {
	switch {
	case level <= 0:
		return png.NoCompression
	case level <= 3:
		return png.BestSpeed
	case level <= 6:
		return png.DefaultCompression
	default:
		return png.BestCompression
	}
}
