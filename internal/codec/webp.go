package codec

import (
	"bytes"

	"github.com/kolesa-team/go-webp/encoder"
	"github.com/kolesa-team/go-webp/webp"
	xwebp "golang.org/x/image/webp"

	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

// losslessLevel is libwebp's lossless preset level; Method is set on top of it.
const losslessLevel = 6

// WebP decodes with x/image/webp and encodes with libwebp through
// kolesa-team/go-webp.
type WebP struct{}

func (WebP) Format() settings.Format { return settings.FormatWebP }

func (WebP) MIMETypes() []string { return []string{"image/webp"} }

func (WebP) Decode(data []byte) (*raster.Raster, error) {
	img, err := xwebp.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(settings.FormatWebP, err)
	}
	return raster.FromImage(img)
}

func (WebP) Encode(r *raster.Raster, p settings.EncodeParameters) ([]byte, error) {
	if err := checkEncodable(r, settings.FormatWebP, p); err != nil {
		return nil, err
	}

	opts, err := webpOptions(p.WebP)
	if err != nil {
		return nil, encodeErr(settings.FormatWebP, err)
	}
	var buf bytes.Buffer
	if err := webp.Encode(&buf, r.Image(), opts); err != nil {
		return nil, encodeErr(settings.FormatWebP, err)
	}
	return buf.Bytes(), nil
}

func webpOptions(p settings.WebPParams) (*encoder.Options, error) {
	var (
		opts *encoder.Options
		err  error
	)
	if p.Lossless {
		opts, err = encoder.NewLosslessEncoderOptions(encoder.PresetDefault, losslessLevel)
	} else {
		opts, err = encoder.NewLossyEncoderOptions(encoder.PresetDefault, float32(p.Quality))
	}
	if err != nil {
		return nil, err
	}
	opts.Method = p.Method
	opts.Exact = p.Lossless
	return opts, nil
}
