package codec

import (
	"bytes"

	"github.com/gen2brain/avif"

	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

// AVIF wraps gen2brain/avif. Its quality runs 0-100 (100 is lossless), so the
// cqLevel from the parameters is mapped back onto that scale.
type AVIF struct{}

func (AVIF) Format() settings.Format { return settings.FormatAVIF }

func (AVIF) MIMETypes() []string { return []string{"image/avif"} }

func (AVIF) Decode(data []byte) (*raster.Raster, error) {
	img, err := avif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(settings.FormatAVIF, err)
	}
	return raster.FromImage(img)
}

func (AVIF) Encode(r *raster.Raster, p settings.EncodeParameters) ([]byte, error) {
	if err := checkEncodable(r, settings.FormatAVIF, p); err != nil {
		return nil, err
	}

	quality := settings.CQLevelToQuality(p.AVIF.CQLevel)
	opts := avif.Options{
		Quality:      quality,
		QualityAlpha: quality,
		Speed:        p.AVIF.Speed,
	}
	var buf bytes.Buffer
	if err := avif.Encode(&buf, r.Image(), opts); err != nil {
		return nil, encodeErr(settings.FormatAVIF, err)
	}
	return buf.Bytes(), nil
}
