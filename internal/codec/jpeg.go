package codec

import (
	"bytes"
	"image/jpeg"

	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

// JPEG encodes baseline JPEG; Progressive is accepted but image/jpeg only
// writes baseline scans.
type JPEG struct{}

func (JPEG) Format() settings.Format { return settings.FormatJPEG }

func (JPEG) MIMETypes() []string { return []string{"image/jpeg", "image/pjpeg"} }

func (JPEG) Decode(data []byte) (*raster.Raster, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(settings.FormatJPEG, err)
	}
	return raster.FromImage(img)
}

func (JPEG) Encode(r *raster.Raster, p settings.EncodeParameters) ([]byte, error) {
	if err := checkEncodable(r, settings.FormatJPEG, p); err != nil {
		return nil, err
	}

	quality := p.JPEG.Quality
	if quality < 1 {
		quality = 1
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, r.Image(), &jpeg.Options{Quality: quality}); err != nil {
		return nil, encodeErr(settings.FormatJPEG, err)
	}
	return buf.Bytes(), nil
}
