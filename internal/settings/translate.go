package settings

import (
	"math"

	"batchconv/internal/failure"
)

type JPEGParams struct {
	Quality     int
	Progressive bool
}

type WebPParams struct {
	Quality  int
	Lossless bool
	Method   int
}

// AVIFParams uses the inverted AV1 scale: CQLevel 0 is lossless, 63 is worst;
// Speed 0 is slowest and smallest, 10 is fastest.
type AVIFParams struct {
	CQLevel int
	Speed   int
}

type PNGParams struct {
	CompressionLevel int
}

// EncodeParameters are the codec-level settings derived from Settings.
// Only the block matching Format is meaningful.
type EncodeParameters struct {
	Format Format
	JPEG   JPEGParams
	WebP   WebPParams
	AVIF   AVIFParams
	PNG    PNGParams
}

const (
	MaxQuality        = 100
	MaxWebPMethod     = 6
	MaxAVIFCQLevel    = 63
	MaxAVIFSpeed      = 10
	MaxPNGCompression = 9
)

var tierQuality = map[QualityTier]int{
	TierOriginal: MaxQuality,
	TierHigh:     90,
	TierMedium:   75,
	TierLow:      50,
}

var tierCQLevel = map[QualityTier]int{
	TierOriginal: 0,
	TierHigh:     20,
	TierMedium:   33,
	TierLow:      50,
}

var (
	webpMethod = map[Effort]int{EffortFast: 0, EffortNormal: 4, EffortMax: 6}
	avifSpeed  = map[Effort]int{EffortFast: 10, EffortNormal: 6, EffortMax: 0}
	pngLevel   = map[Effort]int{EffortFast: 1, EffortNormal: 6, EffortMax: MaxPNGCompression}
)

// Translate maps s onto codec parameters. It is pure and deterministic; a
// lossless JPEG request fails with UnsupportedFormatCombination.
func Translate(s Settings) (EncodeParameters, error) {
	if err := s.Validate(); err != nil {
		return EncodeParameters{}, err
	}

	p := EncodeParameters{Format: s.Format}
	switch s.Format {
	case FormatJPEG:
		if s.Lossless {
			return EncodeParameters{}, failure.Errorf(failure.KindUnsupportedFormatCombination,
				"settings", "jpeg has no lossless mode")
		}
		p.JPEG = JPEGParams{
			Quality:     percentQuality(s),
			Progressive: s.Effort == EffortMax,
		}
	case FormatWebP:
		p.WebP = WebPParams{
			Quality:  percentQuality(s),
			Lossless: s.Lossless,
			Method:   webpMethod[s.Effort],
		}
		if s.Lossless {
			p.WebP.Quality = MaxQuality
		}
	case FormatAVIF:
		p.AVIF = AVIFParams{
			CQLevel: cqLevel(s),
			Speed:   avifSpeed[s.Effort],
		}
	case FormatPNG:
		p.PNG = PNGParams{CompressionLevel: pngLevel[s.Effort]}
		if s.Lossless {
			p.PNG.CompressionLevel = MaxPNGCompression
		}
	}
	return p, nil
}

func percentQuality(s Settings) int {
	if s.Quality != nil {
		return *s.Quality
	}
	return tierQuality[s.Tier]
}

func cqLevel(s Settings) int {
	if s.Lossless {
		return 0
	}
	if s.Quality != nil {
		return QualityToCQLevel(*s.Quality)
	}
	return tierCQLevel[s.Tier]
}

// QualityToCQLevel converts a 0-100 percent quality onto the 0-63 AV1 scale.
func QualityToCQLevel(q int) int {
	q = clamp(q, 0, MaxQuality)
	return int(math.Round(float64(MaxQuality-q) * MaxAVIFCQLevel / MaxQuality))
}

// CQLevelToQuality is the inverse of QualityToCQLevel.
func CQLevelToQuality(cq int) int {
	cq = clamp(cq, 0, MaxAVIFCQLevel)
	return int(math.Round(float64(MaxAVIFCQLevel-cq) * MaxQuality / MaxAVIFCQLevel))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
