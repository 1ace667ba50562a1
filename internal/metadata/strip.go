package metadata

import (
	"batchconv/internal/codec"
	"batchconv/internal/failure"
	"batchconv/internal/media"
	"batchconv/internal/settings"
	"batchconv/pkg/imgutil"
)

// Stripper removes embedded metadata from source files. JPEG and PNG are
// rewritten segment by segment and keep their compressed pixel data; other
// formats are decoded and re-encoded at full fidelity, which drops every
// block the encoder does not write itself.
type Stripper struct {
	codecs *codec.Registry
	// PreserveICC keeps embedded colour profiles.
	PreserveICC bool
}

func NewStripper(codecs *codec.Registry) *Stripper {
	return &Stripper{codecs: codecs}
}

// Strip returns a copy of f without metadata. Name, MIME and ModTime are
// kept; Size follows the new data. The input is never modified.
func (s *Stripper) Strip(f media.SourceFile) (media.SourceFile, error) {
	const op = "strip metadata"

	var (
		out []byte
		err error
	)
	switch imgutil.Detect(f.Data) {
	case imgutil.KindJPEG:
		out, err = stripJPEG(f.Data, s.PreserveICC)
	case imgutil.KindPNG:
		out, err = stripPNG(f.Data, s.PreserveICC)
	default:
		out, err = s.reencode(f)
	}
	if err != nil {
		return media.SourceFile{}, failure.New(failure.KindMetadataStrip, op+" "+f.Name, err)
	}
	return f.WithData(out), nil
}

func (s *Stripper) reencode(f media.SourceFile) ([]byte, error) {
	mime := f.MIME
	if kind := imgutil.Detect(f.Data); kind != imgutil.KindUnknown {
		mime = kind.MIME()
	}

	dec, ok := s.codecs.Decoder(mime)
	if !ok {
		return nil, failure.Errorf(failure.KindUnsupportedFormat, "strip metadata", "no decoder for %q", mime)
	}
	ras, err := dec.Decode(f.Data)
	if err != nil {
		return nil, err
	}
	defer ras.Release()

	params, err := settings.Translate(fidelity(dec.Format()))
	if err != nil {
		return nil, err
	}
	return s.codecs.Encode(ras, params)
}

// fidelity is the highest-quality setting a format supports.
func fidelity(format settings.Format) settings.Settings {
	return settings.Settings{
		Format:   format,
		Tier:     settings.TierOriginal,
		Effort:   settings.EffortFast,
		Lossless: format != settings.FormatJPEG,
	}
}
