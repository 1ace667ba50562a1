// Package codec adapts per-format image libraries behind one decode/encode
// interface so the backend for a format can change without touching callers.
package codec

import (
	"fmt"
	"sort"
	"sync"

	"batchconv/internal/failure"
	"batchconv/internal/raster"
	"batchconv/internal/settings"
)

// Codec decodes and encodes one image format. Implementations hold no
// mutable state and may be used from many goroutines at once.
type Codec interface {
	Format() settings.Format
	// MIMETypes lists the declared media types this codec decodes.
	MIMETypes() []string
	Decode(data []byte) (*raster.Raster, error)
	Encode(r *raster.Raster, p settings.EncodeParameters) ([]byte, error)
}

// Registry resolves decoders by declared media type and encoders by format.
type Registry struct {
	mu       sync.RWMutex
	byFormat map[settings.Format]Codec
	byMIME   map[string]Codec
}

func NewRegistry() *Registry {
	return &Registry{
		byFormat: make(map[settings.Format]Codec),
		byMIME:   make(map[string]Codec),
	}
}

// NewDefaultRegistry registers the JPEG, PNG, WebP and AVIF adapters.
func NewDefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(JPEG{})
	reg.Register(PNG{})
	reg.Register(WebP{})
	reg.Register(AVIF{})
	return reg
}

// Register adds c, replacing any codec previously registered for the same
// format or media types.
func (r *Registry) Register(c Codec) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byFormat[c.Format()] = c
	for _, mime := range c.MIMETypes() {
		r.byMIME[mime] = c
	}
}

// Decoder returns the codec registered for a declared media type.
func (r *Registry) Decoder(mime string) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byMIME[mime]
	return c, ok
}

// Encoder returns the codec registered for an output format.
func (r *Registry) Encoder(format settings.Format) (Codec, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byFormat[format]
	return c, ok
}

// Decode decodes data with the codec registered for mime.
func (r *Registry) Decode(data []byte, mime string) (*raster.Raster, error) {
	c, ok := r.Decoder(mime)
	if !ok {
		return nil, failure.Errorf(failure.KindUnsupportedFormat, "decode", "no decoder for %q", mime)
	}
	ras, err := c.Decode(data)
	return ras, failure.Ensure(failure.KindDecode, "decode "+string(c.Format()), err)
}

// Encode encodes ras with the codec registered for p.Format.
func (r *Registry) Encode(ras *raster.Raster, p settings.EncodeParameters) ([]byte, error) {
	c, ok := r.Encoder(p.Format)
	if !ok {
		return nil, failure.Errorf(failure.KindUnsupportedFormat, "encode", "no encoder for %q", p.Format)
	}
	out, err := c.Encode(ras, p)
	return out, failure.Ensure(failure.KindEncode, "encode "+string(p.Format), err)
}

// MIMETypes lists every decodable media type, sorted.
func (r *Registry) MIMETypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byMIME))
	for mime := range r.byMIME {
		out = append(out, mime)
	}
	sort.Strings(out)
	return out
}

func checkEncodable(ras *raster.Raster, want settings.Format, p settings.EncodeParameters) error {
	if p.Format != want {
		return failure.Errorf(failure.KindEncode, "encode "+string(want), "parameters are for %q", p.Format)
	}
	if ras.Released() {
		return failure.Errorf(failure.KindEncode, "encode "+string(want), "raster already released")
	}
	if ras.Width() <= 0 || ras.Height() <= 0 {
		return failure.Errorf(failure.KindEncode, "encode "+string(want), "invalid dimensions %dx%d", ras.Width(), ras.Height())
	}
	return nil
}

func decodeErr(format settings.Format, err error) error {
	return failure.New(failure.KindDecode, fmt.Sprintf("decode %s", format), err)
}

func encodeErr(format settings.Format, err error) error {
	return failure.New(failure.KindEncode, fmt.Sprintf("encode %s", format), err)
}
