package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"

	"github.com/klauspost/compress/zlib"
)

var pngSignature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// maxTextChunk bounds how much a compressed text chunk may inflate to.
const maxTextChunk = 1 << 20

var errBadPNG = errors.New("invalid PNG signature")

type pngChunk struct {
	Name string
	Data []byte
	// Raw spans the whole chunk: length, type, data and CRC.
	Raw []byte
}

// walkPNG calls fn for every chunk up to and including IEND. A truncated
// trailing chunk ends the walk without error.
func walkPNG(data []byte, fn func(c pngChunk) bool) error {
	if len(data) < len(pngSignature) || !bytes.Equal(data[:len(pngSignature)], pngSignature) {
		return errBadPNG
	}

	rest := data[len(pngSignature):]
	for len(rest) >= 12 {
		length := int(binary.BigEndian.Uint32(rest[:4]))
		if length < 0 || length > len(rest)-12 {
			return nil
		}
		c := pngChunk{Name: string(rest[4:8]), Data: rest[8 : 8+length], Raw: rest[:12+length]}
		if !fn(c) || c.Name == "IEND" {
			return nil
		}
		rest = rest[12+length:]
	}
	return nil
}

func hasPNGChunk(data []byte, name string) bool {
	found := false
	_ = walkPNG(data, func(c pngChunk) bool {
		if c.Name == name {
			found = true
			return false
		}
		return true
	})
	return found
}

// pngText collects keyword → text from tEXt, zTXt and iTXt chunks.
func pngText(data []byte) map[string]string {
	out := make(map[string]string)
	_ = walkPNG(data, func(c pngChunk) bool {
		var key, value string
		switch c.Name {
		case "tEXt":
			key, value = parseTEXt(c.Data)
		case "zTXt":
			key, value = parseZTXt(c.Data)
		case "iTXt":
			key, value = parseITXt(c.Data)
		default:
			return true
		}
		if key != "" {
			if _, seen := out[key]; !seen {
				out[key] = value
			}
		}
		return true
	})
	return out
}

func parseTEXt(data []byte) (string, string) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 {
		return "", ""
	}
	return string(data[:idx]), string(data[idx+1:])
}

func parseZTXt(data []byte) (string, string) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 || idx+2 > len(data) {
		return "", ""
	}
	key := string(data[:idx])
	// byte after the separator is the compression method, 0 = deflate
	text, err := inflate(data[idx+2:])
	if err != nil {
		return key, ""
	}
	return key, string(text)
}

func parseITXt(data []byte) (string, string) {
	idx := bytes.IndexByte(data, 0)
	if idx <= 0 || idx+3 > len(data) {
		return "", ""
	}
	key := string(data[:idx])
	compressed := data[idx+1] == 1
	rest := data[idx+3:]

	// language tag, then translated keyword
	for i := 0; i < 2; i++ {
		n := bytes.IndexByte(rest, 0)
		if n < 0 {
			return key, ""
		}
		rest = rest[n+1:]
	}

	if !compressed {
		return key, string(rest)
	}
	text, err := inflate(rest)
	if err != nil {
		return key, ""
	}
	return key, string(text)
}

func inflate(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(io.LimitReader(zr, maxTextChunk))
}
