// Package testutil builds in-memory image fixtures for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

// Gradient returns an opaque w×h image with distinct pixel values.
func Gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8((x * 255) / max(w, 1)),
				G: uint8((y * 255) / max(h, 1)),
				B: uint8((x + y) % 256),
				A: 0xff,
			})
		}
	}
	return img
}

func JPEG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, Gradient(w, h), &jpeg.Options{Quality: 90}); err != nil {
		tb.Fatalf("encode jpeg fixture: %v", err)
	}
	return buf.Bytes()
}

func PNG(tb testing.TB, w, h int) []byte {
	tb.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, Gradient(w, h)); err != nil {
		tb.Fatalf("encode png fixture: %v", err)
	}
	return buf.Bytes()
}

// ExifTIFF is a little-endian TIFF block carrying Model=TestCam and
// DateTime=2024:01:02 03:04:05.
func ExifTIFF() []byte {
	var tiff bytes.Buffer
	tiff.Write([]byte{0x49, 0x49, 0x2a, 0x00})
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0110))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(8))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(38))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(0x0132))
	_ = binary.Write(&tiff, binary.LittleEndian, uint16(2))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(20))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(46))
	_ = binary.Write(&tiff, binary.LittleEndian, uint32(0))
	tiff.Write([]byte("TestCam\x00"))
	tiff.Write([]byte("2024:01:02 03:04:05\x00"))
	return tiff.Bytes()
}

// WithJPEGExif inserts an APP1 Exif segment right after the SOI marker.
func WithJPEGExif(tb testing.TB, data []byte) []byte {
	tb.Helper()
	if len(data) < 2 || data[0] != 0xff || data[1] != 0xd8 {
		tb.Fatalf("fixture is not a JPEG")
	}
	exif := append([]byte("Exif\x00\x00"), ExifTIFF()...)

	var buf bytes.Buffer
	buf.Write(data[:2])
	buf.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(exif)+2))
	buf.Write(exif)
	buf.Write(data[2:])
	return buf.Bytes()
}

// WithPNGMetadata inserts tEXt, tIME and eXIf chunks before IEND.
func WithPNGMetadata(tb testing.TB, data []byte) []byte {
	tb.Helper()
	if len(data) < 12 || string(data[len(data)-8:len(data)-4]) != "IEND" {
		tb.Fatalf("fixture does not end with IEND")
	}

	insertAt := len(data) - 12
	out := append([]byte{}, data[:insertAt]...)
	out = append(out, PNGChunk("tEXt", []byte("Model\x00TestCam"))...)
	out = append(out, PNGChunk("tIME", []byte{0x07, 0xE8, 0x01, 0x02, 0x03, 0x04, 0x05})...)
	out = append(out, PNGChunk("eXIf", ExifTIFF())...)
	out = append(out, data[insertAt:]...)
	return out
}

func PNGChunk(chunkType string, data []byte) []byte {
	chunkTypeBytes := []byte(chunkType)
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	crc := crc32.ChecksumIEEE(append(append([]byte{}, chunkTypeBytes...), data...))
	crcBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(crcBuf, crc)

	chunk := make([]byte, 0, 12+len(data))
	chunk = append(chunk, lenBuf...)
	chunk = append(chunk, chunkTypeBytes...)
	chunk = append(chunk, data...)
	chunk = append(chunk, crcBuf...)
	return chunk
}
