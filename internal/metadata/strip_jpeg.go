package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
)

const (
	markerSOI  = 0xd8
	markerEOI  = 0xd9
	markerSOS  = 0xda
	markerAPP1 = 0xe1
	markerAPP2 = 0xe2
	markerAPPD = 0xed
	markerCOM  = 0xfe
	markerTEM  = 0x01
)

var (
	jpegExifHeader    = []byte("Exif\x00\x00")
	jpegXMPHeader     = []byte("http://ns.adobe.com/xap/1.0/\x00")
	jpegXMPExtHeader  = []byte("http://ns.adobe.com/xmp/extension/\x00")
	jpegPhotoshopHead = []byte("Photoshop 3.0\x00")
	jpegICCHeader     = []byte("ICC_PROFILE\x00")

	errBadJPEG       = errors.New("invalid JPEG SOI")
	errJPEGTruncated = errors.New("truncated JPEG segment")
)

// stripJPEG copies data without the EXIF, XMP, Photoshop IRB and comment
// segments. Everything from SOS onward is copied verbatim, so pixel data is
// never re-encoded.
func stripJPEG(data []byte, preserveICC bool) ([]byte, error) {
	if len(data) < 2 || data[0] != 0xff || data[1] != markerSOI {
		return nil, errBadJPEG
	}

	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(data[:2])
	pos := 2

	for {
		for pos < len(data) && data[pos] != 0xff {
			pos++
		}
		for pos < len(data) && data[pos] == 0xff {
			pos++
		}
		if pos >= len(data) {
			return nil, errJPEGTruncated
		}
		marker := data[pos]
		pos++

		switch {
		case marker == markerEOI:
			out.Write([]byte{0xff, markerEOI})
			return out.Bytes(), nil
		case marker == markerSOS:
			out.Write([]byte{0xff, markerSOS})
			out.Write(data[pos:])
			return out.Bytes(), nil
		case marker == markerTEM || (marker >= 0xd0 && marker <= 0xd7):
			out.Write([]byte{0xff, marker})
			continue
		}

		if pos+2 > len(data) {
			return nil, errJPEGTruncated
		}
		segLen := int(binary.BigEndian.Uint16(data[pos : pos+2]))
		if segLen < 2 || pos+segLen > len(data) {
			return nil, errJPEGTruncated
		}
		payload := data[pos+2 : pos+segLen]

		if !dropJPEGSegment(marker, payload, preserveICC) {
			out.Write([]byte{0xff, marker})
			out.Write(data[pos : pos+segLen])
		}
		pos += segLen
	}
}

func dropJPEGSegment(marker byte, payload []byte, preserveICC bool) bool {
	switch marker {
	case markerAPP1:
		return bytes.HasPrefix(payload, jpegExifHeader) ||
			bytes.HasPrefix(payload, jpegXMPHeader) ||
			bytes.HasPrefix(payload, jpegXMPExtHeader)
	case markerAPPD:
		return bytes.HasPrefix(payload, jpegPhotoshopHead)
	case markerAPP2:
		return !preserveICC && bytes.HasPrefix(payload, jpegICCHeader)
	case markerCOM:
		return true
	}
	return false
}
