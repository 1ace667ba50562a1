package metadata

import "bytes"

// stripPNG copies data without text, timestamp and EXIF chunks. Chunk bytes
// including CRCs are copied untouched.
func stripPNG(data []byte, preserveICC bool) ([]byte, error) {
	out := bytes.NewBuffer(make([]byte, 0, len(data)))
	out.Write(pngSignature)

	err := walkPNG(data, func(c pngChunk) bool {
		if dropPNGChunk(c.Name, preserveICC) {
			return true
		}
		out.Write(c.Raw)
		return true
	})
	if err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func dropPNGChunk(name string, preserveICC bool) bool {
	switch name {
	case "tEXt", "zTXt", "iTXt", "eXIf", "tIME":
		return true
	case "iCCP":
		return !preserveICC
	}
	return false
}
