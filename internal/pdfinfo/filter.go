package pdfinfo

import (
	"bytes"
	"compress/zlib"
	"encoding/ascii85"
	"fmt"
	"io"
)

// maxDecodedSize bounds the memory a single stream may expand to (256 MB).
const maxDecodedSize = 256 << 20

// decodeStream undoes the filter chain of a stream object. Image codecs
// (DCT, JPX, ...) are returned still encoded.
func decodeStream(o *Object) ([]byte, error) {
	f, ok := o.Dict["Filter"]
	if !ok {
		return o.Data, nil
	}

	var filters []string
	var parms []Dict
	switch f.Kind {
	case Name:
		filters = []string{f.Name}
		if p, ok := o.Dict["DecodeParms"]; ok && p.Kind == Dictionary {
			parms = []Dict{p.Dict}
		}
	case Array:
		for _, e := range f.Array {
			if e.Kind == Name {
				filters = append(filters, e.Name)
			}
		}
		if p, ok := o.Dict["DecodeParms"]; ok && p.Kind == Array {
			for _, e := range p.Array {
				if e.Kind == Dictionary {
					parms = append(parms, e.Dict)
				} else {
					parms = append(parms, nil)
				}
			}
		}
	default:
		return o.Data, nil
	}

	data := o.Data
	for i, name := range filters {
		var p Dict
		if i < len(parms) {
			p = parms[i]
		}
		var err error
		if data, err = applyFilter(name, p, data); err != nil {
			return nil, fmt.Errorf("pdfinfo: filter %s: %w", name, err)
		}
	}
	return data, nil
}

func applyFilter(name string, parms Dict, data []byte) ([]byte, error) {
	switch name {
	case "FlateDecode", "Fl":
		return inflate(parms, data)
	case "ASCII85Decode", "A85":
		if end := bytes.Index(data, []byte("~>")); end >= 0 {
			data = data[:end]
		}
		return readLimited(ascii85.NewDecoder(bytes.NewReader(data)))
	case "ASCIIHexDecode", "AHx":
		return newLexer(append([]byte{'<'}, data...), 0).hexString().Str, nil
	case "DCTDecode", "DCT", "JPXDecode", "CCITTFaxDecode", "CCF", "JBIG2Decode":
		return data, nil
	}
	return nil, fmt.Errorf("unsupported filter")
}

func readLimited(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > maxDecodedSize {
		return nil, fmt.Errorf("decoded stream exceeds %d bytes", maxDecodedSize)
	}
	return out, nil
}

func inflate(parms Dict, data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	out, err := readLimited(zr)
	if err != nil {
		return nil, err
	}
	if parms == nil {
		return out, nil
	}
	if pred, _ := parms.Int("Predictor"); pred >= 10 {
		return unpredictPNG(parms, out), nil
	}
	return out, nil
}

// unpredictPNG reverses the per-row PNG filters used by xref and object
// streams.
func unpredictPNG(parms Dict, data []byte) []byte {
	colors, _ := parms.Int("Colors")
	bpc, _ := parms.Int("BitsPerComponent")
	cols, _ := parms.Int("Columns")
	colors, cols = max(colors, 1), max(cols, 1)
	if bpc == 0 {
		bpc = 8
	}

	rowLen := int((cols*colors*bpc + 7) / 8)
	bpp := max(int((colors*bpc+7)/8), 1)
	stride := rowLen + 1
	rows := len(data) / stride

	out := make([]byte, rows*rowLen)
	prev := make([]byte, rowLen)
	for r := 0; r < rows; r++ {
		src := data[r*stride+1 : (r+1)*stride]
		dst := out[r*rowLen : (r+1)*rowLen]
		kind := data[r*stride]
		for i := range dst {
			var left, upLeft byte
			if i >= bpp {
				left, upLeft = dst[i-bpp], prev[i-bpp]
			}
			up := prev[i]
			switch kind {
			case 1:
				dst[i] = src[i] + left
			case 2:
				dst[i] = src[i] + up
			case 3:
				dst[i] = src[i] + byte((int(left)+int(up))/2)
			case 4:
				dst[i] = src[i] + paeth(left, up, upLeft)
			default:
				dst[i] = src[i]
			}
		}
		copy(prev, dst)
	}
	return out
}

func paeth(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := absInt(p-int(a)), absInt(p-int(b)), absInt(p-int(c))
	switch {
	case pa <= pb && pa <= pc:
		return a
	case pb <= pc:
		return b
	}
	return c
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
