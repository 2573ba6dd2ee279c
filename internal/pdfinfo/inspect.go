package pdfinfo

import (
	"bytes"
	"fmt"
	"unicode/utf16"
)

// Image is an image XObject painted on a page.
type Image struct {
	Name   string
	Width  int
	Height int
	Filter string
}

// PageSummary describes one page of a document.
type PageSummary struct {
	Number int // 1-based
	Width  float64
	Height float64
	Images []Image
}

// Summary is the structural overview reported by [Inspect].
type Summary struct {
	Version  string
	Title    string
	Creator  string
	Producer string
	Pages    []PageSummary
}

// Inspect parses data and summarizes every page in document order.
func Inspect(data []byte) (*Summary, error) {
	doc, err := Load(data)
	if err != nil {
		return nil, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, err
	}
	s := &Summary{Version: doc.Version()}
	if info := doc.Info(); info != nil {
		s.Title = doc.text(info["Title"])
		s.Creator = doc.text(info["Creator"])
		s.Producer = doc.text(info["Producer"])
	}
	for i, p := range pages {
		imgs, err := doc.Images(p)
		if err != nil {
			return nil, fmt.Errorf("pdfinfo: page %d: %w", i+1, err)
		}
		s.Pages = append(s.Pages, PageSummary{
			Number: i + 1,
			Width:  p.Width(),
			Height: p.Height(),
			Images: imgs,
		})
	}
	return s, nil
}

// text decodes a PDF text string (PDFDocEncoding or UTF-16BE with BOM).
func (doc *Document) text(obj *Object) string {
	o, err := doc.Resolve(obj)
	if err != nil || o.Kind != String {
		return ""
	}
	b := o.Str
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u = append(u, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u))
	}
	return string(b)
}

// Images returns the image XObjects drawn by p's content stream, in paint
// order. Images drawn inside form XObjects are included.
func (doc *Document) Images(p Page) ([]Image, error) {
	content, err := doc.Content(p)
	if err != nil {
		return nil, err
	}
	var out []Image
	doc.scanImages(content, p.Resources, &out, 0)
	return out, nil
}

func (doc *Document) scanImages(content []byte, res Dict, out *[]Image, depth int) {
	if depth > 8 || res == nil {
		return
	}
	xobjects := doc.dict(res["XObject"])
	l := newLexer(content, 0)
	var operand string
	for {
		o, err := l.next()
		if err != nil || o == nil {
			return
		}
		switch {
		case o.Kind == Name:
			operand = o.Name
		case o.Kind == Operator && o.Name == "ID":
			// Skip inline image data up to its EI marker.
			if end := bytes.Index(l.data[l.pos:], []byte("EI")); end >= 0 {
				l.pos += end + 2
			} else {
				return
			}
		case o.Kind == Operator && o.Name == "Do":
			if xobjects == nil || operand == "" {
				continue
			}
			x, err := doc.Resolve(xobjects[operand])
			if err != nil || x.Kind != Stream {
				continue
			}
			switch sub, _ := x.Dict.Name("Subtype"); sub {
			case "Image":
				w, _ := x.Dict.Int("Width")
				h, _ := x.Dict.Int("Height")
				filter, _ := x.Dict.Name("Filter")
				*out = append(*out, Image{Name: operand, Width: int(w), Height: int(h), Filter: filter})
			case "Form":
				if inner, err := decodeStream(x); err == nil {
					formRes := doc.dict(x.Dict["Resources"])
					if formRes == nil {
						formRes = res
					}
					doc.scanImages(inner, formRes, out, depth+1)
				}
			}
		}
	}
}
