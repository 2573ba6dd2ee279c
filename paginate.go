package resumepdf

import (
	"image"
	"io"

	"golang.org/x/image/draw"
)

// Page is one page-height band of a [Bitmap]. It owns an independent copy
// of rows [Y, Y+Height()) of the master bitmap. Pages are only produced by
// [Paginate]; a zero Page has no pixels.
type Page struct {
	// Index is the 0-based page number.
	Index int
	// Y is the first master-bitmap row covered by the page.
	Y int

	img *image.NRGBA
}

// Width returns the page image width in device pixels.
func (p Page) Width() int {
	if p.img == nil {
		return 0
	}
	return p.img.Bounds().Dx()
}

// Height returns the page image height in device pixels. Only the last page
// of a document may be shorter than the band height.
func (p Page) Height() int {
	if p.img == nil {
		return 0
	}
	return p.img.Bounds().Dy()
}

// Image returns the page pixels. Callers must not modify them.
func (p Page) Image() image.Image { return p.img }

// Encode writes the page image to w using enc.
func (p Page) Encode(w io.Writer, enc ImageEncoding) error {
	return encodeImage(w, p.img, enc)
}

// Paginate slices b into consecutive bands of bandHeight rows. Every band
// spans the full bitmap width; the last band holds the remainder and is
// never padded. The bands tile the bitmap exactly, so a bitmap of height H
// yields ceil(H/bandHeight) pages. An empty bitmap yields no pages.
func Paginate(b *Bitmap, bandHeight int) ([]Page, error) {
	if bandHeight <= 0 {
		return nil, ErrInvalidBandHeight
	}
	if b == nil || b.img == nil {
		return nil, nil
	}
	bounds := b.img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return nil, nil
	}

	pages := make([]Page, 0, (h+bandHeight-1)/bandHeight)
	for y := 0; y < h; y += bandHeight {
		bh := min(bandHeight, h-y)
		dst := image.NewNRGBA(image.Rect(0, 0, w, bh))
		src := image.Rect(bounds.Min.X, bounds.Min.Y+y, bounds.Max.X, bounds.Min.Y+y+bh)
		draw.Copy(dst, image.Point{}, b.img, src, draw.Src, nil)
		pages = append(pages, Page{Index: len(pages), Y: y, img: dst})
	}
	return pages, nil
}
