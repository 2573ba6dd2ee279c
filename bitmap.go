package resumepdf

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Bitmap is the master capture of a mounted surface: the full content
// height at the capture scale. A Bitmap is never modified after capture.
type Bitmap struct {
	img   image.Image
	scale float64
}

// NewBitmap wraps img as a capture taken at scale.
func NewBitmap(img image.Image, scale float64) *Bitmap {
	return &Bitmap{img: img, scale: scale}
}

// DecodeBitmap decodes an encoded screenshot (PNG or JPEG) into a Bitmap.
func DecodeBitmap(data []byte, scale float64) (*Bitmap, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("resumepdf: decoding capture: %w", err)
	}
	return NewBitmap(img, scale), nil
}

// emptyImage is the capture of a surface with no rendered rows.
func emptyImage(width int) image.Image {
	return image.NewNRGBA(image.Rect(0, 0, width, 0))
}

// Width returns the bitmap width in device pixels.
func (b *Bitmap) Width() int { return b.img.Bounds().Dx() }

// Height returns the bitmap height in device pixels.
func (b *Bitmap) Height() int { return b.img.Bounds().Dy() }

// Scale returns the device pixel ratio the bitmap was captured at.
func (b *Bitmap) Scale() float64 { return b.scale }

// Image returns the underlying image. Callers must not modify it.
func (b *Bitmap) Image() image.Image { return b.img }

// ImageEncoding selects how page images are embedded in the document.
type ImageEncoding int

const (
	// EncodePNG embeds lossless PNG images. This is the default.
	EncodePNG ImageEncoding = iota
	// EncodeJPEG embeds JPEG images at [JPEGQuality]. Output is smaller but
	// text edges are softened.
	EncodeJPEG
)

// JPEGQuality is the quality used by [EncodeJPEG].
const JPEGQuality = 92

func (e ImageEncoding) String() string {
	if e == EncodeJPEG {
		return "jpeg"
	}
	return "png"
}

// fpdfType returns the image type name fpdf expects.
func (e ImageEncoding) fpdfType() string {
	if e == EncodeJPEG {
		return "JPG"
	}
	return "PNG"
}

func encodeImage(w io.Writer, img image.Image, enc ImageEncoding) error {
	if enc == EncodeJPEG {
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(JPEGQuality))
	}
	return imaging.Encode(w, img, imaging.PNG)
}
