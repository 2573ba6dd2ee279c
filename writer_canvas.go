package resumepdf

import (
	"bytes"
	"io"

	"github.com/tdewolff/canvas"
	canvaspdf "github.com/tdewolff/canvas/renderers/pdf"
)

// canvasWriter places page images with the tdewolff/canvas PDF renderer.
// Units are millimetres with the origin at the bottom-left corner; images
// are embedded from decoded pixels, so the [ImageEncoding] is not used.
type canvasWriter struct {
	buf    bytes.Buffer
	pdf    *canvaspdf.PDF
	width  float64
	height float64
}

func newCanvasWriter(f PageFormat) (PageWriter, error) {
	w, h := f.Millimeters()
	cw := &canvasWriter{width: w, height: h}
	cw.pdf = canvaspdf.New(&cw.buf, w, h, nil)
	return cw, nil
}

func (w *canvasWriter) PageSize() (float64, float64) {
	return w.width, w.height
}

func (w *canvasWriter) AddPage() error {
	w.pdf.NewPage(w.width, w.height)
	return nil
}

func (w *canvasWriter) PlaceImage(p Page, _ ImageEncoding, x, y, width, height float64) error {
	c := canvas.New(w.width, w.height)
	// Map the image's pixel grid onto the target rectangle, flipping from
	// top-left to bottom-left origin.
	m := canvas.Identity.
		Translate(x, w.height-y-height).
		Scale(width/float64(p.Width()), height/float64(p.Height()))
	c.RenderImage(p.Image(), m)
	c.RenderTo(w.pdf)
	return nil
}

func (w *canvasWriter) SetMetadata(m Metadata) {
	creator := m.Creator
	if creator == "" {
		creator = "resumepdf"
	}
	w.pdf.SetInfo(m.Title, m.Subject, "", m.Author, creator)
}

func (w *canvasWriter) Output(out io.Writer) error {
	if err := w.pdf.Close(); err != nil {
		return err
	}
	_, err := out.Write(w.buf.Bytes())
	return err
}
