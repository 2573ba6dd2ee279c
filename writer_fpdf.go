package resumepdf

import (
	"bytes"
	"fmt"
	"io"

	"codeberg.org/go-pdf/fpdf"
)

// fpdfWriter places page images with codeberg.org/go-pdf/fpdf.
type fpdfWriter struct {
	pdf *fpdf.Fpdf
}

func orientationCode(o Orientation) string {
	if o == Landscape {
		return "L"
	}
	return "P"
}

// newFpdfCustom builds the writer from an explicit size object in
// millimetres, so any [PageSize] is supported.
func newFpdfCustom(f PageFormat) (PageWriter, error) {
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: orientationCode(f.Orientation),
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: f.Size.Width * 10, Ht: f.Size.Height * 10},
	})
	return newFpdfWriter(pdf)
}

// fpdfSizeNames maps the standard sizes to the names fpdf knows.
var fpdfSizeNames = map[PageSize]string{
	A3:      "A3",
	A4:      "A4",
	A5:      "A5",
	Letter:  "Letter",
	Legal:   "Legal",
	Tabloid: "Tabloid",
}

// newFpdfStandard builds the writer from positional arguments and a named
// standard size, measured in points.
func newFpdfStandard(f PageFormat) (PageWriter, error) {
	name, ok := fpdfSizeNames[f.Size]
	if !ok {
		return nil, fmt.Errorf("no standard name for %gx%g cm", f.Size.Width, f.Size.Height)
	}
	return newFpdfWriter(fpdf.New(orientationCode(f.Orientation), "pt", name, ""))
}

func newFpdfWriter(pdf *fpdf.Fpdf) (PageWriter, error) {
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetCreator("resumepdf", true)
	pdf.AddPage()
	if err := pdf.Error(); err != nil {
		return nil, err
	}
	return &fpdfWriter{pdf: pdf}, nil
}

func (w *fpdfWriter) PageSize() (float64, float64) {
	return w.pdf.GetPageSize()
}

func (w *fpdfWriter) AddPage() error {
	w.pdf.AddPage()
	return w.pdf.Error()
}

func (w *fpdfWriter) PlaceImage(p Page, enc ImageEncoding, x, y, width, height float64) error {
	var buf bytes.Buffer
	if err := p.Encode(&buf, enc); err != nil {
		return err
	}
	name := fmt.Sprintf("page-%d", p.Index)
	opts := fpdf.ImageOptions{ImageType: enc.fpdfType()}
	w.pdf.RegisterImageOptionsReader(name, opts, &buf)
	w.pdf.ImageOptions(name, x, y, width, height, false, opts, 0, "")
	return w.pdf.Error()
}

func (w *fpdfWriter) SetMetadata(m Metadata) {
	if m.Title != "" {
		w.pdf.SetTitle(m.Title, true)
	}
	if m.Subject != "" {
		w.pdf.SetSubject(m.Subject, true)
	}
	if m.Author != "" {
		w.pdf.SetAuthor(m.Author, true)
	}
	if m.Creator != "" {
		w.pdf.SetCreator(m.Creator, true)
	}
}

func (w *fpdfWriter) Output(out io.Writer) error {
	return w.pdf.Output(out)
}
