package resumepdf

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
)

// Metadata is written into the document information dictionary.
type Metadata struct {
	Title   string
	Subject string
	Author  string
	Creator string
}

// PageWriter is a PDF backend that places one image per physical page.
//
// A freshly constructed PageWriter already holds the first page; AddPage
// starts every following one.
type PageWriter interface {
	// PageSize returns the current page size in the writer's own units.
	PageSize() (width, height float64)
	// AddPage starts a new page of the configured format.
	AddPage() error
	// PlaceImage draws p into the rectangle (x, y, w, h) of the current
	// page, measured from the top-left corner in writer units.
	PlaceImage(p Page, enc ImageEncoding, x, y, w, h float64) error
	// SetMetadata fills the document information dictionary.
	SetMetadata(m Metadata)
	// Output finishes the document and writes it to w.
	Output(w io.Writer) error
}

// WriterStrategy names one way of constructing a [PageWriter].
type WriterStrategy struct {
	Name string
	New  func(f PageFormat) (PageWriter, error)
}

// DefaultWriterStrategies returns the constructors tried by an [Assembler]
// with no explicit list: fpdf with an explicit size object, fpdf with a
// named standard size, then the tdewolff/canvas PDF renderer.
func DefaultWriterStrategies() []WriterStrategy {
	return []WriterStrategy{
		{Name: "fpdf-custom", New: newFpdfCustom},
		{Name: "fpdf-standard", New: newFpdfStandard},
		{Name: "canvas", New: newCanvasWriter},
	}
}

// Assembler serializes an ordered list of pages into one PDF.
type Assembler struct {
	Format     PageFormat
	Fit        FitMode
	Encoding   ImageEncoding
	Strategies []WriterStrategy
	Metadata   Metadata
	Logger     *log.Logger
}

func (a *Assembler) logger() *log.Logger {
	if a.Logger == nil {
		return log.NewWithOptions(io.Discard, log.Options{})
	}
	return a.Logger
}

// newWriter tries each strategy in order and returns the first writer that
// constructs. Failures are logged; only when every strategy fails is an
// error returned.
func (a *Assembler) newWriter() (PageWriter, string, error) {
	strategies := a.Strategies
	if len(strategies) == 0 {
		strategies = DefaultWriterStrategies()
	}
	format := a.Format
	if format.Size == (PageSize{}) {
		format.Size = DefaultPageFormat.Size
	}

	var errs []error
	for _, s := range strategies {
		w, err := s.New(format)
		if err == nil {
			return w, s.Name, nil
		}
		a.logger().Warn("pdf writer unavailable", "strategy", s.Name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
	}
	return nil, "", fmt.Errorf("%w: %w", ErrNoWriter, errors.Join(errs...))
}

// Assemble writes pages, in order, one per physical page. Page 0 goes on the
// writer's initial page and every later page starts a new one. Each band is
// placed according to the assembler's [FitMode].
func (a *Assembler) Assemble(pages []Page) ([]byte, error) {
	if len(pages) == 0 {
		return nil, ErrNothingToExport
	}
	w, name, err := a.newWriter()
	if err != nil {
		return nil, err
	}
	if a.Metadata != (Metadata{}) {
		w.SetMetadata(a.Metadata)
	}

	for i, p := range pages {
		if i > 0 {
			if err := w.AddPage(); err != nil {
				return nil, fmt.Errorf("resumepdf: adding page %d: %w", i+1, err)
			}
		}
		pw, ph := w.PageSize()
		x, y, iw, ih := a.Fit.placement(pw, ph, p.Width(), p.Height())
		if err := w.PlaceImage(p, a.Encoding, x, y, iw, ih); err != nil {
			return nil, fmt.Errorf("resumepdf: placing page %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := w.Output(&buf); err != nil {
		return nil, fmt.Errorf("resumepdf: writing pdf: %w", err)
	}
	a.logger().Debug("assembled document", "writer", name, "pages", len(pages), "bytes", buf.Len())
	return buf.Bytes(), nil
}
