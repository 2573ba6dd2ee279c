package resumepdf

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/porticus-lab/go-resume-pdf/internal/pdfinfo"
)

func testPages(t *testing.T, h, band int) []Page {
	t.Helper()
	pages, err := Paginate(stripedBitmap(40, h), band)
	if err != nil {
		t.Fatal(err)
	}
	return pages
}

func TestAssemble_FpdfRoundTrip(t *testing.T) {
	for _, enc := range []ImageEncoding{EncodePNG, EncodeJPEG} {
		t.Run(enc.String(), func(t *testing.T) {
			a := &Assembler{
				Format:     DefaultPageFormat,
				Encoding:   enc,
				Strategies: DefaultWriterStrategies()[:1],
				Metadata:   Metadata{Title: "Jane Doe"},
			}
			data, err := a.Assemble(testPages(t, 250, 100))
			if err != nil {
				t.Fatalf("Assemble: %v", err)
			}
			s, err := pdfinfo.Inspect(data)
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if len(s.Pages) != 3 {
				t.Fatalf("got %d pages, want 3", len(s.Pages))
			}
			want := []int{100, 100, 50}
			for i, p := range s.Pages {
				if len(p.Images) != 1 {
					t.Fatalf("page %d has %d images, want 1", i+1, len(p.Images))
				}
				if img := p.Images[0]; img.Width != 40 || img.Height != want[i] {
					t.Errorf("page %d image = %dx%d, want 40x%d", i+1, img.Width, img.Height, want[i])
				}
				if !almostEqual(p.Width, 595.28, 0.1) || !almostEqual(p.Height, 841.89, 0.1) {
					t.Errorf("page %d = %vx%v pt, want A4", i+1, p.Width, p.Height)
				}
			}
			if s.Title != "Jane Doe" {
				t.Errorf("Title = %q, want Jane Doe", s.Title)
			}
		})
	}
}

func TestAssemble_StandardStrategyLandscape(t *testing.T) {
	a := &Assembler{
		Format:     PageFormat{Size: Letter, Orientation: Landscape},
		Strategies: DefaultWriterStrategies()[1:2],
	}
	data, err := a.Assemble(testPages(t, 30, 30))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	s, err := pdfinfo.Inspect(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(s.Pages))
	}
	if p := s.Pages[0]; !almostEqual(p.Width, 792, 0.1) || !almostEqual(p.Height, 612, 0.1) {
		t.Errorf("page = %vx%v pt, want 792x612", p.Width, p.Height)
	}
}

func TestAssemble_CanvasWriter(t *testing.T) {
	a := &Assembler{Strategies: DefaultWriterStrategies()[2:]}
	data, err := a.Assemble(testPages(t, 60, 25))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Fatalf("output does not start with %%PDF-: %q", data[:min(len(data), 8)])
	}
}

func TestAssemble_NoPages(t *testing.T) {
	a := &Assembler{}
	if _, err := a.Assemble(nil); !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("Assemble(nil) error = %v, want ErrNothingToExport", err)
	}
}

func TestAssemble_FallsBackAcrossStrategies(t *testing.T) {
	var logs bytes.Buffer
	a := &Assembler{
		Logger: log.New(&logs),
		Strategies: []WriterStrategy{
			{Name: "broken", New: func(PageFormat) (PageWriter, error) { return nil, errors.New("boom") }},
			{Name: "fpdf-custom", New: newFpdfCustom},
		},
	}
	data, err := a.Assemble(testPages(t, 10, 10))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF-")) {
		t.Error("output is not a PDF")
	}
	if !strings.Contains(logs.String(), "broken") {
		t.Errorf("failed strategy not logged: %q", logs.String())
	}
}

func TestAssemble_AllStrategiesFail(t *testing.T) {
	a := &Assembler{
		Format: PageFormat{Size: PageSize{Width: 10, Height: 10}},
		Strategies: []WriterStrategy{
			{Name: "fpdf-standard", New: newFpdfStandard},
		},
	}
	_, err := a.Assemble(testPages(t, 10, 10))
	if !errors.Is(err, ErrNoWriter) {
		t.Fatalf("error = %v, want ErrNoWriter", err)
	}
}

// recordingWriter captures the calls the assembler makes.
type recordingWriter struct {
	w, h   float64
	pages  int
	placed []placement
	meta   Metadata
}

type placement struct {
	index      int
	x, y, w, h float64
	page       int
}

func (r *recordingWriter) PageSize() (float64, float64) { return r.w, r.h }
func (r *recordingWriter) AddPage() error               { r.pages++; return nil }
func (r *recordingWriter) SetMetadata(m Metadata)       { r.meta = m }
func (r *recordingWriter) Output(w io.Writer) error {
	_, err := io.WriteString(w, "%PDF-fake")
	return err
}
func (r *recordingWriter) PlaceImage(p Page, _ ImageEncoding, x, y, w, h float64) error {
	r.placed = append(r.placed, placement{index: p.Index, x: x, y: y, w: w, h: h, page: r.pages})
	return nil
}

func recordingStrategy(rw *recordingWriter) []WriterStrategy {
	return []WriterStrategy{{Name: "recording", New: func(PageFormat) (PageWriter, error) {
		rw.pages = 1
		return rw, nil
	}}}
}

func TestAssemble_OrderAndFit(t *testing.T) {
	tests := []struct {
		name  string
		fit   FitMode
		lastH float64
	}{
		{"stretch", FitStretch, 297},
		{"width", FitWidth, 210 * 50.0 / 40},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rw := &recordingWriter{w: 210, h: 297}
			a := &Assembler{Fit: tt.fit, Strategies: recordingStrategy(rw)}
			if _, err := a.Assemble(testPages(t, 250, 100)); err != nil {
				t.Fatal(err)
			}
			if len(rw.placed) != 3 || rw.pages != 3 {
				t.Fatalf("placed %d images on %d pages, want 3 on 3", len(rw.placed), rw.pages)
			}
			for i, p := range rw.placed {
				if p.index != i || p.page != i+1 {
					t.Errorf("placement %d = page index %d on physical page %d", i, p.index, p.page)
				}
				if p.x != 0 || p.y != 0 || p.w != 210 {
					t.Errorf("placement %d rect = (%v,%v,%v)", i, p.x, p.y, p.w)
				}
			}
			if last := rw.placed[2].h; !almostEqual(last, tt.lastH, 0.001) {
				t.Errorf("last page height = %v, want %v", last, tt.lastH)
			}
		})
	}
}

func TestAssemble_MetadataOnlyWhenSet(t *testing.T) {
	rw := &recordingWriter{w: 1, h: 1}
	a := &Assembler{Strategies: recordingStrategy(rw), Metadata: Metadata{Author: "J"}}
	if _, err := a.Assemble(testPages(t, 1, 1)); err != nil {
		t.Fatal(err)
	}
	if rw.meta.Author != "J" {
		t.Errorf("metadata not forwarded: %+v", rw.meta)
	}
}
