package resumepdf

import (
	"fmt"
	"math"
)

// PageSize represents paper dimensions in centimeters.
type PageSize struct {
	Width  float64 // Width in centimeters.
	Height float64 // Height in centimeters.
}

// Standard paper sizes.
var (
	A3      = PageSize{Width: 29.7, Height: 42.0}
	A4      = PageSize{Width: 21.0, Height: 29.7}
	A5      = PageSize{Width: 14.8, Height: 21.0}
	Letter  = PageSize{Width: 21.59, Height: 27.94}
	Legal   = PageSize{Width: 21.59, Height: 35.56}
	Tabloid = PageSize{Width: 27.94, Height: 43.18}
)

// pageSizeNames maps config names to paper sizes.
var pageSizeNames = map[string]PageSize{
	"a3":      A3,
	"a4":      A4,
	"a5":      A5,
	"letter":  Letter,
	"legal":   Legal,
	"tabloid": Tabloid,
}

// PageSizeByName returns the paper size registered under name ("a4", "letter", ...).
func PageSizeByName(name string) (PageSize, error) {
	s, ok := pageSizeNames[name]
	if !ok {
		return PageSize{}, fmt.Errorf("resumepdf: unknown page size %q", name)
	}
	return s, nil
}

// Orientation represents the page orientation.
type Orientation int

const (
	// Portrait is the default vertical orientation.
	Portrait Orientation = iota
	// Landscape rotates the page to horizontal orientation.
	Landscape
)

// PageFormat is the physical output page each band is fit into.
type PageFormat struct {
	Size        PageSize
	Orientation Orientation
}

// DefaultPageFormat is portrait A4.
var DefaultPageFormat = PageFormat{Size: A4, Orientation: Portrait}

// Millimeters returns the page width and height in millimeters, accounting
// for orientation.
func (f PageFormat) Millimeters() (width, height float64) {
	w, h := f.Size.Width*10, f.Size.Height*10
	if f.Orientation == Landscape {
		return h, w
	}
	return w, h
}

// Points returns the page width and height in PostScript points.
func (f PageFormat) Points() (width, height float64) {
	w, h := f.Millimeters()
	return mmToPt(w), mmToPt(h)
}

// cmToInches converts centimeters to inches.
func cmToInches(cm float64) float64 {
	return cm / 2.54
}

func mmToPt(mm float64) float64 {
	return cmToInches(mm/10) * 72
}

// FitMode controls how a page band is placed on its physical page.
type FitMode int

const (
	// FitStretch stretches the band over the whole page, (0,0) to
	// (pageWidth, pageHeight). A short last band is stretched too.
	FitStretch FitMode = iota
	// FitWidth scales the band to the page width, keeps its aspect ratio and
	// aligns it to the top of the page.
	FitWidth
)

// placement returns the rectangle a band of imgW×imgH pixels occupies on a
// page of pageW×pageH writer units.
func (m FitMode) placement(pageW, pageH float64, imgW, imgH int) (x, y, w, h float64) {
	if m == FitWidth && imgW > 0 {
		h = pageW * float64(imgH) / float64(imgW)
		return 0, 0, pageW, math.Min(h, pageH)
	}
	return 0, 0, pageW, pageH
}

// Layout holds the geometry constants of the pipeline. Every field is
// overridable through [WithLayout] or the config file.
type Layout struct {
	// WidthPx is the logical width of the render surface. Defaults to 794
	// (A4 width at 96 dpi).
	WidthPx int

	// MinHeightPx is the minimum logical height of the render surface.
	// Defaults to 1123 (A4 height at 96 dpi).
	MinHeightPx int

	// PageHeightPx is the logical height of one page band before scaling.
	// Defaults to 1123.
	PageHeightPx int

	// Scale is the device pixel ratio used for capture. It also scales the
	// band height, so the two always agree. Defaults to 2.
	Scale float64

	// Format is the physical output page. Defaults to A4 portrait.
	Format PageFormat
}

// DefaultLayout returns the reference A4 geometry.
func DefaultLayout() Layout {
	return Layout{
		WidthPx:      794,
		MinHeightPx:  1123,
		PageHeightPx: 1123,
		Scale:        2,
		Format:       DefaultPageFormat,
	}
}

// resolved returns a Layout with all zero values replaced by defaults.
func (l Layout) resolved() Layout {
	d := DefaultLayout()
	if l.WidthPx <= 0 {
		l.WidthPx = d.WidthPx
	}
	if l.MinHeightPx <= 0 {
		l.MinHeightPx = d.MinHeightPx
	}
	if l.PageHeightPx <= 0 {
		l.PageHeightPx = d.PageHeightPx
	}
	if l.Scale <= 0 {
		l.Scale = d.Scale
	}
	if l.Format.Size == (PageSize{}) {
		l.Format.Size = d.Format.Size
	}
	return l
}

// BandHeight returns the page band height in device pixels,
// round(PageHeightPx × Scale).
func (l Layout) BandHeight() int {
	r := l.resolved()
	return int(math.Round(float64(r.PageHeightPx) * r.Scale))
}
