package resumepdf

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/porticus-lab/go-resume-pdf/internal/pdfinfo"
)

// fakeEngine lays out every markup at a fixed height and captures a
// striped bitmap of the matching size.
type fakeEngine struct {
	height int

	mountErr   error
	captureErr error
	// block, when set, holds Capture until it is closed or ctx is done.
	block   chan struct{}
	started chan struct{}

	mu       sync.Mutex
	mounts   int
	unmounts int
	captures int
	closes   int
	markups  []string
}

type fakeSurface struct {
	id     string
	layout Layout
}

func (s *fakeSurface) ID() string { return s.id }

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closes++
	return nil
}

func (f *fakeEngine) Mount(_ context.Context, markup string, l Layout) (Surface, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.mounts++
	f.markups = append(f.markups, markup)
	if f.mountErr != nil {
		return nil, f.mountErr
	}
	return &fakeSurface{id: newSurfaceID(), layout: l}, nil
}

func (f *fakeEngine) Measure(_ context.Context, s Surface) (Size, error) {
	return Size{Width: s.(*fakeSurface).layout.WidthPx, Height: f.height}, nil
}

func (f *fakeEngine) Capture(ctx context.Context, s Surface, scale float64) (*Bitmap, error) {
	f.mu.Lock()
	f.captures++
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- struct{}{}:
		default:
		}
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	size, _ := f.Measure(ctx, s)
	w := int(math.Round(float64(size.Width) * scale))
	h := int(math.Round(float64(size.Height) * scale))
	return NewBitmap(stripedBitmap(w, h).Image(), scale), nil
}

func (f *fakeEngine) Unmount(Surface) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.unmounts++
	return nil
}

func (f *fakeEngine) counts() (mounts, unmounts, captures int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mounts, f.unmounts, f.captures
}

// testLayout renders 10 CSS pixels wide with 20-pixel pages at scale 2,
// giving 40-row bands.
var testLayout = Layout{WidthPx: 10, MinHeightPx: 20, PageHeightPx: 20, Scale: 2, Format: DefaultPageFormat}

func newTestPipeline(f *fakeEngine, opts ...Option) *Pipeline {
	opts = append([]Option{WithLayout(testLayout), WithWriterStrategies(DefaultWriterStrategies()[:1]...)}, opts...)
	return NewWithEngine(f, opts...)
}

func pageHeights(pages []Page) []int {
	hs := make([]int, len(pages))
	for i, p := range pages {
		hs[i] = p.Height()
	}
	return hs
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPipeline_RenderPaginates(t *testing.T) {
	f := &fakeEngine{height: 50}
	p := newTestPipeline(f)

	pages, err := p.Render(context.Background(), "<p>hello</p>")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got, want := pageHeights(pages), []int{40, 40, 20}; !equalInts(got, want) {
		t.Errorf("page heights = %v, want %v", got, want)
	}
	for i, pg := range pages {
		if pg.Index != i || pg.Y != i*40 || pg.Width() != 20 {
			t.Errorf("page %d: index=%d y=%d width=%d", i, pg.Index, pg.Y, pg.Width())
		}
	}
	if m, u, c := f.counts(); m != 1 || u != 1 || c != 1 {
		t.Errorf("mounts=%d unmounts=%d captures=%d, want 1 each", m, u, c)
	}
	if p.Markup() != "<p>hello</p>" {
		t.Errorf("Markup() = %q", p.Markup())
	}
	if len(p.Pages()) != 3 {
		t.Errorf("Pages() has %d pages, want 3", len(p.Pages()))
	}
	if got := p.Status().Render; got != StageSucceeded {
		t.Errorf("render state = %v, want succeeded", got)
	}
}

func TestPipeline_RenderZeroHeight(t *testing.T) {
	f := &fakeEngine{height: 0}
	p := newTestPipeline(f)

	pages, err := p.Render(context.Background(), "<div></div>")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(pages) != 0 {
		t.Errorf("got %d pages, want 0", len(pages))
	}
	if _, u, _ := f.counts(); u != 1 {
		t.Errorf("unmounts = %d, want 1", u)
	}
}

func TestPipeline_RenderCaptureFailureReleasesSurface(t *testing.T) {
	f := &fakeEngine{height: 50, captureErr: errors.New("paint failed")}
	p := newTestPipeline(f)

	_, err := p.Render(context.Background(), "<p>x</p>")
	if err == nil {
		t.Fatal("expected error")
	}
	if KindOf(err) != KindRasterizationFailure {
		t.Errorf("kind = %v, want %v", KindOf(err), KindRasterizationFailure)
	}
	if !strings.Contains(UserMessage(err), "paint failed") {
		t.Errorf("UserMessage = %q, want the cause", UserMessage(err))
	}
	if m, u, _ := f.counts(); m != 1 || u != 1 {
		t.Errorf("mounts=%d unmounts=%d, want 1 each", m, u)
	}
	if len(p.Pages()) != 0 {
		t.Error("failed render left pages behind")
	}
	st := p.Status()
	if st.Render != StageFailed || st.Busy() {
		t.Errorf("status = %+v, want render failed and not busy", st)
	}
}

func TestPipeline_RenderMountFailure(t *testing.T) {
	f := &fakeEngine{mountErr: errors.New("no tab")}
	p := newTestPipeline(f)

	_, err := p.Render(context.Background(), "<p>x</p>")
	if KindOf(err) != KindRasterizationFailure {
		t.Fatalf("kind = %v, want %v", KindOf(err), KindRasterizationFailure)
	}
	if _, u, c := f.counts(); u != 0 || c != 0 {
		t.Errorf("unmounts=%d captures=%d, want 0 each", u, c)
	}
}

func TestPipeline_RenderTimeoutReleasesSurface(t *testing.T) {
	f := &fakeEngine{height: 50, block: make(chan struct{})}
	p := newTestPipeline(f, WithTimeout(20*time.Millisecond))

	_, err := p.Render(context.Background(), "<p>x</p>")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if _, u, _ := f.counts(); u != 1 {
		t.Errorf("unmounts = %d, want 1", u)
	}
}

func TestPipeline_RenderBusy(t *testing.T) {
	f := &fakeEngine{height: 50, block: make(chan struct{}), started: make(chan struct{}, 1)}
	p := newTestPipeline(f)

	done := make(chan error, 1)
	go func() {
		_, err := p.Render(context.Background(), "<p>first</p>")
		done <- err
	}()
	<-f.started

	if got := p.Status().Render; got != StageRunning {
		t.Errorf("render state = %v, want running", got)
	}
	if _, err := p.Render(context.Background(), "<p>second</p>"); !errors.Is(err, ErrBusy) {
		t.Errorf("second Render err = %v, want ErrBusy", err)
	}
	if _, err := p.Convert(context.Background(), "<p>third</p>", ""); !errors.Is(err, ErrBusy) {
		t.Errorf("Convert err = %v, want ErrBusy", err)
	}

	close(f.block)
	if err := <-done; err != nil {
		t.Fatalf("first Render: %v", err)
	}
	if m, _, c := f.counts(); m != 1 || c != 1 {
		t.Errorf("mounts=%d captures=%d, want exactly one render", m, c)
	}
	if got := pageHeights(p.Pages()); !equalInts(got, []int{40, 40, 20}) {
		t.Errorf("page heights = %v", got)
	}
}

func TestPipeline_GenerateDuringRender(t *testing.T) {
	f := &fakeEngine{height: 50, block: make(chan struct{}), started: make(chan struct{}, 1)}
	gen := GeneratorFunc(func(context.Context, string) (string, error) {
		return "<p>new</p>", nil
	})
	p := newTestPipeline(f, WithGenerator(gen))

	done := make(chan error, 1)
	go func() {
		_, err := p.Render(context.Background(), "<p>old</p>")
		done <- err
	}()
	<-f.started

	if _, err := p.Generate(context.Background(), ResumeData{Name: "Jane"}); !errors.Is(err, ErrBusy) {
		t.Errorf("Generate err = %v, want ErrBusy", err)
	}
	if got := p.Status().Generate; got != StageFailed {
		t.Errorf("generate state = %v, want failed", got)
	}
	if got := p.Markup(); got != "<p>old</p>" {
		t.Errorf("Markup() during render = %q, want <p>old</p>", got)
	}

	close(f.block)
	if err := <-done; err != nil {
		t.Fatalf("Render: %v", err)
	}
	if got := p.Markup(); got != "<p>old</p>" {
		t.Errorf("Markup() = %q, want <p>old</p>", got)
	}
	if got := pageHeights(p.Pages()); !equalInts(got, []int{40, 40, 20}) {
		t.Errorf("page heights = %v", got)
	}
	f.mu.Lock()
	markups := f.markups
	f.mu.Unlock()
	if len(markups) != 1 || markups[0] != "<p>old</p>" {
		t.Errorf("mounted markups = %q, want only <p>old</p>", markups)
	}
}

func TestPipeline_LoadTemplateDuringRenderDiscardsPages(t *testing.T) {
	f := &fakeEngine{height: 50, block: make(chan struct{}), started: make(chan struct{}, 1)}
	p := newTestPipeline(f)

	done := make(chan error, 1)
	go func() {
		pages, err := p.Render(context.Background(), "<p>old</p>")
		if err == nil && len(pages) != 3 {
			t.Errorf("Render returned %d pages, want 3", len(pages))
		}
		done <- err
	}()
	<-f.started

	p.LoadTemplate("<title>Template</title><p>template</p>")
	close(f.block)
	if err := <-done; err != nil {
		t.Fatalf("Render: %v", err)
	}

	if n := len(p.Pages()); n != 0 {
		t.Errorf("kept %d pages of the replaced markup, want 0", n)
	}
	if got := p.Markup(); got != "<title>Template</title><p>template</p>" {
		t.Errorf("Markup() = %q", got)
	}

	f.block = nil
	doc, err := p.Export(context.Background(), "cv")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.PageCount() != 3 {
		t.Errorf("PageCount = %d, want 3", doc.PageCount())
	}
	if m, _, _ := f.counts(); m != 2 {
		t.Errorf("mounts = %d, want 2 (export renders the template)", m)
	}
}

func TestPipeline_ExportNothing(t *testing.T) {
	f := &fakeEngine{height: 50}
	p := newTestPipeline(f)

	_, err := p.Export(context.Background(), "cv")
	if !errors.Is(err, ErrNothingToExport) {
		t.Fatalf("err = %v, want ErrNothingToExport", err)
	}
	if KindOf(err) != KindUserInputEmpty {
		t.Errorf("kind = %v, want %v", KindOf(err), KindUserInputEmpty)
	}
	if got, want := UserMessage(err), "Nothing to export. Generate the resume first."; got != want {
		t.Errorf("UserMessage = %q, want %q", got, want)
	}
	if m, _, _ := f.counts(); m != 0 {
		t.Errorf("mounts = %d, want 0", m)
	}
}

func TestPipeline_ExportZeroHeight(t *testing.T) {
	f := &fakeEngine{height: 0}
	p := newTestPipeline(f)
	p.LoadTemplate("<div></div>")

	_, err := p.Export(context.Background(), "cv")
	if KindOf(err) != KindUserInputEmpty {
		t.Fatalf("err = %v, want nothing to export", err)
	}
}

func TestPipeline_ExportRendersTemplate(t *testing.T) {
	f := &fakeEngine{height: 50}
	p := newTestPipeline(f)
	p.LoadTemplate(`<html><head><title>Jane Doe</title><style>body{color:red}</style></head><body><p>cv</p></body></html>`)

	if strings.Contains(p.Markup(), "<style") {
		t.Fatalf("template styles were not removed: %q", p.Markup())
	}

	doc, err := p.Export(context.Background(), "Jane's Résumé — v1")
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if doc.Filename() != "Janes_Rsum_v1.pdf" {
		t.Errorf("Filename() = %q", doc.Filename())
	}
	if doc.PageCount() != 3 {
		t.Errorf("PageCount() = %d, want 3", doc.PageCount())
	}

	s, err := pdfinfo.Inspect(doc.Bytes())
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if len(s.Pages) != 3 {
		t.Fatalf("pdf has %d pages, want 3", len(s.Pages))
	}
	want := []int{40, 40, 20}
	for i, pg := range s.Pages {
		if len(pg.Images) != 1 || pg.Images[0].Height != want[i] {
			t.Errorf("page %d images = %+v, want one of height %d", i+1, pg.Images, want[i])
		}
	}
	if s.Title != "Jane Doe" {
		t.Errorf("Title = %q, want the markup title", s.Title)
	}

	// A second export reuses the rendered pages.
	if _, err := p.Export(context.Background(), ""); err != nil {
		t.Fatalf("second Export: %v", err)
	}
	if m, _, _ := f.counts(); m != 1 {
		t.Errorf("mounts = %d, want 1", m)
	}
}

func TestPipeline_ConvertKeepsState(t *testing.T) {
	f := &fakeEngine{height: 30}
	p := newTestPipeline(f)
	p.LoadTemplate("<p>template</p>")

	doc, err := p.Convert(context.Background(), "<p>other</p>", "")
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	if doc.Filename() != "resume.pdf" {
		t.Errorf("Filename() = %q, want resume.pdf", doc.Filename())
	}
	if doc.PageCount() != 2 {
		t.Errorf("PageCount() = %d, want 2", doc.PageCount())
	}
	if p.Markup() != "<p>template</p>" {
		t.Errorf("Convert changed the current markup to %q", p.Markup())
	}
	if len(p.Pages()) != 0 {
		t.Error("Convert stored pages")
	}

	if _, err := p.Convert(context.Background(), "  ", "x"); KindOf(err) != KindUserInputEmpty {
		t.Errorf("blank Convert err = %v, want nothing to export", err)
	}
}

func TestPipeline_Generate(t *testing.T) {
	f := &fakeEngine{height: 50}
	const raw = "```html\n<p>generated</p>\n```"
	var prompt string
	gen := GeneratorFunc(func(_ context.Context, p string) (string, error) {
		prompt = p
		return raw, nil
	})
	p := newTestPipeline(f, WithGenerator(gen))
	p.LoadTemplate(`<style>h1{}</style><h1>Reference</h1>`)

	pages, err := p.Generate(context.Background(), ResumeData{Name: "Jane Doe", Sections: DefaultSections()})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(pages) != 3 {
		t.Errorf("got %d pages, want 3", len(pages))
	}
	if p.Markup() != raw {
		t.Errorf("Markup() = %q, want the generator output verbatim", p.Markup())
	}
	if !strings.Contains(prompt, "<style>h1{}</style><h1>Reference</h1>") {
		t.Error("prompt does not carry the unmodified reference markup")
	}
	if !strings.Contains(prompt, "- Name: Jane Doe") {
		t.Error("prompt does not carry the resume data")
	}
	st := p.Status()
	if st.Generate != StageSucceeded || st.Render != StageSucceeded {
		t.Errorf("status = %+v", st)
	}
}

func TestPipeline_GenerateFailures(t *testing.T) {
	tests := []struct {
		name string
		gen  Generator
		kind Kind
		is   error
	}{
		{
			name: "no generator",
			kind: KindGenerationFailure,
			is:   ErrNoGenerator,
		},
		{
			name: "generator error",
			gen: GeneratorFunc(func(context.Context, string) (string, error) {
				return "", errors.New("quota exceeded")
			}),
			kind: KindGenerationFailure,
		},
		{
			name: "empty output",
			gen: GeneratorFunc(func(context.Context, string) (string, error) {
				return " \n\t", nil
			}),
			kind: KindGenerationFailure,
			is:   ErrEmptyGeneration,
		},
		{
			name: "missing api key",
			gen: GeneratorFunc(func(context.Context, string) (string, error) {
				return "", MissingAPIKey("GEMINI_API_KEY")
			}),
			kind: KindConfigurationMissing,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeEngine{height: 50}
			p := newTestPipeline(f, WithGenerator(tt.gen))
			p.LoadTemplate("<p>before</p>")

			_, err := p.Generate(context.Background(), ResumeData{Name: "Jane"})
			if KindOf(err) != tt.kind {
				t.Errorf("kind = %v, want %v (err %v)", KindOf(err), tt.kind, err)
			}
			if tt.is != nil && !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
			if p.Markup() != "<p>before</p>" {
				t.Errorf("failed generation replaced the markup with %q", p.Markup())
			}
			if p.Status().Busy() {
				t.Error("stage flag still set after failure")
			}
			if m, _, _ := f.counts(); m != 0 {
				t.Errorf("mounts = %d, want 0", m)
			}
		})
	}
}

func TestPipeline_Close(t *testing.T) {
	f := &fakeEngine{height: 50}
	p := newTestPipeline(f)

	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
	if f.closes != 1 {
		t.Errorf("engine closed %d times, want 1", f.closes)
	}
	if _, err := p.Render(context.Background(), "<p>x</p>"); !errors.Is(err, ErrClosed) {
		t.Errorf("Render after Close err = %v, want ErrClosed", err)
	}
	if _, err := p.Export(context.Background(), ""); !errors.Is(err, ErrClosed) {
		t.Errorf("Export after Close err = %v, want ErrClosed", err)
	}
}
