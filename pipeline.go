package resumepdf

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"
)

// Pipeline turns resume markup into a paginated PDF. It holds the current
// markup and its rendered pages, and owns one rendering [Engine].
//
// A Pipeline is safe for concurrent use, but each stage runs at most once
// at a time: triggering a stage that is already running returns [ErrBusy].
type Pipeline struct {
	cfg    config
	engine Engine

	generate stage
	render   stage

	mu        sync.Mutex
	reference string
	markup    string
	pages     []Page
	version   uint64 // bumped whenever markup is replaced
	closed    bool
}

// New creates a Pipeline and starts a rendering engine. Engines are tried
// in the order given by [WithEngine]; if none starts, the error has kind
// [KindConfigurationMissing].
//
// The returned Pipeline must be closed with [Pipeline.Close] when no longer
// needed to release browser resources.
func New(opts ...Option) (*Pipeline, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	e, err := startEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, engine: e}, nil
}

// NewWithEngine creates a Pipeline around an already started engine. The
// Pipeline takes ownership of e and closes it on [Pipeline.Close].
func NewWithEngine(e Engine, opts ...Option) *Pipeline {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	return &Pipeline{cfg: cfg, engine: e}
}

// EngineName returns the name of the engine in use.
func (p *Pipeline) EngineName() string {
	return p.engine.Name()
}

// Status reports the state of the generate and render stages.
func (p *Pipeline) Status() Status {
	return Status{
		Generate: p.generate.state(),
		Render:   p.render.state(),
	}
}

// Markup returns the current markup.
func (p *Pipeline) Markup() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.markup
}

// Pages returns the pages of the last successful render, in order.
func (p *Pipeline) Pages() []Page {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.pages)
}

func (p *Pipeline) checkOpen() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	return nil
}

// LoadTemplate makes reference the current markup after removing its
// style blocks and stylesheet links. The unmodified reference is kept as
// the layout guide for [Pipeline.Generate]. Previously rendered pages are
// discarded.
func (p *Pipeline) LoadTemplate(reference string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reference = reference
	p.markup = SanitizeMarkup(reference)
	p.pages = nil
	p.version++
}

// Generate asks the configured [Generator] for markup built from data,
// stores the markup exactly as received and renders it. The generate stage
// covers the render, so a render already in flight fails the whole call
// with [ErrBusy] and leaves the current markup and pages untouched.
func (p *Pipeline) Generate(ctx context.Context, data ResumeData) ([]Page, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if p.cfg.generator == nil {
		return nil, wrap(KindGenerationFailure, "generate", ErrNoGenerator)
	}

	var pages []Page
	err := p.generate.run(func() error {
		p.mu.Lock()
		reference := p.reference
		p.mu.Unlock()

		start := time.Now()
		p.cfg.logger.Info("generating markup", "sections", len(data.Sections))
		out, err := p.cfg.generator.Generate(ctx, BuildPrompt(data, reference))
		if err != nil {
			return wrap(KindGenerationFailure, "generate", err)
		}
		if strings.TrimSpace(out) == "" {
			return wrap(KindGenerationFailure, "generate", ErrEmptyGeneration)
		}
		p.cfg.logger.Info("generated markup", "bytes", len(out), "took", since(start))

		pages, err = p.Render(ctx, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pages, nil
}

// Render mounts markup, captures it and slices the capture into pages. The
// markup becomes the current markup and the pages replace any previous
// ones. Markup with no rendered height yields no pages and no error.
//
// If the current markup is replaced while the render runs, the pages are
// returned but not kept.
func (p *Pipeline) Render(ctx context.Context, markup string) ([]Page, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	var pages []Page
	err := p.render.run(func() error {
		p.mu.Lock()
		p.markup = markup
		p.pages = nil
		p.version++
		version := p.version
		p.mu.Unlock()

		var err error
		pages, err = p.rasterize(ctx, markup)
		if err != nil {
			return err
		}
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.version != version {
			p.cfg.logger.Debug("markup replaced during render, discarding pages", "pages", len(pages))
			return nil
		}
		p.pages = pages
		return nil
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(pages), nil
}

// Export assembles the current pages into a document named after title.
// If nothing has been rendered yet, the current markup is rendered first.
func (p *Pipeline) Export(ctx context.Context, title string) (*Document, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	p.mu.Lock()
	pages, markup := p.pages, p.markup
	p.mu.Unlock()

	if len(pages) == 0 {
		if strings.TrimSpace(markup) == "" {
			return nil, nothingToExport("export")
		}
		var err error
		if pages, err = p.Render(ctx, markup); err != nil {
			return nil, err
		}
	}
	if len(pages) == 0 {
		return nil, nothingToExport("export")
	}
	return p.assemble(pages, markup, title)
}

// Convert renders markup and assembles it into a document in one call
// without touching the current markup or pages.
func (p *Pipeline) Convert(ctx context.Context, markup, title string) (*Document, error) {
	if err := p.checkOpen(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(markup) == "" {
		return nil, nothingToExport("convert")
	}

	var pages []Page
	err := p.render.run(func() error {
		var err error
		pages, err = p.rasterize(ctx, markup)
		return err
	})
	if err != nil {
		return nil, err
	}
	if len(pages) == 0 {
		return nil, nothingToExport("convert")
	}
	return p.assemble(pages, markup, title)
}

// Close shuts down the rendering engine. Close is idempotent.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()
	return p.engine.Close()
}

// rasterize runs one render: mount, capture the full height once, unmount,
// then slice. The surface is released before any error is returned.
func (p *Pipeline) rasterize(ctx context.Context, markup string) ([]Page, error) {
	if p.cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.timeout)
		defer cancel()
	}

	l := p.cfg.layout.resolved()
	start := time.Now()

	var bmp *Bitmap
	err := withSurface(ctx, p.engine, markup, l, func(s Surface) error {
		var err error
		bmp, err = p.engine.Capture(ctx, s, l.Scale)
		return err
	})
	if err != nil {
		return nil, wrap(KindRasterizationFailure, "render", err)
	}
	p.cfg.logger.Debug("captured surface",
		"engine", p.engine.Name(),
		"width", bmp.Width(),
		"height", bmp.Height(),
		"took", since(start),
	)

	pages, err := Paginate(bmp, l.BandHeight())
	if err != nil {
		return nil, wrap(KindRasterizationFailure, "paginate", err)
	}
	p.cfg.logger.Info("rendered markup", "pages", len(pages), "took", since(start))
	return pages, nil
}

func (p *Pipeline) assemble(pages []Page, markup, title string) (*Document, error) {
	start := time.Now()
	meta := Metadata{Title: MarkupTitle(markup), Creator: "resumepdf"}
	if meta.Title == "" {
		meta.Title = strings.TrimSpace(title)
	}
	a := Assembler{
		Format:     p.cfg.layout.Format,
		Fit:        p.cfg.fit,
		Encoding:   p.cfg.encoding,
		Strategies: p.cfg.writers,
		Metadata:   meta,
		Logger:     p.cfg.logger,
	}
	data, err := a.Assemble(pages)
	if err != nil {
		return nil, wrap(KindUnknown, "export", err)
	}
	doc := &Document{data: data, pages: len(pages), filename: Filename(title)}
	p.cfg.logger.Info("exported document",
		"file", doc.filename,
		"pages", doc.pages,
		"bytes", doc.Len(),
		"took", since(start),
	)
	return doc, nil
}

func nothingToExport(op string) error {
	return &Error{Kind: KindUserInputEmpty, Op: op, Err: ErrNothingToExport}
}
