package resumepdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// chromeEngine drives a headless Chrome through chromedp. One browser
// process is shared by every surface; each surface gets its own tab.
type chromeEngine struct {
	cfg           config
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc

	mu     sync.Mutex
	closed bool
}

// newChromeEngine starts the browser eagerly so that a missing or broken
// installation surfaces at construction time.
func newChromeEngine(cfg config) (Engine, error) {
	path, err := browserPath(cfg)
	if err != nil {
		return nil, err
	}

	allocOpts := append(
		chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("headless", cfg.headless),
	)
	if path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if noSandbox(cfg) {
		allocOpts = append(allocOpts, chromedp.Flag("no-sandbox", true))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(cfg.logger.Debugf),
		chromedp.WithErrorf(cfg.logger.Debugf),
	)

	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("starting chrome: %w", err)
	}

	return &chromeEngine{
		cfg:           cfg,
		allocCtx:      allocCtx,
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
	}, nil
}

func (e *chromeEngine) Name() string { return EngineChromedp }

// Close shuts the browser down. Close is idempotent.
func (e *chromeEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.browserCancel()
	e.allocCancel()
	return nil
}

type chromeSurface struct {
	id     string
	tabCtx context.Context
	cancel context.CancelFunc
	layout Layout
	once   sync.Once
}

func (s *chromeSurface) ID() string { return s.id }

// run executes actions in the surface tab, bounded by ctx. The tab itself
// outlives ctx so that cancelling a caller never leaks a half-closed
// target; Unmount closes it.
func (s *chromeSurface) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(s.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

func evaluate(fn string, arg, res any) (chromedp.Action, error) {
	expr, err := callExpression(fn, arg)
	if err != nil {
		return nil, err
	}
	return chromedp.Evaluate(expr, res, func(p *runtime.EvaluateParams) *runtime.EvaluateParams {
		return p.WithAwaitPromise(true)
	}), nil
}

func (e *chromeEngine) Mount(ctx context.Context, markup string, l Layout) (Surface, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	l = l.resolved()
	tabCtx, cancel := chromedp.NewContext(e.browserCtx)
	s := &chromeSurface{id: newSurfaceID(), tabCtx: tabCtx, cancel: cancel, layout: l}

	// The first Run allocates the tab and must use the tab context itself,
	// so ctx closes the whole tab if it ends while the tab is opening.
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank"))
	if !stop() {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", ctx.Err())
	}
	if err != nil {
		cancel()
		return nil, fmt.Errorf("opening tab: %w", err)
	}

	var size Size
	mount, err := evaluate(mountScript, mountArg{ID: s.id, HTML: markup, Width: l.WidthPx, MinHeight: l.MinHeightPx}, &size)
	if err != nil {
		cancel()
		return nil, err
	}
	if err := s.run(ctx,
		chromedp.EmulateViewport(int64(l.WidthPx), int64(l.MinHeightPx), chromedp.EmulateScale(l.Scale)),
		mount,
	); err != nil {
		cancel()
		return nil, fmt.Errorf("mounting markup: %w", err)
	}
	e.cfg.logger.Debug("mounted surface", "engine", EngineChromedp, "id", s.id, "width", size.Width, "height", size.Height)
	return s, nil
}

func (e *chromeEngine) surface(s Surface) (*chromeSurface, error) {
	cs, ok := s.(*chromeSurface)
	if !ok {
		return nil, fmt.Errorf("surface %q does not belong to the chromedp engine", s.ID())
	}
	return cs, nil
}

func (e *chromeEngine) Measure(ctx context.Context, s Surface) (Size, error) {
	cs, err := e.surface(s)
	if err != nil {
		return Size{}, err
	}
	var size Size
	act, err := evaluate(measureScript, surfaceArg{ID: cs.id}, &size)
	if err != nil {
		return Size{}, err
	}
	if err := cs.run(ctx, act); err != nil {
		return Size{}, fmt.Errorf("measuring surface: %w", err)
	}
	return size, nil
}

func (e *chromeEngine) Capture(ctx context.Context, s Surface, scale float64) (*Bitmap, error) {
	cs, err := e.surface(s)
	if err != nil {
		return nil, err
	}
	size, err := e.Measure(ctx, s)
	if err != nil {
		return nil, err
	}
	if size.Width == 0 || size.Height == 0 {
		return NewBitmap(emptyImage(size.Width), scale), nil
	}

	var ok bool
	into, err := evaluate(frameScript, surfaceArg{ID: cs.id, InFrame: true}, &ok)
	if err != nil {
		return nil, err
	}
	out, err := evaluate(frameScript, surfaceArg{ID: cs.id}, &ok)
	if err != nil {
		return nil, err
	}

	var buf []byte
	err = cs.run(ctx,
		chromedp.EmulateViewport(int64(cs.layout.WidthPx), int64(cs.layout.MinHeightPx), chromedp.EmulateScale(scale)),
		into,
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, err = page.CaptureScreenshot().
				WithFormat(page.CaptureScreenshotFormatPng).
				WithClip(&page.Viewport{
					X:      0,
					Y:      0,
					Width:  float64(size.Width),
					Height: float64(size.Height),
					Scale:  1,
				}).
				WithCaptureBeyondViewport(true).
				WithFromSurface(true).
				Do(ctx)
			return err
		}),
	)
	// Move the container back out of frame even if the capture failed.
	restoreCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logCleanup(e.cfg.logger, EngineChromedp, cs.id, "moving surface out of frame", cs.run(restoreCtx, out))
	if err != nil {
		return nil, fmt.Errorf("capturing surface: %w", err)
	}
	return DecodeBitmap(buf, scale)
}

func (e *chromeEngine) Unmount(s Surface) error {
	cs, err := e.surface(s)
	if err != nil {
		return err
	}
	var uerr error
	cs.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		var ok bool
		if act, err := evaluate(unmountScript, surfaceArg{ID: cs.id}, &ok); err == nil {
			uerr = cs.run(ctx, act)
		}
		cs.cancel()
		e.cfg.logger.Debug("unmounted surface", "engine", EngineChromedp, "id", cs.id)
	})
	return uerr
}
