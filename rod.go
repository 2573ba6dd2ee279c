package resumepdf

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// rodEngine drives a headless Chrome through go-rod. It is the fallback
// when chromedp cannot start a browser.
type rodEngine struct {
	cfg      config
	launcher *launcher.Launcher
	browser  *rod.Browser

	mu     sync.Mutex
	closed bool
}

func newRodEngine(cfg config) (Engine, error) {
	path, err := browserPath(cfg)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, fmt.Errorf("no chrome executable found")
	}

	l := launcher.New().
		Bin(path).
		Headless(true).
		NoSandbox(noSandbox(cfg)).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("hide-scrollbars")
	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launching chrome: %w", err)
	}

	b := rod.New().ControlURL(u)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connecting to chrome: %w", err)
	}
	return &rodEngine{cfg: cfg, launcher: l, browser: b}, nil
}

func (e *rodEngine) Name() string { return EngineRod }

// Close shuts the browser down. Close is idempotent.
func (e *rodEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	err := e.browser.Close()
	e.launcher.Kill()
	return err
}

type rodSurface struct {
	id     string
	page   *rod.Page
	layout Layout
	once   sync.Once
}

func (s *rodSurface) ID() string { return s.id }

func (e *rodEngine) surface(s Surface) (*rodSurface, error) {
	rs, ok := s.(*rodSurface)
	if !ok {
		return nil, fmt.Errorf("surface %q does not belong to the rod engine", s.ID())
	}
	return rs, nil
}

func viewport(l Layout, scale float64) *proto.EmulationSetDeviceMetricsOverride {
	return &proto.EmulationSetDeviceMetricsOverride{
		Width:             l.WidthPx,
		Height:            l.MinHeightPx,
		DeviceScaleFactor: scale,
	}
}

func (e *rodEngine) Mount(ctx context.Context, markup string, l Layout) (Surface, error) {
	e.mu.Lock()
	closed := e.closed
	e.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}

	l = l.resolved()
	p, err := e.browser.Context(ctx).Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("opening tab: %w", err)
	}
	// The tab outlives ctx; Unmount closes it.
	p = p.Context(e.browser.GetContext())
	s := &rodSurface{id: newSurfaceID(), page: p, layout: l}

	pc := p.Context(ctx)
	if err := pc.SetViewport(viewport(l, l.Scale)); err != nil {
		p.Close()
		return nil, fmt.Errorf("setting viewport: %w", err)
	}
	res, err := pc.Eval(mountScript, mountArg{ID: s.id, HTML: markup, Width: l.WidthPx, MinHeight: l.MinHeightPx})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("mounting markup: %w", err)
	}
	var size Size
	if err := res.Value.Unmarshal(&size); err != nil {
		p.Close()
		return nil, fmt.Errorf("reading mounted size: %w", err)
	}
	e.cfg.logger.Debug("mounted surface", "engine", EngineRod, "id", s.id, "width", size.Width, "height", size.Height)
	return s, nil
}

func (e *rodEngine) Measure(ctx context.Context, s Surface) (Size, error) {
	rs, err := e.surface(s)
	if err != nil {
		return Size{}, err
	}
	res, err := rs.page.Context(ctx).Eval(measureScript, surfaceArg{ID: rs.id})
	if err != nil {
		return Size{}, fmt.Errorf("measuring surface: %w", err)
	}
	var size Size
	if err := res.Value.Unmarshal(&size); err != nil {
		return Size{}, fmt.Errorf("measuring surface: %w", err)
	}
	return size, nil
}

func (e *rodEngine) Capture(ctx context.Context, s Surface, scale float64) (*Bitmap, error) {
	rs, err := e.surface(s)
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

	pc := rs.page.Context(ctx)
	if err := pc.SetViewport(viewport(rs.layout, scale)); err != nil {
		return nil, fmt.Errorf("setting viewport: %w", err)
	}
	if _, err := pc.Eval(frameScript, surfaceArg{ID: rs.id, InFrame: true}); err != nil {
		return nil, fmt.Errorf("framing surface: %w", err)
	}
	// Move the container back out of frame even if the capture failed.
	defer func() {
		restore := rs.page.Timeout(5 * time.Second)
		defer restore.CancelTimeout()
		_, err := restore.Eval(frameScript, surfaceArg{ID: rs.id})
		logCleanup(e.cfg.logger, EngineRod, rs.id, "moving surface out of frame", err)
	}()

	buf, err := pc.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
		Clip: &proto.PageViewport{
			X:      0,
			Y:      0,
			Width:  float64(size.Width),
			Height: float64(size.Height),
			Scale:  1,
		},
		FromSurface:           true,
		CaptureBeyondViewport: true,
	})
	if err != nil {
		return nil, fmt.Errorf("capturing surface: %w", err)
	}
	return DecodeBitmap(buf, scale)
}

func (e *rodEngine) Unmount(s Surface) error {
	rs, err := e.surface(s)
	if err != nil {
		return err
	}
	var uerr error
	rs.once.Do(func() {
		_, err := rs.page.Eval(unmountScript, surfaceArg{ID: rs.id})
		logCleanup(e.cfg.logger, EngineRod, rs.id, "removing surface", err)
		uerr = rs.page.Close()
		e.cfg.logger.Debug("unmounted surface", "engine", EngineRod, "id", rs.id)
	})
	return uerr
}
