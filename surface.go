package resumepdf

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Size is a measured surface size in CSS pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Surface is a mounted, hidden render surface. It is only valid between a
// successful [RenderTarget.Mount] and the matching Unmount.
type Surface interface {
	ID() string
}

// RenderTarget mounts markup into a hidden fixed-width surface for layout.
type RenderTarget interface {
	// Mount appends a container positioned fully outside the viewport, with
	// width l.WidthPx, min-height l.MinHeightPx and a white background, and
	// injects markup into it without running scripts. It returns once
	// images and web fonts have settled.
	Mount(ctx context.Context, markup string, l Layout) (Surface, error)
	// Measure reports the laid-out size of s.
	Measure(ctx context.Context, s Surface) (Size, error)
	// Unmount detaches s and releases its resources.
	Unmount(s Surface) error
}

// Rasterizer paints a mounted surface into a bitmap.
type Rasterizer interface {
	// Capture renders the full measured height of s at scale into a single
	// bitmap of round(width*scale) × round(height*scale) device pixels.
	Capture(ctx context.Context, s Surface, scale float64) (*Bitmap, error)
}

// Engine is a headless browser that provides both a render target and a
// rasterizer.
type Engine interface {
	RenderTarget
	Rasterizer
	Name() string
	Close() error
}

// withSurface mounts markup, runs fn on the surface and unmounts it exactly
// once on every path, including failure inside fn and cancellation of ctx.
func withSurface(ctx context.Context, rt RenderTarget, markup string, l Layout, fn func(Surface) error) (err error) {
	s, err := rt.Mount(ctx, markup, l)
	if err != nil {
		return fmt.Errorf("mounting surface: %w", err)
	}
	defer func() {
		if uerr := rt.Unmount(s); uerr != nil {
			err = errors.Join(err, fmt.Errorf("unmounting surface: %w", uerr))
		}
	}()
	return fn(s)
}

// logCleanup records a failed best-effort cleanup step on a surface.
func logCleanup(logger *log.Logger, engine, id, step string, err error) {
	if err == nil {
		return
	}
	logger.Debug(step+" failed", "engine", engine, "id", id, "err", err)
}

var surfaceSeq atomic.Uint64

// newSurfaceID returns a DOM id unique within the process.
func newSurfaceID() string {
	return fmt.Sprintf("resumepdf-surface-%d", surfaceSeq.Add(1))
}
