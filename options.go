package resumepdf

import (
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// config holds internal configuration for a Pipeline and its engine.
type config struct {
	chromePath   string
	timeout      time.Duration
	noSandbox    bool
	headless     string
	autoDownload bool
	engines      []string

	layout   Layout
	fit      FitMode
	encoding ImageEncoding
	writers  []WriterStrategy

	logger    *log.Logger
	generator Generator
}

func defaultConfig() config {
	return config{
		timeout:  30 * time.Second,
		headless: "new",
		engines:  []string{EngineChromedp, EngineRod},
		layout:   DefaultLayout(),
		logger:   log.NewWithOptions(io.Discard, log.Options{}),
	}
}

// Option configures a [Pipeline].
type Option func(*config)

// WithChromePath sets the path to the Chrome or Chromium executable.
// By default the engines search standard locations automatically.
func WithChromePath(path string) Option {
	return func(c *config) {
		c.chromePath = path
	}
}

// WithTimeout sets the maximum duration of a single render (mount, measure
// and capture). Defaults to 30 seconds. A zero or negative value disables
// the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithNoSandbox disables the Chrome sandbox. This is required when
// running as root, for example inside Docker containers.
func WithNoSandbox() Option {
	return func(c *config) {
		c.noSandbox = true
	}
}

// WithAutoDownload downloads a compatible Chromium build when no browser is
// found locally. The binary is cached between runs.
func WithAutoDownload() Option {
	return func(c *config) {
		c.autoDownload = true
	}
}

// WithEngine restricts engine resolution to the named engines, tried in
// the given order. Known names are [EngineChromedp] and [EngineRod].
func WithEngine(names ...string) Option {
	return func(c *config) {
		if len(names) > 0 {
			c.engines = names
		}
	}
}

// WithLayout overrides the render geometry. Zero fields keep their
// defaults.
func WithLayout(l Layout) Option {
	return func(c *config) {
		c.layout = l.resolved()
	}
}

// WithFit sets how each page band is placed on its physical page.
func WithFit(m FitMode) Option {
	return func(c *config) {
		c.fit = m
	}
}

// WithImageEncoding sets how page images are embedded in the document.
func WithImageEncoding(e ImageEncoding) Option {
	return func(c *config) {
		c.encoding = e
	}
}

// WithWriterStrategies replaces the ordered list of PDF writer
// constructors. See [DefaultWriterStrategies].
func WithWriterStrategies(s ...WriterStrategy) Option {
	return func(c *config) {
		c.writers = s
	}
}

// WithLogger sets the logger used for stage progress. By default nothing
// is logged.
func WithLogger(l *log.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithGenerator sets the markup generator used by [Pipeline.Generate].
func WithGenerator(g Generator) Option {
	return func(c *config) {
		c.generator = g
	}
}
