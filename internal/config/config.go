// Package config loads resumepdf settings from YAML or TOML files and
// RESUMEPDF_* environment variables and turns them into pipeline options.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
	"github.com/porticus-lab/go-resume-pdf/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound    = errors.New("config file not found")
	ErrConfigParse       = errors.New("failed to parse config")
	ErrUnsupportedFormat = errors.New("unsupported config format")
	ErrInvalidValue      = errors.New("invalid config value")
)

// Environment variables read by [Config.ApplyEnv].
const (
	EnvTimeout   = "RESUMEPDF_TIMEOUT"
	EnvEngine    = "RESUMEPDF_ENGINE"
	EnvPageSize  = "RESUMEPDF_PAGE_SIZE"
	EnvScale     = "RESUMEPDF_SCALE"
	EnvEncoding  = "RESUMEPDF_ENCODING"
	EnvOutputDir = "RESUMEPDF_OUTPUT_DIR"
	EnvAddr      = "RESUMEPDF_ADDR"
	EnvModel     = "RESUMEPDF_MODEL"
)

// Config holds every file-configurable setting.
type Config struct {
	Browser   BrowserConfig   `yaml:"browser" toml:"browser"`
	Layout    LayoutConfig    `yaml:"layout" toml:"layout"`
	Output    OutputConfig    `yaml:"output" toml:"output"`
	Generator GeneratorConfig `yaml:"generator" toml:"generator"`
	Server    ServerConfig    `yaml:"server" toml:"server"`
}

// BrowserConfig selects and launches the rendering engine.
type BrowserConfig struct {
	ChromePath   string   `yaml:"chromePath" toml:"chromePath"`
	NoSandbox    bool     `yaml:"noSandbox" toml:"noSandbox"`
	AutoDownload bool     `yaml:"autoDownload" toml:"autoDownload"`
	Engines      []string `yaml:"engines" toml:"engines"` // tried in order
	Timeout      string   `yaml:"timeout" toml:"timeout"` // Go duration, e.g. "45s"
}

// LayoutConfig is the render geometry. Zero values keep the defaults.
type LayoutConfig struct {
	WidthPx      int     `yaml:"widthPx" toml:"widthPx"`
	MinHeightPx  int     `yaml:"minHeightPx" toml:"minHeightPx"`
	PageHeightPx int     `yaml:"pageHeightPx" toml:"pageHeightPx"`
	Scale        float64 `yaml:"scale" toml:"scale"`
	PageSize     string  `yaml:"pageSize" toml:"pageSize"`       // a3, a4, a5, letter, legal, tabloid
	Orientation  string  `yaml:"orientation" toml:"orientation"` // portrait, landscape
	Fit          string  `yaml:"fit" toml:"fit"`                 // stretch, width
	Encoding     string  `yaml:"encoding" toml:"encoding"`       // png, jpeg
}

// OutputConfig defines where documents are saved.
type OutputConfig struct {
	Dir string `yaml:"dir" toml:"dir"`
}

// GeneratorConfig configures the markup generator.
type GeneratorConfig struct {
	Model string `yaml:"model" toml:"model"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr" toml:"addr"`
}

// MaxScale is the largest accepted capture scale.
const MaxScale = 8

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{
			PageSize:    "a4",
			Orientation: "portrait",
			Fit:         "stretch",
			Encoding:    "png",
		},
		Output: OutputConfig{Dir: "."},
		Server: ServerConfig{Addr: ":8080"},
	}
}

// Load reads the file at path, decoding it as YAML or TOML according to
// its extension. Unknown fields are rejected. Fields absent from the file
// keep their [Default] values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := Default()
	if err := decode(path, data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decode dispatches on the file extension.
func decode(path string, data []byte, v any) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yamlutil.UnmarshalStrict(data, v); err != nil {
			return fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
	case ".toml":
		md, err := toml.Decode(string(data), v)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrConfigParse, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return fmt.Errorf("%w: unknown field %q", ErrConfigParse, undecoded[0].String())
		}
	default:
		return fmt.Errorf("%w: %q (use .yaml, .yml or .toml)", ErrUnsupportedFormat, ext)
	}
	return nil
}

// ApplyEnv overrides c with the RESUMEPDF_* variables found by lookup.
// Pass [os.LookupEnv] in production.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvTimeout); ok && v != "" {
		c.Browser.Timeout = v
	}
	if v, ok := lookup(EnvEngine); ok && v != "" {
		c.Browser.Engines = splitList(v)
	}
	if v, ok := lookup(EnvPageSize); ok && v != "" {
		c.Layout.PageSize = v
	}
	if v, ok := lookup(EnvScale); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, EnvScale, v)
		}
		c.Layout.Scale = f
	}
	if v, ok := lookup(EnvEncoding); ok && v != "" {
		c.Layout.Encoding = v
	}
	if v, ok := lookup(EnvOutputDir); ok && v != "" {
		c.Output.Dir = v
	}
	if v, ok := lookup(EnvAddr); ok && v != "" {
		c.Server.Addr = v
	}
	if v, ok := lookup(EnvModel); ok && v != "" {
		c.Generator.Model = v
	}
	return c.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks every field that has a closed set of values or a range.
func (c *Config) Validate() error {
	if _, err := c.timeout(); err != nil {
		return err
	}
	for _, e := range c.Browser.Engines {
		if !slices.Contains(resumepdf.EngineNames(), e) {
			return fmt.Errorf("%w: browser.engines: unknown engine %q (available: %s)",
				ErrInvalidValue, e, strings.Join(resumepdf.EngineNames(), ", "))
		}
	}

	l := c.Layout
	if l.WidthPx < 0 || l.MinHeightPx < 0 || l.PageHeightPx < 0 {
		return fmt.Errorf("%w: layout: pixel sizes must not be negative", ErrInvalidValue)
	}
	if l.Scale < 0 || l.Scale > MaxScale {
		return fmt.Errorf("%w: layout.scale: must be between 0 and %d, got %g", ErrInvalidValue, MaxScale, l.Scale)
	}
	if _, err := c.format(); err != nil {
		return err
	}
	if _, err := c.fit(); err != nil {
		return err
	}
	if _, err := c.encoding(); err != nil {
		return err
	}
	return nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.Browser.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Browser.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: browser.timeout: %v", ErrInvalidValue, err)
	}
	return d, nil
}

func (c *Config) format() (resumepdf.PageFormat, error) {
	f := resumepdf.DefaultPageFormat
	if name := strings.ToLower(c.Layout.PageSize); name != "" {
		size, err := resumepdf.PageSizeByName(name)
		if err != nil {
			return f, fmt.Errorf("%w: layout.pageSize: %v", ErrInvalidValue, err)
		}
		f.Size = size
	}
	switch strings.ToLower(c.Layout.Orientation) {
	case "", "portrait":
		f.Orientation = resumepdf.Portrait
	case "landscape":
		f.Orientation = resumepdf.Landscape
	default:
		return f, fmt.Errorf("%w: layout.orientation: %q (must be portrait or landscape)", ErrInvalidValue, c.Layout.Orientation)
	}
	return f, nil
}

func (c *Config) fit() (resumepdf.FitMode, error) {
	switch strings.ToLower(c.Layout.Fit) {
	case "", "stretch":
		return resumepdf.FitStretch, nil
	case "width":
		return resumepdf.FitWidth, nil
	}
	return 0, fmt.Errorf("%w: layout.fit: %q (must be stretch or width)", ErrInvalidValue, c.Layout.Fit)
}

func (c *Config) encoding() (resumepdf.ImageEncoding, error) {
	switch strings.ToLower(c.Layout.Encoding) {
	case "", "png":
		return resumepdf.EncodePNG, nil
	case "jpeg", "jpg":
		return resumepdf.EncodeJPEG, nil
	}
	return 0, fmt.Errorf("%w: layout.encoding: %q (must be png or jpeg)", ErrInvalidValue, c.Layout.Encoding)
}

// RenderLayout returns the render geometry with defaults filled in.
func (c *Config) RenderLayout() (resumepdf.Layout, error) {
	f, err := c.format()
	if err != nil {
		return resumepdf.Layout{}, err
	}
	d := resumepdf.DefaultLayout()
	l := resumepdf.Layout{
		WidthPx:      c.Layout.WidthPx,
		MinHeightPx:  c.Layout.MinHeightPx,
		PageHeightPx: c.Layout.PageHeightPx,
		Scale:        c.Layout.Scale,
		Format:       f,
	}
	if l.WidthPx == 0 {
		l.WidthPx = d.WidthPx
	}
	if l.MinHeightPx == 0 {
		l.MinHeightPx = d.MinHeightPx
	}
	if l.PageHeightPx == 0 {
		l.PageHeightPx = d.PageHeightPx
	}
	if l.Scale == 0 {
		l.Scale = d.Scale
	}
	return l, nil
}

// Options converts c into pipeline options. Call [Config.Validate] first;
// Options returns the first validation error it meets.
func (c *Config) Options() ([]resumepdf.Option, error) {
	l, err := c.RenderLayout()
	if err != nil {
		return nil, err
	}
	fit, err := c.fit()
	if err != nil {
		return nil, err
	}
	enc, err := c.encoding()
	if err != nil {
		return nil, err
	}
	opts := []resumepdf.Option{
		resumepdf.WithLayout(l),
		resumepdf.WithFit(fit),
		resumepdf.WithImageEncoding(enc),
	}

	d, err := c.timeout()
	if err != nil {
		return nil, err
	}
	if d != 0 {
		opts = append(opts, resumepdf.WithTimeout(d))
	}
	if c.Browser.ChromePath != "" {
		opts = append(opts, resumepdf.WithChromePath(c.Browser.ChromePath))
	}
	if c.Browser.NoSandbox {
		opts = append(opts, resumepdf.WithNoSandbox())
	}
	if c.Browser.AutoDownload {
		opts = append(opts, resumepdf.WithAutoDownload())
	}
	if len(c.Browser.Engines) > 0 {
		opts = append(opts, resumepdf.WithEngine(c.Browser.Engines...))
	}
	return opts, nil
}

// LoadResume reads structured resume data from a YAML or TOML file. A
// file without sections gets [resumepdf.DefaultSections].
func LoadResume(path string) (resumepdf.ResumeData, error) {
	var data resumepdf.ResumeData
	raw, err := os.ReadFile(path) // #nosec G304 -- resume path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return data, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return data, fmt.Errorf("reading resume file: %w", err)
	}
	if err := decode(path, raw, &data); err != nil {
		return data, err
	}
	if len(data.Sections) == 0 {
		data.Sections = resumepdf.DefaultSections()
	}
	return data, nil
}
