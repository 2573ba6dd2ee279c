// Package gemini generates resume markup with the Gemini API.
package gemini

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"google.golang.org/genai"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
)

const (
	// DefaultModel is the model used when none is configured.
	DefaultModel = "gemini-2.5-flash"
	// EnvAPIKey holds the API key read when none is given explicitly.
	EnvAPIKey = "GEMINI_API_KEY"
)

// contentModels is the part of the genai client the generator uses.
type contentModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Generator implements [resumepdf.Generator]. The API client is created on
// the first call, so a missing key is reported when generation is
// requested rather than at startup.
type Generator struct {
	model  string
	apiKey string
	logger *log.Logger

	mu     sync.Mutex
	models contentModels
}

// Option configures a [Generator].
type Option func(*Generator)

// WithModel sets the model name. Defaults to [DefaultModel].
func WithModel(model string) Option {
	return func(g *Generator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithAPIKey sets the API key instead of reading $GEMINI_API_KEY.
func WithAPIKey(key string) Option {
	return func(g *Generator) {
		g.apiKey = key
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l *log.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// New returns a Generator.
func New(opts ...Option) *Generator {
	g := &Generator{
		model:  DefaultModel,
		logger: log.NewWithOptions(io.Discard, log.Options{}),
	}
	for _, o := range opts {
		o(g)
	}
	if g.apiKey == "" {
		g.apiKey = os.Getenv(EnvAPIKey)
	}
	return g
}

// Model returns the configured model name.
func (g *Generator) Model() string { return g.model }

func (g *Generator) client(ctx context.Context) (contentModels, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.models != nil {
		return g.models, nil
	}
	if g.apiKey == "" {
		return nil, resumepdf.MissingAPIKey(EnvAPIKey)
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  g.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: creating client: %w", err)
	}
	g.logger.Debug("gemini client ready", "model", g.model, "key", maskKey(g.apiKey))
	g.models = c.Models
	return g.models, nil
}

// Generate sends prompt to the model and returns the text of the first
// candidate exactly as received.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	m, err := g.client(ctx)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, err := m.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: generating content: %w", err)
	}
	if resp == nil {
		return "", resumepdf.ErrEmptyGeneration
	}
	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", resumepdf.ErrEmptyGeneration
	}
	g.logger.Debug("gemini response",
		"model", g.model,
		"bytes", len(text),
		"took", time.Since(start).Round(time.Millisecond),
	)
	return text, nil
}

// maskKey keeps the first four characters of an API key for logs.
func maskKey(key string) string {
	if len(key) <= 4 {
		return "****"
	}
	return key[:4] + "****"
}
