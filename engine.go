package resumepdf

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// Engine names accepted by [WithEngine].
const (
	EngineChromedp = "chromedp"
	EngineRod      = "rod"
)

type engineFactory func(cfg config) (Engine, error)

var engineFactories = map[string]engineFactory{
	EngineChromedp: newChromeEngine,
	EngineRod:      newRodEngine,
}

// EngineNames returns the registered engine names in resolution order.
func EngineNames() []string {
	return []string{EngineChromedp, EngineRod}
}

// startEngine tries each configured engine in order and returns the first
// that starts. If none does, the error is a configuration failure carrying
// every attempt and a hint for fixing the environment.
func startEngine(cfg config) (Engine, error) {
	var errs []error
	for _, name := range cfg.engines {
		factory, ok := engineFactories[name]
		if !ok {
			return nil, &Error{
				Kind: KindConfigurationMissing,
				Op:   "start engine",
				Err:  fmt.Errorf("%w: %q", ErrUnknownEngine, name),
				Hint: "available engines: " + strings.Join(EngineNames(), ", "),
			}
		}
		e, err := factory(cfg)
		if err == nil {
			cfg.logger.Info("rendering engine ready", "engine", name)
			return e, nil
		}
		cfg.logger.Warn("rendering engine unavailable", "engine", name, "err", err)
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
	}
	return nil, &Error{
		Kind: KindConfigurationMissing,
		Op:   "start engine",
		Err:  fmt.Errorf("%w: %w", ErrEngineUnavailable, errors.Join(errs...)),
		Hint: engineHint(cfg),
	}
}

// engineHint suggests how to make a browser available.
func engineHint(cfg config) string {
	var hints []string
	if cfg.chromePath == "" && os.Getenv(EnvChromePath) == "" {
		hints = append(hints, "install Chrome/Chromium or set "+EnvChromePath)
	}
	if !cfg.autoDownload {
		hints = append(hints, "use --download-browser to fetch Chromium")
	}
	if !noSandbox(cfg) && inContainer() {
		hints = append(hints, "set "+EnvNoSandbox+"=1 inside Docker/CI")
	}
	return strings.Join(hints, "; ")
}

// inContainer reports whether the process appears to run in a container
// or CI job, where the Chrome sandbox is usually unavailable.
func inContainer() bool {
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}
	return os.Getenv("CI") != "" || os.Getenv("GITHUB_ACTIONS") != ""
}
