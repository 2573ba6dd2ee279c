package resumepdf

import (
	"fmt"
	"os"

	"github.com/go-rod/rod/lib/launcher"
)

// Environment variables consulted when no explicit option is given.
const (
	EnvChromePath = "RESUMEPDF_CHROME_PATH"
	EnvNoSandbox  = "RESUMEPDF_NO_SANDBOX"
)

// resolveBrowser downloads a compatible Chromium binary if one is not
// already cached and returns the path to the executable. The binary is
// stored in ~/.cache/rod/browser (Unix) or %APPDATA%\rod\browser (Windows).
func resolveBrowser() (string, error) {
	path, err := launcher.NewBrowser().Get()
	if err != nil {
		return "", fmt.Errorf("resumepdf: downloading browser: %w", err)
	}
	return path, nil
}

// browserPath picks the executable an engine should launch: the configured
// path, then $RESUMEPDF_CHROME_PATH, then a browser found on the system,
// then (only with auto-download) a downloaded one. An empty result with a
// nil error means "let the engine search its own defaults".
func browserPath(cfg config) (string, error) {
	if cfg.chromePath != "" {
		return cfg.chromePath, nil
	}
	if p := os.Getenv(EnvChromePath); p != "" {
		return p, nil
	}
	if p, ok := launcher.LookPath(); ok {
		return p, nil
	}
	if cfg.autoDownload {
		return resolveBrowser()
	}
	return "", nil
}

// noSandbox reports whether the sandbox must be disabled.
func noSandbox(cfg config) bool {
	return cfg.noSandbox || os.Getenv(EnvNoSandbox) == "1"
}
