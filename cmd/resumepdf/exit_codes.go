package main

import (
	"context"
	"errors"
	"os"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
	"github.com/porticus-lab/go-resume-pdf/internal/config"
	"github.com/porticus-lab/go-resume-pdf/internal/pdfinfo"
)

// Exit codes. 0=success, 1=general, 2=usage, custom codes below 126.
const (
	ExitSuccess     = 0   // Document written
	ExitGeneral     = 1   // Unexpected error
	ExitUsage       = 2   // Invalid flags, config, or nothing to export
	ExitIO          = 3   // File not found, permission denied, not a PDF
	ExitBrowser     = 4   // Browser or generator configuration, rendering
	ExitGeneration  = 5   // Markup generation failed
	ExitInterrupted = 130 // SIGINT
)

// Sentinel errors raised by the commands themselves.
var (
	errUsage       = errors.New("usage")
	errReadInput   = errors.New("reading input")
	errWriteOutput = errors.New("writing output")
)

// exitCodeFor returns the exit code for err. Callers wrap with %w so that
// errors.Is sees the sentinels.
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	if errors.Is(err, errUsage) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrUnsupportedFormat) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrConfigNotFound) {
		return ExitUsage
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, errReadInput) ||
		errors.Is(err, errWriteOutput) ||
		errors.Is(err, pdfinfo.ErrNotPDF) {
		return ExitIO
	}

	switch resumepdf.KindOf(err) {
	case resumepdf.KindUserInputEmpty:
		return ExitUsage
	case resumepdf.KindConfigurationMissing, resumepdf.KindRasterizationFailure:
		return ExitBrowser
	case resumepdf.KindGenerationFailure:
		return ExitGeneration
	}
	return ExitGeneral
}

// errorMessage renders err for the terminal: the user-facing message for
// pipeline failures, the error text otherwise.
func errorMessage(err error) string {
	if resumepdf.KindOf(err) != resumepdf.KindUnknown {
		return resumepdf.UserMessage(err)
	}
	return err.Error()
}
