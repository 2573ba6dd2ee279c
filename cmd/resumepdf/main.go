// resumepdf renders resume markup into paginated PDF documents.
//
// Usage:
//
//	resumepdf export <file.html|-> [--title T] [--out DIR]
//	resumepdf generate <resume.yaml> [--reference FILE] [--out DIR]
//	resumepdf sanitize <file.html|->
//	resumepdf inspect <file.pdf>
//	resumepdf serve [--addr ADDR]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	cancel()
	os.Exit(code)
}
