package main

import (
	"fmt"

	"github.com/spf13/cobra"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
)

func (a *app) exportCmd() *cobra.Command {
	var (
		title    string
		outDir   string
		sanitize bool
	)
	cmd := &cobra.Command{
		Use:   "export <file.html|->",
		Short: "Render markup into a paginated PDF",
		Long: `Render an HTML resume into a PDF made of one image per A4 page.

The markup is rendered as given. Use --sanitize to strip <style> blocks and
stylesheet links first, as is done for reference templates. The document is
named after --title, or the markup's <title>, with spaces replaced by
underscores.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			markup, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if sanitize {
				markup = resumepdf.SanitizeMarkup(markup)
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}

			p, err := a.newPipeline(ctx, cfg)
			if err != nil {
				return err
			}
			defer p.Close()

			doc, err := p.Convert(ctx, markup, title)
			if err != nil {
				return err
			}
			path, err := doc.Save(cfg.Output.Dir)
			if err != nil {
				return fmt.Errorf("%w: %w", errWriteOutput, err)
			}
			logger.Info("exported", "path", path, "pages", doc.PageCount(), "bytes", doc.Len())
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&title, "title", "t", "", "document title; defaults to the markup <title>")
	f.StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	f.BoolVar(&sanitize, "sanitize", false, "strip styles and stylesheet links before rendering")
	return cmd
}
