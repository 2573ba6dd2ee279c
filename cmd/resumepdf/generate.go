package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
	"github.com/porticus-lab/go-resume-pdf/internal/config"
	"github.com/porticus-lab/go-resume-pdf/internal/gemini"
)

func (a *app) generateCmd() *cobra.Command {
	var (
		reference string
		outDir    string
		markupOut string
		model     string
		title     string
	)
	cmd := &cobra.Command{
		Use:   "generate <resume.yaml|resume.toml>",
		Short: "Generate resume markup with Gemini and export it",
		Long: `Generate an A4 resume from structured data and export it as a PDF.

The resume file holds name, title, email, phone, sections and instructions.
An optional reference HTML file guides the layout; its styles are stripped
before it is shown to the model. The API key is read from $` + gemini.EnvAPIKey + `.`,
		Args: exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)

			data, err := config.LoadResume(args[0])
			if err != nil {
				return err
			}
			var ref string
			if reference != "" {
				if ref, err = a.readInput(reference); err != nil {
					return err
				}
			}

			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("out") {
				cfg.Output.Dir = outDir
			}
			if cmd.Flags().Changed("model") {
				cfg.Generator.Model = model
			}

			gen := gemini.New(gemini.WithModel(cfg.Generator.Model), gemini.WithLogger(logger))
			p, err := a.newPipeline(ctx, cfg, resumepdf.WithGenerator(gen))
			if err != nil {
				return err
			}
			defer p.Close()

			if ref != "" {
				p.LoadTemplate(ref)
			}
			pages, err := p.Generate(ctx, data)
			if err != nil {
				return err
			}
			logger.Info("generated", "model", gen.Model(), "pages", len(pages))

			if markupOut != "" {
				// #nosec G306 -- markup is meant to be readable
				if err := os.WriteFile(markupOut, []byte(p.Markup()), 0o644); err != nil {
					return fmt.Errorf("%w: %w", errWriteOutput, err)
				}
			}

			if title == "" {
				title = data.Title
			}
			doc, err := p.Export(ctx, title)
			if err != nil {
				return err
			}
			path, err := doc.Save(cfg.Output.Dir)
			if err != nil {
				return fmt.Errorf("%w: %w", errWriteOutput, err)
			}
			logger.Info("exported", "path", path, "pages", doc.PageCount())
			fmt.Fprintln(a.stdout, path)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&reference, "reference", "r", "", "reference HTML file used as layout guidance")
	f.StringVarP(&outDir, "out", "o", "", "output directory (default from config)")
	f.StringVar(&markupOut, "markup-out", "", "also write the generated markup to this file")
	f.StringVar(&model, "model", "", "Gemini model (default "+gemini.DefaultModel+")")
	f.StringVarP(&title, "title", "t", "", "document title; defaults to the resume title")
	return cmd
}
