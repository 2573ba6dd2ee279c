package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/porticus-lab/go-resume-pdf/internal/pdfinfo"
)

func (a *app) inspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect <file.pdf>",
		Short: "Summarize the pages and images of a PDF",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0]) // #nosec G304 -- input path is user-provided
			if err != nil {
				return fmt.Errorf("%w: %w", errReadInput, err)
			}
			s, err := pdfinfo.Inspect(data)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			if asJSON {
				enc := json.NewEncoder(a.stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(s)
			}
			return printSummary(a.stdout, s)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")
	return cmd
}

func printSummary(w io.Writer, s *pdfinfo.Summary) error {
	fmt.Fprintf(w, "PDF %s, %d page(s)\n", s.Version, len(s.Pages))
	if s.Title != "" {
		fmt.Fprintf(w, "Title:    %s\n", s.Title)
	}
	if s.Creator != "" {
		fmt.Fprintf(w, "Creator:  %s\n", s.Creator)
	}
	if s.Producer != "" {
		fmt.Fprintf(w, "Producer: %s\n", s.Producer)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PAGE\tSIZE (pt)\tIMAGE\tPIXELS\tFILTER")
	for _, p := range s.Pages {
		if len(p.Images) == 0 {
			fmt.Fprintf(tw, "%d\t%.0fx%.0f\t-\t-\t-\n", p.Number, p.Width, p.Height)
			continue
		}
		for _, img := range p.Images {
			fmt.Fprintf(tw, "%d\t%.0fx%.0f\t%s\t%dx%d\t%s\n",
				p.Number, p.Width, p.Height, img.Name, img.Width, img.Height, img.Filter)
		}
	}
	return tw.Flush()
}
