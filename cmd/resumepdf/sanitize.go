package main

import (
	"fmt"

	"github.com/spf13/cobra"

	resumepdf "github.com/porticus-lab/go-resume-pdf"
)

func (a *app) sanitizeCmd() *cobra.Command {
	var showTitle bool
	cmd := &cobra.Command{
		Use:   "sanitize <file.html|->",
		Short: "Strip <style> blocks and stylesheet links from markup",
		Args:  exactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			markup, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			if showTitle {
				fmt.Fprintln(a.stdout, resumepdf.MarkupTitle(markup))
				return nil
			}
			fmt.Fprint(a.stdout, resumepdf.SanitizeMarkup(markup))
			return nil
		},
	}
	cmd.Flags().BoolVar(&showTitle, "title", false, "print the markup <title> instead")
	return cmd
}
