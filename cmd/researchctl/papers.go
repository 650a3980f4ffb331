package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/WessleyAI/researchdesk/engine/domain"
)

func (c *cli) papersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "papers",
		Short: "List, delete and update stored papers",
	}
	cmd.AddCommand(c.papersListCmd(), c.papersDeleteCmd(), c.papersUpdateCmd())
	return cmd
}

func (c *cli) papersListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print every stored paper",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			papers, err := a.Store.AllPapers(ctx)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), papers)
			}
			return printPapers(cmd.OutOrStdout(), papers)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func printPapers(w io.Writer, papers []domain.Paper) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "YEAR\tTITLE")
	for _, p := range papers {
		fmt.Fprintf(tw, "%d\t%s\n", p.Year, p.Title)
	}
	return tw.Flush()
}

func (c *cli) papersDeleteCmd() *cobra.Command {
	var title string
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every paper with the given title",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" {
				return domain.NewValidationError("title", title, domain.ErrEmptyField)
			}
			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			n, err := a.Store.DeleteByTitle(ctx, title)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d paper(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "exact title to delete")
	return cmd
}

func (c *cli) papersUpdateCmd() *cobra.Command {
	var (
		title    string
		newTitle string
		abstract string
		year     int
	)
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update the properties of every paper with the given title",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if title == "" {
				return domain.NewValidationError("title", title, domain.ErrEmptyField)
			}
			var patch domain.PaperPatch
			if cmd.Flags().Changed("new-title") {
				patch.Title = &newTitle
			}
			if cmd.Flags().Changed("abstract") {
				patch.Abstract = &abstract
			}
			if cmd.Flags().Changed("year") {
				patch.Year = &year
			}
			if err := domain.ValidatePatch(patch); err != nil {
				return err
			}

			ctx := cmd.Context()
			a, err := c.openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close(ctx)

			n, err := a.Store.UpdateByTitle(ctx, title, patch)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "updated %d paper(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "exact title of the papers to update")
	cmd.Flags().StringVar(&newTitle, "new-title", "", "replacement title")
	cmd.Flags().StringVar(&abstract, "abstract", "", "replacement abstract")
	cmd.Flags().IntVar(&year, "year", 0, "replacement year")
	return cmd
}
