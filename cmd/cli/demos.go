package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/kentandrian/vertexai-demos/internal/catalog"
	"github.com/spf13/cobra"
)

var demosCmd = &cobra.Command{
	Use:   "demos",
	Short: "List the available demos",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatDemos(cmd.OutOrStdout(), catalog.Groups(), catalog.Links())
		return nil
	},
}

func formatDemos(w io.Writer, groups []catalog.GroupedPages, links []catalog.Link) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, g := range groups {
		fmt.Fprintf(tw, "%s\n", g.Name)
		for _, p := range g.Pages {
			fmt.Fprintf(tw, "  %s %s\tdemos %s\t%s\n", p.Icon, p.Title, p.Command, p.Route)
		}
	}
	tw.Flush() //nolint:errcheck

	fmt.Fprintln(w, "\nLearn more:")
	for _, l := range links {
		fmt.Fprintf(w, "  %s %s: %s\n", l.Icon, l.Label, l.URL)
	}
}

func init() {
	rootCmd.AddCommand(demosCmd)
}
