package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/hoteltags"
	"github.com/spf13/cobra"
)

var hotelTagsCmd = &cobra.Command{
	Use:   "hotel-tags <jalan hotel url>",
	Short: "Generate descriptive tags for a Jalan hotel",
	Long:  "Scrapes the hotel's photos and guest reviews and asks Gemini for tags and the top five selling points.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		services, err := newApp(cmd, app.WithoutRecording())
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck

		page, err := services.HotelScraper().Scrape(ctx, args[0])
		if err != nil {
			return err
		}
		res, err := services.HotelTagger().Generate(ctx, page)
		if err != nil {
			return err
		}

		formatHotelTags(cmd.OutOrStdout(), res)
		return nil
	},
}

func formatHotelTags(w io.Writer, res *hoteltags.Result) {
	fmt.Fprintf(w, "%s (%d images, %d reviews)\n\n", res.Page.Name, len(res.Page.ImageURLs), len(res.Page.Reviews))
	if top, err := hoteltags.ParseTopTags(res.TopTags); err == nil {
		fmt.Fprintln(w, "Top tags:")
		for i, tag := range top.Tags {
			fmt.Fprintf(w, "  %d. %s\n", i+1, tag)
		}
	} else {
		fmt.Fprintln(w, strings.TrimSpace(res.TopTags))
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "All tags:")
	fmt.Fprintln(w, strings.TrimSpace(res.AllTags))
}

func init() {
	rootCmd.AddCommand(hotelTagsCmd)
}
