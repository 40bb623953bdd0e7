package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/extract"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:       "extract <invoice|ebupot|claim> <file|gs://bucket/object>",
	Short:     "Extract structured JSON from a document",
	Long:      "Sends one document to Gemini with the fixed prompt for the kind and prints the JSON reply.",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{string(extract.KindInvoice), string(extract.KindEBupot), string(extract.KindClaim)},
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		kind, err := extract.ParseKind(args[0])
		if err != nil {
			return err
		}

		services, err := newApp(cmd, app.WithoutRecording())
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck

		doc, _, err := app.LoadDocument(ctx, services.Storage, args[1])
		if err != nil {
			return err
		}

		res, err := services.Extractor().Extract(ctx, kind, doc)
		if err != nil {
			var jsonErr *extract.InvalidJSONError
			if errors.As(err, &jsonErr) {
				fmt.Fprintln(cmd.OutOrStdout(), jsonErr.Text)
			}
			return err
		}

		var pretty bytes.Buffer
		if err := json.Indent(&pretty, res.Data, "", "  "); err != nil {
			pretty.Reset()
			pretty.Write(res.Data)
		}
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		log.Debug().Dur("elapsed", res.Elapsed).Msg("Extraction finished")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(extractCmd)
}
