package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/document"
	"github.com/kentandrian/vertexai-demos/internal/gcs"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a claim document to Cloud Storage",
	Long:  "Uploads a local document under {prefix}/{YYYY-MM-DD}/ and prints the gs:// URI for claim process.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		bucket, _ := cmd.Flags().GetString("bucket")
		prefix, _ := cmd.Flags().GetString("prefix")
		if bucket == "" {
			bucket = cfg.GCS.Bucket
		}
		if bucket == "" {
			return eris.New("upload: --bucket or gcs.bucket (GCS_BUCKET) is required")
		}

		path := args[0]
		f, err := os.Open(path)
		if err != nil {
			return eris.Wrapf(err, "upload: open %s", path)
		}
		defer f.Close()

		head := make([]byte, 512)
		n, _ := f.Read(head)
		if _, err := f.Seek(0, 0); err != nil {
			return eris.Wrapf(err, "upload: rewind %s", path)
		}
		contentType := document.DetectMIMEType(path, head[:n])

		svc, err := gcs.NewService(ctx, 0)
		if err != nil {
			return err
		}
		defer svc.Close() //nolint:errcheck

		object := gcs.ObjectName(prefix, filepath.Base(path), time.Now())
		uri, err := svc.Upload(ctx, bucket, object, contentType, f)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), uri)
		return nil
	},
}

func init() {
	uploadCmd.Flags().String("bucket", "", "destination bucket (default gcs.bucket)")
	uploadCmd.Flags().String("prefix", "uploads", "object name prefix")
	rootCmd.AddCommand(uploadCmd)
}
