package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/kentandrian/vertexai-demos/internal/bigquery"
	infraBQ "github.com/kentandrian/vertexai-demos/internal/infra/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/notionsync"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect claim run history in BigQuery",
	Long:  "Commands for creating the run tables and listing recorded claim runs and their items.",
}

func openRepository(cmd *cobra.Command) (*infraBQ.Repository, error) {
	if !cfg.BigQuery.Enabled() {
		return nil, eris.New("runs: bigquery.dataset (BQ_DATASET) is not set")
	}
	if err := cfg.RequireProject(); err != nil {
		return nil, err
	}
	return infraBQ.NewRepository(cmd.Context(), cfg.Vertex.ProjectID, cfg.BigQuery.Dataset, cfg.Vertex.Location)
}

// -- runs init --

var runsInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the claim run tables",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer repo.Close() //nolint:errcheck

		if err := repo.EnsureTables(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Tables ready in %s.%s\n", cfg.Vertex.ProjectID, cfg.BigQuery.Dataset)
		return nil
	},
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent claim runs",
	RunE: func(cmd *cobra.Command, _ []string) error {
		repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer repo.Close() //nolint:errcheck

		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := repo.ListRuns(cmd.Context(), bigquery.RunFilter{Status: strings.ToUpper(status), Limit: limit})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}
		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(cmd.OutOrStdout(), runs)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []*bigquery.ClaimRunRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tDOCUMENT\tSTATUS\tITEMS\tFAILED\tSTARTED\tERROR")
	for _, r := range runs {
		items, failed := "-", "-"
		if r.ItemCount.Valid {
			items = fmt.Sprint(r.ItemCount.Int64)
		}
		if r.FailureCount.Valid {
			failed = fmt.Sprint(r.FailureCount.Int64)
		}
		errMsg := ""
		if r.ErrorMessage.Valid {
			errMsg = truncate(r.ErrorMessage.StringVal, 50)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(r.RunID),
			truncate(r.DocumentName, 30),
			r.Status,
			items,
			failed,
			r.StartedTS.Format("2006-01-02 15:04"),
			errMsg,
		)
	}
	tw.Flush() //nolint:errcheck
}

// -- runs items --

var runsItemsCmd = &cobra.Command{
	Use:   "items <run-id>",
	Short: "List the classified items of a run",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer repo.Close() //nolint:errcheck

		items, err := repo.ListClaimItems(cmd.Context(), args[0])
		if err != nil {
			return eris.Wrap(err, "runs items")
		}
		formatRunItems(cmd.OutOrStdout(), items)
		return nil
	},
}

func formatRunItems(w io.Writer, items []*bigquery.ClaimItemRow) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tMERCHANT\tDESCRIPTION\tAMOUNT\tKEY\tCATEGORY")
	for _, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s %.2f\t%s\t%s\n",
			it.LineIndex,
			truncate(it.Merchant, 25),
			truncate(it.Description, 40),
			it.EntityCurrency,
			it.EntityAmount,
			it.ClassificationKey,
			it.CategoryClaim,
		)
	}
	tw.Flush() //nolint:errcheck
}

// -- runs publish --

var runsPublishCmd = &cobra.Command{
	Use:   "publish <run-id>",
	Short: "Publish a run's items to the Notion review database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.Notion.Token == "" {
			return eris.New("runs publish: notion.token (NOTION_TOKEN) is not set")
		}
		dbID, _ := cmd.Flags().GetString("notion-db")
		if dbID == "" {
			dbID = cfg.Notion.DatabaseID
		}
		dryRun, _ := cmd.Flags().GetBool("dry-run")

		repo, err := openRepository(cmd)
		if err != nil {
			return err
		}
		defer repo.Close() //nolint:errcheck

		stats, err := notionsync.SyncRunItems(cmd.Context(), repo, notionsync.NewNotionClient(cfg.Notion.Token), dbID, args[0], dryRun)
		if err != nil {
			return eris.Wrap(err, "runs publish")
		}
		prefix := ""
		if dryRun {
			prefix = "[dry run] "
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s%d created, %d updated, %d failed\n", prefix, stats.Created, stats.Updated, stats.Failed)
		if stats.Failed > 0 {
			return eris.Errorf("runs publish: %d items failed", stats.Failed)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	runsListCmd.Flags().String("status", "", "filter by status (RUNNING, SUCCESS, FAILED)")
	runsListCmd.Flags().Int("limit", 20, "maximum runs to show")

	runsPublishCmd.Flags().String("notion-db", "", "Notion database ID (default notion.database_id)")
	runsPublishCmd.Flags().Bool("dry-run", false, "show what would change without writing to Notion")

	runsCmd.AddCommand(runsInitCmd, runsListCmd, runsItemsCmd, runsPublishCmd)
	rootCmd.AddCommand(runsCmd)
}
