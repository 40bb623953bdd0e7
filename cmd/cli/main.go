package main

import (
	"context"
	"os"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/config"
	"github.com/kentandrian/vertexai-demos/internal/logger"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var (
	cfg *config.Config
	log zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "demos",
	Short: "Gemini on Vertex AI demos",
	Long: "Runs the Vertex AI demos from the terminal: employee claim processing, invoice and " +
		"e-Bupot extraction, hotel tags, the exchange rate agent, the trip planner and the tax chat.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		if err := c.Validate(); err != nil {
			return err
		}
		cfg = c

		level := cfg.Log.Level
		if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
			level = "debug"
		}
		log = logger.NewFromConfig(level, cfg.Log.Format)
		cmd.SetContext(logger.WithContext(cmd.Context(), log))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
}

// newApp builds the Vertex AI backed services for a command.
func newApp(cmd *cobra.Command, opts ...app.Option) (*app.App, error) {
	return app.New(cmd.Context(), cfg, opts...)
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
