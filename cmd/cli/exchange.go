package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"cloud.google.com/go/civil"
	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/exchange"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var exchangeRateCmd = &cobra.Command{
	Use:   "exchange-rate [question]",
	Short: "Ask the exchange rate agent",
	Long: "Asks Gemini for a conversion rate; the model calls the Frankfurter API through a tool. " +
		"Pass --from, --to and --date, or a free-form question.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		from, _ := cmd.Flags().GetString("from")
		to, _ := cmd.Flags().GetString("to")
		dateStr, _ := cmd.Flags().GetString("date")

		services, err := newApp(cmd, app.WithoutRecording())
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck
		agent := services.ExchangeAgent()

		var answer *exchange.Answer
		if len(args) > 0 {
			answer, err = agent.AskText(ctx, strings.Join(args, " "))
		} else {
			now := time.Now()
			date := civil.DateOf(now)
			if dateStr != "" {
				if date, err = civil.ParseDate(dateStr); err != nil {
					return eris.Wrapf(err, "exchange-rate: --date %q is not YYYY-MM-DD", dateStr)
				}
			}
			answer, err = agent.Ask(ctx, exchange.Query{From: from, To: to, Date: date}, now)
		}
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(answer.Text))
		log.Debug().Int("tool_calls", answer.ToolCalls).Dur("elapsed", answer.Elapsed).Msg("Agent answered")
		return nil
	},
}

var exchangeCmd = &cobra.Command{
	Use:   "exchange",
	Short: "Exchange rate reference data",
}

var exchangeCurrenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "List the supported currencies",
	RunE: func(cmd *cobra.Command, _ []string) error {
		formatCurrencies(cmd.OutOrStdout(), exchange.Currencies())
		return nil
	},
}

func formatCurrencies(w io.Writer, list []exchange.Currency) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "CODE\tNAME")
	for _, c := range list {
		fmt.Fprintf(tw, "%s\t%s\n", c.Code, c.Name)
	}
	tw.Flush() //nolint:errcheck
	fmt.Fprintf(w, "\nRates are available from %s.\n", exchange.FirstRateDate)
}

func init() {
	exchangeRateCmd.Flags().String("from", "USD", "currency to convert from")
	exchangeRateCmd.Flags().String("to", "EUR", "currency to convert to")
	exchangeRateCmd.Flags().String("date", "", "rate date as YYYY-MM-DD (default today)")

	exchangeCmd.AddCommand(exchangeCurrenciesCmd)
	rootCmd.AddCommand(exchangeRateCmd, exchangeCmd)
}
