package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kentandrian/vertexai-demos/internal/app"
	"github.com/kentandrian/vertexai-demos/internal/chat"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

// replyFunc produces the next assistant turn.
type replyFunc func(ctx context.Context, conv chat.Conversation, message string) (chat.Conversation, *chat.Reply, error)

// runChat prints the greeting and answers every line read from in until EOF or
// "exit". With a non-empty first message only that one turn is run.
func runChat(ctx context.Context, in io.Reader, out io.Writer, greeting string, reply replyFunc, first string) error {
	conv := chat.NewConversation(greeting)

	ask := func(msg string) error {
		next, r, err := reply(ctx, conv, msg)
		if err != nil {
			return err
		}
		conv = next
		fmt.Fprintln(out, strings.TrimSpace(chat.FormatWithSources(r.Text, r.Sources)))
		log.Debug().Str("conversation_id", conv.ID).Dur("elapsed", r.Elapsed).Msg("Reply received")
		return nil
	}

	if first = strings.TrimSpace(first); first != "" {
		return ask(first)
	}

	fmt.Fprintln(out, greeting)
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return eris.Wrap(scanner.Err(), "runChat: read input")
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := ask(line); err != nil {
			return err
		}
	}
}

var tripCmd = &cobra.Command{
	Use:   "trip [location]",
	Short: "Chat with the trip planner",
	Long:  "Interactive trip planner. Each answer is a day-by-day plan for the location you type.",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := newApp(cmd, app.WithoutRecording())
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck

		planner := services.TripPlanner()
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), chat.TripGreeting, planner.Plan, strings.Join(args, " "))
	},
}

var taxChatCmd = &cobra.Command{
	Use:   "tax-chat [question]",
	Short: "Ask the Indonesian tax assistant",
	Long:  "Interactive tax chat grounded on the configured Vertex AI Search datastore.",
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := newApp(cmd, app.WithoutRecording())
		if err != nil {
			return err
		}
		defer services.Close() //nolint:errcheck

		tax, err := services.TaxAssistant()
		if err != nil {
			return err
		}
		return runChat(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), chat.TaxGreeting, tax.Ask, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(tripCmd, taxChatCmd)
}
