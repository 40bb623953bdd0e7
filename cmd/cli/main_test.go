package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	bq "github.com/kentandrian/vertexai-demos/internal/bigquery"
	"github.com/kentandrian/vertexai-demos/internal/catalog"
	"github.com/kentandrian/vertexai-demos/internal/chat"
	"github.com/kentandrian/vertexai-demos/internal/claims"
	"github.com/kentandrian/vertexai-demos/internal/exchange"
	"github.com/kentandrian/vertexai-demos/internal/hoteltags"
	"github.com/kentandrian/vertexai-demos/internal/vertex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"claim", "extract", "hotel-tags", "exchange-rate", "exchange", "trip", "tax-chat", "upload", "runs", "demos"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestNestedSubcommands(t *testing.T) {
	tests := []struct {
		parent   string
		children []string
	}{
		{"claim", []string{"process", "categories"}},
		{"exchange", []string{"currencies"}},
		{"runs", []string{"init", "list", "items", "publish"}},
	}
	for _, tt := range tests {
		t.Run(tt.parent, func(t *testing.T) {
			cmd, _, err := rootCmd.Find([]string{tt.parent})
			require.NoError(t, err)
			names := make(map[string]bool)
			for _, c := range cmd.Commands() {
				names[c.Name()] = true
			}
			for _, child := range tt.children {
				assert.True(t, names[child], "expected %s %s", tt.parent, child)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	flag := claimProcessCmd.Flags().Lookup("format")
	require.NotNil(t, flag)
	assert.Equal(t, "table", flag.DefValue)

	flag = exchangeRateCmd.Flags().Lookup("from")
	require.NotNil(t, flag)
	assert.Equal(t, "USD", flag.DefValue)

	flag = runsListCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "20", flag.DefValue)

	flag = uploadCmd.Flags().Lookup("prefix")
	require.NotNil(t, flag)
	assert.Equal(t, "uploads", flag.DefValue)
}

func TestValidClaimFormat(t *testing.T) {
	for _, f := range []string{"table", "json", "csv", "xlsx"} {
		assert.True(t, validClaimFormat(f), f)
	}
	assert.False(t, validClaimFormat("pdf"))
}

func sampleResult() *claims.Result {
	item := claims.EnrichedItem{EmployeeName: "Sari", ClassificationKey: "taxi"}
	item.Merchant = "Blue Bird"
	item.Description = "Taxi to airport"
	item.EntityCurrency = "IDR"
	item.EntityAmount = 150000
	return &claims.Result{
		RunID:    "run-1",
		Items:    []claims.EnrichedItem{item},
		Failures: []claims.ItemFailure{{Index: 1, Description: "Hotel", Message: "quota"}},
	}
}

func TestWriteClaimResult(t *testing.T) {
	now := time.Date(2024, 5, 2, 9, 0, 0, 0, time.UTC)
	dir := t.TempDir()

	var out bytes.Buffer
	require.NoError(t, writeClaimResult(&out, sampleResult(), "csv", dir, "trip receipt.pdf", now))
	path := filepath.Join(dir, "trip_receipt_2024-05-02.csv")
	assert.Contains(t, out.String(), path)
	assert.Contains(t, out.String(), "Wrote 1 of 2 items (1 failed)")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Taxi to airport")

	out.Reset()
	require.NoError(t, writeClaimResult(&out, sampleResult(), "xlsx", dir, "trip receipt.pdf", now))
	_, err = os.Stat(filepath.Join(dir, "trip_receipt_2024-05-02.xlsx"))
	assert.NoError(t, err)

	out.Reset()
	require.NoError(t, writeClaimResult(&out, sampleResult(), "json", dir, "a.pdf", now))
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(out.Bytes(), &decoded))
	assert.Equal(t, "run-1", decoded["run_id"])

	out.Reset()
	require.NoError(t, writeClaimResult(&out, sampleResult(), "table", dir, "a.pdf", now))
	assert.Contains(t, out.String(), "Blue Bird")
	assert.Contains(t, out.String(), "FAILED ITEMS (1)")
}

func TestFormatCategories(t *testing.T) {
	table, err := claims.LoadDefaultCategories()
	require.NoError(t, err)

	var buf bytes.Buffer
	formatCategories(&buf, table)

	output := buf.String()
	assert.Contains(t, output, "KEY")
	assert.Contains(t, output, string(table.Default().Key)+" (default)")
	assert.Equal(t, table.Len()+1, strings.Count(output, "\n"))
}

func TestFormatCurrencies(t *testing.T) {
	var buf bytes.Buffer
	formatCurrencies(&buf, exchange.Currencies())
	assert.Contains(t, buf.String(), "IDR")
	assert.Contains(t, buf.String(), "1999-01-04")
}

func TestExchangeRateDefaultsAreSupported(t *testing.T) {
	from := exchangeRateCmd.Flags().Lookup("from").DefValue
	to := exchangeRateCmd.Flags().Lookup("to").DefValue

	today := civil.DateOf(time.Now())
	q := exchange.Query{From: from, To: to, Date: today}
	assert.NoError(t, q.Validate(today))
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	runs := []*bq.ClaimRunRow{
		{
			RunID:        "abc12345-6789-0000-0000-000000000000",
			DocumentName: "receipt.pdf",
			Status:       bq.RunStatusSuccess,
			StartedTS:    started,
			ItemCount:    bigquery.NullInt64{Int64: 4, Valid: true},
			FailureCount: bigquery.NullInt64{Int64: 1, Valid: true},
		},
		{
			RunID:        "def12345-6789-0000-0000-000000000000",
			DocumentName: "blurry.png",
			Status:       bq.RunStatusFailed,
			StartedTS:    started,
			ErrorMessage: bigquery.NullString{StringVal: "parse extraction: invalid_json", Valid: true},
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)

	output := buf.String()
	assert.Contains(t, output, "RUN ID")
	assert.Contains(t, output, "abc12345")
	assert.NotContains(t, output, "abc12345-6789")
	assert.Contains(t, output, "SUCCESS")
	assert.Contains(t, output, "2025-06-15 10:30")
	assert.Contains(t, output, "invalid_json")
}

func TestFormatRunItems(t *testing.T) {
	var buf bytes.Buffer
	formatRunItems(&buf, []*bq.ClaimItemRow{{LineIndex: 0, Merchant: "Grab", EntityCurrency: "IDR", EntityAmount: 25000, ClassificationKey: "taxi"}})
	assert.Contains(t, buf.String(), "IDR 25000.00")
	assert.Contains(t, buf.String(), "taxi")
}

func TestFormatDemos(t *testing.T) {
	var buf bytes.Buffer
	formatDemos(&buf, catalog.Groups(), catalog.Links())

	output := buf.String()
	assert.Contains(t, output, catalog.GroupFinance)
	assert.Contains(t, output, "demos claim process")
	assert.Contains(t, output, "https://cloud.google.com/vertex-ai")
}

func TestFormatHotelTags(t *testing.T) {
	res := &hoteltags.Result{
		Page:    &hoteltags.HotelPage{Name: "Hotel Sakura", ImageURLs: []string{"a"}},
		AllTags: `{"tags": {"image": ["温泉"]}}`,
		TopTags: `{"hotel_name": "Hotel Sakura", "tags": {"tag_1": "温泉", "tag_2": "朝食"}}`,
	}
	var buf bytes.Buffer
	formatHotelTags(&buf, res)
	assert.Contains(t, buf.String(), "Hotel Sakura (1 images, 0 reviews)")
	assert.Contains(t, buf.String(), "2. 朝食")

	res.TopTags = "not json"
	buf.Reset()
	formatHotelTags(&buf, res)
	assert.Contains(t, buf.String(), "not json")
}

func echoReply(ctx context.Context, conv chat.Conversation, msg string) (chat.Conversation, *chat.Reply, error) {
	reply := &chat.Reply{Text: "plan for " + msg}
	return conv.Append(
		chat.Message{Role: chat.RoleUser, Content: msg},
		chat.Message{Role: chat.RoleAssistant, Content: reply.Text},
	), reply, nil
}

func TestRunChat_Interactive(t *testing.T) {
	var turns int
	reply := func(ctx context.Context, conv chat.Conversation, msg string) (chat.Conversation, *chat.Reply, error) {
		turns++
		// History grows by two messages per turn after the greeting.
		assert.Len(t, conv.Messages, 1+2*(turns-1))
		return echoReply(ctx, conv, msg)
	}

	var out bytes.Buffer
	err := runChat(context.Background(), strings.NewReader("Bali\n\nKyoto\nexit\nParis\n"), &out, "Where to?", reply, "")
	require.NoError(t, err)

	assert.Equal(t, 2, turns)
	assert.Contains(t, out.String(), "Where to?")
	assert.Contains(t, out.String(), "plan for Bali")
	assert.Contains(t, out.String(), "plan for Kyoto")
	assert.NotContains(t, out.String(), "Paris")
}

func TestRunChat_OneShotWithSources(t *testing.T) {
	reply := func(ctx context.Context, conv chat.Conversation, msg string) (chat.Conversation, *chat.Reply, error) {
		return conv, &chat.Reply{Text: "PPh 21 berlaku.", Sources: []vertex.Source{{URI: "gs://pajak/pph21.pdf"}}}, nil
	}

	var out bytes.Buffer
	require.NoError(t, runChat(context.Background(), strings.NewReader(""), &out, "Halo", reply, "Apa itu PPh 21?"))
	assert.NotContains(t, out.String(), "Halo")
	assert.Contains(t, out.String(), "PPh 21 berlaku.")
	assert.Contains(t, out.String(), "gs://pajak/pph21.pdf")
}

func TestRunChat_Error(t *testing.T) {
	errModel := errors.New("model unavailable")
	reply := func(ctx context.Context, conv chat.Conversation, msg string) (chat.Conversation, *chat.Reply, error) {
		return conv, nil, errModel
	}
	err := runChat(context.Background(), strings.NewReader("Bali\n"), &bytes.Buffer{}, "Where to?", reply, "")
	assert.ErrorIs(t, err, errModel)
}
