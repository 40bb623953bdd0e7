package claims

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// GlobalContext is the document-level metadata extracted once per expense report.
// It is shared read-only by every item classification for that report.
type GlobalContext struct {
	ReportTitle          string   `json:"report_title"`
	EmployeeID           string   `json:"employee_id"`
	EmployeeName         string   `json:"employee_name"`
	Entity               string   `json:"entity"`
	ProfitCenter         string   `json:"profit_center"`
	CostCenter           string   `json:"cost_center"`
	TravelEventStartDate string   `json:"travel_event_start_date"`
	TravelEventEndDate   string   `json:"travel_event_end_date"`
	Summary              string   `json:"summary"`
	KeyLocations         []string `json:"key_locations"`
}

// RawLineItem is one unclassified expense line as extracted from the document.
type RawLineItem struct {
	Merchant         string `json:"merchant"`
	Description      string `json:"description"`
	OriginalCurrency string `json:"original_currency"`
	OriginalAmount   Amount `json:"original_amount"`
	EntityCurrency   string `json:"entity_currency"`
	EntityAmount     Amount `json:"entity_amount"`
	TransactionDate  string `json:"transaction_date"`
	TransactionTime  string `json:"transaction_time"`
}

// classificationView is the part of an item shown to the classifier.
type classificationView struct {
	Merchant         string `json:"merchant"`
	Description      string `json:"description"`
	OriginalCurrency string `json:"original_currency"`
}

func (r RawLineItem) view() classificationView {
	return classificationView{
		Merchant:         r.Merchant,
		Description:      r.Description,
		OriginalCurrency: r.OriginalCurrency,
	}
}

// Amount is a monetary value. It decodes from a JSON number, a numeric string
// with thousand separators, or null.
type Amount float64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" || s == `""` {
		*a = 0
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = normalizeAmount(str)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &amountError{value: string(b)}
	}
	*a = Amount(v)
	return nil
}

// normalizeAmount strips grouping separators from a numeric string. Several
// dots, or a comma after the last dot, mean dots group thousands and the
// comma is the decimal point ("1.526.000", "1.234,50").
func normalizeAmount(str string) string {
	s := strings.NewReplacer(" ", "", "_", "").Replace(strings.TrimSpace(str))
	lastDot, lastComma := strings.LastIndex(s, "."), strings.LastIndex(s, ",")
	if strings.Count(s, ".") > 1 || (lastDot >= 0 && lastComma > lastDot) {
		s = strings.ReplaceAll(s, ".", "")
		return strings.Replace(s, ",", ".", 1)
	}
	return strings.ReplaceAll(s, ",", "")
}

type amountError struct {
	value string
}

func (e *amountError) Error() string {
	return "not a number: " + e.value
}

// ClassificationKey names a category in the CategoryTable. Values returned by
// the model are not trusted until resolved against the table.
type ClassificationKey string

// CategoryRecord is the static metadata for one classification key.
// COA is the chart-of-accounts code and is empty when it is decided at settlement.
type CategoryRecord struct {
	Key                 ClassificationKey `json:"-" yaml:"key"`
	CategoryClaim       string            `json:"Category Claim" yaml:"category_claim"`
	SubCategory         string            `json:"Sub Category" yaml:"sub_category"`
	COA                 string            `json:"COA" yaml:"coa"`
	CategoryDescription string            `json:"Category Description" yaml:"description"`
}

// EnrichedItem is a line item after classification and category merge, with the
// report-level fields repeated for flat tabular display.
type EnrichedItem struct {
	ReportTitle     string `json:"report_title"`
	EmployeeID      string `json:"employee_id"`
	EmployeeName    string `json:"employee_name"`
	Entity          string `json:"entity"`
	ProfitCenter    string `json:"profit_center"`
	CostCenter      string `json:"cost_center"`
	TravelStartDate string `json:"travel_event_start_date"`
	TravelEndDate   string `json:"travel_event_end_date"`

	RawLineItem

	// ClassificationKey is the key whose record was merged.
	ClassificationKey ClassificationKey `json:"classification_key"`
	// ModelKey is the token the model returned, set only when it did not resolve.
	ModelKey string `json:"model_key,omitempty"`

	CategoryRecord
}

// Classified pairs an item with the key returned for it.
type Classified struct {
	Index int
	Item  RawLineItem
	Key   ClassificationKey
}

// ItemFailure reports an item whose classification call failed.
type ItemFailure struct {
	Index       int    `json:"index"`
	Description string `json:"description"`
	Merchant    string `json:"merchant"`
	Message     string `json:"error"`

	Item RawLineItem `json:"-"`
	Err  error       `json:"-"`
}

func newItemFailure(index int, item RawLineItem, err error) ItemFailure {
	return ItemFailure{
		Index:       index,
		Description: item.Description,
		Merchant:    item.Merchant,
		Message:     err.Error(),
		Item:        item,
		Err:         err,
	}
}

// Result is the outcome of processing one claim document.
type Result struct {
	RunID         string          `json:"run_id"`
	DocumentName  string          `json:"document_name,omitempty"`
	RawExtraction json.RawMessage `json:"raw_extraction"`
	GlobalContext GlobalContext   `json:"global_context"`
	Items         []EnrichedItem  `json:"items"`
	Failures      []ItemFailure   `json:"failures"`
	StartedAt     time.Time       `json:"started_at"`
	FinishedAt    time.Time       `json:"finished_at"`
}

// Attempted returns the number of items Stage 1 produced.
func (r *Result) Attempted() int {
	return len(r.Items) + len(r.Failures)
}
