// Package export renders enriched claim items as flat rows for CSV, XLSX and
// terminal output. Every format uses the same fixed column order.
package export

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/kentandrian/vertexai-demos/internal/claims"
)

// Columns is the header row shared by every tabular format (21 columns).
var Columns = []string{
	"Report Title",
	"Employee ID",
	"Employee Name",
	"Entity",
	"Profit Center",
	"Cost Center",
	"Travel Start Date",
	"Travel End Date",
	"Merchant",
	"Description",
	"Transaction Date",
	"Transaction Time",
	"Original Currency",
	"Original Amount",
	"Entity Currency",
	"Entity Amount",
	"Classification Key",
	"Category Claim",
	"Sub Category",
	"COA",
	"Category Description",
}

// Column indexes of the numeric cells.
const (
	colOriginalAmount = 13
	colEntityAmount   = 15
)

// FailureColumns is the header of the failed-items listing.
var FailureColumns = []string{"Index", "Merchant", "Description", "Error"}

// Row converts one item to a slice aligned with Columns.
func Row(item claims.EnrichedItem) []string {
	return []string{
		item.ReportTitle,
		item.EmployeeID,
		item.EmployeeName,
		item.Entity,
		item.ProfitCenter,
		item.CostCenter,
		item.TravelStartDate,
		item.TravelEndDate,
		item.Merchant,
		item.Description,
		item.TransactionDate,
		item.TransactionTime,
		item.OriginalCurrency,
		formatAmount(item.OriginalAmount),
		item.EntityCurrency,
		formatAmount(item.EntityAmount),
		string(item.ClassificationKey),
		item.CategoryClaim,
		item.SubCategory,
		item.COA,
		item.CategoryDescription,
	}
}

// FailureRow converts one failed item to a slice aligned with FailureColumns.
func FailureRow(f claims.ItemFailure) []string {
	return []string{strconv.Itoa(f.Index), f.Merchant, f.Description, f.Message}
}

func formatAmount(a claims.Amount) string {
	return strconv.FormatFloat(float64(a), 'f', 2, 64)
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	multiUnderscore = regexp.MustCompile(`_{2,}`)
)

// SanitizeFilename reduces name to letters, digits, hyphens and underscores, at most 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	if s == "" {
		s = "claim"
	}
	return s
}

// BuildFilename returns {sanitized base}_{YYYY-MM-DD}.{ext} for downloads.
func BuildFilename(base, ext string, now time.Time) string {
	return SanitizeFilename(strings.TrimSuffix(base, extOf(base))) + "_" + now.Format("2006-01-02") + "." + ext
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i > 0 {
		return name[i:]
	}
	return ""
}
