package notionsync

import (
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/jomei/notionapi"
	bq "github.com/kentandrian/vertexai-demos/internal/bigquery"
)

// Property names of the review database.
const (
	PropItem        = "Item"
	PropItemKey     = "Item Key"
	PropRunID       = "Run ID"
	PropEmployee    = "Employee"
	PropEntity      = "Entity"
	PropCategory    = "Category"
	PropSubCategory = "Sub Category"
	PropCOA         = "COA"
	PropCurrency    = "Currency"
	PropAmount      = "Amount"
	PropOriginal    = "Original Amount"
	PropDate        = "Transaction Date"
)

// ItemKey identifies one claim line across syncs.
func ItemKey(runID string, line int64) string {
	return fmt.Sprintf("%s:%d", runID, line)
}

// ClaimItemToNotionProperties maps a recorded claim item to review database properties.
func ClaimItemToNotionProperties(item *bq.ClaimItemRow) notionapi.Properties {
	title := item.Merchant
	if title == "" {
		title = item.Description
	}
	if title == "" {
		title = fmt.Sprintf("Line %d", item.LineIndex)
	}

	props := notionapi.Properties{
		PropItem:     notionapi.TitleProperty{Title: richText(title)},
		PropItemKey:  notionapi.RichTextProperty{RichText: richText(ItemKey(item.RunID, item.LineIndex))},
		PropRunID:    notionapi.RichTextProperty{RichText: richText(item.RunID)},
		PropAmount:   notionapi.NumberProperty{Number: item.EntityAmount},
		PropOriginal: notionapi.NumberProperty{Number: item.OriginalAmount},
	}

	if item.EmployeeName != "" {
		props[PropEmployee] = notionapi.RichTextProperty{RichText: richText(item.EmployeeName)}
	}
	if item.Entity != "" {
		props[PropEntity] = notionapi.SelectProperty{Select: notionapi.Option{Name: item.Entity}}
	}
	if item.CategoryClaim != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: item.CategoryClaim}}
	}
	if item.SubCategory != "" {
		props[PropSubCategory] = notionapi.RichTextProperty{RichText: richText(item.SubCategory)}
	}
	if item.COA != "" {
		props[PropCOA] = notionapi.RichTextProperty{RichText: richText(item.COA)}
	}
	if item.EntityCurrency != "" {
		props[PropCurrency] = notionapi.SelectProperty{Select: notionapi.Option{Name: item.EntityCurrency}}
	}
	if d := dateValue(item.TransactionDate); d != nil {
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: d}}
	}

	return props
}

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{
		{
			Type: notionapi.ObjectTypeText,
			Text: &notionapi.Text{Content: s},
		},
	}
}

func dateValue(d bigquery.NullDate) *notionapi.Date {
	if !d.Valid {
		return nil
	}
	v := notionapi.Date(time.Date(d.Date.Year, d.Date.Month, d.Date.Day, 0, 0, 0, 0, time.UTC))
	return &v
}

// itemKeyOf reads the Item Key property of a page returned by a query.
func itemKeyOf(page notionapi.Page) string {
	if prop, ok := page.Properties[PropItemKey]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			return rt.RichText[0].PlainText
		}
	}
	return ""
}
