package claims

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnrich(t *testing.T) {
	table := testTable(t)
	gc := GlobalContext{
		ReportTitle:          "Business trip to SG",
		EmployeeID:           "EMP001",
		EmployeeName:         "Budi Santoso",
		Entity:               "ID01",
		ProfitCenter:         "SS",
		CostCenter:           "CC100",
		TravelEventStartDate: "2025-03-24",
		TravelEventEndDate:   "2025-03-27",
	}
	item := RawLineItem{Merchant: "Garuda Indonesia", Description: "Flight ticket CGK - SIN", OriginalCurrency: "IDR", OriginalAmount: 5400000}

	tests := []struct {
		name         string
		key          ClassificationKey
		wantKey      ClassificationKey
		wantModelKey string
		wantClaim    string
		wantSub      string
		wantCOA      string
	}{
		{
			name:      "known key",
			key:       "Business-Travel_Travel-Overseas-Flight",
			wantKey:   "Business-Travel_Travel-Overseas-Flight",
			wantClaim: "Business Travel",
			wantSub:   "Travel - Overseas - Flight",
			wantCOA:   "508001",
		},
		{
			name:         "unknown key",
			key:          "garbage_key",
			wantKey:      "Default_Uncategorized",
			wantModelKey: "garbage_key",
			wantClaim:    "Uncategorized",
			wantSub:      "Needs Review",
			wantCOA:      "999999",
		},
		{
			name:         "empty key",
			key:          "",
			wantKey:      "Default_Uncategorized",
			wantModelKey: "",
			wantClaim:    "Uncategorized",
			wantSub:      "Needs Review",
			wantCOA:      "999999",
		},
		{
			name:      "settlement coa",
			key:       "Petty-Cash_Depends-of-the-settlement-expenses",
			wantKey:   "Petty-Cash_Depends-of-the-settlement-expenses",
			wantClaim: "Petty Cash",
			wantSub:   "Depends of the settlement expenses",
			wantCOA:   "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Enrich(table, tt.key, item, gc)

			assert.Equal(t, tt.wantKey, got.ClassificationKey)
			assert.Equal(t, tt.wantModelKey, got.ModelKey)
			assert.Equal(t, tt.wantClaim, got.CategoryClaim)
			assert.Equal(t, tt.wantSub, got.SubCategory)
			assert.Equal(t, tt.wantCOA, got.COA)
			assert.Equal(t, item, got.RawLineItem)
			assert.Equal(t, "EMP001", got.EmployeeID)
			assert.Equal(t, "2025-03-27", got.TravelEndDate)
		})
	}
}

func TestEnrich_TotalAndIdempotent(t *testing.T) {
	table := testTable(t)
	item := RawLineItem{Description: "Team dinner"}
	gc := GlobalContext{EmployeeID: "E9"}

	for _, rec := range table.Records() {
		got := Enrich(table, rec.Key, item, gc)
		assert.Equal(t, rec, got.CategoryRecord)
		assert.Empty(t, got.ModelKey)

		again := Enrich(table, got.ClassificationKey, got.RawLineItem, gc)
		assert.Equal(t, got, again)
	}

	for _, key := range []ClassificationKey{"", "x", "business-travel_travel-overseas-flight", "Default_Uncategorized "} {
		got := Enrich(table, key, item, gc)
		assert.Equal(t, table.Default(), got.CategoryRecord, "key %q", key)
		assert.Equal(t, got.CategoryRecord, Enrich(table, got.ClassificationKey, item, gc).CategoryRecord)
	}
}

func TestEnrichAll_PreservesOrder(t *testing.T) {
	table := testTable(t)
	classified := []Classified{
		{Index: 0, Item: RawLineItem{Description: "a"}, Key: "Training_Training-employee"},
		{Index: 2, Item: RawLineItem{Description: "c"}, Key: "nope"},
	}

	got := EnrichAll(table, classified, GlobalContext{})
	assert.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Description)
	assert.Equal(t, "c", got[1].Description)
	assert.Equal(t, ClassificationKey("Default_Uncategorized"), got[1].ClassificationKey)

	assert.Empty(t, EnrichAll(table, nil, GlobalContext{}))
}
