package claims

// Enrich merges the category record for key onto item, together with the
// report-level fields of gc. Unknown keys resolve to the table default, so
// Enrich always returns a complete row.
func Enrich(table *CategoryTable, key ClassificationKey, item RawLineItem, gc GlobalContext) EnrichedItem {
	rec, found := table.Resolve(key)

	out := EnrichedItem{
		ReportTitle:       gc.ReportTitle,
		EmployeeID:        gc.EmployeeID,
		EmployeeName:      gc.EmployeeName,
		Entity:            gc.Entity,
		ProfitCenter:      gc.ProfitCenter,
		CostCenter:        gc.CostCenter,
		TravelStartDate:   gc.TravelEventStartDate,
		TravelEndDate:     gc.TravelEventEndDate,
		RawLineItem:       item,
		ClassificationKey: rec.Key,
		CategoryRecord:    rec,
	}
	if !found {
		out.ModelKey = string(key)
	}
	return out
}

// EnrichAll enriches every classified item, preserving input order.
func EnrichAll(table *CategoryTable, classified []Classified, gc GlobalContext) []EnrichedItem {
	out := make([]EnrichedItem, 0, len(classified))
	for _, c := range classified {
		out = append(out, Enrich(table, c.Key, c.Item, gc))
	}
	return out
}
