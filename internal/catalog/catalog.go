// Package catalog lists the demos offered by the CLI and the HTTP service.
package catalog

// Page is one demo.
type Page struct {
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Icon    string `json:"icon"`
	Group   string `json:"group"`
	Route   string `json:"route"`
	Command string `json:"command"`
}

// Link is an external "learn more" reference.
type Link struct {
	URL   string `json:"url"`
	Label string `json:"label"`
	Icon  string `json:"icon"`
}

// Group names, in display order.
const (
	GroupEnglish  = "English Demos"
	GroupFinance  = "Finance Demos"
	GroupJapanese = "Japanese Demos"
	GroupSearch   = "Search Demos"
)

var pages = []Page{
	{Slug: "exchange-rate", Title: "Exchange Rate", Icon: "💰", Group: GroupEnglish, Route: "/api/exchange-rate", Command: "exchange-rate"},
	{Slug: "trip-planner", Title: "Trip Planner", Icon: "✈️", Group: GroupEnglish, Route: "/api/trip", Command: "trip"},
	{Slug: "e-bupot", Title: "E-Bukti Potong", Icon: "💲", Group: GroupFinance, Route: "/api/extract/ebupot", Command: "extract ebupot"},
	{Slug: "invoice", Title: "Invoice Data Extraction", Icon: "💲", Group: GroupFinance, Route: "/api/extract/invoice", Command: "extract invoice"},
	{Slug: "employee-claim", Title: "Employee Claim", Icon: "📄", Group: GroupFinance, Route: "/api/claims", Command: "claim process"},
	{Slug: "hotel-tags", Title: "ホテルタグ (Hotel Tags)", Icon: "🏷️", Group: GroupJapanese, Route: "/api/hotel-tags", Command: "hotel-tags"},
	{Slug: "tanya-pajak", Title: "TanyaPajak", Icon: "🔍", Group: GroupSearch, Route: "/api/tax-chat", Command: "tax-chat"},
}

var links = []Link{
	{URL: "https://cloud.google.com/vertex-ai", Label: "About Vertex AI", Icon: "☁️"},
	{URL: "https://cloud.google.com/vertex-ai/docs/", Label: "Vertex AI Docs", Icon: "📖"},
	{URL: "https://cloud.google.com/vertex-ai/pricing", Label: "Vertex AI Pricing", Icon: "💰"},
	{URL: "https://ai.google.dev", Label: "Build with Gemini | Google AI for Developers", Icon: "💡"},
}

// Pages returns every demo in display order.
func Pages() []Page {
	return append([]Page(nil), pages...)
}

// Links returns the learn-more links.
func Links() []Link {
	return append([]Link(nil), links...)
}

// Groups returns the pages grouped by Group, with groups in first-seen order.
func Groups() []GroupedPages {
	var out []GroupedPages
	index := make(map[string]int)
	for _, p := range pages {
		i, ok := index[p.Group]
		if !ok {
			i = len(out)
			index[p.Group] = i
			out = append(out, GroupedPages{Name: p.Group})
		}
		out[i].Pages = append(out[i].Pages, p)
	}
	return out
}

// GroupedPages is one navigation group.
type GroupedPages struct {
	Name  string `json:"name"`
	Pages []Page `json:"pages"`
}

// Find returns the page with slug.
func Find(slug string) (Page, bool) {
	for _, p := range pages {
		if p.Slug == slug {
			return p, true
		}
	}
	return Page{}, false
}
