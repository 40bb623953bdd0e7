package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kentandrian/vertexai-demos/internal/api/middleware"
	"github.com/kentandrian/vertexai-demos/internal/hoteltags"
)

// HotelScraper collects a hotel's images and reviews.
type HotelScraper interface {
	Scrape(ctx context.Context, pageURL string) (*hoteltags.HotelPage, error)
}

// HotelTagger generates tags for a scraped hotel.
type HotelTagger interface {
	Generate(ctx context.Context, page *hoteltags.HotelPage) (*hoteltags.Result, error)
}

// HotelTagsHandler serves the hotel tag generator.
type HotelTagsHandler struct {
	scraper HotelScraper
	tagger  HotelTagger
}

// NewHotelTagsHandler creates a hotel tags handler.
func NewHotelTagsHandler(scraper HotelScraper, tagger HotelTagger) *HotelTagsHandler {
	return &HotelTagsHandler{scraper: scraper, tagger: tagger}
}

// Generate handles POST /api/hotel-tags
func (h *HotelTagsHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "Invalid request body")
		return
	}
	if _, err := hoteltags.NormalizePageURL(req.URL); err != nil {
		badRequest(w, err.Error())
		return
	}

	page, err := h.scraper.Scrape(r.Context(), req.URL)
	if err != nil {
		log := loggerFor(r)
		log.Warn().Err(err).Str("url", req.URL).Msg("Failed to scrape hotel page")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to scrape hotel page: "+err.Error())
		return
	}

	res, err := h.tagger.Generate(r.Context(), page)
	if err != nil {
		writeErr(w, r, err, "Failed to generate tags")
		return
	}

	resp := map[string]interface{}{"result": res}
	if top, err := hoteltags.ParseTopTags(res.TopTags); err == nil {
		resp["top_tags"] = top
	}
	middleware.WriteJSON(w, http.StatusOK, resp)
}
