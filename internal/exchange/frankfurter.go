package exchange

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultBaseURL is the public Frankfurter endpoint.
const DefaultBaseURL = "https://api.frankfurter.app"

// Latest asks Frankfurter for the most recent published rates.
const Latest = "latest"

// Rates is a Frankfurter rates response.
type Rates struct {
	Amount float64            `json:"amount"`
	Base   string             `json:"base"`
	Date   string             `json:"date"`
	Rates  map[string]float64 `json:"rates"`
}

// Frankfurter is a small client for the Frankfurter exchange rate API.
type Frankfurter struct {
	baseURL string
	client  *http.Client
}

// NewFrankfurter creates a client. An empty baseURL uses DefaultBaseURL and a
// non-positive timeout uses 10 seconds.
func NewFrankfurter(baseURL string, timeout time.Duration) *Frankfurter {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Frankfurter{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Rate fetches the rate from one currency to another. date is YYYY-MM-DD or Latest.
func (f *Frankfurter) Rate(ctx context.Context, from, to, date string) (*Rates, error) {
	if date == "" {
		date = Latest
	}
	q := url.Values{}
	q.Set("from", strings.ToUpper(from))
	q.Set("to", strings.ToUpper(to))
	target := f.baseURL + "/" + url.PathEscape(date) + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrap(err, "Rate: build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "Rate: GET %s", target)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, eris.Wrap(err, "Rate: read body")
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Message != "" {
			return nil, eris.Errorf("Rate: frankfurter returned %d: %s", resp.StatusCode, apiErr.Message)
		}
		return nil, eris.Errorf("Rate: frankfurter returned %d", resp.StatusCode)
	}

	var rates Rates
	if err := json.Unmarshal(body, &rates); err != nil {
		return nil, eris.Wrap(err, "Rate: decode response")
	}
	return &rates, nil
}
