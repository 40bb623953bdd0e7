// Package hoteltags scrapes a Jalan hotel page and asks Gemini for descriptive
// tags from the images and reviews, then for the five strongest selling points.
package hoteltags

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"
)

// Default scraper settings.
const (
	DefaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/100.0.4896.127 Safari/537.36"
	DefaultReferer   = "https://www.jalan.net/"
	DefaultMaxImages = 16
)

// HotelPage is what the scraper collects for one hotel.
type HotelPage struct {
	URL       string   `json:"url"`
	Name      string   `json:"hotel_name"`
	ImageURLs []string `json:"image_urls"`
	Reviews   []Review `json:"reviews"`
}

// Review is one guest review.
type Review struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// ScraperOptions configure a Scraper. Zero values take the defaults.
type ScraperOptions struct {
	UserAgent string
	Referer   string
	Timeout   time.Duration
	MaxImages int
	// Limiter spaces out requests to the hotel site.
	Limiter *rate.Limiter
}

// Scraper fetches hotel and review pages.
type Scraper struct {
	client    *http.Client
	userAgent string
	referer   string
	maxImages int
	limiter   *rate.Limiter
}

// NewScraper creates a Scraper.
func NewScraper(opts ScraperOptions) *Scraper {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Referer == "" {
		opts.Referer = DefaultReferer
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxImages <= 0 {
		opts.MaxImages = DefaultMaxImages
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(2, 1)
	}
	return &Scraper{
		client:    &http.Client{Timeout: opts.Timeout},
		userAgent: opts.UserAgent,
		referer:   opts.Referer,
		maxImages: opts.MaxImages,
		limiter:   opts.Limiter,
	}
}

// NormalizePageURL checks that raw is an absolute http(s) URL and adds the trailing slash
// the review path is appended to.
func NormalizePageURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", eris.Wrapf(err, "NormalizePageURL: parse %q", raw)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", eris.Errorf("NormalizePageURL: %q is not an absolute http(s) URL", raw)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}

// Scrape collects the image URLs from the hotel page and the name and
// reviews from its kuchikomi (review) page.
func (s *Scraper) Scrape(ctx context.Context, pageURL string) (*HotelPage, error) {
	base, err := NormalizePageURL(pageURL)
	if err != nil {
		return nil, err
	}

	top, err := s.fetch(ctx, base)
	if err != nil {
		return nil, eris.Wrap(err, "Scrape: hotel page")
	}
	reviewsDoc, err := s.fetch(ctx, base+"kuchikomi/")
	if err != nil {
		return nil, eris.Wrap(err, "Scrape: review page")
	}

	page := &HotelPage{
		URL:       base,
		ImageURLs: imageURLs(top, base, s.maxImages),
		Name:      hotelName(reviewsDoc),
		Reviews:   reviews(reviewsDoc),
	}
	if page.Name == "" {
		return nil, eris.Errorf("Scrape: no hotel name found at %s", base)
	}
	return page, nil
}

func (s *Scraper) fetch(ctx context.Context, target string) (*html.Node, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: build request for %s", target)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Referer", s.referer)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: GET %s", target)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, eris.Errorf("fetch: GET %s returned status %d", target, resp.StatusCode)
	}

	body, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: detect charset of %s", target)
	}
	doc, err := html.Parse(body)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse %s", target)
	}
	return doc, nil
}

func imageURLs(doc *html.Node, base string, limit int) []string {
	baseURL, _ := url.Parse(base)
	var urls []string
	for _, p := range findAll(doc, func(n *html.Node) bool {
		return isElement(n, "p") && hasClass(n, "jlnpc-slideImage__item--img")
	}) {
		img := findFirst(p, func(n *html.Node) bool { return isElement(n, "img") })
		if img == nil {
			continue
		}
		src := attr(img, "src")
		if src == "" {
			continue
		}
		if ref, err := url.Parse(src); err == nil && baseURL != nil {
			src = baseURL.ResolveReference(ref).String()
		}
		urls = append(urls, src)
		if len(urls) == limit {
			break
		}
	}
	return urls
}

func hotelName(doc *html.Node) string {
	header := findFirst(doc, func(n *html.Node) bool {
		return isElement(n, "div") && attr(n, "id") == "yado_header_hotel_name"
	})
	if header == nil {
		return ""
	}
	a := findFirst(header, func(n *html.Node) bool { return isElement(n, "a") })
	if a == nil {
		return strings.TrimSpace(text(header))
	}
	return strings.TrimSpace(text(a))
}

func reviews(doc *html.Node) []Review {
	var out []Review
	for _, area := range findAll(doc, func(n *html.Node) bool {
		return isElement(n, "div") && hasClass(n, "jlnpc-kuchikomiCassette__rightArea")
	}) {
		var r Review
		if lead := findFirst(area, func(n *html.Node) bool {
			return isElement(n, "p") && hasClass(n, "jlnpc-kuchikomiCassette__lead")
		}); lead != nil {
			if a := findFirst(lead, func(n *html.Node) bool { return isElement(n, "a") }); a != nil {
				r.Title = strings.TrimSpace(text(a))
			} else {
				r.Title = strings.TrimSpace(text(lead))
			}
		}
		if body := findFirst(area, func(n *html.Node) bool {
			return isElement(n, "p") && hasClass(n, "jlnpc-kuchikomiCassette__postBody")
		}); body != nil {
			r.Body = strings.TrimSpace(text(body))
		}
		if r.Title != "" || r.Body != "" {
			out = append(out, r)
		}
	}
	return out
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(n, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if match(c) {
			return c
		}
		if found := findFirst(c, match); found != nil {
			return found
		}
	}
	return nil
}

func text(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}
