package search

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// DefaultDuckDuckGoURL is the DuckDuckGo HTML endpoint.
const DefaultDuckDuckGoURL = "https://html.duckduckgo.com/html/"

// DuckDuckGoProvider scrapes the keyless DuckDuckGo HTML results page.
type DuckDuckGoProvider struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// DuckDuckGoOption configures a DuckDuckGoProvider.
type DuckDuckGoOption func(*DuckDuckGoProvider)

// WithDuckDuckGoBaseURL overrides the endpoint.
func WithDuckDuckGoBaseURL(u string) DuckDuckGoOption {
	return func(p *DuckDuckGoProvider) {
		if u != "" {
			p.baseURL = u
		}
	}
}

// WithDuckDuckGoClient sets the HTTP client.
func WithDuckDuckGoClient(c *http.Client) DuckDuckGoOption {
	return func(p *DuckDuckGoProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewDuckDuckGoProvider creates a DuckDuckGo provider.
func NewDuckDuckGoProvider(opts ...DuckDuckGoOption) *DuckDuckGoProvider {
	p := &DuckDuckGoProvider{
		baseURL:   DefaultDuckDuckGoURL,
		client:    defaultHTTPClient(),
		userAgent: "Mozilla/5.0 (compatible; react-agent)",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the provider name.
func (p *DuckDuckGoProvider) Name() string {
	return "duckduckgo"
}

// Search executes a DuckDuckGo search.
func (p *DuckDuckGoProvider) Search(ctx context.Context, query Query) ([]Result, error) {
	if query.Text == "" {
		return nil, ErrEmptyQuery
	}

	form := url.Values{}
	form.Set("q", query.Text)
	if region := duckDuckGoRegion(query); region != "" {
		form.Set("kl", region)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", p.userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, readError(p.Name(), resp)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("duckduckgo: parse html: %w", err)
	}

	results := make([]Result, 0)
	doc.Find(".result").Each(func(_ int, s *goquery.Selection) {
		if s.HasClass("result--ad") {
			return
		}
		anchor := s.Find("a.result__a").First()
		title := strings.TrimSpace(anchor.Text())
		if title == "" {
			return
		}
		href, _ := anchor.Attr("href")
		results = append(results, Result{
			Title:   title,
			Link:    resolveDuckDuckGoLink(href),
			Snippet: strings.Join(strings.Fields(s.Find(".result__snippet").Text()), " "),
		})
	})

	return limit(results, query.Num), nil
}

// duckDuckGoRegion maps hl/gl onto DuckDuckGo's kl parameter ("vn-vi").
func duckDuckGoRegion(q Query) string {
	if q.Country == "" || q.Language == "" {
		return ""
	}
	return strings.ToLower(q.Country) + "-" + strings.ToLower(q.Language)
}

// resolveDuckDuckGoLink unwraps the /l/?uddg= redirect DuckDuckGo puts on result links.
func resolveDuckDuckGoLink(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if target := u.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}
