// Package fetcher downloads a listing page and reduces it to plain text
// suitable for the listing extractor.
package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	htmlmd "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	robotstxt "github.com/temoto/robotstxt"

	"github.com/fajarsembar01/home/internal/config"
)

var (
	// ErrInvalidURL is returned for unparsable or non-http(s) URLs.
	ErrInvalidURL = errors.New("invalid listing URL")
	// ErrDisallowed is returned when robots.txt forbids the page.
	ErrDisallowed = errors.New("fetch disallowed by robots.txt")
	// ErrBadStatus wraps non-2xx page responses.
	ErrBadStatus = errors.New("unexpected response status")
)

var blankLines = regexp.MustCompile(`\n{3,}`)

// Page is the text form of a fetched listing page
type Page struct {
	URL         string
	Title       string
	Description string
	Text        string
	Status      int
}

// Content joins title, description and body into one extraction input.
func (p *Page) Content() string {
	var parts []string
	for _, s := range []string{p.Title, p.Description, p.Text} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n\n")
}

// Fetcher downloads pages over HTTP
type Fetcher struct {
	client        *http.Client
	userAgent     string
	respectRobots bool
	maxBytes      int64
}

// New creates a fetcher from configuration
func New(cfg config.FetchConfig) *Fetcher {
	return &Fetcher{
		client:        &http.Client{Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond},
		userAgent:     cfg.UserAgent,
		respectRobots: cfg.RespectRobots,
		maxBytes:      cfg.MaxBytes,
	}
}

// Fetch downloads rawURL and converts the page body to markdown text.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	if f.respectRobots {
		if robots, err := f.fetchRobots(ctx, u); err == nil {
			if !robots.FindGroup(f.userAgent).Test(u.RequestURI()) {
				return nil, ErrDisallowed
			}
		}
	}

	body, status, err := f.get(ctx, u.String())
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrBadStatus, status)
	}

	page, err := parsePage(u, body)
	if err != nil {
		return nil, err
	}
	page.Status = status
	return page, nil
}

func (f *Fetcher) get(ctx context.Context, target string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, 0, err
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	var reader io.Reader = resp.Body
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", target, err)
	}
	return body, resp.StatusCode, nil
}

// fetchRobots fetches and parses robots.txt for the page host.
func (f *Fetcher) fetchRobots(ctx context.Context, page *url.URL) (*robotstxt.RobotsData, error) {
	robotsURL := &url.URL{
		Scheme: page.Scheme,
		Host:   page.Host,
		Path:   "/robots.txt",
	}

	body, status, err := f.get(ctx, robotsURL.String())
	if err != nil {
		return nil, err
	}
	return robotstxt.FromStatusAndBytes(status, body)
}

// parsePage strips page chrome and converts the remaining body to markdown.
func parsePage(u *url.URL, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	page := &Page{
		URL:   u.String(),
		Title: strings.TrimSpace(doc.Find("title").First().Text()),
	}
	if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	} else if desc, ok := doc.Find(`meta[property="og:description"]`).Attr("content"); ok {
		page.Description = strings.TrimSpace(desc)
	}

	doc.Find("script, style, noscript, nav, footer, iframe, svg").Remove()

	bodySel := doc.Find("body")
	if bodySel.Length() == 0 {
		bodySel = doc.Selection
	}

	html, err := bodySel.Html()
	if err == nil {
		converter := htmlmd.NewConverter(u.Hostname(), true, nil)
		if markdown, mdErr := converter.ConvertString(html); mdErr == nil {
			page.Text = cleanText(markdown)
			return page, nil
		}
	}

	page.Text = cleanText(bodySel.Text())
	return page, nil
}

func cleanText(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.TrimSpace(blankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}
