package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// Supported search providers
const (
	ProviderDuckDuckGo = "duckduckgo"
	ProviderTavily     = "tavily"
	ProviderBrave      = "brave"
)

const (
	// MaxSearchResults is how many hits a search returns at most
	MaxSearchResults = 5

	// MaxFullContentResults caps the full-article fetch count setting
	MaxFullContentResults = 5

	// MaxContentChars caps extracted page text before it enters a prompt
	MaxContentChars = 8000

	// SearchTimeout is the HTTP timeout for one provider request
	SearchTimeout = 15 * time.Second

	// ContentFetchTimeout is the HTTP timeout for one article fetch
	ContentFetchTimeout = 20 * time.Second

	// BrowserUserAgent is sent on scraping requests; some sites refuse
	// requests without a browser-looking agent
	BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36"
)

// ValidSearchProvider reports whether name is a supported search provider
func ValidSearchProvider(name string) bool {
	switch name {
	case ProviderDuckDuckGo, ProviderTavily, ProviderBrave:
		return true
	}
	return false
}

// ProviderNeedsKey reports whether the provider requires an API key.
// DuckDuckGo is scraped anonymously and needs none.
func ProviderNeedsKey(name string) bool {
	return name == ProviderTavily || name == ProviderBrave
}

// ProviderIncludesFullContent reports whether the provider's results already
// carry full page content, making the separate article fetch unnecessary
func ProviderIncludesFullContent(name string) bool {
	return name == ProviderTavily
}

// PerformWebSearch runs the query through the provider configured in
// settings and returns the results, with full article content filled in for
// the first few hits when the provider doesn't deliver it itself.
func PerformWebSearch(ctx context.Context, query string) ([]SearchResult, error) {
	settings, err := GetSettings()
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	var results []SearchResult
	switch settings.SearchProvider {
	case ProviderTavily:
		results, err = SearchTavily(ctx, query, settings.TavilyAPIKey)
	case ProviderBrave:
		results, err = SearchBrave(ctx, query, settings.BraveAPIKey)
	default:
		results, err = SearchDuckDuckGo(ctx, query)
	}
	if err != nil {
		return nil, err
	}

	if !ProviderIncludesFullContent(settings.SearchProvider) {
		FetchFullContent(ctx, results, settings.FullContentResults)
	}

	return results, nil
}

// FormatSearchResults renders results as a context block for council prompts
func FormatSearchResults(results []SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("Web search results:\n\n")
	for i, r := range results {
		b.WriteString(fmt.Sprintf("Result %d:\n", i+1))
		b.WriteString(fmt.Sprintf("Title: %s\n", r.Title))
		b.WriteString(fmt.Sprintf("URL: %s\n", r.URL))
		if r.Content != "" {
			b.WriteString(fmt.Sprintf("Content: %s\n", r.Content))
		} else if r.Snippet != "" {
			b.WriteString(fmt.Sprintf("Snippet: %s\n", r.Snippet))
		}
		b.WriteString("\n")
	}

	return strings.TrimSuffix(b.String(), "\n")
}

// SearchDuckDuckGo scrapes the DuckDuckGo HTML endpoint. No API key needed.
func SearchDuckDuckGo(ctx context.Context, query string) ([]SearchResult, error) {
	form := url.Values{}
	form.Set("q", query)

	req, err := http.NewRequestWithContext(ctx, "POST", DuckDuckGoAPIURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", BrowserUserAgent)

	client := &http.Client{
		Timeout: SearchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query DuckDuckGo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("DuckDuckGo returned status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	var results []SearchResult
	doc.Find(".result").EachWithBreak(func(i int, s *goquery.Selection) bool {
		titleLink := s.Find(".result__a").First()
		title := strings.TrimSpace(titleLink.Text())
		href, _ := titleLink.Attr("href")
		if title == "" || href == "" {
			return true
		}

		results = append(results, SearchResult{
			Title:   title,
			URL:     decodeDuckDuckGoURL(href),
			Snippet: strings.TrimSpace(s.Find(".result__snippet").Text()),
		})

		return len(results) < MaxSearchResults
	})

	return results, nil
}

// decodeDuckDuckGoURL unwraps the redirect links the HTML endpoint uses.
// Links look like "//duckduckgo.com/l/?uddg=<escaped-target>&rut=...".
func decodeDuckDuckGoURL(href string) string {
	if strings.HasPrefix(href, "//") {
		href = "https:" + href
	}

	parsed, err := url.Parse(href)
	if err != nil {
		return href
	}

	if target := parsed.Query().Get("uddg"); target != "" {
		return target
	}
	return href
}

// tavilyRequest is the Tavily search API request body
type tavilyRequest struct {
	APIKey            string `json:"api_key"`
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

// tavilyResponse is the Tavily search API response body
type tavilyResponse struct {
	Results []struct {
		Title      string `json:"title"`
		URL        string `json:"url"`
		Content    string `json:"content"`
		RawContent string `json:"raw_content"`
	} `json:"results"`
}

// SearchTavily queries the Tavily search API. Raw page content is requested
// up front, so no separate article fetch is needed afterwards.
func SearchTavily(ctx context.Context, query, apiKey string) ([]SearchResult, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("tavily API key is not configured")
	}

	payload := tavilyRequest{
		APIKey:            apiKey,
		Query:             query,
		MaxResults:        MaxSearchResults,
		IncludeRawContent: true,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", TavilyAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: SearchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Tavily: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Tavily returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var results []SearchResult
	for _, r := range parsed.Results {
		content := r.RawContent
		if len(content) > MaxContentChars {
			content = content[:MaxContentChars] + "..."
		}
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Content,
			Content: content,
		})
		if len(results) >= MaxSearchResults {
			break
		}
	}

	return results, nil
}

// braveResponse is the Brave web search API response body
type braveResponse struct {
	Web struct {
		Results []struct {
			Title       string `json:"title"`
			URL         string `json:"url"`
			Description string `json:"description"`
		} `json:"results"`
	} `json:"web"`
}

// SearchBrave queries the Brave Search API
func SearchBrave(ctx context.Context, query, apiKey string) ([]SearchResult, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("brave API key is not configured")
	}

	searchURL := fmt.Sprintf("%s?q=%s&count=%d", BraveAPIURL, url.QueryEscape(query), MaxSearchResults)
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", apiKey)

	client := &http.Client{
		Timeout: SearchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query Brave: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Brave returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	var results []SearchResult
	for _, r := range parsed.Web.Results {
		results = append(results, SearchResult{
			Title:   r.Title,
			URL:     r.URL,
			Snippet: r.Description,
		})
		if len(results) >= MaxSearchResults {
			break
		}
	}

	return results, nil
}

// FetchFullContent fills in full article text for the first n results, in
// place. Failed fetches leave the snippet as the fallback; a page that won't
// load must not sink the whole search.
func FetchFullContent(ctx context.Context, results []SearchResult, n int) {
	if n > len(results) {
		n = len(results)
	}
	if n <= 0 {
		return
	}

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		i := i // Capture loop variable
		g.Go(func() error {
			content, err := FetchURLContent(ctx, results[i].URL)
			if err != nil {
				log.Printf("Warning: failed to fetch content for %s: %v", results[i].URL, err)
				return nil
			}
			results[i].Content = content
			return nil
		})
	}
	g.Wait()
}

// FetchURLContent downloads a page and extracts its readable text.
// Scripts, styles and navigation chrome are stripped; the article element is
// preferred over the whole body when the page has one.
func FetchURLContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	// Set headers to mimic a browser
	req.Header.Set("User-Agent", BrowserUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")

	client := &http.Client{
		Timeout: ContentFetchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to parse HTML: %w", err)
	}

	doc.Find("script, style, noscript, nav, header, footer, iframe").Remove()

	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("body")
	}

	text := collapseWhitespace(root.Text())
	if len(text) > MaxContentChars {
		text = text[:MaxContentChars] + "..."
	}

	return text, nil
}

// collapseWhitespace trims every line and drops blank ones, keeping one
// newline between the rest
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	var kept []string
	for _, line := range lines {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		kept = append(kept, strings.Join(fields, " "))
	}
	return strings.Join(kept, "\n")
}

// VerifyTavilyKey checks a Tavily API key with a minimal search call
func VerifyTavilyKey(ctx context.Context, key string) KeyTestResponse {
	payload := tavilyRequest{
		APIKey:     key,
		Query:      "test",
		MaxResults: 1,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not build request: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", TavilyAPIURL, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not build request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: SearchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not reach Tavily: %v", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return KeyTestResponse{Success: true, Message: "Tavily API key is valid"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return KeyTestResponse{Success: false, Message: "Invalid Tavily API key"}
	default:
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Tavily returned status %d", resp.StatusCode)}
	}
}

// VerifyBraveKey checks a Brave Search API key with a minimal search call
func VerifyBraveKey(ctx context.Context, key string) KeyTestResponse {
	searchURL := fmt.Sprintf("%s?q=test&count=1", BraveAPIURL)
	req, err := http.NewRequestWithContext(ctx, "GET", searchURL, nil)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not build request: %v", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", key)

	client := &http.Client{
		Timeout: SearchTimeout,
	}
	resp, err := client.Do(req)
	if err != nil {
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Could not reach Brave: %v", err)}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return KeyTestResponse{Success: true, Message: "Brave API key is valid"}
	case http.StatusUnauthorized, http.StatusForbidden:
		return KeyTestResponse{Success: false, Message: "Invalid Brave API key"}
	default:
		return KeyTestResponse{Success: false, Message: fmt.Sprintf("Brave returned status %d", resp.StatusCode)}
	}
}
