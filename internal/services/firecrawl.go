package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mendableai/firecrawl-go"

	"speaker-events-finder/internal/models"
)

const defaultFireCrawlURL = "https://api.firecrawl.dev"

// FireCrawlConfig configures the FireCrawl client
type FireCrawlConfig struct {
	APIKey       string
	BaseURL      string
	PollInterval time.Duration
	Timeout      time.Duration
	Retry        RetryConfig
}

// FireCrawlClient talks to FireCrawl for web search, batch structured extraction and
// single page markdown scrapes. It implements Gateway.
type FireCrawlClient struct {
	app          *firecrawl.FirecrawlApp
	httpClient   *http.Client
	baseURL      string
	apiKey       string
	pollInterval time.Duration
	timeout      time.Duration
	retryConfig  RetryConfig
}

// firecrawlEnvelope covers the response shapes of search, batch start and batch status
type firecrawlEnvelope struct {
	Success *bool           `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
	ID      string          `json:"id"`
	Status  string          `json:"status"`
	Next    string          `json:"next"`
	Total   int             `json:"total"`
	Done    int             `json:"completed"`
}

type firecrawlSearchHit struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type batchDocument struct {
	JSON     interface{} `json:"json"`
	Extract  interface{} `json:"extract"`
	Metadata struct {
		SourceURL  string `json:"sourceURL"`
		URL        string `json:"url"`
		StatusCode int    `json:"statusCode"`
		Error      string `json:"error"`
	} `json:"metadata"`
}

// NewFireCrawlClient creates a new FireCrawl client
func NewFireCrawlClient(cfg FireCrawlConfig) (*FireCrawlClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("FIRECRAWL_API_KEY is required")
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultFireCrawlURL
	}

	app, err := firecrawl.NewFirecrawlApp(cfg.APIKey, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize FireCrawl client: %w", err)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 2 * time.Second
	}

	retry := cfg.Retry
	if retry == (RetryConfig{}) {
		retry = DefaultRetryConfig
	}

	return &FireCrawlClient{
		app:          app,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		baseURL:      baseURL,
		apiKey:       cfg.APIKey,
		pollInterval: pollInterval,
		timeout:      cfg.Timeout,
		retryConfig:  retry,
	}, nil
}

// Search runs a web search and returns the hits in provider order
func (fc *FireCrawlClient) Search(ctx context.Context, query string, limit int) (*models.SearchResultSet, error) {
	ctx, cancel := fc.withTimeout(ctx)
	defer cancel()

	request := map[string]interface{}{
		"query": query,
		"limit": limit,
	}

	var response firecrawlEnvelope
	if err := fc.doJSON(ctx, http.MethodPost, fc.baseURL+"/v2/search", request, &response); err != nil {
		return nil, newGatewayError(OpSearch, err)
	}
	if response.Success != nil && !*response.Success {
		return nil, newGatewayError(OpSearch, fmt.Errorf("search unsuccessful: %s", response.Error))
	}

	hits, err := parseSearchData(response.Data)
	if err != nil {
		return nil, newGatewayError(OpSearch, err)
	}

	log.Printf("[FIRECRAWL] Search returned %d hits for %q", len(hits), query)
	return &models.SearchResultSet{Query: query, Web: hits}, nil
}

// BulkExtract starts a batch scrape with a JSON extraction format, waits for it to finish
// and maps every document back to its requested URL
func (fc *FireCrawlClient) BulkExtract(ctx context.Context, urls []string, schema map[string]interface{}, prompt string) ([]models.ExtractionResult, error) {
	if len(urls) == 0 {
		return []models.ExtractionResult{}, nil
	}

	ctx, cancel := fc.withTimeout(ctx)
	defer cancel()

	startTime := time.Now()
	request := map[string]interface{}{
		"urls": urls,
		"formats": []interface{}{
			map[string]interface{}{
				"type":   "json",
				"schema": schema,
				"prompt": prompt,
			},
		},
		"ignoreInvalidURLs": true,
	}

	var started firecrawlEnvelope
	if err := fc.doJSON(ctx, http.MethodPost, fc.baseURL+"/v2/batch/scrape", request, &started); err != nil {
		return nil, newGatewayError(OpBulkExtract, err)
	}
	if started.ID == "" {
		return nil, newGatewayError(OpBulkExtract, fmt.Errorf("batch scrape not started: %s", started.Error))
	}

	log.Printf("[FIRECRAWL] Batch %s started for %d URLs", started.ID, len(urls))

	documents, err := fc.waitForBatch(ctx, started.ID)
	if err != nil {
		return nil, newGatewayError(OpBulkExtract, err)
	}

	results := matchBatchDocuments(urls, documents)
	log.Printf("[FIRECRAWL] Batch %s finished with %d documents in %v", started.ID, len(documents), time.Since(startTime))
	return results, nil
}

// waitForBatch polls the batch until it completes and gathers every page of documents
func (fc *FireCrawlClient) waitForBatch(ctx context.Context, id string) ([]batchDocument, error) {
	statusURL := fmt.Sprintf("%s/v2/batch/scrape/%s", fc.baseURL, id)

	for {
		var status firecrawlEnvelope
		if err := fc.doJSON(ctx, http.MethodGet, statusURL, nil, &status); err != nil {
			return nil, err
		}

		switch status.Status {
		case "completed":
			return fc.collectPages(ctx, status)
		case "failed", "cancelled":
			return nil, fmt.Errorf("batch %s %s: %s", id, status.Status, status.Error)
		}

		log.Printf("[FIRECRAWL] Batch %s %s (%d/%d)", id, status.Status, status.Done, status.Total)
		if err := sleepContext(ctx, fc.pollInterval); err != nil {
			return nil, err
		}
	}
}

// collectPages follows the next links of a completed batch
func (fc *FireCrawlClient) collectPages(ctx context.Context, page firecrawlEnvelope) ([]batchDocument, error) {
	var documents []batchDocument

	for {
		if len(page.Data) > 0 && string(page.Data) != "null" {
			var pageDocs []batchDocument
			if err := json.Unmarshal(page.Data, &pageDocs); err != nil {
				return nil, fmt.Errorf("failed to decode batch documents: %w", err)
			}
			documents = append(documents, pageDocs...)
		}

		if page.Next == "" {
			return documents, nil
		}

		next := page.Next
		page = firecrawlEnvelope{}
		if err := fc.doJSON(ctx, http.MethodGet, next, nil, &page); err != nil {
			return nil, err
		}
	}
}

// ScrapeMarkdown fetches a single page as markdown
func (fc *FireCrawlClient) ScrapeMarkdown(ctx context.Context, url string) (string, error) {
	type scrapeOutcome struct {
		response interface{}
		err      error
	}

	done := make(chan scrapeOutcome, 1)
	go func() {
		var outcome scrapeOutcome
		outcome.response, outcome.err = fc.app.ScrapeURL(url, nil)
		done <- outcome
	}()

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case outcome := <-done:
		if outcome.err != nil {
			return "", &GatewayError{Op: OpScrape, URL: url, Err: outcome.err}
		}
		doc, ok := outcome.response.(*firecrawl.FirecrawlDocument)
		if !ok {
			return "", &GatewayError{Op: OpScrape, URL: url, Err: fmt.Errorf("unexpected response type %T", outcome.response)}
		}
		if doc == nil || strings.TrimSpace(doc.Markdown) == "" {
			return "", &GatewayError{Op: OpScrape, URL: url, Err: errors.New("empty markdown")}
		}
		return doc.Markdown, nil
	}
}

// FetchMarkdown implements ContentSource
func (fc *FireCrawlClient) FetchMarkdown(ctx context.Context, url string) (string, error) {
	return fc.ScrapeMarkdown(ctx, url)
}

func (fc *FireCrawlClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if fc.timeout > 0 {
		return context.WithTimeout(ctx, fc.timeout)
	}
	return context.WithCancel(ctx)
}

// doJSON sends a JSON request with retries and decodes the JSON response into out
func (fc *FireCrawlClient) doJSON(ctx context.Context, method, url string, payload, out interface{}) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = encoded
	}

	var lastErr error
	for attempt := 0; attempt <= fc.retryConfig.MaxRetries; attempt++ {
		lastErr = fc.attemptJSON(ctx, method, url, body, out)
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			break
		}

		if attempt < fc.retryConfig.MaxRetries {
			delay := fc.retryConfig.Delay(attempt)
			log.Printf("[FIRECRAWL] Attempt %d for %s %s failed, retrying in %v: %v", attempt+1, method, url, delay, lastErr)
			if err := sleepContext(ctx, delay); err != nil {
				return err
			}
		}
	}

	return lastErr
}

func (fc *FireCrawlClient) attemptJSON(ctx context.Context, method, url string, body []byte, out interface{}) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+fc.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := fc.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("firecrawl request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{Service: "firecrawl", StatusCode: resp.StatusCode, Body: string(text)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode firecrawl response: %w", err)
	}
	return nil
}

// parseSearchData accepts data as an object with a web section or as a bare list, and
// each hit as an object or a plain URL string
func parseSearchData(raw json.RawMessage) ([]models.SearchHit, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || string(trimmed) == "null" {
		return nil, nil
	}

	var items []json.RawMessage
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
	} else {
		var sections map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &sections); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
		web, ok := sections["web"]
		if !ok || string(web) == "null" {
			return nil, nil
		}
		if err := json.Unmarshal(web, &items); err != nil {
			return nil, fmt.Errorf("failed to decode web results: %w", err)
		}
	}

	hits := make([]models.SearchHit, 0, len(items))
	for _, item := range items {
		var url string
		if err := json.Unmarshal(item, &url); err == nil {
			hits = append(hits, models.SearchHit{URL: url})
			continue
		}

		var hit firecrawlSearchHit
		if err := json.Unmarshal(item, &hit); err != nil {
			continue
		}
		hits = append(hits, models.SearchHit{URL: hit.URL, Title: hit.Title, Description: hit.Description})
	}

	return hits, nil
}

// matchBatchDocuments returns one result per requested URL in request order. Documents the
// provider returned for URLs outside the request are appended after them.
func matchBatchDocuments(urls []string, documents []batchDocument) []models.ExtractionResult {
	byURL := make(map[string]int, len(documents))
	for i, doc := range documents {
		for _, key := range []string{doc.Metadata.SourceURL, doc.Metadata.URL} {
			if _, seen := byURL[key]; key != "" && !seen {
				byURL[key] = i
			}
		}
	}

	used := make(map[int]bool, len(documents))
	results := make([]models.ExtractionResult, 0, len(urls))

	for _, url := range urls {
		i, ok := byURL[url]
		if !ok || used[i] {
			results = append(results, models.ExtractionResult{URL: url, Err: errors.New("no document returned")})
			continue
		}
		used[i] = true
		results = append(results, documentResult(url, documents[i]))
	}

	for i, doc := range documents {
		if used[i] {
			continue
		}
		url := doc.Metadata.SourceURL
		if url == "" {
			url = doc.Metadata.URL
		}
		results = append(results, documentResult(url, doc))
	}

	return results
}

func documentResult(url string, doc batchDocument) models.ExtractionResult {
	if doc.Metadata.Error != "" {
		return models.ExtractionResult{URL: url, Err: errors.New(doc.Metadata.Error)}
	}
	if doc.Metadata.StatusCode >= 400 {
		return models.ExtractionResult{URL: url, Err: fmt.Errorf("page returned status %d", doc.Metadata.StatusCode)}
	}

	payload := doc.JSON
	if payload == nil {
		payload = doc.Extract
	}

	events, err := ParseExtractionPayload(payload, url)
	if err != nil {
		return models.ExtractionResult{URL: url, Err: err}
	}
	return models.ExtractionResult{URL: url, Events: events}
}
