package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"speaker-events-finder/internal/models"
)

// Searcher runs web searches
type Searcher interface {
	Search(ctx context.Context, query string, limit int) (*models.SearchResultSet, error)
}

// ContentSource fetches a page as markdown
type ContentSource interface {
	FetchMarkdown(ctx context.Context, url string) (string, error)
}

// EventExtractor turns page content into events
type EventExtractor interface {
	ExtractEvents(ctx context.Context, content, sourceURL string, schema map[string]interface{}, prompt string) (*OpenAIExtractionResponse, error)
}

// FallbackContent tries each source in order and returns the first page it gets
type FallbackContent []ContentSource

// FetchMarkdown implements ContentSource
func (f FallbackContent) FetchMarkdown(ctx context.Context, url string) (string, error) {
	var errs []error
	for _, source := range f {
		content, err := source.FetchMarkdown(ctx, url)
		if err == nil {
			return content, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[GATEWAY] Content source failed for %s, trying next: %v", url, err)
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return "", fmt.Errorf("no content sources configured")
	}
	return "", errors.Join(errs...)
}

// LLMGatewayConfig bounds the per-URL extraction fan-out
type LLMGatewayConfig struct {
	Concurrency       int
	RequestsPerSecond float64
	Burst             int
	Timeout           time.Duration
}

// LLMGateway searches through a Searcher and extracts each page individually by fetching
// its markdown and asking a language model for the events
type LLMGateway struct {
	searcher    Searcher
	content     ContentSource
	extractor   EventExtractor
	limiter     *rate.Limiter
	concurrency int
	timeout     time.Duration
}

// NewLLMGateway creates a gateway for per-page model extraction
func NewLLMGateway(searcher Searcher, content ContentSource, extractor EventExtractor, cfg LLMGatewayConfig) *LLMGateway {
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 3
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = concurrency
	}

	return &LLMGateway{
		searcher:    searcher,
		content:     content,
		extractor:   extractor,
		limiter:     rate.NewLimiter(limit, burst),
		concurrency: concurrency,
		timeout:     cfg.Timeout,
	}
}

// Search implements Gateway
func (g *LLMGateway) Search(ctx context.Context, query string, limit int) (*models.SearchResultSet, error) {
	return g.searcher.Search(ctx, query, limit)
}

// BulkExtract implements Gateway. Per-URL failures become malformed results; the whole
// call fails only when the context is cancelled or the timeout expires.
func (g *LLMGateway) BulkExtract(ctx context.Context, urls []string, schema map[string]interface{}, prompt string) ([]models.ExtractionResult, error) {
	startTime := time.Now()

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	var wg sync.WaitGroup
	results := make([]models.ExtractionResult, len(urls))
	semaphore := make(chan struct{}, g.concurrency)

	for i, url := range urls {
		wg.Add(1)
		go func(index int, pageURL string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			results[index] = g.extractOne(ctx, pageURL, schema, prompt)
		}(i, url)
	}

	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, newGatewayError(OpBulkExtract, err)
	}

	log.Printf("[GATEWAY] Extracted %d URLs in %v", len(urls), time.Since(startTime))
	return results, nil
}

func (g *LLMGateway) extractOne(ctx context.Context, url string, schema map[string]interface{}, prompt string) models.ExtractionResult {
	if err := g.limiter.Wait(ctx); err != nil {
		return models.ExtractionResult{URL: url, Err: err}
	}

	content, err := g.content.FetchMarkdown(ctx, url)
	if err != nil {
		log.Printf("[GATEWAY] Failed to fetch %s: %v", url, err)
		return models.ExtractionResult{URL: url, Err: err}
	}

	response, err := g.extractor.ExtractEvents(ctx, content, url, schema, prompt)
	if err != nil {
		log.Printf("[GATEWAY] Failed to extract %s: %v", url, err)
		return models.ExtractionResult{URL: url, Err: err}
	}

	return models.ExtractionResult{URL: url, Events: response.Events}
}
