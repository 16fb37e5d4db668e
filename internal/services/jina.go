package services

import (
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

// JinaClient fetches readable page content through the Jina AI Reader
type JinaClient struct {
	httpClient  *http.Client
	baseURL     string
	userAgents  []string
	retryConfig RetryConfig
}

// RetryConfig defines retry behavior for failed requests
type RetryConfig struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryConfig is used by the HTTP clients unless overridden
var DefaultRetryConfig = RetryConfig{
	MaxRetries:    3,
	InitialDelay:  1 * time.Second,
	MaxDelay:      10 * time.Second,
	BackoffFactor: 2.0,
}

// Delay returns the backoff before the given retry attempt (0-based), with up to 10% jitter
func (r RetryConfig) Delay(attempt int) time.Duration {
	delay := float64(r.InitialDelay)*math.Pow(r.BackoffFactor, float64(attempt)) +
		rand.Float64()*0.1*float64(r.InitialDelay)

	if delay > float64(r.MaxDelay) {
		delay = float64(r.MaxDelay)
	}

	return time.Duration(delay)
}

// statusError is a non-2xx response from an upstream HTTP API
type statusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// isRetryable reports whether a failed request is worth repeating. Client errors are
// final except for rate limiting.
func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode == http.StatusTooManyRequests || se.StatusCode >= 500
	}
	return true
}

// sleepContext waits for d or until ctx is done
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// NewJinaClient creates a new Jina AI Reader client
func NewJinaClient(baseURL string) *JinaClient {
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
		IdleConnTimeout: 90 * time.Second,
	}

	if baseURL == "" {
		baseURL = "https://r.jina.ai"
	}

	return &JinaClient{
		httpClient: &http.Client{
			Timeout:   45 * time.Second,
			Transport: transport,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		userAgents: []string{
			"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
			"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		retryConfig: DefaultRetryConfig,
	}
}

// SetRetryConfig overrides the retry policy
func (j *JinaClient) SetRetryConfig(cfg RetryConfig) {
	j.retryConfig = cfg
}

// FetchMarkdown implements ContentSource
func (j *JinaClient) FetchMarkdown(ctx context.Context, url string) (string, error) {
	return j.ExtractContent(ctx, url)
}

// ExtractContent extracts clean content from a webpage URL using Jina AI Reader
func (j *JinaClient) ExtractContent(ctx context.Context, url string) (string, error) {
	if err := ValidateURL(url); err != nil {
		return "", err
	}

	startTime := time.Now()
	var lastErr error

	for attempt := 0; attempt <= j.retryConfig.MaxRetries; attempt++ {
		content, err := j.attemptExtraction(ctx, url, attempt)
		if err == nil {
			if processingTime := time.Since(startTime); processingTime > 10*time.Second {
				log.Printf("[JINA] WARNING: processing took %v for %s (attempt %d)", processingTime, url, attempt+1)
			}
			return content, nil
		}

		lastErr = err
		if !isRetryable(err) {
			break
		}

		if attempt < j.retryConfig.MaxRetries {
			delay := j.retryConfig.Delay(attempt)
			log.Printf("[JINA] Attempt %d failed for %s, retrying in %v: %v", attempt+1, url, delay, err)
			if err := sleepContext(ctx, delay); err != nil {
				return "", err
			}
		}
	}

	return "", fmt.Errorf("jina failed for %s: %w", url, lastErr)
}

// attemptExtraction performs a single extraction attempt
func (j *JinaClient) attemptExtraction(ctx context.Context, url string, attempt int) (string, error) {
	jinaURL := fmt.Sprintf("%s/%s", j.baseURL, url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jinaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	j.setHeaders(req, attempt)

	resp, err := j.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("jina request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", &statusError{Service: "jina", StatusCode: resp.StatusCode, Body: string(body)}
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("failed to read jina response: %w", err)
	}

	if len(content) < 100 {
		return "", fmt.Errorf("content too short (%d chars), might be an error page", len(content))
	}

	return string(content), nil
}

// setHeaders rotates the user agent on retries
func (j *JinaClient) setHeaders(req *http.Request, attempt int) {
	req.Header.Set("User-Agent", j.userAgents[attempt%len(j.userAgents)])
	req.Header.Set("Accept", "text/plain, text/markdown;q=0.9, */*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("X-Return-Format", "markdown")

	if attempt > 0 {
		req.Header.Set("Cache-Control", "no-cache")
	}
}

// ValidateURL performs basic URL validation before sending it upstream
func ValidateURL(url string) error {
	if url == "" {
		return fmt.Errorf("URL cannot be empty")
	}

	if len(url) > 2048 {
		return fmt.Errorf("URL too long: %d characters", len(url))
	}

	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		return fmt.Errorf("URL must start with http:// or https://")
	}

	return nil
}
