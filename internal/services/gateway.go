package services

import (
	"context"
	"fmt"

	"speaker-events-finder/internal/models"
)

// Gateway is the capability the pipeline needs from external search and extraction services
type Gateway interface {
	// Search returns up to limit web hits for the query
	Search(ctx context.Context, query string, limit int) (*models.SearchResultSet, error)

	// BulkExtract fetches every URL and extracts events matching the schema, guided by the prompt.
	// It returns one result per URL; a result with Err set is malformed and must be skipped.
	BulkExtract(ctx context.Context, urls []string, schema map[string]interface{}, prompt string) ([]models.ExtractionResult, error)
}

// Gateway operation names used in errors and logs
const (
	OpSearch      = "search"
	OpBulkExtract = "bulk_extract"
	OpScrape      = "scrape"
	OpExtract     = "extract"
)

// GatewayError wraps a failed external call
type GatewayError struct {
	Op  string
	URL string
	Err error
}

func (e *GatewayError) Error() string {
	if e.URL != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

func newGatewayError(op string, err error) *GatewayError {
	return &GatewayError{Op: op, Err: err}
}
