package api

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"speaker-events-finder/internal/models"
)

// SearchPath is the route of the speaker search endpoint
const SearchPath = "/events/search"

// MissingNameMessage is returned when the name parameter is absent or blank
const MissingNameMessage = "Missing 'name' query parameter"

// Finder runs the speaker search pipeline
type Finder interface {
	Find(ctx context.Context, speakerName string, filter models.FilterMode) (*models.SpeakerEvents, error)
}

// ErrorBody is the JSON body of a failed request
type ErrorBody struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// HandleSearch validates the query parameters and runs the pipeline. It returns the
// response body and HTTP status code.
func HandleSearch(ctx context.Context, finder Finder, params map[string]string) (interface{}, int) {
	name := strings.TrimSpace(params["name"])
	if name == "" {
		return ErrorBody{Error: MissingNameMessage}, http.StatusBadRequest
	}

	filter := models.ParseFilterMode(params["filter"])
	log.Printf("[API] Searching events for %q (filter=%q)", name, filter)

	result, err := finder.Find(ctx, name, filter)
	if err != nil {
		requestID := uuid.NewString()
		log.Printf("[API] ERROR request_id=%s: %v", requestID, err)
		return ErrorBody{Error: "Internal Server Error", RequestID: requestID}, http.StatusInternalServerError
	}

	return result, http.StatusOK
}
