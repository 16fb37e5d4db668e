package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"speaker-events-finder/internal/models"
)

type stubFinder struct {
	result *models.SpeakerEvents
	err    error
	calls  int
}

func (s *stubFinder) Find(ctx context.Context, speakerName string, filter models.FilterMode) (*models.SpeakerEvents, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func TestHandleRequest_Search(t *testing.T) {
	finder := &stubFinder{result: models.NewSpeakerEvents("Ada Lovelace", []models.Event{{
		EventName: "Engines Summit",
		Date:      "2026-02-07",
		Location:  "London",
		URL:       "https://lu.ma/engines",
		Speakers:  []string{"Ada Lovelace"},
	}})}
	handler := &searchHandler{finder: finder}

	response, err := handler.handleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/events/search",
		QueryStringParameters: map[string]string{"name": "Ada Lovelace"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Equal(t, "*", response.Headers["Access-Control-Allow-Origin"])

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "Ada Lovelace", body["speaker_name"])
	assert.Len(t, body["upcoming_events"], 1)
}

func TestHandleRequest_EmptyResultIsArray(t *testing.T) {
	handler := &searchHandler{finder: &stubFinder{result: models.NewSpeakerEvents("X", nil)}}

	response, err := handler.handleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/events/search",
		QueryStringParameters: map[string]string{"name": "X"},
	})

	require.NoError(t, err)
	assert.JSONEq(t, `{"speaker_name": "X", "upcoming_events": []}`, response.Body)
}

func TestHandleRequest_MissingName(t *testing.T) {
	finder := &stubFinder{}
	handler := &searchHandler{finder: finder}

	response, err := handler.handleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodGet,
		Path:       "/events/search",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, response.StatusCode)
	assert.JSONEq(t, `{"error": "Missing 'name' query parameter"}`, response.Body)
	assert.Equal(t, 0, finder.calls)
}

func TestHandleRequest_PipelineError(t *testing.T) {
	handler := &searchHandler{finder: &stubFinder{err: errors.New("boom")}}

	response, err := handler.handleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod:            http.MethodGet,
		Path:                  "/events/search",
		QueryStringParameters: map[string]string{"name": "Ada"},
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, response.StatusCode)
	assert.NotContains(t, response.Body, "boom")

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(response.Body), &body))
	assert.Equal(t, "Internal Server Error", body["error"])
	assert.NotEmpty(t, body["request_id"])
}

func TestHandleRequest_Preflight(t *testing.T) {
	handler := &searchHandler{finder: &stubFinder{}}

	response, err := handler.handleRequest(context.Background(), events.APIGatewayProxyRequest{
		HTTPMethod: http.MethodOptions,
		Path:       "/events/search",
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, response.StatusCode)
	assert.Empty(t, response.Body)
	assert.Equal(t, "GET,OPTIONS", response.Headers["Access-Control-Allow-Methods"])
}

func TestHandleRequest_NotFound(t *testing.T) {
	handler := &searchHandler{finder: &stubFinder{}}

	for _, request := range []events.APIGatewayProxyRequest{
		{HTTPMethod: http.MethodGet, Path: "/events"},
		{HTTPMethod: http.MethodPost, Path: "/events/search"},
	} {
		response, err := handler.handleRequest(context.Background(), request)

		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, response.StatusCode)
	}
}
