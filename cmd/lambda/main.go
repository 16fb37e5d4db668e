package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"speaker-events-finder/internal/api"
	"speaker-events-finder/internal/config"
	"speaker-events-finder/internal/services"
)

var corsHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
	"Access-Control-Allow-Methods": "GET,OPTIONS",
	"Content-Type":                 "application/json",
}

// searchHandler serves the speaker search through API Gateway
type searchHandler struct {
	finder api.Finder
}

func (h *searchHandler) handleRequest(ctx context.Context, request events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	// Handle preflight OPTIONS request
	if request.HTTPMethod == http.MethodOptions {
		return respond(http.StatusOK, nil), nil
	}

	log.Printf("[API] %s %s", request.HTTPMethod, request.Path)

	switch {
	case request.HTTPMethod == http.MethodGet && request.Path == api.SearchPath:
		body, status := api.HandleSearch(ctx, h.finder, request.QueryStringParameters)
		return respond(status, body), nil

	default:
		return respond(http.StatusNotFound, api.ErrorBody{Error: "Not found"}), nil
	}
}

func respond(status int, body interface{}) events.APIGatewayProxyResponse {
	headers := make(map[string]string, len(corsHeaders))
	for k, v := range corsHeaders {
		headers[k] = v
	}

	response := events.APIGatewayProxyResponse{StatusCode: status, Headers: headers}
	if body == nil {
		return response
	}

	bodyJSON, err := json.Marshal(body)
	if err != nil {
		log.Printf("[API] Error marshaling response body: %v", err)
		response.StatusCode = http.StatusInternalServerError
		response.Body = `{"error":"Internal Server Error"}`
		return response
	}

	response.Body = string(bodyJSON)
	return response
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	pipeline, err := services.NewPipelineFromConfig(context.Background(), cfg, nil)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}

	handler := &searchHandler{finder: pipeline}
	lambda.Start(handler.handleRequest)
}
