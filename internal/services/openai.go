package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/sashabaranov/go-openai"

	"speaker-events-finder/internal/models"
)

const (
	defaultOpenAIModel = "gpt-4o-mini"
	maxContentChars    = 60000
)

// OpenAIConfig configures the OpenAI extractor
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// OpenAIClient extracts speaker events from page content using OpenAI chat completions
type OpenAIClient struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// OpenAIExtractionResponse represents the events extracted from one page
type OpenAIExtractionResponse struct {
	Events        []models.Event `json:"events"`
	TotalFound    int            `json:"total_found"`
	ProcessingMS  int64          `json:"processing_ms"`
	TokensUsed    int            `json:"tokens_used"`
	EstimatedCost float64        `json:"estimated_cost"`
	SourceURL     string         `json:"source_url"`
}

// NewOpenAIClient creates a new OpenAI client
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.1
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4000
	}

	return &OpenAIClient{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}, nil
}

// Model returns the chat model in use
func (o *OpenAIClient) Model() string {
	return o.model
}

// ExtractEvents extracts events matching the schema from page content
func (o *OpenAIClient) ExtractEvents(ctx context.Context, content, sourceURL string, schema map[string]interface{}, prompt string) (*OpenAIExtractionResponse, error) {
	startTime := time.Now()

	if strings.TrimSpace(content) == "" {
		return nil, &GatewayError{Op: OpExtract, URL: sourceURL, Err: fmt.Errorf("content cannot be empty")}
	}

	content = truncateContent(content, maxContentChars)

	systemPrompt, err := o.buildSystemPrompt(schema, prompt)
	if err != nil {
		return nil, &GatewayError{Op: OpExtract, URL: sourceURL, Err: err}
	}

	resp, err := o.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       o.model,
			Temperature: o.temperature,
			MaxTokens:   o.maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleSystem,
					Content: systemPrompt,
				},
				{
					Role:    openai.ChatMessageRoleUser,
					Content: o.buildUserPrompt(content, sourceURL),
				},
			},
		},
	)
	if err != nil {
		return nil, &GatewayError{Op: OpExtract, URL: sourceURL, Err: fmt.Errorf("openai request failed: %w", err)}
	}

	if len(resp.Choices) == 0 {
		return nil, &GatewayError{Op: OpExtract, URL: sourceURL, Err: fmt.Errorf("no response choices from OpenAI")}
	}

	cleanedContent := cleanJSONResponse(resp.Choices[0].Message.Content)

	events, err := ParseExtractionPayload(cleanedContent, sourceURL)
	if err != nil {
		return nil, &GatewayError{Op: OpExtract, URL: sourceURL, Err: fmt.Errorf("failed to parse OpenAI response: %w", err)}
	}

	tokensUsed := resp.Usage.TotalTokens
	log.Printf("[OPENAI] Extracted %d events from %s using %d tokens", len(events), sourceURL, tokensUsed)
	return &OpenAIExtractionResponse{
		Events:        events,
		TotalFound:    len(events),
		ProcessingMS:  time.Since(startTime).Milliseconds(),
		TokensUsed:    tokensUsed,
		EstimatedCost: calculateCost(tokensUsed),
		SourceURL:     sourceURL,
	}, nil
}

// buildSystemPrompt embeds the extraction instructions and the JSON schema
func (o *OpenAIClient) buildSystemPrompt(schema map[string]interface{}, prompt string) (string, error) {
	schemaJSON, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode schema: %w", err)
	}

	return fmt.Sprintf(`You are an expert at extracting structured data about conference talks, meetups and other speaking engagements from web content.

%s

Respond with a single JSON object that validates against this JSON schema and nothing else:
%s

If the page lists no matching events, return an empty upcoming_events list.`, prompt, string(schemaJSON)), nil
}

func (o *OpenAIClient) buildUserPrompt(content, sourceURL string) string {
	return fmt.Sprintf(`Source URL: %s

Content to analyze:
%s`, sourceURL, content)
}

// truncateContent caps content at limit bytes without splitting a UTF-8 character
func truncateContent(content string, limit int) string {
	if len(content) <= limit {
		return content
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(content[cut]) {
		cut--
	}
	return content[:cut]
}

// calculateCost estimates the cost based on tokens used
func calculateCost(tokensUsed int) float64 {
	// Blended gpt-4o-mini rate per 1K tokens
	return float64(tokensUsed) * 0.0003 / 1000.0
}

// cleanJSONResponse removes markdown code fences around a model reply
func cleanJSONResponse(response string) string {
	cleaned := strings.TrimSpace(response)

	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	return strings.TrimSpace(cleaned)
}
