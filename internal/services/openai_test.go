package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCleanJSONResponse tests the JSON cleaning functionality
func TestCleanJSONResponse(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Clean JSON",
			input:    `{"upcoming_events": []}`,
			expected: `{"upcoming_events": []}`,
		},
		{
			name:     "JSON with markdown code blocks",
			input:    "```json\n{\"upcoming_events\": []}\n```",
			expected: `{"upcoming_events": []}`,
		},
		{
			name:     "JSON with just backticks",
			input:    "```\n{\"upcoming_events\": []}\n```",
			expected: `{"upcoming_events": []}`,
		},
		{
			name:     "Plain text response",
			input:    "I'm unable to extract structured data from the provided content.",
			expected: "I'm unable to extract structured data from the provided content.",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, cleanJSONResponse(tc.input))
		})
	}
}

func TestTruncateContent(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		limit    int
		expected string
	}{
		{"Short content unchanged", "Ada", 10, "Ada"},
		{"ASCII cut at limit", "Lovelace", 4, "Love"},
		{"Cut inside two-byte character", "Café talk", 4, "Caf"},
		{"Cut after two-byte character", "Café talk", 5, "Café"},
		{"Cut inside four-byte character", "Hi 🎤 mic", 5, "Hi "},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			truncated := truncateContent(tc.input, tc.limit)
			assert.Equal(t, tc.expected, truncated)
			assert.True(t, utf8.ValidString(truncated))
		})
	}
}

// chatServer answers chat completions with a fixed assistant message
func chatServer(t *testing.T, reply string, seen *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var request struct {
			Model    string `json:"model"`
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&request))
		if seen != nil {
			for _, message := range request.Messages {
				*seen = append(*seen, message.Content)
			}
		}

		response := map[string]interface{}{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   request.Model,
			"choices": []interface{}{
				map[string]interface{}{
					"index":         0,
					"finish_reason": "stop",
					"message":       map[string]interface{}{"role": "assistant", "content": reply},
				},
			},
			"usage": map[string]interface{}{"prompt_tokens": 900, "completion_tokens": 100, "total_tokens": 1000},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(response)
	}))
}

func newTestOpenAIClient(t *testing.T, serverURL string) *OpenAIClient {
	t.Helper()
	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test", BaseURL: serverURL + "/v1"})
	require.NoError(t, err)
	return client
}

func TestNewOpenAIClient_RequiresAPIKey(t *testing.T) {
	_, err := NewOpenAIClient(OpenAIConfig{})
	assert.Error(t, err)
}

func TestOpenAIClient_ExtractEvents(t *testing.T) {
	reply := "```json\n" + `{"speaker_name": "Ada Lovelace", "upcoming_events": [
		{"event_name": "Engines Summit", "date": "February 7, 2026", "location": "Online", "url": "", "speakers": ["Ada Lovelace"], "is_online": true}
	]}` + "\n```"

	var seen []string
	server := chatServer(t, reply, &seen)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	schema := map[string]interface{}{"type": "object"}

	response, err := client.ExtractEvents(context.Background(), "# Engines Summit\nAda Lovelace keynote", "https://lu.ma/engines", schema, "Extract ONLY upcoming events")

	require.NoError(t, err)
	require.Len(t, response.Events, 1)
	assert.Equal(t, "Engines Summit", response.Events[0].EventName)
	assert.Equal(t, "https://lu.ma/engines", response.Events[0].URL)
	assert.True(t, response.Events[0].IsOnline)
	assert.Equal(t, 1000, response.TokensUsed)
	assert.InDelta(t, 0.0003, response.EstimatedCost, 1e-9)

	require.Len(t, seen, 2)
	assert.Contains(t, seen[0], "Extract ONLY upcoming events")
	assert.Contains(t, seen[0], `"type": "object"`)
	assert.Contains(t, seen[1], "Ada Lovelace keynote")
}

func TestOpenAIClient_ExtractEventsRejectsProse(t *testing.T) {
	server := chatServer(t, "I'm unable to extract structured data.", nil)
	defer server.Close()

	client := newTestOpenAIClient(t, server.URL)
	_, err := client.ExtractEvents(context.Background(), "some page", "https://example.com", nil, "")

	var gatewayErr *GatewayError
	require.ErrorAs(t, err, &gatewayErr)
	assert.Equal(t, OpExtract, gatewayErr.Op)
	assert.Equal(t, "https://example.com", gatewayErr.URL)
}

func TestOpenAIClient_ExtractEventsEmptyContent(t *testing.T) {
	client, err := NewOpenAIClient(OpenAIConfig{APIKey: "sk-test"})
	require.NoError(t, err)

	_, err = client.ExtractEvents(context.Background(), "  ", "https://example.com", nil, "")
	assert.Error(t, err)
}
