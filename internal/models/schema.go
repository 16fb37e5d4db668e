package models

import (
	"fmt"
	"time"
)

// PromptDateLayout is how today's date is rendered inside the extraction prompt
const PromptDateLayout = "January 02, 2006"

// GetSpeakerEventsSchema returns the JSON schema handed to the extraction service
func GetSpeakerEventsSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"speaker_name": map[string]interface{}{
				"type":        "string",
				"description": "The name of the speaker being searched for",
			},
			"upcoming_events": map[string]interface{}{
				"type":        "array",
				"description": "List of future events where this person is speaking",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"event_name": map[string]interface{}{
							"type":        "string",
							"description": "The official name of the event",
						},
						"date": map[string]interface{}{
							"type":        "string",
							"description": "The event date in format 'Day, Mon DD, YYYY' (e.g., 'Sat, Feb 7, 2026'). MUST be a future date only. Do NOT include any past events.",
						},
						"location": map[string]interface{}{
							"type":        "string",
							"description": "Physical location or 'Online'",
						},
						"url": map[string]interface{}{
							"type":        "string",
							"description": "URL link to the event page",
						},
						"speakers": map[string]interface{}{
							"type":        "array",
							"items":       map[string]interface{}{"type": "string"},
							"description": "List of confirmed speaker names",
						},
						"is_online": map[string]interface{}{
							"type":        "boolean",
							"description": "True if the event is virtual",
						},
					},
					"required": []string{"event_name", "date", "location", "url", "speakers", "is_online"},
				},
			},
		},
		"required": []string{"speaker_name", "upcoming_events"},
	}
}

// BuildExtractionPrompt scopes extraction to future events featuring the speaker
func BuildExtractionPrompt(speakerName string, today time.Time) string {
	day := today.Format(PromptDateLayout)
	return fmt.Sprintf(
		"Today is %s. Extract ONLY upcoming events (events on or after %s) where %s is listed as a speaker. %s MUST be in the speakers list. Ignore all past events.",
		day, day, speakerName, speakerName,
	)
}
