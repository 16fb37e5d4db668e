package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"speaker-events-finder/internal/models"
)

var (
	errMissingPayload = errors.New("missing json payload")
	errNoEventList    = errors.New("payload has no upcoming_events list")
)

// ParseExtractionPayload converts a loosely typed extraction payload into events.
// The payload may be a decoded object or a JSON string. Items that are not objects or
// have no event name are dropped; missing event URLs default to the source page.
func ParseExtractionPayload(payload interface{}, sourceURL string) ([]models.Event, error) {
	if text, ok := payload.(string); ok {
		text = strings.TrimSpace(text)
		if text == "" {
			return nil, errMissingPayload
		}
		var decoded interface{}
		if err := json.Unmarshal([]byte(text), &decoded); err != nil {
			return nil, fmt.Errorf("payload is not valid JSON: %w", err)
		}
		payload = decoded
	}

	if payload == nil {
		return nil, errMissingPayload
	}

	data, ok := payload.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("payload is %T, not an object", payload)
	}

	rawEvents, exists := data["upcoming_events"]
	if !exists || rawEvents == nil {
		return nil, errNoEventList
	}

	eventsList, ok := rawEvents.([]interface{})
	if !ok {
		return nil, fmt.Errorf("upcoming_events is %T, not a list", rawEvents)
	}

	events := make([]models.Event, 0, len(eventsList))
	for _, rawEvent := range eventsList {
		eventMap, ok := rawEvent.(map[string]interface{})
		if !ok {
			continue
		}

		event := models.Event{
			EventName: strings.TrimSpace(extractStringField(eventMap, "event_name")),
			Date:      strings.TrimSpace(extractStringField(eventMap, "date")),
			Location:  strings.TrimSpace(extractStringField(eventMap, "location")),
			URL:       strings.TrimSpace(extractStringField(eventMap, "url")),
			Speakers:  extractStringList(eventMap, "speakers"),
		}

		if event.EventName == "" {
			continue
		}

		if event.URL == "" {
			event.URL = sourceURL
		}

		if online, ok := extractBoolField(eventMap, "is_online"); ok {
			event.IsOnline = online
		} else {
			event.IsOnline = strings.EqualFold(event.Location, models.LocationOnline)
		}

		events = append(events, event)
	}

	return events, nil
}

// extractStringField safely extracts a string field from a map
func extractStringField(data map[string]interface{}, field string) string {
	switch value := data[field].(type) {
	case string:
		return value
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

// extractStringList accepts a list of strings or a single comma separated string
func extractStringList(data map[string]interface{}, field string) []string {
	values := []string{}

	switch raw := data[field].(type) {
	case []interface{}:
		for _, item := range raw {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				values = append(values, strings.TrimSpace(s))
			}
		}
	case string:
		for _, part := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(part); s != "" {
				values = append(values, s)
			}
		}
	}

	return values
}

// extractBoolField accepts JSON booleans and the usual string spellings
func extractBoolField(data map[string]interface{}, field string) (bool, bool) {
	switch value := data[field].(type) {
	case bool:
		return value, true
	case string:
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0":
			return false, true
		}
	case float64:
		return value != 0, true
	}
	return false, false
}
