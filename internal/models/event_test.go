package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterMode(t *testing.T) {
	testCases := []struct {
		input    string
		expected FilterMode
	}{
		{"in-person", FilterInPerson},
		{"IN-PERSON", FilterInPerson},
		{" Online ", FilterOnline},
		{"online", FilterOnline},
		{"hybrid", FilterNone},
		{"", FilterNone},
	}

	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, ParseFilterMode(tc.input))
		})
	}
}

func TestNewSpeakerEvents_EmptyListSerializesAsArray(t *testing.T) {
	resp := NewSpeakerEvents("X", nil)

	data, err := json.Marshal(resp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"speaker_name":"X","upcoming_events":[]}`, string(data))
}

func TestEvent_JSONFieldNames(t *testing.T) {
	event := Event{
		EventName: "GopherCon",
		Date:      "Sat, Feb 7, 2026",
		Location:  LocationOnline,
		URL:       "https://lu.ma/gophercon",
		Speakers:  []string{"Ada Lovelace"},
		IsOnline:  true,
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	for _, field := range []string{"event_name", "date", "location", "url", "speakers", "is_online"} {
		assert.Contains(t, raw, field)
	}
	assert.Equal(t, true, raw["is_online"])
}

func TestEvent_KeyIgnoresLocationAndURL(t *testing.T) {
	a := Event{EventName: "Talk", Date: "March 3, 2027", Location: "Berlin", URL: "https://a"}
	b := Event{EventName: "Talk", Date: "March 3, 2027", Location: "Online", URL: "https://b"}
	assert.Equal(t, a.Key(), b.Key())
}

func TestGetSpeakerEventsSchema(t *testing.T) {
	schema := GetSpeakerEventsSchema()

	assert.Equal(t, []string{"speaker_name", "upcoming_events"}, schema["required"])

	props := schema["properties"].(map[string]interface{})
	events := props["upcoming_events"].(map[string]interface{})
	items := events["items"].(map[string]interface{})
	itemProps := items["properties"].(map[string]interface{})
	for _, field := range []string{"event_name", "date", "location", "url", "speakers", "is_online"} {
		assert.Contains(t, itemProps, field)
	}
}

func TestBuildExtractionPrompt(t *testing.T) {
	today := time.Date(2026, time.February, 7, 15, 0, 0, 0, time.UTC)

	prompt := BuildExtractionPrompt("Ada Lovelace", today)

	assert.Contains(t, prompt, "Today is February 07, 2026.")
	assert.Contains(t, prompt, "on or after February 07, 2026")
	assert.Contains(t, prompt, "Ada Lovelace MUST be in the speakers list")
}
