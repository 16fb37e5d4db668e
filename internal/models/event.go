package models

import "strings"

// Event represents one upcoming appearance of a speaker, as extracted from a web page
type Event struct {
	EventName string   `json:"event_name"`
	Date      string   `json:"date"`     // free-form text as extracted, normalized only for comparisons
	Location  string   `json:"location"` // physical address or LocationOnline
	URL       string   `json:"url"`
	Speakers  []string `json:"speakers"`
	IsOnline  bool     `json:"is_online"`
}

// LocationOnline is the location sentinel used for virtual events
const LocationOnline = "Online"

// EventKey is the identity of an event for deduplication purposes
type EventKey struct {
	Name string
	Date string
}

// Key returns the (event_name, date) identity of the event
func (e Event) Key() EventKey {
	return EventKey{Name: e.EventName, Date: e.Date}
}

// SpeakerEvents is the top-level response for a speaker lookup
type SpeakerEvents struct {
	SpeakerName    string  `json:"speaker_name"`
	UpcomingEvents []Event `json:"upcoming_events"`
}

// NewSpeakerEvents builds a response, never leaving the event list nil
func NewSpeakerEvents(speakerName string, events []Event) *SpeakerEvents {
	if events == nil {
		events = []Event{}
	}
	return &SpeakerEvents{
		SpeakerName:    speakerName,
		UpcomingEvents: events,
	}
}

// SearchHit is a single web result returned by a search query
type SearchHit struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// SearchResultSet is the normalized output of one search query.
// A nil Web slice means the provider returned no web section at all.
type SearchResultSet struct {
	Query string      `json:"query"`
	Web   []SearchHit `json:"web,omitempty"`
}

// ExtractionResult holds the events extracted from a single URL
type ExtractionResult struct {
	URL    string  `json:"url"`
	Events []Event `json:"events"`
	Err    error   `json:"-"` // set when the payload for this URL was missing or unreadable
}

// Malformed reports whether the result should be skipped
func (r ExtractionResult) Malformed() bool {
	return r.Err != nil
}

// FilterMode selects which delivery modes survive post-processing
type FilterMode string

const (
	FilterNone     FilterMode = ""
	FilterInPerson FilterMode = "in-person"
	FilterOnline   FilterMode = "online"
)

// ParseFilterMode maps a request value onto a filter mode, case-insensitively.
// Unrecognized values disable filtering.
func ParseFilterMode(value string) FilterMode {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case string(FilterInPerson):
		return FilterInPerson
	case string(FilterOnline):
		return FilterOnline
	default:
		return FilterNone
	}
}
