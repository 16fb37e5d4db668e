package services

import (
	"log"
	"sort"
	"time"

	"speaker-events-finder/internal/models"
)

// EventPostProcessor cleans raw extracted events into the final ranked list
type EventPostProcessor struct {
	dates *DateNormalizer
}

// NewEventPostProcessor creates a post-processor using the given normalizer for dates and "today"
func NewEventPostProcessor(dates *DateNormalizer) *EventPostProcessor {
	if dates == nil {
		dates = NewDateNormalizer(time.Local)
	}
	return &EventPostProcessor{dates: dates}
}

// Process runs the future filter, deduplication, type filter and date sort, in that order
func (p *EventPostProcessor) Process(events []models.Event, filter models.FilterMode) []models.Event {
	futureEvents := p.FilterFuture(events)
	uniqueEvents := DeduplicateEvents(futureEvents)
	log.Printf("[POSTPROCESS] %d raw events, %d upcoming, %d unique", len(events), len(futureEvents), len(uniqueEvents))

	filteredEvents := FilterEventsByType(uniqueEvents, filter)
	if filter != models.FilterNone {
		log.Printf("[POSTPROCESS] After filtering for '%s': %d events", filter, len(filteredEvents))
	}

	return p.SortByDate(filteredEvents)
}

// FilterFuture keeps events dated today or later. Events whose date cannot be parsed are
// kept: the extraction prompt already asks for upcoming events only.
func (p *EventPostProcessor) FilterFuture(events []models.Event) []models.Event {
	today := CalendarDay(p.dates.Now())

	kept := make([]models.Event, 0, len(events))
	for _, event := range events {
		eventDate, ok := p.dates.Parse(event.Date)
		if !ok {
			if event.Date != "" {
				log.Printf("[POSTPROCESS] WARNING: could not parse date %q for %q, keeping it", event.Date, event.EventName)
			}
			kept = append(kept, event)
			continue
		}

		if CalendarDay(eventDate).Before(today) {
			log.Printf("[POSTPROCESS] Skipping past event: %s on %s", event.EventName, event.Date)
			continue
		}
		kept = append(kept, event)
	}

	return kept
}

// DeduplicateEvents drops events whose (event_name, date) pair was already seen
func DeduplicateEvents(events []models.Event) []models.Event {
	unique := make([]models.Event, 0, len(events))
	seen := make(map[models.EventKey]bool)

	for _, event := range events {
		key := event.Key()
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, event)
	}

	return unique
}

// FilterEventsByType keeps in-person or online events; any other mode returns events unchanged
func FilterEventsByType(events []models.Event, filter models.FilterMode) []models.Event {
	var wantOnline bool
	switch filter {
	case models.FilterInPerson:
		wantOnline = false
	case models.FilterOnline:
		wantOnline = true
	default:
		return events
	}

	filtered := make([]models.Event, 0, len(events))
	for _, event := range events {
		if event.IsOnline == wantOnline {
			filtered = append(filtered, event)
		}
	}
	return filtered
}

// SortByDate orders events by parsed date ascending. Unparseable dates go last, and ties
// keep their incoming order.
func (p *EventPostProcessor) SortByDate(events []models.Event) []models.Event {
	type datedEvent struct {
		event  models.Event
		when   time.Time
		parsed bool
	}

	dated := make([]datedEvent, len(events))
	for i, event := range events {
		when, ok := p.dates.Parse(event.Date)
		dated[i] = datedEvent{event: event, when: when, parsed: ok}
	}

	sort.SliceStable(dated, func(i, j int) bool {
		a, b := dated[i], dated[j]
		if a.parsed != b.parsed {
			return a.parsed
		}
		if !a.parsed {
			return false
		}
		return a.when.Before(b.when)
	})

	sorted := make([]models.Event, len(dated))
	for i, d := range dated {
		sorted[i] = d.event
	}
	return sorted
}
