package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryPlanner_Plan(t *testing.T) {
	planner := NewQueryPlanner(nil)

	plan := planner.Plan("Andrew Ng")

	assert.Equal(t, `(site:lu.ma OR site:meetup.com OR site:eventbrite.com) "Andrew Ng"`, plan.Targeted)
	assert.Equal(t, `"Andrew Ng" speaker "upcoming events" -site:lu.ma -site:meetup.com -site:eventbrite.com`, plan.Broad)
}

func TestQueryPlanner_SiteClausesAreDisjoint(t *testing.T) {
	domainLists := [][]string{
		{"lu.ma"},
		{"lu.ma", "meetup.com"},
		{"sessionize.com", "eventbrite.com", "confs.tech", "papercall.io"},
	}

	for _, domains := range domainLists {
		t.Run(strings.Join(domains, ","), func(t *testing.T) {
			plan := NewQueryPlanner(domains).Plan("Grace Hopper")

			targetedSites := map[string]bool{}
			broadSites := map[string]bool{}
			for _, term := range strings.Fields(strings.NewReplacer("(", " ", ")", " ").Replace(plan.Targeted)) {
				if strings.HasPrefix(term, "site:") {
					targetedSites[strings.TrimPrefix(term, "site:")] = true
				}
			}
			for _, term := range strings.Fields(plan.Broad) {
				assert.False(t, strings.HasPrefix(term, "site:"), "broad query must not restrict to a site: %s", term)
				if strings.HasPrefix(term, "-site:") {
					broadSites[strings.TrimPrefix(term, "-site:")] = true
				}
			}

			for _, domain := range domains {
				assert.True(t, targetedSites[domain], "targeted query missing %s", domain)
				assert.True(t, broadSites[domain], "broad query missing exclusion of %s", domain)
			}
			assert.Len(t, targetedSites, len(domains))
			assert.Len(t, broadSites, len(domains))
			assert.Equal(t, len(domains)-1, strings.Count(plan.Targeted, " OR "))
		})
	}
}

func TestQueryPlanner_DomainListIsCopied(t *testing.T) {
	domains := []string{"lu.ma"}
	planner := NewQueryPlanner(domains)
	domains[0] = "changed.example"

	assert.Equal(t, []string{"lu.ma"}, planner.Domains())
}

func TestQuotePhrase(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"Plain name", "Ada Lovelace", `"Ada Lovelace"`},
		{"Embedded quotes", `Dwayne "The Rock" Johnson`, `"Dwayne The Rock Johnson"`},
		{"Typographic quotes", "“Ada” Lovelace", `"Ada Lovelace"`},
		{"Extra whitespace", "  Ada   Lovelace ", `"Ada Lovelace"`},
		{"Apostrophe kept", "Conan O'Brien", `"Conan O'Brien"`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, QuotePhrase(tc.input))
		})
	}
}
