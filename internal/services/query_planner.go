package services

import (
	"fmt"
	"strings"

	"speaker-events-finder/internal/config"
)

// DefaultTargetDomains are the event-hosting platforms searched by the targeted query
var DefaultTargetDomains = config.DefaultTargetDomains

// QueryPlan holds the two complementary search queries for one speaker
type QueryPlan struct {
	Targeted string `json:"targeted"`
	Broad    string `json:"broad"`
}

// QueryPlanner builds search queries against a configured list of platform domains
type QueryPlanner struct {
	domains []string
}

// NewQueryPlanner creates a planner for the given domains, falling back to DefaultTargetDomains
func NewQueryPlanner(domains []string) *QueryPlanner {
	if len(domains) == 0 {
		domains = DefaultTargetDomains
	}
	return &QueryPlanner{domains: append([]string(nil), domains...)}
}

// Domains returns a copy of the configured platform domains
func (p *QueryPlanner) Domains() []string {
	return append([]string(nil), p.domains...)
}

// Plan builds the targeted query, restricted to the platform domains, and the broad
// query, which excludes those same domains.
//
// Targeted: (site:lu.ma OR site:meetup.com) "Ada Lovelace"
// Broad:    "Ada Lovelace" speaker "upcoming events" -site:lu.ma -site:meetup.com
func (p *QueryPlanner) Plan(speakerName string) QueryPlan {
	phrase := QuotePhrase(speakerName)

	sites := make([]string, len(p.domains))
	exclusions := make([]string, len(p.domains))
	for i, domain := range p.domains {
		sites[i] = "site:" + domain
		exclusions[i] = "-site:" + domain
	}

	targeted := phrase
	if len(sites) > 0 {
		targeted = fmt.Sprintf("(%s) %s", strings.Join(sites, " OR "), phrase)
	}

	broad := strings.Join(append([]string{phrase, `speaker "upcoming events"`}, exclusions...), " ")

	return QueryPlan{
		Targeted: targeted,
		Broad:    broad,
	}
}

var quoteReplacer = strings.NewReplacer(`"`, " ", "“", " ", "”", " ", "„", " ", "«", " ", "»", " ")

// QuotePhrase wraps a name as an exact-phrase search term. Double quote characters inside
// the name are dropped and whitespace is collapsed so the phrase cannot be broken open.
func QuotePhrase(name string) string {
	cleaned := strings.Join(strings.Fields(quoteReplacer.Replace(name)), " ")
	return `"` + cleaned + `"`
}
