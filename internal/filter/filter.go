// Package filter implements the pure posting filters: keyword relevance
// and allowed locations. Both are deterministic and hold no state beyond
// their configured word lists.
package filter

import (
	"strings"

	"jobmonitor/internal/models"
)

// Keywords decides whether a posting is relevant to the operator.
type Keywords struct {
	keywords     []string
	matchIfEmpty bool
}

// NewKeywords builds a keyword filter. Matching is a case-insensitive
// substring check against title, description and tags. matchIfEmpty pins
// the empty-list policy: true means an empty keyword list accepts every
// posting (the shipped default), false means it accepts none.
func NewKeywords(keywords []string, matchIfEmpty bool) *Keywords {
	lowered := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Keywords{keywords: lowered, matchIfEmpty: matchIfEmpty}
}

// Matches reports whether any keyword appears in the posting's title,
// description or tags.
func (k *Keywords) Matches(p models.JobPosting) bool {
	if len(k.keywords) == 0 {
		return k.matchIfEmpty
	}
	text := strings.ToLower(p.Title + " " + p.Description + " " + strings.Join(p.Tags, " "))
	for _, kw := range k.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Locations restricts postings to a set of allowed locations.
type Locations struct {
	allowed []string
}

// NewLocations builds a location filter. An empty allowed list disables
// location filtering entirely.
func NewLocations(allowed []string) *Locations {
	lowered := make([]string, 0, len(allowed))
	for _, loc := range allowed {
		loc = strings.ToLower(strings.TrimSpace(loc))
		if loc != "" {
			lowered = append(lowered, loc)
		}
	}
	return &Locations{allowed: lowered}
}

// Allows reports whether the posting's location contains any allowed
// location, case-insensitive. A posting without a location passes only
// when no locations are configured.
func (l *Locations) Allows(p models.JobPosting) bool {
	if len(l.allowed) == 0 {
		return true
	}
	location := strings.ToLower(p.Location)
	for _, allowed := range l.allowed {
		if strings.Contains(location, allowed) {
			return true
		}
	}
	return false
}
