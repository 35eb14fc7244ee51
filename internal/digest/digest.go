// Package digest renders scan results into size-bounded messages.
//
// A digest groups accepted postings by source in configuration order,
// caps each source's section, and splits the rendered text into parts
// that each fit the delivery size limit. Splitting happens at section
// boundaries so every part is a valid standalone message.
package digest

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"jobmonitor/internal/models"
)

const (
	// MaxMessageLength is the delivery size limit per message part.
	MaxMessageLength = 4096
	// lengthHeadroom is reserved for part headers and markdown overhead.
	lengthHeadroom = 200

	separator = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
)

// EmptyDigestMessage is sent when no new postings pass the filter, so a
// quiet day is distinguishable from a failed run.
const EmptyDigestMessage = "📋 No new job postings found."

// Assembler renders digests and report summaries.
type Assembler struct {
	settings models.Settings
}

// NewAssembler creates an Assembler with the given rendering settings.
func NewAssembler(settings models.Settings) *Assembler {
	return &Assembler{settings: settings}
}

// Assemble renders the accepted postings into an ordered multi-part
// message and returns the ids of the postings actually rendered.
// Sources appear in sourceOrder; sources not listed there follow in
// first-seen order. Postings beyond the per-source cap are omitted and
// NOT included in the returned ids, so they stay eligible for a future
// digest.
func (a *Assembler) Assemble(postings []models.StoredPosting, sourceOrder []string, result models.ScanResult) (models.DigestMessage, []int64) {
	if len(postings) == 0 {
		return models.DigestMessage{Parts: []string{EmptyDigestMessage}}, nil
	}

	groups, order := groupBySource(postings, sourceOrder)

	var sections []string
	var included []int64
	for _, name := range order {
		section, ids := a.renderSection(name, groups[name])
		sections = append(sections, section)
		included = append(included, ids...)
	}

	header := a.renderHeader(result, len(included))
	parts := splitIntoParts(header, sections)
	if len(parts) > 1 {
		for i := range parts {
			parts[i] = fmt.Sprintf("📋 *Digest (%d/%d)*\n\n%s", i+1, len(parts), parts[i])
		}
	}
	return models.DigestMessage{Parts: parts}, included
}

// Report renders the lighter-weight summary used by report runs.
func (a *Assembler) Report(stats models.StoreStats, since, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Job monitor report for %s*\n\n", now.Format("02.01.2006"))
	fmt.Fprintf(&b, "🗃 Tracked postings: %d\n", stats.Total)
	fmt.Fprintf(&b, "➕ New since %s: %d\n", since.Format("02.01 15:04"), stats.NewSince)
	fmt.Fprintf(&b, "📬 Awaiting digest: %d\n", stats.Unsent)
	if len(stats.PerSource) > 0 {
		b.WriteString("\n")
		for _, name := range sortedKeys(stats.PerSource) {
			fmt.Fprintf(&b, "📂 %s: %d new\n", name, stats.PerSource[name])
		}
	}
	return b.String()
}

func (a *Assembler) renderHeader(result models.ScanResult, digestCount int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 *Job digest for %s*\n\n", result.RunTimestamp.Format("02.01.2006"))
	if a.settings.ShowStats {
		fmt.Fprintf(&b, "🔍 Scanned: %d postings\n", result.ScannedCount)
		fmt.Fprintf(&b, "➕ New: %d\n", result.NewCount)
		fmt.Fprintf(&b, "📤 In digest: %d\n", digestCount)
		fmt.Fprintf(&b, "⏰ Run time: %s\n\n", result.RunTimestamp.Format("15:04:05"))
		b.WriteString(separator + "\n\n")
	}
	return b.String()
}

func (a *Assembler) renderSection(name string, postings []models.StoredPosting) (string, []int64) {
	var b strings.Builder
	fmt.Fprintf(&b, "📂 *%s* (%d postings)\n", name, len(postings))

	max := a.settings.MaxJobsPerSource
	if max <= 0 {
		max = models.DefaultMaxJobsPerSource
	}
	shown := postings
	if len(shown) > max {
		shown = shown[:max]
	}

	ids := make([]int64, 0, len(shown))
	for i, p := range shown {
		fmt.Fprintf(&b, "%d. [%s](%s)", i+1, p.Title, p.Link)
		if a.settings.ShowLocation && p.Location != "" {
			fmt.Fprintf(&b, " 🌍 %s", p.Location)
		}
		if a.settings.ShowCompany && p.Company != "" {
			fmt.Fprintf(&b, " 🏢 %s", p.Company)
		}
		b.WriteString("\n")
		if a.settings.IncludeDescription && p.Description != "" {
			fmt.Fprintf(&b, "   _%s_\n", truncate(p.Description, models.DefaultDescriptionLimit))
		}
		ids = append(ids, p.ID)
	}

	if hidden := len(postings) - len(shown); hidden > 0 {
		fmt.Fprintf(&b, "   ... and %d more\n", hidden)
	}
	b.WriteString("\n")
	return b.String(), ids
}

// groupBySource buckets postings per source and determines section order:
// configured order first, unknown sources after in first-seen order.
func groupBySource(postings []models.StoredPosting, sourceOrder []string) (map[string][]models.StoredPosting, []string) {
	groups := make(map[string][]models.StoredPosting)
	var seen []string
	for _, p := range postings {
		if _, ok := groups[p.SourceName]; !ok {
			seen = append(seen, p.SourceName)
		}
		groups[p.SourceName] = append(groups[p.SourceName], p)
	}

	var order []string
	listed := make(map[string]bool)
	for _, name := range sourceOrder {
		if _, ok := groups[name]; ok && !listed[name] {
			order = append(order, name)
			listed[name] = true
		}
	}
	for _, name := range seen {
		if !listed[name] {
			order = append(order, name)
		}
	}
	return groups, order
}

// splitIntoParts packs the header and sections into parts within the
// size limit. Sections are never split mid-posting; a section that alone
// exceeds the limit falls back to line-boundary splitting.
func splitIntoParts(header string, sections []string) []string {
	limit := MaxMessageLength - lengthHeadroom

	var parts []string
	current := header
	flush := func() {
		if trimmed := strings.TrimRight(current, "\n"); trimmed != "" {
			parts = append(parts, trimmed)
		}
		current = ""
	}

	for _, section := range sections {
		if len(section) > limit {
			flush()
			parts = append(parts, splitOversized(section, limit)...)
			continue
		}
		if current != "" && len(current)+len(section) > limit {
			flush()
		}
		current += section
	}
	flush()
	return parts
}

// splitOversized splits a single section at line boundaries. A line that
// alone exceeds the limit is hard-truncated.
func splitOversized(section string, limit int) []string {
	var parts []string
	var current string
	for _, line := range strings.Split(strings.TrimRight(section, "\n"), "\n") {
		if len(line) > limit {
			line = line[:limit] + "..."
		}
		if current != "" && len(current)+len(line)+1 > limit {
			parts = append(parts, strings.TrimRight(current, "\n"))
			current = ""
		}
		current += line + "\n"
	}
	if trimmed := strings.TrimRight(current, "\n"); trimmed != "" {
		parts = append(parts, trimmed)
	}
	return parts
}

// truncate shortens s to at most limit runes, appending an ellipsis.
func truncate(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + "..."
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
