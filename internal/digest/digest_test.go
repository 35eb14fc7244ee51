package digest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"jobmonitor/internal/models"
)

func testSettings() models.Settings {
	s := models.DefaultSettings()
	s.MaxJobsPerSource = 3
	return s
}

func stored(id int64, source, title, link string) models.StoredPosting {
	return models.StoredPosting{
		ID: id,
		JobPosting: models.JobPosting{
			SourceName: source,
			Title:      title,
			Link:       link,
		},
	}
}

func scanResult() models.ScanResult {
	return models.ScanResult{
		ScannedCount: 10,
		NewCount:     5,
		RunTimestamp: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
}

func TestAssembleEmpty(t *testing.T) {
	a := NewAssembler(testSettings())
	msg, ids := a.Assemble(nil, nil, scanResult())
	if len(msg.Parts) != 1 {
		t.Fatalf("expected single part, got %d", len(msg.Parts))
	}
	if msg.Parts[0] != EmptyDigestMessage {
		t.Errorf("expected the no-postings message, got %q", msg.Parts[0])
	}
	if len(ids) != 0 {
		t.Errorf("no ids should be included, got %v", ids)
	}
}

func TestAssembleGroupsAndCounts(t *testing.T) {
	a := NewAssembler(testSettings())
	postings := []models.StoredPosting{
		stored(1, "HN", "Go engineer", "https://hn.example/1"),
		stored(2, "DOU", "Python engineer", "https://dou.example/1"),
		stored(3, "HN", "Rust engineer", "https://hn.example/2"),
	}

	msg, ids := a.Assemble(postings, []string{"DOU", "HN"}, scanResult())
	if len(msg.Parts) != 1 {
		t.Fatalf("expected single part, got %d", len(msg.Parts))
	}
	body := msg.Parts[0]

	// Configured source order is respected.
	douIdx := strings.Index(body, "*DOU*")
	hnIdx := strings.Index(body, "*HN*")
	if douIdx == -1 || hnIdx == -1 {
		t.Fatalf("missing source sections in:\n%s", body)
	}
	if douIdx > hnIdx {
		t.Error("sections must follow configured source order")
	}

	if !strings.Contains(body, "[Go engineer](https://hn.example/1)") {
		t.Errorf("posting not rendered as link:\n%s", body)
	}
	if !strings.Contains(body, "🔍 Scanned: 10") || !strings.Contains(body, "➕ New: 5") || !strings.Contains(body, "📤 In digest: 3") {
		t.Errorf("stats header wrong:\n%s", body)
	}
	if len(ids) != 3 {
		t.Errorf("expected 3 included ids, got %v", ids)
	}
}

func TestAssembleStatsHidden(t *testing.T) {
	s := testSettings()
	s.ShowStats = false
	a := NewAssembler(s)

	msg, _ := a.Assemble([]models.StoredPosting{stored(1, "HN", "Go engineer", "https://hn.example/1")}, nil, scanResult())
	if strings.Contains(msg.Parts[0], "Scanned:") {
		t.Errorf("stats must be omitted when show_stats is off:\n%s", msg.Parts[0])
	}
}

func TestAssemblePerSourceCap(t *testing.T) {
	a := NewAssembler(testSettings()) // cap 3
	var postings []models.StoredPosting
	for i := 1; i <= 5; i++ {
		postings = append(postings, stored(int64(i), "HN", fmt.Sprintf("Posting %d", i), fmt.Sprintf("https://hn.example/%d", i)))
	}

	msg, ids := a.Assemble(postings, nil, scanResult())
	body := msg.Parts[0]

	if !strings.Contains(body, "Posting 3") {
		t.Errorf("capped section must render up to the cap:\n%s", body)
	}
	if strings.Contains(body, "Posting 4") {
		t.Errorf("postings beyond the cap must be omitted:\n%s", body)
	}
	if !strings.Contains(body, "... and 2 more") {
		t.Errorf("hidden count note missing:\n%s", body)
	}
	// Omitted postings stay out of the ids so they remain unsent.
	if len(ids) != 3 {
		t.Fatalf("expected 3 included ids, got %v", ids)
	}
	for _, id := range ids {
		if id > 3 {
			t.Errorf("id %d beyond the cap must not be included", id)
		}
	}
}

func TestAssembleOptionalFields(t *testing.T) {
	s := testSettings()
	s.IncludeDescription = true
	a := NewAssembler(s)

	p := stored(1, "HN", "Go engineer", "https://hn.example/1")
	p.Location = "Remote"
	p.Company = "Acme"
	p.Description = strings.Repeat("x", 150)

	msg, _ := a.Assemble([]models.StoredPosting{p}, nil, scanResult())
	body := msg.Parts[0]
	if !strings.Contains(body, "🌍 Remote") || !strings.Contains(body, "🏢 Acme") {
		t.Errorf("location/company missing:\n%s", body)
	}
	if !strings.Contains(body, strings.Repeat("x", 100)+"...") {
		t.Errorf("description not truncated to 100 runes:\n%s", body)
	}
	if strings.Contains(body, strings.Repeat("x", 101)) {
		t.Errorf("description too long:\n%s", body)
	}

	s.ShowLocation = false
	s.ShowCompany = false
	s.IncludeDescription = false
	msg, _ = NewAssembler(s).Assemble([]models.StoredPosting{p}, nil, scanResult())
	body = msg.Parts[0]
	if strings.Contains(body, "🌍") || strings.Contains(body, "🏢") || strings.Contains(body, "_x") {
		t.Errorf("disabled fields rendered:\n%s", body)
	}
}

func TestAssembleSplitsAtSectionBoundaries(t *testing.T) {
	s := testSettings()
	s.MaxJobsPerSource = 100
	a := NewAssembler(s)

	// Enough long postings across sources to exceed one part.
	var postings []models.StoredPosting
	id := int64(1)
	for src := 0; src < 4; src++ {
		source := fmt.Sprintf("Source-%d", src)
		for i := 0; i < 10; i++ {
			p := stored(id, source, strings.Repeat("t", 120), fmt.Sprintf("https://s%d.example/%d", src, i))
			postings = append(postings, p)
			id++
		}
	}

	msg, ids := a.Assemble(postings, nil, scanResult())
	if len(msg.Parts) < 2 {
		t.Fatalf("expected multiple parts, got %d", len(msg.Parts))
	}
	if len(ids) != 40 {
		t.Errorf("all postings should be included, got %d ids", len(ids))
	}
	for i, part := range msg.Parts {
		if len(part) > MaxMessageLength {
			t.Errorf("part %d exceeds the size limit: %d bytes", i, len(part))
		}
		if !strings.Contains(part, fmt.Sprintf("(%d/%d)", i+1, len(msg.Parts))) {
			t.Errorf("part %d missing its part header", i)
		}
		// A posting line must never be split mid-way.
		for _, line := range strings.Split(part, "\n") {
			if strings.Contains(line, "](") && !strings.Contains(line, ")") {
				t.Errorf("posting line split mid-way in part %d: %q", i, line)
			}
		}
	}
}

func TestReport(t *testing.T) {
	a := NewAssembler(testSettings())
	stats := models.StoreStats{
		Total:    42,
		NewSince: 7,
		Unsent:   3,
		PerSource: map[string]int{
			"HN":  5,
			"DOU": 2,
		},
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	text := a.Report(stats, now.Add(-24*time.Hour), now)

	for _, want := range []string{"42", "New since", "7", "Awaiting digest: 3", "HN: 5 new", "DOU: 2 new"} {
		if !strings.Contains(text, want) {
			t.Errorf("report missing %q:\n%s", want, text)
		}
	}
}
