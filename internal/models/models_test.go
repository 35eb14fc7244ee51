package models

import (
	"errors"
	"testing"
)

func TestDedupHash(t *testing.T) {
	p := JobPosting{SourceName: "HN", Title: "Go engineer", Link: "https://hn.example/1"}

	if DedupHash(p) != DedupHash(p) {
		t.Error("hash must be deterministic")
	}

	other := p
	other.Description = "different description, same identity"
	if DedupHash(p) != DedupHash(other) {
		t.Error("description must not affect the identity hash")
	}

	renamed := p
	renamed.SourceName = "DOU"
	if DedupHash(p) == DedupHash(renamed) {
		t.Error("same title/link from another source is a distinct posting")
	}
}

func TestSourceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		src     SourceConfig
		wantErr error
	}{
		{
			name: "valid rss",
			src:  SourceConfig{Name: "HN", Type: SourceTypeRSS, URL: "https://hnrss.org/jobs"},
		},
		{
			name: "valid html",
			src: SourceConfig{Name: "DOU", Type: SourceTypeHTML, URL: "https://jobs.example",
				Selectors: map[string]string{SelectorContainer: ".v", SelectorTitle: ".t", SelectorLink: ".t"}},
		},
		{
			name:    "missing name",
			src:     SourceConfig{Type: SourceTypeRSS, URL: "https://x.example"},
			wantErr: ErrEmptySourceName,
		},
		{
			name:    "missing url",
			src:     SourceConfig{Name: "X", Type: SourceTypeRSS},
			wantErr: ErrEmptySourceURL,
		},
		{
			name:    "unknown type",
			src:     SourceConfig{Name: "X", Type: "soap", URL: "https://x.example"},
			wantErr: ErrInvalidSourceType,
		},
		{
			name: "html missing link selector",
			src: SourceConfig{Name: "X", Type: SourceTypeHTML, URL: "https://x.example",
				Selectors: map[string]string{SelectorContainer: ".v", SelectorTitle: ".t"}},
			wantErr: ErrMissingSelector,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.src.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}
