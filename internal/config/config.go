// Package config loads the operator-editable JSON files: resources.json
// (sources), keywords.json (filter terms) and config.json (tunables).
//
// Missing files are not fatal; each falls back to documented defaults
// with a warning so a fresh deployment works out of the box. Example
// files are written on first run as a starting point.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jobmonitor/internal/models"
)

// File names looked up inside the config directory.
const (
	ResourcesFile = "resources.json"
	KeywordsFile  = "keywords.json"
	SettingsFile  = "config.json"
)

// settingsFile mirrors the config.json layout. Boolean flags that
// default to true are pointers so an absent key is distinguishable from
// an explicit false.
type settingsFile struct {
	Telegram struct {
		DigestFormat       string `json:"digest_format"`
		MaxJobsPerSource   int    `json:"max_jobs_per_source"`
		ShowStats          *bool  `json:"show_stats"`
		ShowCompany        *bool  `json:"show_company"`
		ShowLocation       *bool  `json:"show_location"`
		IncludeDescription bool   `json:"include_description"`
	} `json:"telegram"`
	Scheduler struct {
		ScanIntervalHours int    `json:"scan_interval_hours"`
		ReportTime        string `json:"report_time"`
		Timezone          string `json:"timezone"`
	} `json:"scheduler"`
	Filter struct {
		AllowedLocations     []string `json:"allowed_locations"`
		MatchAllIfNoKeywords *bool    `json:"match_all_if_no_keywords"`
	} `json:"filter"`
	Database struct {
		CleanupDays      int `json:"cleanup_days"`
		MaxJobsPerSource int `json:"max_jobs_per_source"`
	} `json:"database"`
}

// Config is the fully loaded operator configuration.
type Config struct {
	Sources  []models.SourceConfig
	Keywords []string
	Settings models.Settings
}

// Load reads the three config files from dir. Missing files fall back
// to defaults with a warning; malformed files are errors so silent
// misconfiguration cannot eat postings.
func Load(dir string) (*Config, error) {
	cfg := &Config{Settings: models.DefaultSettings()}

	var declared []models.SourceConfig
	if err := loadJSON(filepath.Join(dir, ResourcesFile), &declared); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Warn("resources file missing, no sources configured", "path", filepath.Join(dir, ResourcesFile))
	}
	// A malformed source descriptor disables that source, not the run.
	for _, src := range declared {
		if err := src.Validate(); err != nil {
			slog.Warn("skipping invalid source", "source", src.Name, "error", err)
			continue
		}
		cfg.Sources = append(cfg.Sources, src)
	}

	if err := loadJSON(filepath.Join(dir, KeywordsFile), &cfg.Keywords); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Warn("keywords file missing, keyword filter disabled", "path", filepath.Join(dir, KeywordsFile))
	}

	var raw settingsFile
	if err := loadJSON(filepath.Join(dir, SettingsFile), &raw); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		slog.Warn("settings file missing, using defaults", "path", filepath.Join(dir, SettingsFile))
		return cfg, nil
	}
	applySettings(&cfg.Settings, raw)

	if _, err := parseReportTime(cfg.Settings.ReportTime); err != nil {
		return nil, fmt.Errorf("%s: %w", SettingsFile, err)
	}
	if _, err := time.LoadLocation(cfg.Settings.Timezone); err != nil {
		return nil, fmt.Errorf("%s: timezone %q: %w", SettingsFile, cfg.Settings.Timezone, err)
	}
	return cfg, nil
}

func applySettings(s *models.Settings, raw settingsFile) {
	if raw.Telegram.DigestFormat != "" {
		s.DigestFormat = raw.Telegram.DigestFormat
	}
	if raw.Telegram.MaxJobsPerSource > 0 {
		s.MaxJobsPerSource = raw.Telegram.MaxJobsPerSource
	}
	if raw.Telegram.ShowStats != nil {
		s.ShowStats = *raw.Telegram.ShowStats
	}
	if raw.Telegram.ShowCompany != nil {
		s.ShowCompany = *raw.Telegram.ShowCompany
	}
	if raw.Telegram.ShowLocation != nil {
		s.ShowLocation = *raw.Telegram.ShowLocation
	}
	s.IncludeDescription = raw.Telegram.IncludeDescription

	if raw.Scheduler.ScanIntervalHours > 0 {
		s.ScanIntervalHours = raw.Scheduler.ScanIntervalHours
	}
	if raw.Scheduler.ReportTime != "" {
		s.ReportTime = raw.Scheduler.ReportTime
	}
	if raw.Scheduler.Timezone != "" {
		s.Timezone = raw.Scheduler.Timezone
	}

	s.AllowedLocations = raw.Filter.AllowedLocations
	if raw.Filter.MatchAllIfNoKeywords != nil {
		s.MatchAllIfNoKeywords = *raw.Filter.MatchAllIfNoKeywords
	}

	if raw.Database.CleanupDays > 0 {
		s.CleanupDays = raw.Database.CleanupDays
	}
	if raw.Database.MaxJobsPerSource > 0 {
		s.MaxStoredPerSource = raw.Database.MaxJobsPerSource
	}
}

// parseReportTime validates the HH:MM daily report trigger.
func parseReportTime(value string) (time.Time, error) {
	t, err := time.Parse("15:04", value)
	if err != nil {
		return time.Time{}, fmt.Errorf("report_time %q: want HH:MM", value)
	}
	return t, nil
}

func loadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parsing %s: %w", filepath.Base(path), err)
	}
	slog.Debug("config file loaded", "path", path)
	return nil
}
