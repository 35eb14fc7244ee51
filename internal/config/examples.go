package config

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"jobmonitor/internal/models"
)

// WriteExamples creates starter config files in dir for every config
// file that does not exist yet. Existing files are never overwritten.
func WriteExamples(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	files := []struct {
		name    string
		content any
	}{
		{ResourcesFile, exampleSources()},
		{KeywordsFile, exampleKeywords()},
		{SettingsFile, exampleSettings()},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if _, err := os.Stat(path); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking %s: %w", path, err)
		}
		data, err := json.MarshalIndent(f.content, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding example %s: %w", f.name, err)
		}
		if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
			return fmt.Errorf("writing example %s: %w", path, err)
		}
		slog.Info("example config file written", "path", path)
	}
	return nil
}

func exampleSources() []models.SourceConfig {
	return []models.SourceConfig{
		{
			Name: "WeWorkRemotely Go",
			Type: models.SourceTypeRSS,
			URL:  "https://weworkremotely.com/categories/remote-programming-jobs.rss",
		},
		{
			Name: "DOU Go",
			Type: models.SourceTypeHTML,
			URL:  "https://jobs.dou.ua/vacancies/?category=Golang",
			Selectors: map[string]string{
				models.SelectorContainer:   "li.l-vacancy",
				models.SelectorTitle:       "div.title a.vt",
				models.SelectorLink:        "div.title a.vt",
				models.SelectorCompany:     "strong a.company",
				models.SelectorLocation:    "span.cities",
				models.SelectorDescription: "div.sh-info",
			},
		},
	}
}

func exampleKeywords() []string {
	return []string{"go", "golang", "backend", "remote"}
}

func exampleSettings() settingsFile {
	yes := true
	no := false

	var raw settingsFile
	raw.Telegram.DigestFormat = "grouped"
	raw.Telegram.MaxJobsPerSource = models.DefaultMaxJobsPerSource
	raw.Telegram.ShowStats = &yes
	raw.Telegram.ShowCompany = &yes
	raw.Telegram.ShowLocation = &yes
	raw.Telegram.IncludeDescription = no
	raw.Scheduler.ScanIntervalHours = models.DefaultScanIntervalHours
	raw.Scheduler.ReportTime = models.DefaultReportTime
	raw.Scheduler.Timezone = models.DefaultTimezone
	raw.Filter.AllowedLocations = []string{}
	raw.Filter.MatchAllIfNoKeywords = &yes
	raw.Database.CleanupDays = models.DefaultCleanupDays
	raw.Database.MaxJobsPerSource = models.DefaultMaxStoredPerSource
	return raw
}
