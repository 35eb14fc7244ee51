package models

import "time"

// Defaults for operator-tunable settings.
const (
	DefaultMaxJobsPerSource   = 10
	DefaultScanIntervalHours  = 1
	DefaultReportTime         = "09:00"
	DefaultTimezone           = "Local"
	DefaultCleanupDays        = 30
	DefaultMaxStoredPerSource = 1000
	DefaultPartDelay          = time.Second
	DefaultFetchTimeout       = 30 * time.Second
	DefaultFetchConcurrency   = 4
	DefaultDescriptionLimit   = 100
)

// Settings are the already-parsed operator tunables consumed by the
// pipeline. The config package builds them from config.json; tests build
// them directly.
type Settings struct {
	// Digest rendering.
	DigestFormat       string
	MaxJobsPerSource   int
	ShowStats          bool
	ShowCompany        bool
	ShowLocation       bool
	IncludeDescription bool

	// Scheduling.
	ScanIntervalHours int
	ReportTime        string // "HH:MM", daily report trigger in daemon mode
	Timezone          string // IANA zone name for the report trigger

	// Retention.
	CleanupDays        int
	MaxStoredPerSource int

	// Delivery pacing between digest parts.
	PartDelay time.Duration

	// Fetching.
	FetchTimeout     time.Duration
	FetchConcurrency int

	// Filtering. An empty keyword list matches everything when
	// MatchAllIfNoKeywords is set; this is the shipped default.
	MatchAllIfNoKeywords bool
	AllowedLocations     []string
}

// DefaultSettings returns the settings used when config.json is absent.
func DefaultSettings() Settings {
	return Settings{
		DigestFormat:         "grouped",
		MaxJobsPerSource:     DefaultMaxJobsPerSource,
		ShowStats:            true,
		ShowCompany:          true,
		ShowLocation:         true,
		IncludeDescription:   false,
		ScanIntervalHours:    DefaultScanIntervalHours,
		ReportTime:           DefaultReportTime,
		Timezone:             DefaultTimezone,
		CleanupDays:          DefaultCleanupDays,
		MaxStoredPerSource:   DefaultMaxStoredPerSource,
		PartDelay:            DefaultPartDelay,
		FetchTimeout:         DefaultFetchTimeout,
		FetchConcurrency:     DefaultFetchConcurrency,
		MatchAllIfNoKeywords: true,
	}
}
