// Package scheduler provides cron-based scheduling for daemon mode.
//
// Scan runs use interval descriptors ("@every 1h"); the daily report uses
// a 5-field cron expression derived from the configured wall-clock time.
package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler wraps a cron runner for scan and report jobs.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler evaluating times in
// loc. Descriptors are enabled so intervals can be expressed as
// "@every 2h". A nil location means local time.
func NewScheduler(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	c := cron.New(cron.WithParser(parser), cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression or
// descriptor. It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// ScanSpec returns the descriptor for a scan every intervalHours hours.
func ScanSpec(intervalHours int) string {
	if intervalHours <= 0 {
		intervalHours = 1
	}
	return fmt.Sprintf("@every %dh", intervalHours)
}

// ReportSpec converts a "HH:MM" wall-clock time into the cron expression
// for a daily run at that time.
func ReportSpec(reportTime string) (string, error) {
	hh, mm, ok := strings.Cut(reportTime, ":")
	if !ok {
		return "", fmt.Errorf("report time %q: want HH:MM", reportTime)
	}
	hour, err := strconv.Atoi(hh)
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("report time %q: invalid hour", reportTime)
	}
	minute, err := strconv.Atoi(mm)
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("report time %q: invalid minute", reportTime)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
