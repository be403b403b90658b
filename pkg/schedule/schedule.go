// Package schedule computes scan fire times and drives the single
// cooperative scan loop (spec.md §4.6), following the precedence scan_day
// > scan_wday > scan_time > interval.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// Config is the scheduling policy for one engine.
type Config struct {
	Interval    time.Duration
	ScanOnStart bool
	// ScanDay is a day-of-month in [1,31], or 0 if unset.
	ScanDay int
	// ScanWday is a weekday in [0,6] (Sunday=0), or -1 if unset.
	ScanWday int
	// ScanTime is "HH:MM", or "" if unset.
	ScanTime string
}

// calendarSet reports whether any calendar field overrides plain interval
// scheduling.
func (c Config) calendarSet() bool {
	return c.ScanDay > 0 || c.ScanWday >= 0 || c.ScanTime != ""
}

func parseHHMM(s string) (hour, minute int, err error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid scan_time %q", s)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid scan_time %q: %w", s, err)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("invalid scan_time %q: %w", s, err)
	}
	return hour, minute, nil
}

// nextDayOfMonth returns the next occurrence of day at hhmm, strictly
// after now.
func nextDayOfMonth(now time.Time, day int, hhmm string) time.Time {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		h, m = 0, 0
	}
	t := time.Date(now.Year(), now.Month(), day, h, m, 0, 0, now.Location())
	if !t.After(now) {
		t = time.Date(now.Year(), now.Month(), 1, h, m, 0, 0, now.Location()).AddDate(0, 1, day-1)
	}
	return t
}

// nextWeekday returns the next occurrence of wday at hhmm, strictly after
// now.
func nextWeekday(now time.Time, wday time.Weekday, hhmm string) time.Time {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		h, m = 0, 0
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	for t.Weekday() != wday || !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// nextHour returns the next occurrence of hhmm, strictly after now.
func nextHour(now time.Time, hhmm string) time.Time {
	h, m, err := parseHHMM(hhmm)
	if err != nil {
		h, m = 0, 0
	}
	t := time.Date(now.Year(), now.Month(), now.Day(), h, m, 0, 0, now.Location())
	if !t.After(now) {
		t = t.AddDate(0, 0, 1)
	}
	return t
}

// NextFire computes how long to sleep before the next scan, given the
// current time and whether this is the engine's very first scheduling
// decision (scan_on_start only applies there).
func NextFire(cfg Config, now time.Time, firstRun bool) time.Duration {
	if firstRun && cfg.ScanOnStart {
		return 0
	}

	switch {
	case cfg.ScanDay > 0:
		return nextDayOfMonth(now, cfg.ScanDay, cfg.ScanTime).Sub(now)
	case cfg.ScanWday >= 0:
		return nextWeekday(now, time.Weekday(cfg.ScanWday), cfg.ScanTime).Sub(now)
	case cfg.ScanTime != "":
		return nextHour(now, cfg.ScanTime).Sub(now)
	default:
		return cfg.Interval
	}
}

// Scheduler drives the single cooperative scan loop.
type Scheduler struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Scheduler for cfg.
func New(cfg Config, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, logger: logger}
}

// Run blocks, invoking scan once per computed fire time, until ctx is
// canceled. Scans never run concurrently: the loop is single-threaded per
// spec.md §5, sleeping between cycles at a cooperative cancellation point.
func (s *Scheduler) Run(ctx context.Context, scan func(context.Context)) error {
	firstRun := true
	for {
		sleep := NextFire(s.cfg, time.Now(), firstRun)
		if sleep > 0 {
			timer := time.NewTimer(sleep)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
		}
		firstRun = false

		if ctx.Err() != nil {
			return ctx.Err()
		}

		start := time.Now()
		scan(ctx)
		elapsed := time.Since(start)

		if !s.cfg.calendarSet() && elapsed >= s.cfg.Interval {
			s.logger.Warn("scan interval overrun, resetting schedule",
				"elapsed", elapsed, "interval", s.cfg.Interval)
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}
