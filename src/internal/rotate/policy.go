package rotate

import (
	"fmt"
	"strings"
	"time"
)

// When identifies the time unit driving time-based rotation.
// Weekly units are "W0" (Monday) through "W6" (Sunday).
type When string

const (
	Seconds  When = "S"
	Minutes  When = "M"
	Hours    When = "H"
	Days     When = "D"
	Midnight When = "MIDNIGHT"
)

// Naming selects the backup file naming scheme.
type Naming string

const (
	// file.1, file.2, ... with file.1 the most recent
	NamingCount Naming = "count"

	// file.<YYYY-MM-DD_HH-MM-SS-ffff>, oldest deleted beyond BackupCount
	NamingTime Naming = "time"
)

// Policy describes when the live log file rotates and how backups are
// named and retained. A Policy is a pure value: validated once at
// writer construction and never mutated afterwards.
type Policy struct {
	// Size threshold in bytes (0 = size-based rotation disabled)
	MaxBytes int64

	// Rotated backups to retain
	BackupCount int

	// Time unit for scheduled rotation
	When When

	// Multiplier for fixed units (S/M/H/D)
	Interval int

	// Optional "HH:MM:SS" anchor applied to MIDNIGHT/weekly rotation
	AtTime string

	// Backup naming scheme, NamingCount when empty
	Naming Naming
}

var fixedUnits = map[When]time.Duration{
	Seconds: time.Second,
	Minutes: time.Minute,
	Hours:   time.Hour,
	Days:    24 * time.Hour,
}

// Validate rejects invalid policy combinations. Called eagerly at
// writer construction so bad configuration fails startup, not the
// first rotation.
func (p Policy) Validate() error {
	if p.MaxBytes < 0 {
		return fmt.Errorf("max bytes must not be negative: %d", p.MaxBytes)
	}
	if p.BackupCount < 0 {
		return fmt.Errorf("backup count must not be negative: %d", p.BackupCount)
	}
	if p.Interval <= 0 {
		return fmt.Errorf("interval must be positive: %d", p.Interval)
	}

	if _, ok := fixedUnits[p.When]; !ok && p.When != Midnight {
		if _, err := p.weeklyDay(); err != nil {
			return err
		}
	}

	if p.AtTime != "" {
		if _, err := time.Parse("15:04:05", p.AtTime); err != nil {
			return fmt.Errorf("invalid at_time %q, expected HH:MM:SS: %w", p.AtTime, err)
		}
	}

	switch p.Naming {
	case "", NamingCount, NamingTime:
	default:
		return fmt.Errorf("invalid backup naming %q, supported values are 'count' and 'time'", p.Naming)
	}

	return nil
}

// NextRollover computes the next scheduled rotation instant strictly
// after now.
func (p Policy) NextRollover(now time.Time) (time.Time, error) {
	switch {
	case p.When == Midnight:
		h, m, s := p.anchor()
		d := now.AddDate(0, 0, 1)
		return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, now.Location()), nil

	case fixedUnits[p.When] != 0:
		return now.Add(time.Duration(p.Interval) * fixedUnits[p.When]), nil

	case strings.HasPrefix(string(p.When), "W"):
		target, err := p.weeklyDay()
		if err != nil {
			return time.Time{}, err
		}

		// Monday-based weekday of now, matching the W0..W6 vocabulary
		weekday := (int(now.Weekday()) + 6) % 7

		// Same weekday schedules next week, never today
		days := (target - weekday + 7) % 7
		if days == 0 {
			days = 7
		}

		h, m, s := p.anchor()
		d := now.AddDate(0, 0, days)
		return time.Date(d.Year(), d.Month(), d.Day(), h, m, s, 0, now.Location()), nil

	default:
		return time.Time{}, fmt.Errorf(
			"unhandled rotation schedule %q: supported values are 'S', 'M', 'H', 'D', 'MIDNIGHT' and 'W0'..'W6'", p.When)
	}
}

// ShouldRotate reports whether either rotation trigger fires. The size
// and time conditions are independent: either alone rotates.
func (p Policy) ShouldRotate(size int64, now, next time.Time) bool {
	if p.MaxBytes > 0 && size >= p.MaxBytes {
		return true
	}
	return !now.Before(next)
}

func (p Policy) weeklyDay() (int, error) {
	w := string(p.When)
	if len(w) == 2 && w[0] == 'W' && w[1] >= '0' && w[1] <= '9' {
		day := int(w[1] - '0')
		if day > 6 {
			return 0, fmt.Errorf("invalid day in %q: must be between 0 (Monday) and 6 (Sunday)", w)
		}
		return day, nil
	}
	return 0, fmt.Errorf(
		"invalid rotation schedule %q: supported values are 'S', 'M', 'H', 'D', 'MIDNIGHT' and 'W0'..'W6'", w)
}

// anchor returns the configured time-of-day, midnight when unset.
// AtTime is validated up front, a parse failure here falls back to
// midnight rather than failing a rotation mid-flight.
func (p Policy) anchor() (hour, minute, second int) {
	if p.AtTime == "" {
		return 0, 0, 0
	}
	t, err := time.Parse("15:04:05", p.AtTime)
	if err != nil {
		return 0, 0, 0
	}
	return t.Hour(), t.Minute(), t.Second()
}
