// Package dupcheck holds the duplicate cascade decision logic: given the
// outcome of a content-hash existence check for one item, decide whether to
// ingest it, skip it, or declare the source up to date and stop scanning.
//
// The checker assumes candidates arrive newest-first. Once a duplicate is
// seen and the next candidate is strictly older (or there is none), every
// remaining candidate is older than something already archived, so the scan
// can stop. Sources whose listing dates are not a reliable total order set
// NonMonotonic, which leaves only the streak threshold as a stop rule.
package dupcheck

import "time"

// DefaultThreshold is the number of consecutive duplicates that stops a scan.
const DefaultThreshold = 5

// Decision is the checker's verdict for one item.
type Decision int

// Decisions returned by Observe.
const (
	// Ingest means the item is new and must be written.
	Ingest Decision = iota
	// Skip means the item is a duplicate and scanning continues.
	Skip
	// StopUpToDate means the source is up to date; commit and stop.
	StopUpToDate
)

func (d Decision) String() string {
	switch d {
	case Ingest:
		return "ingest"
	case Skip:
		return "skip"
	case StopUpToDate:
		return "stop_up_to_date"
	default:
		return "unknown"
	}
}

// Reason explains a StopUpToDate decision.
type Reason string

// Stop reasons.
const (
	ReasonNone      Reason = ""
	ReasonNextOlder Reason = "next_older"
	ReasonStreak    Reason = "streak"
)

// Config controls a Checker.
type Config struct {
	FullCrawl    bool
	Threshold    int
	NonMonotonic bool
}

// Checker tracks the duplicate streak for a single source pass.
type Checker struct {
	cfg    Config
	streak int
}

// New returns a Checker for one pass. A negative threshold is treated as 0,
// which stops on the first duplicate.
func New(cfg Config) *Checker {
	if cfg.Threshold < 0 {
		cfg.Threshold = 0
	}
	return &Checker{cfg: cfg}
}

// Streak returns the current count of consecutive duplicates.
func (c *Checker) Streak() int {
	return c.streak
}

// Observe records one item. current is the item's filed date and next is
// the following item's filed date, or nil when the item is the last one.
func (c *Checker) Observe(duplicate bool, current time.Time, next *time.Time) (Decision, Reason) {
	if !duplicate {
		c.streak = 0
		return Ingest, ReasonNone
	}
	if c.cfg.FullCrawl {
		return Skip, ReasonNone
	}

	c.streak++
	nextOlder := next == nil || next.Before(current)
	if nextOlder && !c.cfg.NonMonotonic {
		return StopUpToDate, ReasonNextOlder
	}
	if c.streak >= c.cfg.Threshold {
		return StopUpToDate, ReasonStreak
	}
	return Skip, ReasonNone
}
