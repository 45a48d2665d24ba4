package events

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// MaxDescriptionLen 이벤트 설명 최대 길이 (rune 기준)
const MaxDescriptionLen = 35

// Event is an extraordinary cash flow on a given date.
// Deposit and Withdrawal are both non-negative; either may be zero.
type Event struct {
	Date        time.Time `json:"date" yaml:"date" toml:"date"`
	Description string    `json:"description" yaml:"description" toml:"description"`
	Deposit     float64   `json:"deposit" yaml:"deposit" toml:"deposit"`
	Withdrawal  float64   `json:"withdrawal" yaml:"withdrawal" toml:"withdrawal"`
}

// NewEvent builds a normalised event: description trimmed and capped,
// negative amounts clamped to zero.
func NewEvent(date time.Time, description string, deposit, withdrawal float64) Event {
	e := Event{Date: date, Description: description, Deposit: deposit, Withdrawal: withdrawal}
	return e.Normalize()
}

// Normalize applies the same rules as NewEvent to an already decoded event.
func (e Event) Normalize() Event {
	desc := strings.TrimSpace(e.Description)
	if r := []rune(desc); len(r) > MaxDescriptionLen {
		desc = string(r[:MaxDescriptionLen])
	}
	e.Description = desc
	if e.Deposit < 0 {
		e.Deposit = 0
	}
	if e.Withdrawal < 0 {
		e.Withdrawal = 0
	}
	return e
}

// NetAmount returns Deposit - Withdrawal.
func (e Event) NetAmount() float64 {
	return e.Deposit - e.Withdrawal
}

func (e Event) String() string {
	return fmt.Sprintf("%s %q +%.2f -%.2f", e.Date.Format("2006-01"), e.Description, e.Deposit, e.Withdrawal)
}

// RelativeMonth is the month offset of date from start, ignoring days.
func RelativeMonth(date, start time.Time) int {
	return (date.Year()*12 + int(date.Month())) - (start.Year()*12 + int(start.Month()))
}

// =============================================================================
// Source
// =============================================================================

// Source provides the events of a simulation. The engine only needs the
// consolidated monthly arrays, so any list-like provider can plug in.
type Source interface {
	Consolidate(start time.Time, totalMonths int) Monthly
}

// List is the in-memory Source.
type List []Event

// Consolidate implements Source.
func (l List) Consolidate(start time.Time, totalMonths int) Monthly {
	return Consolidate(l, start, totalMonths)
}

// Sorted returns a copy ordered by date; stable for events sharing a date.
func (l List) Sorted() List {
	out := make(List, len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// =============================================================================
// Yearly summary
// =============================================================================

// YearSummary aggregates the events falling in one calendar year.
type YearSummary struct {
	Year        int      `json:"year"`
	Deposits    float64  `json:"deposits"`
	Withdrawals float64  `json:"withdrawals"`
	Net         float64  `json:"net"`
	Count       int      `json:"count"`
	Details     []string `json:"details,omitempty"`
}

// YearlySummary groups events by calendar year for [startYear, startYear+years).
// Years without events are included with zero totals.
func YearlySummary(list []Event, startYear, years int) []YearSummary {
	out := make([]YearSummary, years)
	for i := range out {
		out[i].Year = startYear + i
	}
	for _, e := range List(list).Sorted() {
		idx := e.Date.Year() - startYear
		if idx < 0 || idx >= years {
			continue
		}
		s := &out[idx]
		s.Deposits += e.Deposit
		s.Withdrawals += e.Withdrawal
		s.Count++
		s.Details = append(s.Details, e.Description)
	}
	for i := range out {
		out[i].Net = out[i].Deposits - out[i].Withdrawals
	}
	return out
}
