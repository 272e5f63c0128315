// Package fiscal maps calendar dates onto fiscal reporting periods.
package fiscal

import (
	"errors"
	"fmt"
	"time"
)

// Periodicity enumerates report bucketing granularities.
type Periodicity string

const (
	Monthly    Periodicity = "Monthly"
	Quarterly  Periodicity = "Quarterly"
	HalfYearly Periodicity = "Half Yearly"
	Yearly     Periodicity = "Yearly"
)

// ErrUnknownPeriodicity indicates an unrecognised periodicity value.
var ErrUnknownPeriodicity = errors.New("fiscal: unknown periodicity")

// ParsePeriodicity converts a user-supplied string into a Periodicity.
func ParsePeriodicity(s string) (Periodicity, error) {
	switch s {
	case "Monthly", "monthly", "month":
		return Monthly, nil
	case "Quarterly", "quarterly", "quarter":
		return Quarterly, nil
	case "Half Yearly", "half-yearly", "halfyearly":
		return HalfYearly, nil
	case "Yearly", "yearly", "year":
		return Yearly, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriodicity, s)
	}
}

// Months returns the month step between consecutive periods.
func (p Periodicity) Months() int {
	switch p {
	case Quarterly:
		return 3
	case HalfYearly:
		return 6
	case Yearly:
		return 12
	default:
		return 1
	}
}

// DateRange is a half-open [From, To) window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range.
func (r DateRange) Contains(d time.Time) bool {
	return !d.Before(r.From) && d.Before(r.To)
}

// Year describes a fiscal year by its MM-DD boundaries. Split is true when
// the year crosses a calendar year boundary (e.g. April to March).
type Year struct {
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
	Split      bool

	// quarters maps a calendar month (index time.Month-1) to the fiscal
	// quarter 1..4, rotated so quarter 1 begins at StartMonth.
	quarters [12]int
}

// NewYear builds a fiscal year definition from "MM-DD" boundary values.
func NewYear(start, end string) (Year, error) {
	sm, sd, err := parseMonthDay(start)
	if err != nil {
		return Year{}, fmt.Errorf("fiscal: start %q: %w", start, err)
	}
	em, ed, err := parseMonthDay(end)
	if err != nil {
		return Year{}, fmt.Errorf("fiscal: end %q: %w", end, err)
	}
	y := Year{
		StartMonth: sm,
		StartDay:   sd,
		EndMonth:   em,
		EndDay:     ed,
		Split:      sm != time.January,
	}
	for m := 0; m < 12; m++ {
		y.quarters[m] = ((m-int(sm-1)+12)%12)/3 + 1
	}
	return y, nil
}

func parseMonthDay(v string) (time.Month, int, error) {
	var month, day int
	if _, err := fmt.Sscanf(v, "%d-%d", &month, &day); err != nil {
		return 0, 0, errors.New("want MM-DD")
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, errors.New("month-day out of range")
	}
	return time.Month(month), day, nil
}

// Quarter returns the fiscal quarter (1..4) for a calendar month.
func (y Year) Quarter(m time.Month) int {
	return y.quarters[int(m)-1]
}

// StartYearFor returns the calendar year in which the fiscal year
// containing d begins.
func (y Year) StartYearFor(d time.Time) int {
	if d.Month() < y.StartMonth {
		return d.Year() - 1
	}
	return d.Year()
}

// label renders the year portion of a period key: a single calendar year for
// January-anchored fiscal years, a two-year span otherwise.
func (y Year) label(d time.Time) string {
	start := y.StartYearFor(d)
	if !y.Split {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d - %d", start, start+1)
}

// PeriodKey returns the stable bucket label for a date. Identical inputs
// always yield the identical key; callers sort by date, not by label.
func PeriodKey(d time.Time, p Periodicity, y Year) string {
	switch p {
	case Quarterly:
		return fmt.Sprintf("Q%d %s", y.Quarter(d.Month()), y.label(d))
	case HalfYearly:
		half := (y.Quarter(d.Month()) + 1) / 2
		return fmt.Sprintf("H%d %s", half, y.label(d))
	case Yearly:
		return fmt.Sprintf("FY %s", y.label(d))
	default:
		return d.Format("Jan 2006")
	}
}

// PeriodList walks month-aligned steps from the month containing from up to
// and including the month containing to, returning the ordered, deduplicated
// period keys covering the range. Every date in [from, to] maps via
// PeriodKey to a key in the returned list.
func PeriodList(from, to time.Time, p Periodicity, y Year) []string {
	if to.Before(from) {
		return nil
	}
	step := p.Months()
	var keys []string
	seen := make(map[string]bool)
	add := func(k string) {
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	for !cur.After(to) {
		add(PeriodKey(cur, p, y))
		cur = cur.AddDate(0, step, 0)
	}
	// Steps land in consecutive periods, so only the tail can be missing.
	add(PeriodKey(to, p, y))
	return keys
}

// Column pairs a period key with the date window it buckets.
type Column struct {
	Key   string
	Range DateRange
}

// Columns returns the ordered report columns covering [from, to]. Ranges are
// contiguous, non-overlapping and aligned to fiscal period boundaries, so
// each column's range contains exactly the dates PeriodKey maps to its key.
func Columns(from, to time.Time, p Periodicity, y Year) []Column {
	if to.Before(from) {
		return nil
	}
	step := p.Months()
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, from.Location())
	// Snap back to the start of the fiscal period containing from.
	offset := (int(cur.Month()) - int(y.StartMonth) + 12) % 12 % step
	cur = cur.AddDate(0, -offset, 0)
	var cols []Column
	for !cur.After(to) {
		next := cur.AddDate(0, step, 0)
		cols = append(cols, Column{Key: PeriodKey(cur, p, y), Range: DateRange{From: cur, To: next}})
		cur = next
	}
	return cols
}
