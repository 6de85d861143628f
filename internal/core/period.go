package core

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Period identifies a billing month. The zero value is not a valid period.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodSet is a sorted set of canonical period keys.
type PeriodSet []string

// NewPeriod builds a period, normalizing months outside 1..12.
func NewPeriod(year int, month time.Month) Period {
	return PeriodOf(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC))
}

// PeriodOf returns the period containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// ParsePeriod parses a canonical "YYYY-MM" key.
func ParsePeriod(s string) (Period, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	m, err := strconv.Atoi(s[5:])
	if err != nil || m < 1 || m > 12 {
		return Period{}, fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
	return Period{Year: y, Month: time.Month(m)}, nil
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// AddMonths shifts the period by n months (n may be negative).
func (p Period) AddMonths(n int) Period {
	return NewPeriod(p.Year, p.Month+time.Month(n))
}

// MonthsSince returns the signed month distance p - q.
func (p Period) MonthsSince(q Period) int {
	return (p.Year-q.Year)*12 + int(p.Month) - int(q.Month)
}

func (p Period) Compare(q Period) int {
	switch d := p.MonthsSince(q); {
	case d < 0:
		return -1
	case d > 0:
		return 1
	}
	return 0
}

func (p Period) Before(q Period) bool { return p.Compare(q) < 0 }
func (p Period) After(q Period) bool  { return p.Compare(q) > 0 }

// Day returns the given day of the period at midnight UTC. Days past the
// end of the month clamp to its last day.
func (p Period) Day(day int) time.Time {
	last := time.Date(p.Year, p.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
}

func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Period) UnmarshalText(b []byte) error {
	parsed, err := ParsePeriod(string(b))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Has reports whether p is in the set.
func (s PeriodSet) Has(p Period) bool {
	_, found := slices.BinarySearch(s, p.String())
	if found {
		return true
	}
	// Legacy documents may hold unsorted keys.
	return slices.Contains(s, p.String())
}

// Add returns the set with p inserted, keeping it sorted and unique.
func (s PeriodSet) Add(p Period) PeriodSet {
	if s.Has(p) {
		return s
	}
	out := append(PeriodSet{}, s...)
	out = append(out, p.String())
	slices.Sort(out)
	return out
}

// Remove returns the set without p.
func (s PeriodSet) Remove(p Period) PeriodSet {
	key := p.String()
	out := make(PeriodSet, 0, len(s))
	for _, v := range s {
		if v != key {
			out = append(out, v)
		}
	}
	return out
}

func (s PeriodSet) Len() int { return len(s) }
