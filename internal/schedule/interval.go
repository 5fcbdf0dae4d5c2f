// Package schedule implements the pure interval arithmetic behind the
// availability resolver: parsing clock strings, merging rule windows and
// subtracting busy appointment ranges.
package schedule

import (
	"fmt"
	"sort"
)

// Interval is a half-open [Start, End) range of minutes from midnight.
type Interval struct {
	Start int
	End   int
}

// ParseClock converts a zero-padded "HH:MM" string into minutes from
// midnight. "24:00" is accepted as end-of-day. All four positions must be
// digits; no looser forms are tolerated.
func ParseClock(clock string) (int, error) {
	if len(clock) != 5 || clock[2] != ':' {
		return 0, fmt.Errorf("parse clock %q: want HH:MM", clock)
	}
	for _, i := range [4]int{0, 1, 3, 4} {
		if clock[i] < '0' || clock[i] > '9' {
			return 0, fmt.Errorf("parse clock %q: want HH:MM", clock)
		}
	}
	h := int(clock[0]-'0')*10 + int(clock[1]-'0')
	m := int(clock[3]-'0')*10 + int(clock[4]-'0')
	if m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("parse clock %q: out of range", clock)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight back into "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseInterval builds an Interval from two clock strings, requiring
// start < end.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if s >= e {
		return Interval{}, fmt.Errorf("interval %s-%s: start must precede end", start, end)
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open intervals intersect.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Merge unions overlapping or adjacent intervals into maximal disjoint
// windows, sorted by start. The input slice is not modified.
func Merge(intervals []Interval) []Interval {
	if len(intervals) == 0 {
		return nil
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	merged := []Interval{sorted[0]}
	for _, iv := range sorted[1:] {
		last := &merged[len(merged)-1]
		if iv.Start <= last.End {
			if iv.End > last.End {
				last.End = iv.End
			}
			continue
		}
		merged = append(merged, iv)
	}
	return merged
}

// Subtract removes every busy interval from the given windows and returns
// the remaining free sub-intervals in order. Windows are assumed disjoint
// and sorted (the output of Merge); busy intervals may be arbitrary.
func Subtract(windows, busy []Interval) []Interval {
	if len(windows) == 0 {
		return nil
	}
	if len(busy) == 0 {
		out := make([]Interval, len(windows))
		copy(out, windows)
		return out
	}

	blocked := Merge(busy)

	var free []Interval
	for _, win := range windows {
		cursor := win.Start
		for _, b := range blocked {
			if b.End <= cursor || b.Start >= win.End {
				continue
			}
			if b.Start > cursor {
				free = append(free, Interval{Start: cursor, End: b.Start})
			}
			if b.End > cursor {
				cursor = b.End
			}
		}
		if cursor < win.End {
			free = append(free, Interval{Start: cursor, End: win.End})
		}
	}
	return free
}
