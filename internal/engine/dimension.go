package engine

import (
	"fmt"
	"strconv"
	"time"
)

// dimension gives uniform integer access to a categorical or derived column.
// Codes run 0..size-1; derived columns reserve code 0 for a null timestamp.
type dimension struct {
	name    string
	size    int
	derived bool
	code    func(row int) int
	label   func(code int) string
}

func (d dimension) null(code int) bool { return d.derived && code == 0 }

func (t *Table) dimension(name string) (dimension, error) {
	if c, ok := t.colIndex[name]; ok {
		codes, dict := t.codes[c], t.dicts[c]
		return dimension{
			name:  name,
			size:  len(dict),
			code:  func(row int) int { return int(codes[row]) },
			label: func(code int) string { return dict[code] },
		}, nil
	}

	stamps := t.stamps
	switch name {
	case ColHour:
		return dimension{
			name: name, size: 25, derived: true,
			code: func(row int) int {
				if stamps[row].IsZero() {
					return 0
				}
				return stamps[row].Hour() + 1
			},
			label: func(code int) string { return derivedLabel(code, code-1) },
		}, nil
	case ColMonth:
		return dimension{
			name: name, size: 13, derived: true,
			code: func(row int) int {
				if stamps[row].IsZero() {
					return 0
				}
				return int(stamps[row].Month())
			},
			label: func(code int) string { return derivedLabel(code, code) },
		}, nil
	case ColYear:
		base := t.minYear
		size := 1
		if t.maxYear != 0 {
			size = t.maxYear - base + 2
		}
		return dimension{
			name: name, size: size, derived: true,
			code: func(row int) int {
				if stamps[row].IsZero() {
					return 0
				}
				return stamps[row].Year() - base + 1
			},
			label: func(code int) string { return derivedLabel(code, base+code-1) },
		}, nil
	case ColDay:
		return dimension{
			name: name, size: 8, derived: true,
			code: func(row int) int {
				if stamps[row].IsZero() {
					return 0
				}
				return int(stamps[row].Weekday()) + 1
			},
			label: func(code int) string {
				if code == 0 {
					return ""
				}
				return time.Weekday(code - 1).String()
			},
		}, nil
	}
	return dimension{}, fmt.Errorf("%w: %q", ErrUnknownColumn, name)
}

func derivedLabel(code, value int) string {
	if code == 0 {
		return ""
	}
	return strconv.Itoa(value)
}

// match builds a lookup over dimension codes for a restriction.
func (d dimension) match(r Restriction) []bool {
	want := make(map[string]struct{}, len(r.values))
	for _, v := range r.values {
		want[v] = struct{}{}
	}
	allowed := make([]bool, d.size)
	for code := range allowed {
		_, hit := want[d.label(code)]
		if d.null(code) {
			// A null value is never equal to a label.
			hit = false
		}
		allowed[code] = hit == (r.mode == modeOneOf)
	}
	return allowed
}
