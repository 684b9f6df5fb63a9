package engine

import (
	"time"
)

type restrictMode uint8

const (
	modeAny restrictMode = iota
	modeOneOf
	modeNoneOf
)

// Restriction constrains one column. The zero value places no restriction.
type Restriction struct {
	mode   restrictMode
	values []string
}

// Any places no restriction on a column.
func Any() Restriction { return Restriction{} }

// OneOf keeps records whose value is in values. OneOf() matches nothing.
func OneOf(values ...string) Restriction {
	return Restriction{mode: modeOneOf, values: append([]string(nil), values...)}
}

// NoneOf keeps records whose value is not in values.
func NoneOf(values ...string) Restriction {
	return Restriction{mode: modeNoneOf, values: append([]string(nil), values...)}
}

// AnyUnlessEmpty is the dashboard control rule: an empty multi-select means
// every value, not none.
func AnyUnlessEmpty(values []string) Restriction {
	if len(values) == 0 {
		return Any()
	}
	return OneOf(values...)
}

func (r Restriction) Restricted() bool { return r.mode != modeAny }

// DateRange is an inclusive calendar-date range. A zero bound is open; the
// zero DateRange does not restrict at all. Any set bound drops records with
// a null timestamp.
type DateRange struct {
	Start, End time.Time
}

func Between(start, end time.Time) DateRange { return DateRange{Start: start, End: end} }

func (d DateRange) IsZero() bool { return d.Start.IsZero() && d.End.IsZero() }

func (d DateRange) validate() error {
	if !d.Start.IsZero() && !d.End.IsZero() && dateKey(d.Start) > dateKey(d.End) {
		return &InvalidRangeError{Start: d.Start, End: d.End}
	}
	return nil
}

// Selection is the current filter state. The zero value selects every record.
type Selection struct {
	Gender     Restriction
	Country    Restriction
	Occupation Restriction
	Dates      DateRange
	// Where restricts any categorical or derived column, on top of the
	// fields above.
	Where map[string]Restriction
}

type columnRestriction struct {
	column string
	Restriction
}

// restrictions lists every active restriction. A column restricted both by
// a field and in Where appears twice; both apply.
func (s Selection) restrictions() []columnRestriction {
	out := make([]columnRestriction, 0, len(s.Where)+3)
	for col, r := range map[string]Restriction{
		ColGender:     s.Gender,
		ColCountry:    s.Country,
		ColOccupation: s.Occupation,
	} {
		if r.Restricted() {
			out = append(out, columnRestriction{column: col, Restriction: r})
		}
	}
	for col, r := range s.Where {
		if r.Restricted() {
			out = append(out, columnRestriction{column: col, Restriction: r})
		}
	}
	return out
}

// Filter returns a new table with the records matching every active
// restriction, in source order. The input table is not modified.
func Filter(t *Table, sel Selection) (*Table, error) {
	if err := sel.Dates.validate(); err != nil {
		return nil, err
	}

	type predicate struct {
		code    func(row int) int
		allowed []bool
	}
	var preds []predicate
	for _, cr := range sel.restrictions() {
		dim, err := t.dimension(cr.column)
		if err != nil {
			return nil, err
		}
		preds = append(preds, predicate{code: dim.code, allowed: dim.match(cr.Restriction)})
	}

	var lo, hi int32
	dated := !sel.Dates.IsZero()
	if !sel.Dates.Start.IsZero() {
		lo = dateKey(sel.Dates.Start)
	}
	if !sel.Dates.End.IsZero() {
		hi = dateKey(sel.Dates.End)
	}

	rows := make([]int, 0, t.Len())
rowLoop:
	for i := 0; i < t.Len(); i++ {
		if dated {
			d := t.dates[i]
			if d == 0 || (lo != 0 && d < lo) || (hi != 0 && d > hi) {
				continue
			}
		}
		for _, p := range preds {
			if !p.allowed[p.code(i)] {
				continue rowLoop
			}
		}
		rows = append(rows, i)
	}

	if len(rows) == t.Len() {
		return t, nil
	}
	return t.take(rows), nil
}
