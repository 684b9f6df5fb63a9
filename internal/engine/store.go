package engine

import (
	"time"
)

// Source column names of the survey dataset.
const (
	ColTimestamp             = "Timestamp"
	ColGender                = "Gender"
	ColCountry               = "Country"
	ColOccupation            = "Occupation"
	ColSelfEmployed          = "self_employed"
	ColFamilyHistory         = "family_history"
	ColTreatment             = "treatment"
	ColDaysIndoors           = "Days_Indoors"
	ColGrowingStress         = "Growing_Stress"
	ColChangesHabits         = "Changes_Habits"
	ColMentalHealthHistory   = "Mental_Health_History"
	ColMoodSwings            = "Mood_Swings"
	ColCopingStruggles       = "Coping_Struggles"
	ColWorkInterest          = "Work_Interest"
	ColSocialWeakness        = "Social_Weakness"
	ColMentalHealthInterview = "mental_health_interview"
	ColCareOptions           = "care_options"
)

// Derived columns, computed from the timestamp at load.
const (
	ColHour  = "Hour"
	ColMonth = "Month"
	ColYear  = "Year"
	ColDay   = "Day"
)

// RequiredColumns is the fixed source schema. Extra columns are loaded as
// categorical columns too.
var RequiredColumns = []string{
	ColTimestamp,
	ColGender,
	ColCountry,
	ColOccupation,
	ColSelfEmployed,
	ColFamilyHistory,
	ColTreatment,
	ColDaysIndoors,
	ColGrowingStress,
	ColChangesHabits,
	ColMentalHealthHistory,
	ColMoodSwings,
	ColCopingStruggles,
	ColWorkInterest,
	ColSocialWeakness,
	ColMentalHealthInterview,
	ColCareOptions,
}

// DerivedColumns lists the time fields derived from ColTimestamp.
var DerivedColumns = []string{ColHour, ColMonth, ColYear, ColDay}

// Table holds survey responses in Struct-of-Arrays format.
// A Table is never mutated after construction; Filter returns a new one.
type Table struct {
	// Categorical columns, dictionary encoded (ID -> string).
	columns  []string
	colIndex map[string]int
	codes    [][]int32
	dicts    [][]string // shared between a table and its filtered children

	// Zero time means the source value could not be parsed.
	stamps []time.Time
	// Calendar date of each stamp as YYYYMMDD, 0 when null.
	dates []int32

	minYear, maxYear int
	loc              *time.Location
	fingerprint      string
	workers          int
}

func newTable(columns []string, codes [][]int32, dicts [][]string, stamps []time.Time, dates []int32, loc *time.Location) *Table {
	t := &Table{
		columns:  columns,
		colIndex: make(map[string]int, len(columns)),
		codes:    codes,
		dicts:    dicts,
		stamps:   stamps,
		dates:    dates,
		loc:      loc,
		workers:  1,
	}
	for i, c := range columns {
		t.colIndex[c] = i
	}
	for _, ts := range stamps {
		if ts.IsZero() {
			continue
		}
		y := ts.Year()
		if t.minYear == 0 || y < t.minYear {
			t.minYear = y
		}
		if y > t.maxYear {
			t.maxYear = y
		}
	}
	return t
}

// take builds a child table holding the given rows, in the given order.
func (t *Table) take(rows []int) *Table {
	codes := make([][]int32, len(t.codes))
	for c, src := range t.codes {
		dst := make([]int32, len(rows))
		for k, r := range rows {
			dst[k] = src[r]
		}
		codes[c] = dst
	}
	stamps := make([]time.Time, len(rows))
	dates := make([]int32, len(rows))
	for k, r := range rows {
		stamps[k] = t.stamps[r]
		dates[k] = t.dates[r]
	}
	return &Table{
		columns:     t.columns,
		colIndex:    t.colIndex,
		codes:       codes,
		dicts:       t.dicts,
		stamps:      stamps,
		dates:       dates,
		minYear:     t.minYear,
		maxYear:     t.maxYear,
		loc:         t.loc,
		fingerprint: t.fingerprint,
		workers:     t.workers,
	}
}

// Len returns the number of records.
func (t *Table) Len() int { return len(t.stamps) }

// Columns returns the categorical column names in source order.
func (t *Table) Columns() []string {
	out := make([]string, len(t.columns))
	copy(out, t.columns)
	return out
}

// Location is the time zone timestamps were parsed in.
func (t *Table) Location() *time.Location { return t.loc }

// Fingerprint identifies the source bytes the table was loaded from.
func (t *Table) Fingerprint() string { return t.fingerprint }

// HasColumn reports whether name is a categorical or derived column.
func (t *Table) HasColumn(name string) bool {
	if _, ok := t.colIndex[name]; ok {
		return true
	}
	for _, d := range DerivedColumns {
		if d == name {
			return true
		}
	}
	return false
}

// Distinct returns the values observed in a column, in first-seen order.
// Null derived values are skipped.
func (t *Table) Distinct(column string) ([]string, error) {
	dim, err := t.dimension(column)
	if err != nil {
		return nil, err
	}
	seen := make([]bool, dim.size)
	out := make([]string, 0)
	for i := 0; i < t.Len(); i++ {
		code := dim.code(i)
		if seen[code] {
			continue
		}
		seen[code] = true
		if dim.null(code) {
			continue
		}
		out = append(out, dim.label(code))
	}
	return out, nil
}

// Value returns the value of a categorical or derived column at row i.
// ok is false for a null derived value.
func (t *Table) Value(column string, row int) (string, bool, error) {
	dim, err := t.dimension(column)
	if err != nil {
		return "", false, err
	}
	code := dim.code(row)
	if dim.null(code) {
		return "", false, nil
	}
	return dim.label(code), true, nil
}

// Timestamp returns the parsed timestamp at row i; ok is false when the
// source value could not be parsed.
func (t *Table) Timestamp(row int) (time.Time, bool) {
	ts := t.stamps[row]
	return ts, !ts.IsZero()
}

// DateBounds returns the earliest and latest calendar dates present.
func (t *Table) DateBounds() (minDate, maxDate time.Time, ok bool) {
	var lo, hi int32
	for _, d := range t.dates {
		if d == 0 {
			continue
		}
		if lo == 0 || d < lo {
			lo = d
		}
		if d > hi {
			hi = d
		}
	}
	if lo == 0 {
		return time.Time{}, time.Time{}, false
	}
	return dateFromKey(lo, t.loc), dateFromKey(hi, t.loc), true
}

// Record is one survey response with its derived time fields.
// Derived fields are nil when the timestamp is null.
type Record struct {
	Timestamp    *time.Time        `json:"timestamp"`
	Gender       string            `json:"gender"`
	Country      string            `json:"country"`
	Occupation   string            `json:"occupation"`
	SelfEmployed string            `json:"self_employed"`
	CareOptions  string            `json:"care_options"`
	Indicators   map[string]string `json:"indicators"`
	Hour         *int              `json:"hour"`
	Month        *int              `json:"month"`
	Year         *int              `json:"year"`
	Day          string            `json:"day,omitempty"`
}

// Record materializes row i.
func (t *Table) Record(row int) Record {
	rec := Record{Indicators: make(map[string]string, len(t.columns))}
	for c, name := range t.columns {
		v := t.dicts[c][t.codes[c][row]]
		switch name {
		case ColGender:
			rec.Gender = v
		case ColCountry:
			rec.Country = v
		case ColOccupation:
			rec.Occupation = v
		case ColSelfEmployed:
			rec.SelfEmployed = v
		case ColCareOptions:
			rec.CareOptions = v
		default:
			rec.Indicators[name] = v
		}
	}
	if ts, ok := t.Timestamp(row); ok {
		hour, month, year := ts.Hour(), int(ts.Month()), ts.Year()
		rec.Timestamp = &ts
		rec.Hour, rec.Month, rec.Year = &hour, &month, &year
		rec.Day = ts.Weekday().String()
	}
	return rec
}

// dateKey packs a calendar date as YYYYMMDD.
func dateKey(ts time.Time) int32 {
	y, m, d := ts.Date()
	return int32(y)*10000 + int32(m)*100 + int32(d)
}

func dateFromKey(k int32, loc *time.Location) time.Time {
	return time.Date(int(k/10000), time.Month(k/100%100), int(k%100), 0, 0, 0, 0, loc)
}
