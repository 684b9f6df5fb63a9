package engine

import (
	"mhdash/internal/models"
)

// OccupationOthers is the catch-all occupation left out of the occupation count.
const OccupationOthers = "Others"

// Summarize computes the overview metrics for a table.
func Summarize(t *Table) *models.Summary {
	s := &models.Summary{TotalResponses: t.Len()}

	if countries, err := t.Distinct(ColCountry); err == nil {
		s.Countries = len(countries)
	}
	if occupations, err := t.Distinct(ColOccupation); err == nil {
		for _, o := range occupations {
			if o != OccupationOthers {
				s.Occupations++
			}
		}
	}

	var lo, hi int
	for _, ts := range t.stamps {
		if ts.IsZero() {
			continue
		}
		y := ts.Year()
		if lo == 0 || y < lo {
			lo = y
		}
		if y > hi {
			hi = y
		}
	}
	if lo != 0 {
		s.YearsCovered = &models.YearSpan{From: lo, To: hi}
	}
	return s
}
