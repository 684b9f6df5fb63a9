package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"mhdash/internal/engine"
)

// parseSelection reads the filter state from query parameters:
//
//	gender, country, occupation  repeated; absent means every value
//	start, end                   YYYY-MM-DD, inclusive, either may be omitted
//	where=col:value              repeated; keep rows whose col is one of the values
//	exclude=col:value            repeated; drop rows whose col is one of the values
func parseSelection(q url.Values, loc *time.Location) (engine.Selection, error) {
	sel := engine.Selection{
		Gender:     engine.AnyUnlessEmpty(nonEmpty(q["gender"])),
		Country:    engine.AnyUnlessEmpty(nonEmpty(q["country"])),
		Occupation: engine.AnyUnlessEmpty(nonEmpty(q["occupation"])),
	}

	var err error
	if sel.Dates.Start, err = parseDate(q.Get("start"), loc); err != nil {
		return sel, fmt.Errorf("start: %w", err)
	}
	if sel.Dates.End, err = parseDate(q.Get("end"), loc); err != nil {
		return sel, fmt.Errorf("end: %w", err)
	}

	include, err := columnValues(q["where"])
	if err != nil {
		return sel, fmt.Errorf("where: %w", err)
	}
	exclude, err := columnValues(q["exclude"])
	if err != nil {
		return sel, fmt.Errorf("exclude: %w", err)
	}
	if len(include)+len(exclude) == 0 {
		return sel, nil
	}
	sel.Where = make(map[string]engine.Restriction, len(include)+len(exclude))
	for col, values := range include {
		sel.Where[col] = engine.OneOf(values...)
	}
	for col, values := range exclude {
		if _, dup := sel.Where[col]; dup {
			return sel, fmt.Errorf("column %q is used by both where and exclude", col)
		}
		sel.Where[col] = engine.NoneOf(values...)
	}
	return sel, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return d, nil
}

// columnValues groups "col:value" pairs by column.
func columnValues(pairs []string) (map[string][]string, error) {
	out := make(map[string][]string)
	for _, p := range pairs {
		col, value, ok := strings.Cut(p, ":")
		if !ok || col == "" {
			return nil, fmt.Errorf("%q is not col:value", p)
		}
		out[col] = append(out[col], value)
	}
	return out, nil
}

func nonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
