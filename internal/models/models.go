package models

import "time"

// Summary holds the overview metrics shown above the dashboard tabs.
type Summary struct {
	TotalResponses int       `json:"total_responses"`
	Countries      int       `json:"countries"`
	Occupations    int       `json:"occupations"`
	YearsCovered   *YearSpan `json:"years_covered,omitempty"`
}

type YearSpan struct {
	From int `json:"from"`
	To   int `json:"to"`
}

// FilterOptions populates the selection controls.
type FilterOptions struct {
	Columns map[string][]string `json:"columns"`
	MinDate *time.Time          `json:"min_date,omitempty"`
	MaxDate *time.Time          `json:"max_date,omitempty"`
}

type GroupCount struct {
	Key   []string `json:"key"`
	Count int      `json:"count"`
}

type Aggregation struct {
	GroupBy []string     `json:"group_by"`
	Rows    int          `json:"rows"`
	Groups  []GroupCount `json:"groups"`
}

type ChartInfo struct {
	ID      string   `json:"id"`
	Tab     string   `json:"tab"`
	Title   string   `json:"title"`
	Kind    string   `json:"kind"`
	GroupBy []string `json:"group_by"`
}

type ChartData struct {
	ChartInfo
	Groups []GroupCount `json:"groups"`
}

type Page[T any] struct {
	Data   []T `json:"data"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}
