// Package dashboard describes the dashboard's charts as data. Every chart is
// the same pattern: optionally narrow the table, group, count, then order.
package dashboard

import (
	"slices"

	"mhdash/internal/engine"
)

type Kind string

const (
	KindBar        Kind = "bar"
	KindPie        Kind = "pie"
	KindLine       Kind = "line"
	KindChoropleth Kind = "choropleth"
	KindHeatmap    Kind = "heatmap"
)

const (
	TabOverview     = "overview"
	TabDemographics = "demographics"
	TabMentalHealth = "mental-health"
	TabWork         = "work"
	TabTreatment    = "treatment"
)

// Chart is one aggregate view of the survey.
type Chart struct {
	ID      string
	Tab     string
	Title   string
	Kind    Kind
	GroupBy []string

	// Where narrows the table before grouping, on top of the user's selection.
	Where map[string]engine.Restriction
	Order engine.Order
	// Limit keeps only the top groups by count when positive.
	Limit int
	// Unfiltered charts ignore the user's selection.
	Unfiltered bool
	// SkipUndated drops groups keyed by a time field of an unparseable
	// timestamp.
	SkipUndated bool
}

// Catalog lists the dashboard charts, in display order.
var Catalog = []Chart{
	{ID: "participation-over-time", Tab: TabOverview, Title: "Participation Over Time", Kind: KindLine,
		GroupBy: []string{engine.ColYear}, Order: engine.OrderKey, Unfiltered: true, SkipUndated: true},

	{ID: "country-distribution", Tab: TabDemographics, Title: "Country Distribution", Kind: KindChoropleth,
		GroupBy: []string{engine.ColCountry}},
	{ID: "gender-distribution", Tab: TabDemographics, Title: "Gender Distribution", Kind: KindPie,
		GroupBy: []string{engine.ColGender}},

	{ID: "mental-health-history", Tab: TabMentalHealth, Title: "Mental Health History Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColMentalHealthHistory}, Order: engine.OrderKey},
	{ID: "family-history", Tab: TabMentalHealth, Title: "Family History of Mental Illness Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColFamilyHistory}, Order: engine.OrderKey},
	{ID: "mental-health-interview", Tab: TabMentalHealth, Title: "Mental Health Interview Distribution", Kind: KindPie,
		GroupBy: []string{engine.ColMentalHealthInterview}},
	{ID: "growing-stress", Tab: TabMentalHealth, Title: "Growing Stress Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColGrowingStress}, Order: engine.OrderKey},
	{ID: "mood-swings", Tab: TabMentalHealth, Title: "Mood Swings Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColMoodSwings}, Order: engine.OrderKey},
	{ID: "social-weakness", Tab: TabMentalHealth, Title: "Social Weakness Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColSocialWeakness}, Order: engine.OrderKey},
	{ID: "days-indoors", Tab: TabMentalHealth, Title: "Days Indoors Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColDaysIndoors}, Order: engine.OrderKey},
	{ID: "coping-struggles", Tab: TabMentalHealth, Title: "Coping Struggles Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColCopingStruggles}, Order: engine.OrderKey},
	{ID: "days-indoors-vs-coping", Tab: TabMentalHealth, Title: "Correlation Between Days Spent Indoors and Coping Struggles", Kind: KindHeatmap,
		GroupBy: []string{engine.ColDaysIndoors, engine.ColCopingStruggles}, Order: engine.OrderKey},
	{ID: "coping-by-country", Tab: TabMentalHealth, Title: "Regional Differences in Coping Struggles", Kind: KindChoropleth,
		GroupBy: []string{engine.ColCountry}, Where: onlyYes(engine.ColCopingStruggles)},
	{ID: "top-coping-countries", Tab: TabMentalHealth, Title: "Top 10 Countries with Highest Coping Struggles", Kind: KindBar,
		GroupBy: []string{engine.ColCountry}, Where: onlyYes(engine.ColCopingStruggles), Order: engine.OrderCountDesc, Limit: 10},
	{ID: "habit-changes", Tab: TabMentalHealth, Title: "Habit Changes Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColChangesHabits}, Order: engine.OrderKey},
	{ID: "habit-changes-vs-coping", Tab: TabMentalHealth, Title: "Correlation Between Habit Changes and Coping Struggles", Kind: KindBar,
		GroupBy: []string{engine.ColChangesHabits, engine.ColCopingStruggles}, Order: engine.OrderKey},
	{ID: "gender-vs-mood-swings", Tab: TabMentalHealth, Title: "Correlation Between Gender and Mood Swings", Kind: KindBar,
		GroupBy: []string{engine.ColGender, engine.ColMoodSwings}, Order: engine.OrderKey},
	{ID: "family-history-vs-mood-swings", Tab: TabMentalHealth, Title: "Correlation Between Family History and Mood Swings", Kind: KindBar,
		GroupBy: []string{engine.ColFamilyHistory, engine.ColMoodSwings}, Order: engine.OrderKey},

	{ID: "occupation-distribution", Tab: TabWork, Title: "Occupation Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColOccupation}, Order: engine.OrderCountDesc},
	{ID: "self-employment", Tab: TabWork, Title: "Self-Employment Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColSelfEmployed}, Where: map[string]engine.Restriction{engine.ColSelfEmployed: engine.NoneOf(engine.NotSpecified)}, Order: engine.OrderCountDesc},
	{ID: "work-interest", Tab: TabWork, Title: "Work Interest Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColWorkInterest}, Order: engine.OrderKey},
	{ID: "occupation-stress", Tab: TabWork, Title: "Occupations with the Highest Stress Levels", Kind: KindBar,
		GroupBy: []string{engine.ColOccupation}, Where: onlyYes(engine.ColGrowingStress), Order: engine.OrderCountAsc},

	{ID: "treatment-status", Tab: TabTreatment, Title: "Treatment Status Distribution", Kind: KindBar,
		GroupBy: []string{engine.ColTreatment}, Order: engine.OrderKey},
	{ID: "care-options", Tab: TabTreatment, Title: "Care Options Distribution", Kind: KindPie,
		GroupBy: []string{engine.ColCareOptions}},
	{ID: "care-options-by-country", Tab: TabTreatment, Title: "Access to Mental Health Care Options by Country", Kind: KindChoropleth,
		GroupBy: []string{engine.ColCountry, engine.ColCareOptions}},
	{ID: "gender-vs-treatment", Tab: TabTreatment, Title: "Correlation Between Gender and Mental Health Treatment", Kind: KindBar,
		GroupBy: []string{engine.ColGender, engine.ColTreatment}, Order: engine.OrderKey},
	{ID: "treatment-vs-mood-swings", Tab: TabTreatment, Title: "Correlation Between Mental Health Treatment and Mood Swings", Kind: KindBar,
		GroupBy: []string{engine.ColTreatment, engine.ColMoodSwings}, Order: engine.OrderKey},
	{ID: "treatment-vs-family-history", Tab: TabTreatment, Title: "Correlation Between Family History of Mental Illness and Treatment", Kind: KindBar,
		GroupBy: []string{engine.ColTreatment, engine.ColFamilyHistory}, Order: engine.OrderKey},
}

func onlyYes(column string) map[string]engine.Restriction {
	return map[string]engine.Restriction{column: engine.OneOf("Yes")}
}

// Lookup finds a chart by id.
func Lookup(id string) (Chart, bool) {
	for _, c := range Catalog {
		if c.ID == id {
			return c, true
		}
	}
	return Chart{}, false
}

// Compute aggregates the chart over the user's selected table, or over the
// full table for an unfiltered chart.
func (c Chart) Compute(full, selected *engine.Table) ([]engine.Group, error) {
	base := selected
	if c.Unfiltered {
		base = full
	}
	if len(c.Where) > 0 {
		var err error
		base, err = engine.Filter(base, engine.Selection{Where: c.Where})
		if err != nil {
			return nil, err
		}
	}
	groups, err := engine.Aggregate(base, c.GroupBy...)
	if err != nil {
		return nil, err
	}
	if c.SkipUndated {
		groups = slices.DeleteFunc(groups, c.undated)
	}
	if c.Limit > 0 {
		return engine.TopN(groups, c.Limit), nil
	}
	return engine.Sort(groups, c.Order), nil
}

// undated reports whether a group has the null label in a time field.
func (c Chart) undated(g engine.Group) bool {
	for k, col := range c.GroupBy {
		if g.Key[k] == "" && slices.Contains(engine.DerivedColumns, col) {
			return true
		}
	}
	return false
}
