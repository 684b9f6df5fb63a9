package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestFilterEndToEnd(t *testing.T) {
	tbl := mustParse(t, surveyCSV(
		map[string]string{ColGender: "Male", ColCountry: "USA", ColTimestamp: "2021-01-01"},
		map[string]string{ColGender: "Female", ColCountry: "USA", ColTimestamp: "2021-06-01"},
		map[string]string{ColGender: "Male", ColCountry: "India", ColTimestamp: "2022-01-01"},
	), Options{})

	got, err := Filter(tbl, Selection{
		Gender:  AnyUnlessEmpty([]string{"Male"}),
		Country: AnyUnlessEmpty(nil),
		Dates:   Between(day(2020, 1, 1), day(2021, 12, 31)),
	})
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Male", got.Record(0).Gender)
	assert.Equal(t, "USA", got.Record(0).Country)

	groups, err := Aggregate(tbl, ColCountry)
	require.NoError(t, err)
	assert.ElementsMatch(t, []Group{
		{Key: []string{"USA"}, Count: 2},
		{Key: []string{"India"}, Count: 1},
	}, groups)
}

func TestFilterZeroSelectionIsIdentity(t *testing.T) {
	tbl := loadSample(t)
	got, err := Filter(tbl, Selection{})
	require.NoError(t, err)
	assert.Same(t, tbl, got)
}

func TestFilterPreservesOrder(t *testing.T) {
	tbl := loadSample(t)
	got, err := Filter(tbl, Selection{Gender: OneOf("Male")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Poland", "United States", "India", "Canada"}, column(t, got, ColCountry))
	assert.Equal(t, 8, tbl.Len(), "input is unchanged")
}

func TestFilterDateRange(t *testing.T) {
	tbl := loadSample(t)

	in2014, err := Filter(tbl, Selection{Dates: Between(day(2014, 1, 1), day(2014, 12, 31))})
	require.NoError(t, err)
	assert.Equal(t, 4, in2014.Len())

	men2014, err := Filter(tbl, Selection{
		Gender: OneOf("Male"),
		Dates:  Between(day(2014, 1, 1), day(2014, 12, 31)),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Poland", "United States"}, column(t, men2014, ColCountry))

	// End is inclusive for the whole calendar day.
	sameDay, err := Filter(tbl, Selection{Dates: Between(day(2014, 8, 27), day(2014, 8, 27))})
	require.NoError(t, err)
	assert.Equal(t, 3, sameDay.Len())
}

func TestFilterOpenDateBoundDropsNullTimestamps(t *testing.T) {
	tbl := loadSample(t)

	got, err := Filter(tbl, Selection{Dates: DateRange{Start: day(2000, 1, 1)}})
	require.NoError(t, err)
	assert.Equal(t, 7, got.Len())
	for i := 0; i < got.Len(); i++ {
		_, ok := got.Timestamp(i)
		assert.True(t, ok)
	}

	got, err = Filter(tbl, Selection{Dates: DateRange{End: day(2015, 12, 31)}})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Len())
}

func TestFilterInvalidRange(t *testing.T) {
	tbl := loadSample(t)
	_, err := Filter(tbl, Selection{Dates: Between(day(2016, 1, 1), day(2015, 1, 1))})
	var rangeErr *InvalidRangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, "start date 2016-01-01 is after end date 2015-01-01", err.Error())
}

func TestFilterRestrictions(t *testing.T) {
	tbl := loadSample(t)

	cases := []struct {
		name string
		sel  Selection
		want int
	}{
		{"one of nothing", Selection{Country: OneOf()}, 0},
		{"one of several", Selection{Country: OneOf("India", "Canada")}, 3},
		{"unknown value", Selection{Occupation: OneOf("Astronaut")}, 0},
		{"none of", Selection{Where: map[string]Restriction{ColSelfEmployed: NoneOf(NotSpecified)}}, 6},
		{"derived column", Selection{Where: map[string]Restriction{ColYear: OneOf("2016")}}, 2},
		{"none of keeps nulls", Selection{Where: map[string]Restriction{ColYear: NoneOf("2014")}}, 4},
		{"where and gender", Selection{
			Gender: OneOf("Female"),
			Where:  map[string]Restriction{ColCopingStruggles: OneOf("Yes")},
		}, 2},
		{"any in where", Selection{Where: map[string]Restriction{ColCountry: Any()}}, 8},
		{"same column twice", Selection{
			Gender: OneOf("Male"),
			Where:  map[string]Restriction{ColGender: NoneOf("Male")},
		}, 0},
		{"same column narrowed twice", Selection{
			Country: OneOf("India", "Poland", "Canada"),
			Where:   map[string]Restriction{ColCountry: NoneOf("Canada")},
		}, 3},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Filter(tbl, tc.sel)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.Len())
		})
	}
}

func TestFilterChained(t *testing.T) {
	tbl := loadSample(t)
	women, err := Filter(tbl, Selection{Gender: OneOf("Female")})
	require.NoError(t, err)
	got, err := Filter(women, Selection{Country: OneOf("India")})
	require.NoError(t, err)

	require.Equal(t, 1, got.Len())
	assert.Equal(t, "Others", got.Record(0).Occupation)
	assert.Equal(t, tbl.Fingerprint(), got.Fingerprint())
}

func TestFilterUnknownColumn(t *testing.T) {
	tbl := loadSample(t)
	_, err := Filter(tbl, Selection{Where: map[string]Restriction{"Salary": OneOf("high")}})
	assert.ErrorIs(t, err, ErrUnknownColumn)
}

func TestAnyUnlessEmpty(t *testing.T) {
	assert.False(t, AnyUnlessEmpty(nil).Restricted())
	assert.False(t, AnyUnlessEmpty([]string{}).Restricted())
	assert.True(t, AnyUnlessEmpty([]string{"Male"}).Restricted())
	assert.True(t, OneOf().Restricted())
}
