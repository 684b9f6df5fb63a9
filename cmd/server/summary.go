package main

import (
	"fmt"
	"time"

	"mhdash/internal/engine"
	"mhdash/internal/models"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"
)

var (
	sumGroupBy    []string
	sumTop        int
	sumOrder      string
	sumGender     []string
	sumCountry    []string
	sumOccupation []string
	sumStart      string
	sumEnd        string
)

type summaryOutput struct {
	Summary     *models.Summary     `json:"summary"`
	Aggregation *models.Aggregation `json:"aggregation,omitempty"`
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print headline numbers, and optionally a grouped count, as JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		src, err := openSource(cfg)
		if err != nil {
			return err
		}
		full, err := src.Load()
		if err != nil {
			return err
		}
		order, err := engine.ParseOrder(sumOrder)
		if err != nil {
			return err
		}

		sel := engine.Selection{
			Gender:     engine.AnyUnlessEmpty(sumGender),
			Country:    engine.AnyUnlessEmpty(sumCountry),
			Occupation: engine.AnyUnlessEmpty(sumOccupation),
		}
		if sel.Dates.Start, err = parseFlagDate("start", sumStart, full.Location()); err != nil {
			return err
		}
		if sel.Dates.End, err = parseFlagDate("end", sumEnd, full.Location()); err != nil {
			return err
		}
		selected, err := engine.Filter(full, sel)
		if err != nil {
			return err
		}

		out := summaryOutput{Summary: engine.Summarize(selected)}
		if len(sumGroupBy) > 0 {
			groups, err := engine.Aggregate(selected, sumGroupBy...)
			if err != nil {
				return err
			}
			if sumTop > 0 {
				groups = engine.TopN(groups, sumTop)
			}
			groups = engine.Sort(groups, order)

			agg := &models.Aggregation{GroupBy: sumGroupBy, Rows: selected.Len(), Groups: make([]models.GroupCount, len(groups))}
			for i, g := range groups {
				agg.Groups[i] = models.GroupCount{Key: g.Key, Count: g.Count}
			}
			out.Aggregation = agg
		}

		b, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(b))
		return nil
	},
}

func parseFlagDate(name, s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s: want YYYY-MM-DD, got %q", name, s)
	}
	return d, nil
}

func init() {
	f := summaryCmd.Flags()
	f.StringSliceVar(&sumGroupBy, "group-by", nil, "columns to group by, e.g. Country,Gender")
	f.IntVar(&sumTop, "top", 0, "keep only the N largest groups")
	f.StringVar(&sumOrder, "order", "desc", "group order: none, desc, asc or key")
	f.StringSliceVar(&sumGender, "gender", nil, "restrict to these genders")
	f.StringSliceVar(&sumCountry, "country", nil, "restrict to these countries")
	f.StringSliceVar(&sumOccupation, "occupation", nil, "restrict to these occupations")
	f.StringVar(&sumStart, "start", "", "first date to include (YYYY-MM-DD)")
	f.StringVar(&sumEnd, "end", "", "last date to include (YYYY-MM-DD)")
}
