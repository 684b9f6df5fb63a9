package engine

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// Below this many rows per worker the aggregation runs on one goroutine.
const minRowsPerWorker = 16384

// Group is one partition of an aggregation: the grouping values, in
// group-by order, and the number of records sharing them. An empty string
// in a derived column position stands for a null timestamp.
type Group struct {
	Key   []string `json:"key"`
	Count int      `json:"count"`
}

// Order selects how Sort arranges groups.
type Order int

const (
	OrderNone Order = iota
	OrderCountDesc
	OrderCountAsc
	OrderKey
)

// ParseOrder accepts "", "none", "desc", "asc" and "key".
func ParseOrder(s string) (Order, error) {
	switch s {
	case "", "none":
		return OrderNone, nil
	case "desc":
		return OrderCountDesc, nil
	case "asc":
		return OrderCountAsc, nil
	case "key":
		return OrderKey, nil
	}
	return OrderNone, fmt.Errorf("unknown order %q", s)
}

type partialCounts struct {
	counts map[int64]int
	order  []int64
}

// Aggregate counts records per distinct combination of the groupBy columns.
// Only observed combinations are returned, in first-seen order, and the
// counts always sum to t.Len().
func Aggregate(t *Table, groupBy ...string) ([]Group, error) {
	if len(groupBy) == 0 {
		return nil, ErrNoGroupColumns
	}

	// Flatten [c0][c1]...[cn] into one integer key, last column fastest.
	dims := make([]dimension, len(groupBy))
	strides := make([]int64, len(groupBy))
	stride := int64(1)
	for k := len(groupBy) - 1; k >= 0; k-- {
		dim, err := t.dimension(groupBy[k])
		if err != nil {
			return nil, err
		}
		dims[k] = dim
		strides[k] = stride
		size := int64(max(dim.size, 1))
		if stride > math.MaxInt64/size {
			return nil, fmt.Errorf("too many group combinations for %v", groupBy)
		}
		stride *= size
	}

	n := t.Len()
	workers := min(t.workers, max(1, n/minRowsPerWorker))
	chunk := (n + workers - 1) / workers
	parts := make([]partialCounts, workers)

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		s, e := min(w*chunk, n), min((w+1)*chunk, n)
		g.Go(func() error {
			p := partialCounts{counts: make(map[int64]int)}
			for i := s; i < e; i++ {
				var key int64
				for k, d := range dims {
					key += int64(d.code(i)) * strides[k]
				}
				if p.counts[key] == 0 {
					p.order = append(p.order, key)
				}
				p.counts[key]++
			}
			parts[w] = p
			return nil
		})
	}
	_ = g.Wait()

	// Merge in chunk order to keep first-seen order.
	total := make(map[int64]int)
	var order []int64
	for _, p := range parts {
		for _, key := range p.order {
			if total[key] == 0 {
				order = append(order, key)
			}
			total[key] += p.counts[key]
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		labels := make([]string, len(dims))
		for k, d := range dims {
			code := int(key / strides[k] % int64(max(d.size, 1)))
			labels[k] = d.label(code)
		}
		groups = append(groups, Group{Key: labels, Count: total[key]})
	}
	return groups, nil
}

// Sort returns a stably sorted copy of groups.
func Sort(groups []Group, order Order) []Group {
	out := slices.Clone(groups)
	switch order {
	case OrderCountDesc:
		slices.SortStableFunc(out, func(a, b Group) int { return cmp.Compare(b.Count, a.Count) })
	case OrderCountAsc:
		slices.SortStableFunc(out, func(a, b Group) int { return cmp.Compare(a.Count, b.Count) })
	case OrderKey:
		slices.SortStableFunc(out, func(a, b Group) int { return compareKeys(a.Key, b.Key) })
	}
	return out
}

// TopN returns at most n groups with the highest counts. Ties keep their
// input order.
func TopN(groups []Group, n int) []Group {
	if n <= 0 {
		return []Group{}
	}
	out := Sort(groups, OrderCountDesc)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func compareKeys(a, b []string) int {
	for k := 0; k < len(a) && k < len(b); k++ {
		if c := compareLabels(a[k], b[k]); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}

// compareLabels orders numbers numerically and weekday names Sunday first.
// Null labels sort last.
func compareLabels(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	if x, err := strconv.Atoi(a); err == nil {
		if y, err := strconv.Atoi(b); err == nil {
			return cmp.Compare(x, y)
		}
	}
	if x, ok := weekdays[a]; ok {
		if y, ok := weekdays[b]; ok {
			return cmp.Compare(x, y)
		}
	}
	return cmp.Compare(a, b)
}

var weekdays = func() map[string]time.Weekday {
	m := make(map[string]time.Weekday, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		m[d.String()] = d
	}
	return m
}()
