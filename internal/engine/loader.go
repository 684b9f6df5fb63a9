package engine

import (
	"bytes"
	"crypto/sha256"
	stdcsv "encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/apache/arrow/go/v18/arrow"
	"github.com/apache/arrow/go/v18/arrow/array"
	"github.com/apache/arrow/go/v18/arrow/csv"
	"github.com/apache/arrow/go/v18/arrow/memory"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// NotSpecified replaces a missing self_employed answer.
const NotSpecified = "Not specified"

const (
	careNotSure = "Not sure"
	careMaybe   = "Maybe"
)

// Cells read as null, in addition to the empty string.
var nullValues = []string{"", "NA", "N/A", "NaN", "NULL", "null"}

// Accepted timestamp layouts, tried in order.
var timestampLayouts = []string{
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	time.RFC3339,
	time.DateOnly,
}

// Options tunes how the source is parsed.
type Options struct {
	// Location pins the zone timestamps are parsed in. Defaults to UTC.
	Location *time.Location
	// ChunkRows is the number of CSV rows decoded per batch.
	ChunkRows int
	// Workers bounds parallel decoding and aggregation. 0 means NumCPU.
	Workers int
}

func (o Options) withDefaults() Options {
	if o.Location == nil {
		o.Location = time.UTC
	}
	if o.ChunkRows <= 0 {
		o.ChunkRows = 8192
	}
	if o.Workers <= 0 {
		o.Workers = runtime.NumCPU()
	}
	return o
}

// Source is the process-wide survey table. The file is read on the first
// call to Load; later calls return the same *Table. There is no reload.
type Source struct {
	path string
	opts Options
	load func() (*Table, error)
}

func NewSource(path string, opts Options) *Source {
	s := &Source{path: path, opts: opts.withDefaults()}
	s.load = sync.OnceValues(s.read)
	return s
}

func (s *Source) Path() string { return s.path }

// Load returns the cached table, reading the source on first use.
// A failure is cached too and returned as a *LoadError.
func (s *Source) Load() (*Table, error) {
	return s.load()
}

func (s *Source) read() (*Table, error) {
	start := time.Now()
	log.Info().Str("path", s.path).Msg("loading survey data")

	content, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}
	t, err := Parse(content, s.opts)
	if err != nil {
		return nil, &LoadError{Path: s.path, Err: err}
	}

	nulls := 0
	for _, d := range t.dates {
		if d == 0 {
			nulls++
		}
	}
	log.Info().
		Str("path", s.path).
		Int("rows", t.Len()).
		Int("null_timestamps", nulls).
		Str("fingerprint", t.fingerprint).
		Dur("elapsed", time.Since(start)).
		Msg("load complete")
	return t, nil
}

// Normalize applies the load-time cleaning rules to one cell:
// a null self_employed becomes NotSpecified and a "Not sure" care_options
// becomes "Maybe". Other nulls become "". Normalize is idempotent.
func Normalize(column, value string, null bool) string {
	switch {
	case column == ColSelfEmployed && null:
		return NotSpecified
	case column == ColCareOptions && value == careNotSure:
		return careMaybe
	case null:
		return ""
	}
	return value
}

// Parse decodes CSV bytes into a Table. Unparseable timestamps become null;
// structural problems (no header, missing columns, ragged rows) are errors.
func Parse(content []byte, opts Options) (*Table, error) {
	opts = opts.withDefaults()

	header, err := readHeader(content)
	if err != nil {
		return nil, err
	}
	if missing := missingColumns(header); len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	tsCol := -1
	var catCols []int
	var names []string
	fields := make([]arrow.Field, len(header))
	for i, h := range header {
		fields[i] = arrow.Field{Name: h, Type: arrow.BinaryTypes.String, Nullable: true}
		if h == ColTimestamp {
			tsCol = i
			continue
		}
		catCols = append(catCols, i)
		names = append(names, h)
	}

	r := csv.NewReader(bytes.NewReader(content), arrow.NewSchema(fields, nil),
		csv.WithAllocator(memory.NewGoAllocator()),
		csv.WithHeader(true),
		csv.WithChunk(opts.ChunkRows),
		csv.WithNullReader(true, nullValues...),
	)
	defer r.Release()

	var batches []arrow.Record
	defer func() {
		for _, b := range batches {
			b.Release()
		}
	}()
	for r.Next() {
		rec := r.Record()
		rec.Retain()
		batches = append(batches, rec)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}

	// Each batch writes to its own slice window, so decoding runs in parallel.
	offsets := make([]int, len(batches))
	total := 0
	for i, b := range batches {
		offsets[i] = total
		total += int(b.NumRows())
	}
	stamps := make([]time.Time, total)
	dates := make([]int32, total)
	locals := make([][]*localDict, len(batches))

	var g errgroup.Group
	g.SetLimit(opts.Workers)
	for i, b := range batches {
		lo, hi := offsets[i], offsets[i]+int(b.NumRows())
		g.Go(func() error {
			ld, err := decodeBatch(b, tsCol, catCols, names, opts.Location, stamps[lo:hi], dates[lo:hi])
			if err != nil {
				return fmt.Errorf("batch %d: %w", i, err)
			}
			locals[i] = ld
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	codes := make([][]int32, len(catCols))
	dicts := make([][]string, len(catCols))
	var mg errgroup.Group
	for k := range catCols {
		mg.Go(func() error {
			codes[k], dicts[k] = mergeDicts(locals, k, offsets, total)
			return nil
		})
	}
	_ = mg.Wait()

	t := newTable(names, codes, dicts, stamps, dates, opts.Location)
	sum := sha256.Sum256(content)
	t.fingerprint = hex.EncodeToString(sum[:8])
	t.workers = opts.Workers
	return t, nil
}

func readHeader(content []byte) ([]string, error) {
	header, err := stdcsv.NewReader(bytes.NewReader(content)).Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptySource
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}
	return header, nil
}

func missingColumns(header []string) []string {
	have := make(map[string]bool, len(header))
	for _, h := range header {
		have[h] = true
	}
	var missing []string
	for _, c := range RequiredColumns {
		if !have[c] {
			missing = append(missing, c)
		}
	}
	return missing
}

func parseTimestamp(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.In(loc), true
		}
	}
	return time.Time{}, false
}

// localDict encodes one column of one batch.
type localDict struct {
	index  map[string]int32
	values []string
	ids    []int32
}

func (d *localDict) intern(s string) int32 {
	if id, ok := d.index[s]; ok {
		return id
	}
	// Arrow string values alias the batch buffer.
	s = strings.Clone(s)
	id := int32(len(d.values))
	d.values = append(d.values, s)
	d.index[s] = id
	return id
}

func decodeBatch(rec arrow.Record, tsCol int, catCols []int, names []string, loc *time.Location, stamps []time.Time, dates []int32) ([]*localDict, error) {
	n := int(rec.NumRows())

	ts, ok := rec.Column(tsCol).(*array.String)
	if !ok {
		return nil, fmt.Errorf("column %s: unexpected type %s", ColTimestamp, rec.Column(tsCol).DataType())
	}
	for i := 0; i < n; i++ {
		if ts.IsNull(i) {
			continue
		}
		if parsed, ok := parseTimestamp(ts.Value(i), loc); ok {
			stamps[i] = parsed
			dates[i] = dateKey(parsed)
		}
	}

	out := make([]*localDict, len(catCols))
	for k, c := range catCols {
		col, ok := rec.Column(c).(*array.String)
		if !ok {
			return nil, fmt.Errorf("column %s: unexpected type %s", names[k], rec.Column(c).DataType())
		}
		ld := &localDict{index: make(map[string]int32), ids: make([]int32, n)}
		for i := 0; i < n; i++ {
			null := col.IsNull(i)
			v := ""
			if !null {
				v = col.Value(i)
			}
			ld.ids[i] = ld.intern(Normalize(names[k], v, null))
		}
		out[k] = ld
	}
	return out, nil
}

// mergeDicts folds per-batch dictionaries into one, in batch order, so the
// global dictionary keeps first-seen order across the whole file.
func mergeDicts(locals [][]*localDict, col int, offsets []int, total int) ([]int32, []string) {
	index := make(map[string]int32)
	dict := make([]string, 0)
	ids := make([]int32, total)
	for b, batch := range locals {
		ld := batch[col]
		remap := make([]int32, len(ld.values))
		for lid, s := range ld.values {
			gid, ok := index[s]
			if !ok {
				gid = int32(len(dict))
				dict = append(dict, s)
				index[s] = gid
			}
			remap[lid] = gid
		}
		dst := ids[offsets[b] : offsets[b]+len(ld.ids)]
		for i, id := range ld.ids {
			dst[i] = remap[id]
		}
	}
	return ids, dict
}
