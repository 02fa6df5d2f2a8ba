package forcing

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chrissnell/snowtiles/internal/types"
)

// Record is one timestamped row of a forcing trace.
type Record struct {
	Time    time.Time
	Forcing types.Forcing
}

// Trace replays a recorded series, holding each record until the next one. Before
// the first record the first applies. Past the end the last record is held, or
// with loop set the series repeats.
type Trace struct {
	records []Record
	loop    bool
}

// Trace CSV columns. "time" (RFC3339) and "air_temperature" are required; the rest
// default to zero, and an empty longwave cell means not measured.
var traceColumns = []string{
	"time", "air_temperature", "precipitation", "shortwave", "longwave",
	"wind_speed", "relative_humidity", "pressure_kpa",
}

// LoadTrace reads a CSV trace from path.
func LoadTrace(path string, loop bool) (*Trace, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trace: %w", err)
	}
	defer f.Close()

	return ReadTrace(f, loop)
}

// ReadTrace parses a CSV trace with a header row.
func ReadTrace(r io.Reader, loop bool) (*Trace, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("reading trace header: %w", err)
	}

	index := map[string]int{}
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, required := range traceColumns[:2] {
		if _, ok := index[required]; !ok {
			return nil, &types.ConfigurationError{Field: "forcing.trace", Reason: fmt.Sprintf("missing %q column", required)}
		}
	}

	var records []Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}

		rec, err := parseRecord(row, index)
		if err != nil {
			return nil, fmt.Errorf("trace line %d: %w", line, err)
		}
		records = append(records, rec)
	}

	return NewTrace(records, loop)
}

// NewTrace sorts and validates records.
func NewTrace(records []Record, loop bool) (*Trace, error) {
	if len(records) == 0 {
		return nil, &types.ConfigurationError{Field: "forcing.trace", Reason: "trace has no records"}
	}

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	for i, rec := range sorted {
		if err := rec.Forcing.Validate(); err != nil {
			return nil, fmt.Errorf("trace record at %s: %w", rec.Time.Format(time.RFC3339), err)
		}
		if i > 0 && rec.Time.Equal(sorted[i-1].Time) {
			return nil, &types.ConfigurationError{Field: "forcing.trace", Reason: fmt.Sprintf("duplicate timestamp %s", rec.Time.Format(time.RFC3339))}
		}
	}

	return &Trace{records: sorted, loop: loop}, nil
}

func parseRecord(row []string, index map[string]int) (Record, error) {
	var rec Record

	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}
	num := func(name string) (float64, error) {
		v := cell(name)
		if v == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", name, err)
		}
		return f, nil
	}

	t, err := time.Parse(time.RFC3339, cell("time"))
	if err != nil {
		return rec, fmt.Errorf("time: %w", err)
	}
	rec.Time = t

	fields := []struct {
		name string
		dst  *float64
	}{
		{"air_temperature", &rec.Forcing.AirTemperature},
		{"precipitation", &rec.Forcing.Precipitation},
		{"shortwave", &rec.Forcing.Shortwave},
		{"longwave", &rec.Forcing.Longwave},
		{"wind_speed", &rec.Forcing.WindSpeed},
		{"relative_humidity", &rec.Forcing.RelativeHumidity},
		{"pressure_kpa", &rec.Forcing.PressureKPa},
	}
	for _, f := range fields {
		if *f.dst, err = num(f.name); err != nil {
			return rec, err
		}
	}
	rec.Forcing.LongwaveMeasured = cell("longwave") != ""

	return rec, nil
}

func (tr *Trace) Forcing(ctx context.Context, t time.Time) (types.Forcing, error) {
	first, last := tr.records[0].Time, tr.records[len(tr.records)-1].Time

	if tr.loop && t.After(last) {
		// the period includes the last record's own hold, one median spacing long
		span := last.Sub(first) + tr.spacing()
		t = first.Add(t.Sub(first) % span)
	}

	// index of the first record after t
	i := sort.Search(len(tr.records), func(i int) bool { return tr.records[i].Time.After(t) })
	if i == 0 {
		return tr.records[0].Forcing, nil
	}
	return tr.records[i-1].Forcing, nil
}

func (tr *Trace) spacing() time.Duration {
	if len(tr.records) < 2 {
		return time.Hour
	}
	gaps := make([]time.Duration, len(tr.records)-1)
	for i := 1; i < len(tr.records); i++ {
		gaps[i-1] = tr.records[i].Time.Sub(tr.records[i-1].Time)
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	return gaps[len(gaps)/2]
}

// Len returns the number of records.
func (tr *Trace) Len() int { return len(tr.records) }

func (tr *Trace) Close() error { return nil }
