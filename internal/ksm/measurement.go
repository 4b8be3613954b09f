package ksm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// timeColumn holds the measurement timestamp as unix seconds.
const timeColumn = "measure_time1970"

// floatColumns are the measurement columns with float64 values; timeColumn
// is int64 and every other column stays a string.
var floatColumns = map[string]bool{
	"centervalue":                        true,
	"check_wall_min_minlimit":            true,
	"check_wall_min_nomlimit":            true,
	"check_wall_mean_minlimit":           true,
	"check_wall_mean_nomlimit":           true,
	"diameter_outer_mean":                true,
	"wall_extra_percent":                 true,
	"check_diameter_outer_mean_nomlimit": true,
	"area_outer":                         true,
	"diameter_outer_max":                 true,
	"ovality":                            true,
	"wall_min":                           true,
	"area_wall":                          true,
	"wall_mean":                          true,
}

// Table holds parsed measurement rows. Rows in one file may carry different
// column sets; the table keeps the union in first-seen order and reports
// missing cells as null when marshalled. Tables are read-only after
// construction; filter and projection operations return new Tables sharing
// the row maps.
type Table struct {
	columns []string
	colSet  map[string]bool
	rows    []map[string]any
}

// Columns returns the column names in first-seen order.
func (t *Table) Columns() []string { return t.columns }

// Len returns the row count.
func (t *Table) Len() int { return len(t.rows) }

func (t *Table) addColumn(name string) {
	if t.colSet == nil {
		t.colSet = make(map[string]bool)
	}
	if !t.colSet[name] {
		t.colSet[name] = true
		t.columns = append(t.columns, name)
	}
}

// ParseMeasurementFile parses a .dat measurement file: repeated pairs of
// tab-separated lines, the first naming columns (quoted), the second giving
// the values for one measurement. Files sometimes end with a single empty
// line.
func ParseMeasurementFile(path string) (*Table, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}
	return parseMeasurementLines(lines)
}

func parseMeasurementLines(lines []string) (*Table, error) {
	t := &Table{}
	for i := 0; i < len(lines); i += 2 {
		columnRow := lines[i]
		if strings.TrimSpace(columnRow) == "" {
			break
		}
		if i+1 >= len(lines) {
			return nil, fmt.Errorf("%w: no value line after %q", ErrMalformedEntry, columnRow)
		}
		valueRow := lines[i+1]

		cols := strings.Split(columnRow, "\t")
		vals := strings.Split(valueRow, "\t")
		if len(cols) != len(vals) {
			return nil, fmt.Errorf("%w: %d columns but %d values", ErrMalformedEntry, len(cols), len(vals))
		}

		row := make(map[string]any, len(cols))
		for j := range cols {
			name := strings.Trim(strings.TrimSpace(cols[j]), `"`)
			value, err := parseValue(name, strings.TrimSpace(vals[j]))
			if err != nil {
				return nil, err
			}
			row[name] = value
			t.addColumn(name)
		}
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func parseValue(column, raw string) (any, error) {
	switch {
	case column == timeColumn:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not an integer", ErrMalformedEntry, column, raw)
		}
		return n, nil
	case floatColumns[column]:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %s=%q is not a float", ErrMalformedEntry, column, raw)
		}
		return f, nil
	default:
		return raw, nil
	}
}

// FilterByTime returns the rows whose measure_time1970 lies in the
// inclusive [start, end] unix-second window. Filtering a table that has no
// timestamp column is an error.
func (t *Table) FilterByTime(start, end int64) (*Table, error) {
	if !t.colSet[timeColumn] {
		return nil, fmt.Errorf("%w: %s", ErrMissingField, timeColumn)
	}
	out := &Table{}
	for _, name := range t.columns {
		out.addColumn(name)
	}
	for _, row := range t.rows {
		ts, ok := row[timeColumn].(int64)
		if !ok {
			continue
		}
		if ts >= start && ts <= end {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}

// Select projects the table onto the named columns, preserving the given
// order. Unknown column names are an error.
func (t *Table) Select(columns []string) (*Table, error) {
	out := &Table{}
	for _, name := range columns {
		if !t.colSet[name] {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, name)
		}
		out.addColumn(name)
	}
	out.rows = t.rows
	return out, nil
}

// MarshalJSON writes the table as an array of records with columns in table
// order; cells absent from a row marshal as null.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, row := range t.rows {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for j, name := range t.columns {
			if j > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(name)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			value, err := json.Marshal(row[name])
			if err != nil {
				return nil, err
			}
			buf.Write(value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
