package permits

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"permitmap/internal/sqlcgen"
)

// Column names of the permit table.
const (
	ColYear       = "issue_date_year"
	ColPermitType = "permit_type"
	ColZIP        = "zip_code"
	ColCount      = "permit_issue_count"
)

// Record is one row of the grouped permit table.
type Record struct {
	Year       int
	PermitType string
	ZIP        int
	Count      int64
}

// Source yields permit records.
type Source interface {
	Records(ctx context.Context) ([]Record, error)
}

// CSVSource reads records from a CSV file with a header row.
type CSVSource struct {
	Path string
}

func (s CSVSource) Records(_ context.Context) ([]Record, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open permit table %s: %w", s.Path, err)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("permit table %s: %w", s.Path, err)
	}
	return recs, nil
}

// ReadCSV parses permit records. Columns are located by header name and
// extra columns are ignored. Rows with an empty zip_code are skipped.
func ReadCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("missing header row")
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	cols := make([]int, 4)
	for i, name := range []string{ColYear, ColPermitType, ColZIP, ColCount} {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing column %q", name)
		}
		cols[i] = c
	}

	var out []Record
	line := 1
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		field := func(i int) string {
			if cols[i] >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[cols[i]])
		}

		zipRaw := field(2)
		if zipRaw == "" {
			continue
		}
		year, err := parseWhole(field(0))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColYear, err)
		}
		zip, err := parseWhole(zipRaw)
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColZIP, err)
		}
		count, err := parseWhole(field(3))
		if err != nil {
			return nil, fmt.Errorf("line %d: %s: %w", line, ColCount, err)
		}
		out = append(out, Record{
			Year:       int(year),
			PermitType: field(1),
			ZIP:        int(zip),
			Count:      count,
		})
	}
	return out, nil
}

// parseWhole accepts integers and integral floats such as "60614.0".
func parseWhole(s string) (int64, error) {
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, fmt.Errorf("not an integer: %q", s)
	}
	return int64(f), nil
}

// PermitCountQueries is the subset of sqlcgen.Queries the query source uses.
type PermitCountQueries interface {
	ListPermitCounts(ctx context.Context) ([]sqlcgen.PermitCount, error)
}

// QuerySource reads records from the permit_counts table.
type QuerySource struct {
	Q PermitCountQueries
}

func (s QuerySource) Records(ctx context.Context) ([]Record, error) {
	rows, err := s.Q.ListPermitCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list permit counts: %w", err)
	}
	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		if r.ZipCode == nil {
			continue
		}
		out = append(out, Record{
			Year:       int(r.IssueDateYear),
			PermitType: r.PermitType,
			ZIP:        int(*r.ZipCode),
			Count:      r.PermitIssueCount,
		})
	}
	return out, nil
}

// ToPermitCounts converts records for a bulk COPY into permit_counts.
func ToPermitCounts(recs []Record) []sqlcgen.PermitCount {
	out := make([]sqlcgen.PermitCount, len(recs))
	for i, r := range recs {
		zip := int32(r.ZIP)
		out[i] = sqlcgen.PermitCount{
			IssueDateYear:    int32(r.Year),
			PermitType:       r.PermitType,
			ZipCode:          &zip,
			PermitIssueCount: r.Count,
		}
	}
	return out
}
