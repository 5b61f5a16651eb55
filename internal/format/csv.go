package format

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// csvSource implements dataset.RowSource for CSV/TSV/PSV, lazily
// re-reading the file on first Rows() call. Grounded on the teacher's
// fileloader/csv.go (ReadCSVHeader, NormalizeHeaders) generalized with
// the full option set from spec §4.B.
type csvSource struct {
	path   string
	opts   Options
	sch    schema.Schema
}

// OpenCSV reads the header (and infers the schema from up to
// opts.InferSchemaLength rows) without reading the whole file, so
// Schema() stays O(1) relative to the dataset.
func OpenCSV(path string, opts Options) (dataset.RowSource, error) {
	f, err := openMaybeDecompressed(path, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newCSVReader(f, opts)
	header, rawRows, err := readHeaderAndSample(r, opts)
	if err != nil {
		return nil, err
	}
	sch := inferCSVSchema(header, rawRows, opts)
	return &csvSource{path: path, opts: opts, sch: sch}, nil
}

func newCSVReader(r io.Reader, opts Options) *csv.Reader {
	cr := csv.NewReader(r)
	delim := opts.Delimiter
	if delim == 0 {
		delim = ','
	}
	cr.Comma = rune(delim)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	return cr
}

func openMaybeDecompressed(path string, opts Options) (io.ReadCloser, error) {
	return GetDecompressingReader(path, opts.Compression)
}

func readHeaderAndSample(r *csv.Reader, opts Options) ([]string, [][]string, error) {
	for i := 0; i < opts.SkipLines; i++ {
		if _, err := r.Read(); err != nil {
			break
		}
	}
	var header []string
	if opts.HasHeader {
		h, err := r.Read()
		if err != nil && err != io.EOF {
			return nil, nil, errs.Decode.New(err.Error())
		}
		header = NormalizeHeaders(h)
	}
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := r.Read(); err != nil {
			break
		}
	}
	inferLen := opts.InferSchemaLength
	if inferLen <= 0 {
		inferLen = 1000
	}
	var sample [][]string
	for i := 0; i < inferLen; i++ {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if opts.IgnoreErrors {
				continue
			}
			return nil, nil, errs.Decode.New(err.Error())
		}
		sample = append(sample, row)
	}
	if header == nil && len(sample) > 0 {
		header = make([]string, len(sample[0]))
		for i := range header {
			header[i] = "column_" + strconv.Itoa(i+1)
		}
	}
	return header, sample, nil
}

// NormalizeHeaders fills in synthetic names for empty header cells, the
// way the teacher's fileloader.NormalizeHeaders does.
func NormalizeHeaders(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "column_" + strconv.Itoa(i+1)
		}
		out[i] = h
	}
	return out
}

func inferCSVSchema(header []string, sample [][]string, opts Options) schema.Schema {
	sch := make(schema.Schema, len(header))
	for i, name := range header {
		dt := schema.String
		if shouldParseAsString(name, opts) {
			dt = schema.String
		} else {
			dt = inferColumnType(i, sample, opts)
		}
		sch[i] = schema.Column{Name: name, Type: dt}
	}
	return sch
}

func shouldParseAsString(col string, opts Options) bool {
	if opts.ParseStrings == nil {
		return false
	}
	if opts.ParseStrings["*"] {
		return true
	}
	return opts.ParseStrings[col]
}

func inferColumnType(col int, sample [][]string, opts Options) schema.DType {
	sawInt, sawFloat, sawBool, sawDate := true, true, true, true
	any := false
	for _, row := range sample {
		if col >= len(row) {
			continue
		}
		v := row[col]
		if isNullToken(v, col, opts) || v == "" {
			continue
		}
		any = true
		if sawInt {
			if _, err := strconv.ParseInt(v, 10, 64); err != nil {
				sawInt = false
			}
		}
		if sawFloat {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				sawFloat = false
			}
		}
		if sawBool {
			if _, err := strconv.ParseBool(v); err != nil {
				sawBool = false
			}
		}
		if sawDate && opts.ParseDates {
			if _, err := parseDatetime(v); err != nil {
				sawDate = false
			}
		} else {
			sawDate = false
		}
	}
	switch {
	case !any:
		return schema.String
	case sawDate:
		return schema.Datetime
	case sawInt:
		return schema.Int64
	case sawFloat:
		return schema.Float64
	case sawBool:
		return schema.Bool
	default:
		return schema.String
	}
}

var datetimeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
}

func parseDatetime(v string) (time.Time, error) {
	var lastErr error
	for _, layout := range datetimeLayouts {
		t, err := time.Parse(layout, v)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func isNullToken(v string, col int, opts Options) bool {
	if opts.NullValues == nil {
		return false
	}
	for _, tok := range opts.NullValues[""] {
		if v == tok {
			return true
		}
	}
	return false
}

func (s *csvSource) Schema() schema.Schema { return s.sch }

func (s *csvSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	f, err := openMaybeDecompressed(s.path, s.opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := newCSVReader(f, s.opts)
	for i := 0; i < s.opts.SkipLines; i++ {
		if _, err := r.Read(); err != nil {
			break
		}
	}
	if s.opts.HasHeader {
		if _, err := r.Read(); err != nil && err != io.EOF {
			return nil, errs.Decode.New(err.Error())
		}
	}
	for i := 0; i < s.opts.SkipRows; i++ {
		if _, err := r.Read(); err != nil {
			break
		}
	}

	var rows []dataset.Row
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			if s.opts.IgnoreErrors {
				continue
			}
			return nil, errs.Decode.New(err.Error())
		}
		row := make(dataset.Row, len(s.sch))
		for i, col := range s.sch {
			if i >= len(rec) {
				row[i] = nil
				continue
			}
			row[i] = convertCSVCell(rec[i], col.Type, i, s.opts)
		}
		rows = append(rows, row)
	}
	if s.opts.SkipTailRows > 0 && s.opts.SkipTailRows < len(rows) {
		rows = rows[:len(rows)-s.opts.SkipTailRows]
	} else if s.opts.SkipTailRows >= len(rows) {
		rows = nil
	}
	return rows, nil
}

func convertCSVCell(v string, dt schema.DType, col int, opts Options) dataset.Value {
	if isNullToken(v, col, opts) || v == "" {
		return nil
	}
	switch dt {
	case schema.Int64:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n
	case schema.Float64:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil
		}
		return f
	case schema.Bool:
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil
		}
		return b
	case schema.Datetime:
		t, err := parseDatetime(v)
		if err != nil {
			return nil
		}
		return t
	default:
		return v
	}
}
