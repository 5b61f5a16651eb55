package format

import (
	"context"
	"fmt"
	"sort"

	"github.com/ohler55/ojg/oj"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// maxJSONInferenceDepth resolves the spec §9 open question ("JSON
// inference depth for deeply nested objects is not enumerated; pick a
// sensible default"). The schema has no nested dtype, so jsonValueType
// types every object or array value as String, at any depth, and the
// cell holds re-serialized JSON; this threshold does not change the
// result. This matches how the teacher's ohler55/ojg-based JSONPath
// extraction in query/stages.go treats nested JSON as an opaque string.
const maxJSONInferenceDepth = 4

type jsonSource struct {
	path    string
	opts    Options
	jsonl   bool
	sch     schema.Schema
}

// OpenJSON/OpenJSONL both read a sample of up to opts.InferSchemaLength
// records to build the schema, using github.com/ohler55/ojg (already a
// teacher dependency for JSONPath column extraction) for parsing.
func OpenJSON(path string, opts Options, jsonl bool) (dataset.RowSource, error) {
	records, err := sampleJSONRecords(path, opts, jsonl)
	if err != nil {
		return nil, err
	}
	sch := inferJSONSchema(records)
	return &jsonSource{path: path, opts: opts, jsonl: jsonl, sch: sch}, nil
}

func sampleJSONRecords(path string, opts Options, jsonl bool) ([]map[string]any, error) {
	rc, err := GetDecompressingReader(path, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	limit := opts.InferSchemaLength
	if limit <= 0 {
		limit = 1000
	}

	if jsonl {
		rc.Close()
		return parseJSONLSample(path, opts, limit)
	}

	data, err := readAllDecompressed(path, opts)
	if err != nil {
		return nil, err
	}
	v, err := oj.Parse(data)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, errs.Decode.New("top-level JSON value is not an array")
	}
	var out []map[string]any
	for i, item := range arr {
		if i >= limit {
			break
		}
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func readAllDecompressed(path string, opts Options) ([]byte, error) {
	return DecompressToBuffer(path, opts.Compression)
}

func parseJSONLSample(path string, opts Options, limit int) ([]map[string]any, error) {
	lines, err := readJSONLLines(path, opts, limit)
	if err != nil {
		return nil, err
	}
	var out []map[string]any
	for _, line := range lines {
		if len(line) == 0 {
			continue
		}
		v, err := oj.Parse(line)
		if err != nil {
			if opts.IgnoreErrors {
				continue
			}
			return nil, errs.Decode.New(err.Error())
		}
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func readJSONLLines(path string, opts Options, limit int) ([][]byte, error) {
	rc, err := GetDecompressingReader(path, opts.Compression)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var lines [][]byte
	var cur []byte
	buf := make([]byte, 64*1024)
	for {
		n, err := rc.Read(buf)
		for i := 0; i < n; i++ {
			b := buf[i]
			if b == '\n' {
				lines = append(lines, cur)
				cur = nil
				if limit > 0 && len(lines) >= limit {
					return lines, nil
				}
			} else {
				cur = append(cur, b)
			}
		}
		if err != nil {
			if len(cur) > 0 {
				lines = append(lines, cur)
			}
			return lines, nil
		}
	}
}

func inferJSONSchema(records []map[string]any) schema.Schema {
	order := make([]string, 0)
	seen := make(map[string]bool)
	types := make(map[string]schema.DType)
	for _, rec := range records {
		for k, v := range rec {
			if !seen[k] {
				seen[k] = true
				order = append(order, k)
				types[k] = schema.Null
			}
			dt := jsonValueType(v, 0)
			cur := types[k]
			if cur == schema.Null {
				types[k] = dt
			} else if cur != dt && dt != schema.Null {
				if w, ok := schema.Widen(cur, dt); ok {
					types[k] = w
				} else {
					types[k] = schema.String
				}
			}
		}
	}
	sort.Strings(order) // deterministic ordering when keys vary across records
	sch := make(schema.Schema, len(order))
	for i, name := range order {
		sch[i] = schema.Column{Name: name, Type: types[name]}
	}
	return sch
}

func jsonValueType(v any, depth int) schema.DType {
	switch vv := v.(type) {
	case nil:
		return schema.Null
	case bool:
		return schema.Bool
	case float64:
		if vv == float64(int64(vv)) {
			return schema.Int64
		}
		return schema.Float64
	case int64:
		return schema.Int64
	case string:
		return schema.String
	case map[string]any, []any:
		if depth >= maxJSONInferenceDepth {
			return schema.String
		}
		return schema.String // collapsed to re-serialized JSON; see comment on maxJSONInferenceDepth
	default:
		return schema.String
	}
}

func (s *jsonSource) Schema() schema.Schema { return s.sch }

func (s *jsonSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	var records []map[string]any
	var err error
	if s.jsonl {
		lines, lerr := readJSONLLines(s.path, s.opts, 0)
		if lerr != nil {
			return nil, lerr
		}
		for _, line := range lines {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if len(line) == 0 {
				continue
			}
			v, perr := oj.Parse(line)
			if perr != nil {
				if s.opts.IgnoreErrors {
					continue
				}
				return nil, errs.Decode.New(perr.Error())
			}
			m, ok := v.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, m)
		}
	} else {
		records, err = sampleJSONRecords(s.path, withUnboundedInference(s.opts), false)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]dataset.Row, len(records))
	for i, rec := range records {
		row := make(dataset.Row, len(s.sch))
		for j, col := range s.sch {
			row[j] = convertJSONCell(rec[col.Name], col.Type)
		}
		rows[i] = row
	}
	return rows, nil
}

func withUnboundedInference(opts Options) Options {
	opts.InferSchemaLength = 1 << 30
	return opts
}

func convertJSONCell(v any, dt schema.DType) dataset.Value {
	if v == nil {
		return nil
	}
	switch dt {
	case schema.Int64:
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	case schema.Float64:
		if f, ok := v.(float64); ok {
			return f
		}
	case schema.Bool:
		if b, ok := v.(bool); ok {
			return b
		}
	case schema.Datetime:
		if s, ok := v.(string); ok {
			if t, err := parseDatetime(s); err == nil {
				return t
			}
		}
	}
	switch vv := v.(type) {
	case string:
		return vv
	case map[string]any, []any:
		return oj.JSON(vv)
	default:
		return fmt.Sprint(vv)
	}
}
