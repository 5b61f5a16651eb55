package export

import (
	"encoding/json"
	"os"

	"github.com/hamba/avro/v2"
	"github.com/hamba/avro/v2/ocf"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

func writeAvro(path string, t *dataset.Table) error {
	avroSchema, err := buildAvroSchema(t.Schema)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	enc, err := ocf.NewEncoder(avroSchema.String(), f)
	if err != nil {
		return errs.Io.New("avro encoder", err.Error())
	}

	for _, row := range t.Rows {
		rec := rowToAvroMap(t, row)
		if err := enc.Encode(rec); err != nil {
			return errs.Io.New("encode", err.Error())
		}
	}
	if err := enc.Close(); err != nil {
		return errs.Io.New("close", err.Error())
	}
	return nil
}

// buildAvroSchema constructs an Avro record schema. Fields are their
// plain (non-union) Avro primitive type: hamba/avro's generic
// map[string]any encoder requires union branches to be wrapped in a
// single-key map, which would force every writer-side nil into an
// awkward wrapped representation for no benefit here, so nulls are
// instead written as each type's zero value (see rowToAvroMap).
func buildAvroSchema(sch schema.Schema) (avro.Schema, error) {
	type field struct {
		Name string          `json:"name"`
		Type json.RawMessage `json:"type"`
	}
	fields := make([]field, len(sch))
	for i, col := range sch {
		fields[i] = field{Name: col.Name, Type: json.RawMessage(avroTypeJSON(col.Type))}
	}
	doc := map[string]any{
		"type":   "record",
		"name":   "Row",
		"fields": fields,
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, errs.InternalInvariant.New(err.Error())
	}
	return avro.Parse(string(b))
}

// rowToAvroMap converts a row to field values compatible with the
// non-union schema built by buildAvroSchema, substituting each column's
// zero value for null cells.
func rowToAvroMap(t *dataset.Table, row dataset.Row) map[string]any {
	m := make(map[string]any, len(t.Schema))
	for i, col := range t.Schema {
		v := row[i]
		if v == nil {
			m[col.Name] = avroZeroValue(col.Type)
			continue
		}
		switch col.Type {
		case schema.Int8, schema.Int16, schema.Int32, schema.UInt8, schema.UInt16:
			m[col.Name] = int32(toInt64(v))
		case schema.Int64, schema.UInt32, schema.UInt64, schema.Date, schema.Datetime, schema.Duration:
			m[col.Name] = toInt64(v)
		case schema.Float32:
			m[col.Name] = float32(toFloat64(v))
		case schema.Float64:
			m[col.Name] = toFloat64(v)
		case schema.Bool:
			if b, ok := v.(bool); ok {
				m[col.Name] = b
			} else {
				m[col.Name] = false
			}
		default:
			m[col.Name] = cellToString(v)
		}
	}
	return m
}

func avroZeroValue(dt schema.DType) any {
	switch dt {
	case schema.Int8, schema.Int16, schema.Int32, schema.UInt8, schema.UInt16:
		return int32(0)
	case schema.Int64, schema.UInt32, schema.UInt64, schema.Date, schema.Datetime, schema.Duration:
		return int64(0)
	case schema.Float32:
		return float32(0)
	case schema.Float64:
		return float64(0)
	case schema.Bool:
		return false
	default:
		return ""
	}
}

func avroTypeJSON(dt schema.DType) string {
	switch dt {
	case schema.Int8, schema.Int16, schema.Int32, schema.UInt8, schema.UInt16:
		return `"int"`
	case schema.Int64, schema.UInt32, schema.UInt64, schema.Date, schema.Datetime, schema.Duration:
		return `"long"`
	case schema.Float32:
		return `"float"`
	case schema.Float64:
		return `"double"`
	case schema.Bool:
		return `"boolean"`
	default:
		return `"string"`
	}
}
