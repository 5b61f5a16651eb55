package format

import (
	"context"
	"os"

	"github.com/hamba/avro/v2/ocf"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// avroSource reads an Avro Object Container File via hamba/avro/v2's ocf
// decoder. Rather than walking the avro.Schema type hierarchy to map
// Avro's own type system onto ours, the schema here is inferred from a
// sample of decoded records the same way the JSON reader does — a single
// inference path shared across every self-describing record format.
type avroSource struct {
	path string
	sch  schema.Schema
}

func OpenAvro(path string) (dataset.RowSource, error) {
	records, err := sampleAvroRecords(path, 1000)
	if err != nil {
		return nil, err
	}
	return &avroSource{path: path, sch: inferJSONSchema(records)}, nil
}

func sampleAvroRecords(path string, limit int) ([]map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Io.New("open", err.Error())
	}
	defer f.Close()

	dec, err := ocf.NewDecoder(f)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}

	var records []map[string]any
	for dec.HasNext() && (limit <= 0 || len(records) < limit) {
		var rec map[string]any
		if err := dec.Decode(&rec); err != nil {
			return nil, errs.Decode.New(err.Error())
		}
		records = append(records, rec)
	}
	if err := dec.Error(); err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	return records, nil
}

func (s *avroSource) Schema() schema.Schema { return s.sch }

func (s *avroSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	records, err := sampleAvroRecords(s.path, 0)
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
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
