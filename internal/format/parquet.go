package format

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// parquetSource wraps an Arrow table read from a Parquet file via
// apache/arrow-go/v18's pqarrow bridge. Schema is obtained from file
// metadata without reading row groups (spec §4.B "Schema obtained from
// file metadata").
type parquetSource struct {
	path string
	sch  schema.Schema
}

func OpenParquet(path string) (dataset.RowSource, error) {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	arrSchema, err := fr.Schema()
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	return &parquetSource{path: path, sch: arrowSchemaToSchema(arrSchema)}, nil
}

func arrowSchemaToSchema(s *arrow.Schema) schema.Schema {
	out := make(schema.Schema, s.NumFields())
	for i := 0; i < s.NumFields(); i++ {
		f := s.Field(i)
		out[i] = schema.Column{Name: f.Name, Type: ArrowTypeToDType(f.Type)}
	}
	return out
}

func ArrowTypeToDType(t arrow.DataType) schema.DType {
	switch t.ID() {
	case arrow.INT8:
		return schema.Int8
	case arrow.INT16:
		return schema.Int16
	case arrow.INT32:
		return schema.Int32
	case arrow.INT64:
		return schema.Int64
	case arrow.UINT8:
		return schema.UInt8
	case arrow.UINT16:
		return schema.UInt16
	case arrow.UINT32:
		return schema.UInt32
	case arrow.UINT64:
		return schema.UInt64
	case arrow.FLOAT32:
		return schema.Float32
	case arrow.FLOAT64:
		return schema.Float64
	case arrow.BOOL:
		return schema.Bool
	case arrow.STRING, arrow.LARGE_STRING:
		return schema.String
	case arrow.DATE32, arrow.DATE64:
		return schema.Date
	case arrow.TIME32, arrow.TIME64:
		return schema.Time
	case arrow.TIMESTAMP:
		return schema.Datetime
	case arrow.DURATION:
		return schema.Duration
	default:
		return schema.String
	}
}

func (s *parquetSource) Schema() schema.Schema { return s.sch }

func (s *parquetSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	pf, err := file.OpenParquetFile(s.path, false)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	tbl, err := fr.ReadTable(ctx)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer tbl.Release()

	return arrowTableToRows(tbl, s.sch)
}
