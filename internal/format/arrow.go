package format

import (
	"context"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// arrowSource reads an Arrow IPC file (.arrow/.feather), schema obtained
// from the stream's embedded schema without materializing record batches.
type arrowSource struct {
	path string
	sch  schema.Schema
}

func OpenArrow(path string) (dataset.RowSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errs.Io.New("open", err.Error())
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	return &arrowSource{path: path, sch: arrowSchemaToSchema(r.Schema())}, nil
}

func (s *arrowSource) Schema() schema.Schema { return s.sch }

func (s *arrowSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, errs.Io.New("open", err.Error())
	}
	defer f.Close()

	r, err := ipc.NewFileReader(f, ipc.WithAllocator(memory.DefaultAllocator))
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}

	var rows []dataset.Row
	for i := 0; i < r.NumRecords(); i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		rec, err := r.Record(i)
		if err != nil {
			return nil, errs.Decode.New(err.Error())
		}
		batchRows, err := recordToRows(rec, s.sch)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batchRows...)
	}
	return rows, nil
}

// arrowTableToRows flattens an arrow.Table (as returned by the Parquet
// reader) into row-major dataset.Row values, chunk by chunk.
func arrowTableToRows(tbl arrow.Table, sch schema.Schema) ([]dataset.Row, error) {
	numRows := int(tbl.NumRows())
	rows := make([]dataset.Row, 0, numRows)

	tr := array.NewTableReader(tbl, tbl.NumRows())
	defer tr.Release()
	for tr.Next() {
		rec := tr.Record()
		batchRows, err := recordToRows(rec, sch)
		if err != nil {
			return nil, err
		}
		rows = append(rows, batchRows...)
	}
	return rows, nil
}

func recordToRows(rec arrow.Record, sch schema.Schema) ([]dataset.Row, error) {
	n := int(rec.NumRows())
	rows := make([]dataset.Row, n)
	for i := range rows {
		rows[i] = make(dataset.Row, len(sch))
	}
	for c := 0; c < int(rec.NumCols()) && c < len(sch); c++ {
		col := rec.Column(c)
		dt := sch[c].Type
		for i := 0; i < n; i++ {
			if col.IsNull(i) {
				rows[i][c] = nil
				continue
			}
			rows[i][c] = arrowCellValue(col, i, dt)
		}
	}
	return rows, nil
}

func arrowCellValue(col arrow.Array, i int, dt schema.DType) dataset.Value {
	switch a := col.(type) {
	case *array.Int8:
		return int64(a.Value(i))
	case *array.Int16:
		return int64(a.Value(i))
	case *array.Int32:
		return int64(a.Value(i))
	case *array.Int64:
		return a.Value(i)
	case *array.Uint8:
		return int64(a.Value(i))
	case *array.Uint16:
		return int64(a.Value(i))
	case *array.Uint32:
		return int64(a.Value(i))
	case *array.Uint64:
		return int64(a.Value(i))
	case *array.Float32:
		return float64(a.Value(i))
	case *array.Float64:
		return a.Value(i)
	case *array.Boolean:
		return a.Value(i)
	case *array.String:
		return a.Value(i)
	case *array.LargeString:
		return a.Value(i)
	case *array.Date32:
		return a.Value(i).ToTime()
	case *array.Date64:
		return a.Value(i).ToTime()
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit)
	default:
		return col.ValueStr(i)
	}
}
