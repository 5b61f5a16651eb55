package export

import (
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

// dtypeToArrow is the inverse of format.ArrowTypeToDType, used to build
// an arrow.Schema/Table from a dataset.Table for the Parquet and Arrow
// export writers.
func dtypeToArrow(dt schema.DType) arrow.DataType {
	switch dt {
	case schema.Int8:
		return arrow.PrimitiveTypes.Int8
	case schema.Int16:
		return arrow.PrimitiveTypes.Int16
	case schema.Int32:
		return arrow.PrimitiveTypes.Int32
	case schema.Int64:
		return arrow.PrimitiveTypes.Int64
	case schema.UInt8:
		return arrow.PrimitiveTypes.Uint8
	case schema.UInt16:
		return arrow.PrimitiveTypes.Uint16
	case schema.UInt32:
		return arrow.PrimitiveTypes.Uint32
	case schema.UInt64:
		return arrow.PrimitiveTypes.Uint64
	case schema.Float32:
		return arrow.PrimitiveTypes.Float32
	case schema.Float64:
		return arrow.PrimitiveTypes.Float64
	case schema.Bool:
		return arrow.FixedWidthTypes.Boolean
	case schema.Date:
		return arrow.FixedWidthTypes.Date32
	case schema.Datetime:
		return arrow.FixedWidthTypes.Timestamp_ns
	default:
		return arrow.BinaryTypes.String
	}
}

func tableToArrowRecord(t *dataset.Table, pool memory.Allocator) (arrow.Record, *arrow.Schema, error) {
	fields := make([]arrow.Field, len(t.Schema))
	for i, col := range t.Schema {
		fields[i] = arrow.Field{Name: col.Name, Type: dtypeToArrow(col.Type), Nullable: true}
	}
	arrSchema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(pool, arrSchema)
	defer b.Release()

	for rowIdx, row := range t.Rows {
		for colIdx, col := range t.Schema {
			appendArrowValue(b.Field(colIdx), col.Type, row[colIdx])
		}
		_ = rowIdx
	}

	rec := b.NewRecord()
	return rec, arrSchema, nil
}

func appendArrowValue(fb array.Builder, dt schema.DType, v dataset.Value) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch dt {
	case schema.Int8:
		fb.(*array.Int8Builder).Append(int8(toInt64(v)))
	case schema.Int16:
		fb.(*array.Int16Builder).Append(int16(toInt64(v)))
	case schema.Int32:
		fb.(*array.Int32Builder).Append(int32(toInt64(v)))
	case schema.Int64:
		fb.(*array.Int64Builder).Append(toInt64(v))
	case schema.UInt8:
		fb.(*array.Uint8Builder).Append(uint8(toInt64(v)))
	case schema.UInt16:
		fb.(*array.Uint16Builder).Append(uint16(toInt64(v)))
	case schema.UInt32:
		fb.(*array.Uint32Builder).Append(uint32(toInt64(v)))
	case schema.UInt64:
		fb.(*array.Uint64Builder).Append(uint64(toInt64(v)))
	case schema.Float32:
		fb.(*array.Float32Builder).Append(float32(toFloat64(v)))
	case schema.Float64:
		fb.(*array.Float64Builder).Append(toFloat64(v))
	case schema.Bool:
		if b, ok := v.(bool); ok {
			fb.(*array.BooleanBuilder).Append(b)
		} else {
			fb.AppendNull()
		}
	case schema.Date:
		if t, ok := v.(time.Time); ok {
			fb.(*array.Date32Builder).Append(arrow.Date32FromTime(t))
		} else {
			fb.AppendNull()
		}
	case schema.Datetime:
		if t, ok := v.(time.Time); ok {
			ts, _ := arrow.TimestampFromTime(t, arrow.Nanosecond)
			fb.(*array.TimestampBuilder).Append(ts)
		} else {
			fb.AppendNull()
		}
	default:
		fb.(*array.StringBuilder).Append(cellToString(v))
	}
}

func toInt64(v dataset.Value) int64 {
	switch vv := v.(type) {
	case int64:
		return vv
	case int:
		return int64(vv)
	case float64:
		return int64(vv)
	default:
		return 0
	}
}

func toFloat64(v dataset.Value) float64 {
	switch vv := v.(type) {
	case float64:
		return vv
	case int64:
		return float64(vv)
	default:
		return 0
	}
}
