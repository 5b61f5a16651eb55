package format

import (
	"context"
	"time"

	"github.com/scritchley/orc"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// orcSource reads an ORC file via scritchley/orc. Schema comes from the
// file's embedded TypeDescription, same metadata-only approach as the
// Parquet reader in parquet.go.
type orcSource struct {
	path string
	sch  schema.Schema
	cols []string
}

func OpenOrc(path string) (dataset.RowSource, error) {
	r, err := orc.Open(path)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer r.Close()

	td := r.Schema()
	cols := td.Columns()
	sch := make(schema.Schema, len(cols))
	children := td.Children()
	for i, name := range cols {
		dt := schema.String
		if i < len(children) {
			dt = orcCategoryToDType(children[i].Category())
		}
		sch[i] = schema.Column{Name: name, Type: dt}
	}
	return &orcSource{path: path, sch: sch, cols: cols}, nil
}

func orcCategoryToDType(cat orc.Category) schema.DType {
	switch cat {
	case orc.CategoryBoolean:
		return schema.Bool
	case orc.CategoryByte, orc.CategoryShort:
		return schema.Int32
	case orc.CategoryInt:
		return schema.Int32
	case orc.CategoryLong:
		return schema.Int64
	case orc.CategoryFloat:
		return schema.Float32
	case orc.CategoryDouble:
		return schema.Float64
	case orc.CategoryDate:
		return schema.Date
	case orc.CategoryTimestamp:
		return schema.Datetime
	case orc.CategoryString, orc.CategoryVarchar, orc.CategoryChar:
		return schema.String
	default:
		return schema.String
	}
}

func (s *orcSource) Schema() schema.Schema { return s.sch }

func (s *orcSource) Rows(ctx context.Context) ([]dataset.Row, error) {
	r, err := orc.Open(s.path)
	if err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	defer r.Close()

	c := r.Select(s.cols...)
	var rows []dataset.Row
	for c.Stripes() {
		for c.Next() {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			raw := c.Row()
			row := make(dataset.Row, len(s.sch))
			for i, v := range raw {
				if i >= len(row) {
					break
				}
				row[i] = orcCellValue(v, s.sch[i].Type)
			}
			rows = append(rows, row)
		}
	}
	if err := c.Err(); err != nil {
		return nil, errs.Decode.New(err.Error())
	}
	return rows, nil
}

func orcCellValue(v any, dt schema.DType) dataset.Value {
	if v == nil {
		return nil
	}
	switch vv := v.(type) {
	case int64:
		if dt == schema.Float64 || dt == schema.Float32 {
			return float64(vv)
		}
		return vv
	case int:
		return int64(vv)
	case float32:
		return float64(vv)
	case float64:
		return vv
	case bool:
		return vv
	case string:
		return vv
	case time.Time:
		return vv
	default:
		return v
	}
}
