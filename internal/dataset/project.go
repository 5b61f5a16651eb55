package dataset

import (
	"context"
	"fmt"

	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// ColumnExpr is a single output column of a projection: a name, its
// declared type, and a function computing its value from an input row.
// The query compiler builds these for "select a, c+b as d" style
// projections; simple column selection is the degenerate Eval that
// returns row[idx] unchanged.
type ColumnExpr struct {
	Name string
	Type schema.DType
	Unit schema.TimeUnit
	TZ   string
	Eval func(row Row) (Value, error)
}

type projectPlan struct {
	input Plan
	cols  []ColumnExpr
}

// Project preserves input order and column selection per spec §4.D;
// Project(cols) is the simple-name form. It returns UnknownColumn for a
// name the input schema does not contain.
func (d Dataset) Project(cols []string) (Dataset, error) {
	sch := d.Schema()
	exprs := make([]ColumnExpr, len(cols))
	for i, name := range cols {
		idx := sch.IndexOf(name)
		if idx < 0 {
			return Dataset{}, errs.UnknownColumn.New(name)
		}
		col := sch[idx]
		capturedIdx := idx
		exprs[i] = ColumnExpr{
			Name: col.Name,
			Type: col.Type,
			Unit: col.Unit,
			TZ:   col.TZ,
			Eval: func(row Row) (Value, error) {
				return row[capturedIdx], nil
			},
		}
	}
	return d.ProjectExprs(exprs), nil
}

// ProjectExprs is the general form used by the query compiler to support
// computed/aliased output columns.
func (d Dataset) ProjectExprs(cols []ColumnExpr) Dataset {
	return Dataset{plan: &projectPlan{input: d.plan, cols: cols}}
}

func (p *projectPlan) isPlan() {}

func (p *projectPlan) Schema() schema.Schema {
	out := make(schema.Schema, len(p.cols))
	for i, c := range p.cols {
		out[i] = schema.Column{Name: c.Name, Type: c.Type, Unit: c.Unit, TZ: c.TZ}
	}
	return out
}

func (p *projectPlan) Materialize(ctx context.Context) (*Table, error) {
	in, err := p.input.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	outSchema := p.Schema()
	rows := make([]Row, len(in.Rows))
	for i, r := range in.Rows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		out := make(Row, len(p.cols))
		for j, c := range p.cols {
			v, err := c.Eval(r)
			if err != nil {
				return nil, errs.TypeMismatch.New(fmt.Sprintf("column %q: %v", c.Name, err))
			}
			out[j] = v
		}
		rows[i] = out
	}
	return &Table{Schema: outSchema, Rows: rows}, nil
}
