package dataset

import (
	"context"

	"github.com/derekwisong/datui/internal/schema"
)

// Predicate evaluates a single row against the schema it was compiled
// for. Built by the query compiler and by user filter statements.
type Predicate func(row Row) (bool, error)

type filterPlan struct {
	input Plan
	pred  Predicate
}

// Filter rejects rows for which pred returns false; a predicate error
// stops materialization and is returned by the sink. dtype
// incompatibility is the caller's responsibility to raise as
// TypeMismatch before constructing the predicate (the query compiler
// does this at compile time, not per-row).
func (d Dataset) Filter(pred Predicate) Dataset {
	return Dataset{plan: &filterPlan{input: d.plan, pred: pred}}
}

func (p *filterPlan) isPlan() {}

func (p *filterPlan) Schema() schema.Schema { return p.input.Schema() }

func (p *filterPlan) Materialize(ctx context.Context) (*Table, error) {
	in, err := p.input.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	rows := make([]Row, 0, len(in.Rows))
	for _, r := range in.Rows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		ok, err := p.pred(r)
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, r)
		}
	}
	return &Table{Schema: in.Schema, Rows: rows}, nil
}

// And conjoins two predicates; used to compose query-where with
// user filter statements left-to-right (spec §3 filter statement).
func And(a, b Predicate) Predicate {
	return func(row Row) (bool, error) {
		ok, err := a(row)
		if err != nil || !ok {
			return false, err
		}
		return b(row)
	}
}

// Or disjoins two predicates.
func Or(a, b Predicate) Predicate {
	return func(row Row) (bool, error) {
		ok, err := a(row)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		return b(row)
	}
}
