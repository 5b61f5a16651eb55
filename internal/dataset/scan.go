package dataset

import (
	"context"

	"github.com/derekwisong/datui/internal/schema"
)

// RowSource is implemented by format readers (internal/format) to supply
// the initial materialized table for a scanPlan. Kept as an interface
// rather than a bare *Table so readers can defer the actual read until
// Rows() is first called.
type RowSource interface {
	Schema() schema.Schema
	Rows(ctx context.Context) ([]Row, error)
}

type scanPlan struct {
	src    RowSource
	cached *Table
}

// Scan wraps a RowSource (produced by internal/format) as a base Dataset.
func Scan(src RowSource) Dataset {
	return Dataset{plan: &scanPlan{src: src}}
}

func (p *scanPlan) isPlan() {}

func (p *scanPlan) Schema() schema.Schema { return p.src.Schema() }

func (p *scanPlan) Materialize(ctx context.Context) (*Table, error) {
	if p.cached != nil {
		return p.cached, nil
	}
	rows, err := p.src.Rows(ctx)
	if err != nil {
		return nil, err
	}
	t := &Table{Schema: p.src.Schema(), Rows: rows}
	p.cached = t
	return t, nil
}

// staticPlan wraps an already-materialized Table. Used for in-memory
// sources (Excel, small JSON) and as the building block for tests.
type staticPlan struct {
	table *Table
}

// FromTable builds a Dataset directly from a materialized Table, for
// eager readers (Excel) and derived results (pivot/melt).
func FromTable(t *Table) Dataset {
	return Dataset{plan: &staticPlan{table: t}}
}

func (p *staticPlan) isPlan() {}

func (p *staticPlan) Schema() schema.Schema { return p.table.Schema }

func (p *staticPlan) Materialize(ctx context.Context) (*Table, error) {
	return p.table, nil
}
