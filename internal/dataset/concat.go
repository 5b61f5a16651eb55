package dataset

import (
	"context"

	"github.com/derekwisong/datui/internal/schema"
)

type concatPlan struct {
	inputs   []Plan
	unified  schema.Schema
}

// Concat fails SchemaMismatch when schemas do not unify (spec §4.D).
func (d Dataset) Concat(others []Dataset) (Dataset, error) {
	sch := d.Schema()
	plans := make([]Plan, 0, len(others)+1)
	plans = append(plans, d.plan)
	for _, o := range others {
		u, err := sch.Unify(o.Schema())
		if err != nil {
			return Dataset{}, err
		}
		sch = u
		plans = append(plans, o.plan)
	}
	return Dataset{plan: &concatPlan{inputs: plans, unified: sch}}, nil
}

func (p *concatPlan) isPlan() {}

func (p *concatPlan) Schema() schema.Schema { return p.unified }

func (p *concatPlan) Materialize(ctx context.Context) (*Table, error) {
	rows := make([]Row, 0)
	for _, in := range p.inputs {
		t, err := in.Materialize(ctx)
		if err != nil {
			return nil, err
		}
		rows = append(rows, t.Rows...)
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return &Table{Schema: p.unified, Rows: rows}, nil
}
