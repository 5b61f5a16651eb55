// Package dataset implements the lazy dataset handle from spec §4.D: an
// immutable plan tree whose schema is read from the plan, with projection, filter,
// sort, aggregation, concat, pivot, and melt operations that return new
// datasets without mutating or materializing rows until a sink
// (Slice/Count/Collect) is called.
//
// Grounded on the teacher's query.PipelineBuilder/PipelineStage design
// (app/query/pipeline.go), generalized from eager []*Row stage execution
// to a deferred Plan.Materialize.
package dataset

import (
	"context"

	"github.com/derekwisong/datui/internal/schema"
)

// Value is a single boxed cell. Concrete Go types used: int64, float64,
// bool, string, time.Time, time.Duration, or nil for a null.
type Value = any

// Row is one record, positionally aligned with a Schema.
type Row []Value

// Table is a fully materialized batch of rows with its schema.
type Table struct {
	Schema schema.Schema
	Rows   []Row
}

// Plan is the sealed set of lazy operations. Only this package may
// implement it (the isPlan marker method is unexported).
type Plan interface {
	isPlan()
	Schema() schema.Schema
	// Materialize executes the plan to completion, returning every row.
	// Intermediate Dataset construction never calls this; only a sink
	// operation on the outermost Dataset does.
	Materialize(ctx context.Context) (*Table, error)
}

// Dataset is an immutable handle around a plan. It stores no schema of
// its own: Schema() asks the plan on every call. Cheap to copy; shares
// the underlying plan tree.
type Dataset struct {
	plan Plan
}

// New wraps an arbitrary Plan as a Dataset. Used by format readers to
// hand back a base dataset.
func New(p Plan) Dataset {
	return Dataset{plan: p}
}

// Schema returns the dataset's schema in O(1); it matches any future
// materialization.
func (d Dataset) Schema() schema.Schema {
	return d.plan.Schema()
}

// CollectSchemaOnly forces metadata resolution without pulling rows.
// For plans whose Schema() is already resolved eagerly (the common case
// here) this is a no-op identical to Schema().
func (d Dataset) CollectSchemaOnly() schema.Schema {
	return d.plan.Schema()
}

// Collect materializes every row. Sinks (Slice, Count) are built on top
// of this; callers needing only a window should prefer Slice so future
// plan variants can push limits down.
func (d Dataset) Collect(ctx context.Context) (*Table, error) {
	return d.plan.Materialize(ctx)
}

// Slice materializes exactly length rows starting at offset (or fewer at
// the end of the dataset).
func (d Dataset) Slice(ctx context.Context, offset uint64, length uint32) (*Table, error) {
	t, err := d.plan.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	if offset >= uint64(len(t.Rows)) {
		return &Table{Schema: t.Schema, Rows: nil}, nil
	}
	end := offset + uint64(length)
	if end > uint64(len(t.Rows)) {
		end = uint64(len(t.Rows))
	}
	return &Table{Schema: t.Schema, Rows: t.Rows[offset:end]}, nil
}

// Count materializes the plan and returns its row count. The result is
// not cached: every call materializes the plan again.
func (d Dataset) Count(ctx context.Context) (uint64, error) {
	t, err := d.plan.Materialize(ctx)
	if err != nil {
		return 0, err
	}
	return uint64(len(t.Rows)), nil
}

// Plan exposes the underlying plan node, for packages (paging, export)
// that need to re-wrap a Dataset without re-exporting internals.
func (d Dataset) Plan() Plan { return d.plan }
