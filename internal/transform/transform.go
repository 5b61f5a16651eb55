// Package transform implements the Transform Pipeline from spec §4.G: a
// single compose function applying query, filters, sort, and an
// optional pivot or melt to a base dataset, reapplied fresh on every
// input change rather than incrementally patched — mirroring the
// teacher's QueryPipeline.Execute (app/query/pipeline.go), which also
// reran its stage list end to end rather than diffing against the
// previous run.
package transform

import (
	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/query"
)

// Spec bundles every transform input accepted by compose. Pivot and
// Melt are mutually exclusive (spec §4.G).
type Spec struct {
	Query   *query.Query
	Filters []dataset.Predicate
	Sort    []dataset.SortKey
	Pivot   *dataset.PivotSpec
	Melt    *dataset.MeltSpec
}

// Compose applies spec.Query, then every filter (conjoined), then
// sort, then at most one of Pivot/Melt, to base — in that order, fresh
// on every call.
func Compose(base dataset.Dataset, spec Spec) (dataset.Dataset, error) {
	if spec.Pivot != nil && spec.Melt != nil {
		return dataset.Dataset{}, errs.ConflictingTransforms.New("pivot and melt cannot both be requested")
	}

	ds := base
	if spec.Query != nil {
		compiled := query.Compile(spec.Query)
		var err error
		ds, err = compiled(ds)
		if err != nil {
			return dataset.Dataset{}, err
		}
	}

	if len(spec.Filters) > 0 {
		pred := spec.Filters[0]
		for _, f := range spec.Filters[1:] {
			pred = dataset.And(pred, f)
		}
		ds = ds.Filter(pred)
	}

	if len(spec.Sort) > 0 {
		ds = ds.Sort(spec.Sort)
	}

	switch {
	case spec.Pivot != nil:
		var err error
		ds, err = ds.Pivot(*spec.Pivot)
		if err != nil {
			return dataset.Dataset{}, err
		}
	case spec.Melt != nil:
		var err error
		ds, err = ds.Melt(*spec.Melt)
		if err != nil {
			return dataset.Dataset{}, err
		}
	}

	return ds, nil
}
