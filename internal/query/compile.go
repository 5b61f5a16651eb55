package query

import (
	"fmt"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// Compiled is the function Dataset -> Dataset produced by compiling a
// parsed Query (spec §4.E: "A compiled query is a function Dataset ->
// Dataset. It is idempotent for any fixed input dataset.").
type Compiled func(d dataset.Dataset) (dataset.Dataset, error)

// Compile turns a parsed Query into a Compiled transform, bound to no
// particular input schema until the returned function runs (so the same Compiled value
// can validate column references against whatever dataset it's applied
// to, the same way a SQL prepared statement is schema-agnostic until
// bound).
func Compile(q *Query) Compiled {
	return func(d dataset.Dataset) (dataset.Dataset, error) {
		return apply(q, d)
	}
}

func apply(q *Query, d dataset.Dataset) (dataset.Dataset, error) {
	sch := d.Schema()

	if q.Where != nil {
		predFn, _, err := scalarEvaluator(q.Where, sch)
		if err != nil {
			return dataset.Dataset{}, err
		}
		pred := dataset.Predicate(func(row dataset.Row) (bool, error) {
			v, err := predFn(row)
			if err != nil {
				return false, err
			}
			b, _ := v.(bool)
			return b, nil
		})
		d = d.Filter(pred)
	}

	hasAgg := selectHasAggregate(q.Select)
	if len(q.By) > 0 && !hasAgg {
		return dataset.Dataset{}, errs.AggregationRequired.New()
	}

	if hasAgg {
		return applyAggregate(q, d)
	}

	if q.Select == nil {
		return d, nil
	}
	return applyProject(q, d, sch)
}

func selectHasAggregate(projs []Projection) bool {
	for _, p := range projs {
		if fc, ok := p.Expr.(FunctionCall); ok {
			if _, isAgg := aggregateFuncNames[fc.Name]; isAgg {
				return true
			}
		}
	}
	return false
}

func applyProject(q *Query, d dataset.Dataset, sch schema.Schema) (dataset.Dataset, error) {
	cols := make([]dataset.ColumnExpr, 0, len(q.Select))
	names := make(map[string]bool, len(q.Select))
	for _, proj := range q.Select {
		fn, dt, err := scalarEvaluator(proj.Expr, sch)
		if err != nil {
			return dataset.Dataset{}, err
		}
		name := proj.Alias
		if name == "" {
			name = exprName(proj.Expr)
		}
		if names[name] {
			return dataset.Dataset{}, errs.DuplicateColumn.New(fmt.Sprintf("%s (consider an explicit alias, e.g. %s2: ...)", name, name))
		}
		names[name] = true
		cols = append(cols, dataset.ColumnExpr{Name: name, Type: dt, Eval: fn})
	}
	return d.ProjectExprs(cols), nil
}

func applyAggregate(q *Query, d dataset.Dataset) (dataset.Dataset, error) {
	aggs := make([]dataset.Agg, 0, len(q.Select))
	names := make(map[string]bool, len(q.By)+len(q.Select))
	for _, b := range q.By {
		names[b] = true
	}
	for _, proj := range q.Select {
		fc, ok := proj.Expr.(FunctionCall)
		if !ok {
			// a bare by-column repeated in select is allowed and passed
			// through (it's already emitted as a group key); anything
			// else alongside aggregates is rejected.
			if c, isCol := proj.Expr.(Column); isCol {
				isBy := false
				for _, b := range q.By {
					isBy = isBy || b == c.Name
				}
				if isBy {
					continue
				}
			}
			return dataset.Dataset{}, errs.AggregationRequired.New()
		}
		af, ok := aggregateFuncNames[fc.Name]
		if !ok {
			return dataset.Dataset{}, errs.UnknownFunction.New(fc.Name)
		}
		if len(fc.Args) == 0 {
			return dataset.Dataset{}, errs.QuerySemantics.New(fmt.Sprintf("%s requires a column argument", fc.Name))
		}
		col, ok := fc.Args[0].(Column)
		if !ok {
			return dataset.Dataset{}, errs.QuerySemantics.New(fmt.Sprintf("%s: argument must be a column reference", fc.Name))
		}
		var q90 float64
		if af == dataset.AggQuantile {
			if len(fc.Args) < 2 {
				return dataset.Dataset{}, errs.QuerySemantics.New("quantile requires (column, q)")
			}
			lit, ok := fc.Args[1].(Literal)
			if !ok {
				return dataset.Dataset{}, errs.QuerySemantics.New("quantile's second argument must be a literal")
			}
			switch v := lit.Value.(type) {
			case float64:
				q90 = v
			case int64:
				q90 = float64(v)
			}
		}
		alias := proj.Alias
		if alias == "" {
			alias = fmt.Sprintf("%s(%s)", fc.Name, col.Name)
		}
		if names[alias] {
			return dataset.Dataset{}, errs.DuplicateColumn.New(fmt.Sprintf("%s (consider an explicit alias)", alias))
		}
		names[alias] = true
		aggs = append(aggs, dataset.Agg{Column: col.Name, Func: af, Alias: alias, Quantile: q90})
	}
	return d.Aggregate(q.By, aggs)
}
