package dataset

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// AggFunc is the closed set of aggregation functions from spec §4.E.
type AggFunc int

const (
	AggSum AggFunc = iota
	AggMean
	AggMin
	AggMax
	AggCount
	AggFirst
	AggLast
	AggStd
	AggVar
	AggMedian
	AggQuantile
)

// Agg names one output aggregate column: aggregate Column with Func,
// optionally aliased. Quantile is only meaningful when Func==AggQuantile.
type Agg struct {
	Column   string
	Func     AggFunc
	Alias    string
	Quantile float64
}

func (a Agg) outputName() string {
	if a.Alias != "" {
		return a.Alias
	}
	return fmt.Sprintf("%s(%s)", aggFuncName(a.Func), a.Column)
}

func aggFuncName(f AggFunc) string {
	switch f {
	case AggSum:
		return "sum"
	case AggMean:
		return "mean"
	case AggMin:
		return "min"
	case AggMax:
		return "max"
	case AggCount:
		return "count"
	case AggFirst:
		return "first"
	case AggLast:
		return "last"
	case AggStd:
		return "std"
	case AggVar:
		return "var"
	case AggMedian:
		return "median"
	case AggQuantile:
		return "quantile"
	default:
		return "agg"
	}
}

func aggOutputType(f AggFunc, input schema.DType) schema.DType {
	switch f {
	case AggCount:
		return schema.Int64
	case AggFirst, AggLast:
		return input
	default:
		return schema.Float64
	}
}

type aggregatePlan struct {
	input Plan
	by    []string
	aggs  []Agg
}

// Aggregate groups by the named columns (which appear first in the
// output) and projects the listed aggregates (named "fn(col)" unless
// aliased), per spec §4.D.
func (d Dataset) Aggregate(by []string, aggs []Agg) (Dataset, error) {
	sch := d.Schema()
	for _, b := range by {
		if sch.IndexOf(b) < 0 {
			return Dataset{}, errs.UnknownColumn.New(b)
		}
	}
	for _, a := range aggs {
		if sch.IndexOf(a.Column) < 0 {
			return Dataset{}, errs.UnknownColumn.New(a.Column)
		}
	}
	return Dataset{plan: &aggregatePlan{input: d.plan, by: by, aggs: aggs}}, nil
}

func (p *aggregatePlan) isPlan() {}

func (p *aggregatePlan) Schema() schema.Schema {
	in := p.input.Schema()
	out := make(schema.Schema, 0, len(p.by)+len(p.aggs))
	for _, b := range p.by {
		idx := in.IndexOf(b)
		out = append(out, in[idx])
	}
	for _, a := range p.aggs {
		idx := in.IndexOf(a.Column)
		out = append(out, schema.Column{Name: a.outputName(), Type: aggOutputType(a.Func, in[idx].Type)})
	}
	return out
}

func (p *aggregatePlan) Materialize(ctx context.Context) (*Table, error) {
	in, err := p.input.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	byIdx := make([]int, len(p.by))
	for i, b := range p.by {
		byIdx[i] = in.Schema.IndexOf(b)
	}
	aggIdx := make([]int, len(p.aggs))
	for i, a := range p.aggs {
		aggIdx[i] = in.Schema.IndexOf(a.Column)
	}

	type groupKey string
	groups := make(map[groupKey][]Row)
	order := make([]groupKey, 0)
	keyVals := make(map[groupKey]Row)

	for _, r := range in.Rows {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		kv := make(Row, len(byIdx))
		for i, idx := range byIdx {
			kv[i] = r[idx]
		}
		k := groupKey(fmt.Sprint(kv))
		if _, ok := groups[k]; !ok {
			order = append(order, k)
			keyVals[k] = kv
		}
		groups[k] = append(groups[k], r)
	}

	outSchema := p.Schema()
	rows := make([]Row, 0, len(order))
	for _, k := range order {
		grp := groups[k]
		out := make(Row, 0, len(p.by)+len(p.aggs))
		out = append(out, keyVals[k]...)
		for i, a := range p.aggs {
			vals := collectFloats(grp, aggIdx[i])
			out = append(out, computeAgg(a, grp, aggIdx[i], vals))
		}
		rows = append(rows, out)
	}
	return &Table{Schema: outSchema, Rows: rows}, nil
}

func collectFloats(rows []Row, col int) []float64 {
	out := make([]float64, 0, len(rows))
	for _, r := range rows {
		if f, ok := toFloat(r[col]); ok {
			out = append(out, f)
		}
	}
	return out
}

func computeAgg(a Agg, rows []Row, col int, vals []float64) Value {
	switch a.Func {
	case AggCount:
		return int64(len(rows))
	case AggFirst:
		if len(rows) == 0 {
			return nil
		}
		return rows[0][col]
	case AggLast:
		if len(rows) == 0 {
			return nil
		}
		return rows[len(rows)-1][col]
	case AggSum:
		var s float64
		for _, v := range vals {
			s += v
		}
		return s
	case AggMean:
		if len(vals) == 0 {
			return nil
		}
		var s float64
		for _, v := range vals {
			s += v
		}
		return s / float64(len(vals))
	case AggMin:
		if len(vals) == 0 {
			return nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case AggMax:
		if len(vals) == 0 {
			return nil
		}
		m := vals[0]
		for _, v := range vals[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case AggStd:
		return math.Sqrt(variance(vals))
	case AggVar:
		return variance(vals)
	case AggMedian:
		return quantile(vals, 0.5)
	case AggQuantile:
		return quantile(vals, a.Quantile)
	default:
		return nil
	}
}

func variance(vals []float64) float64 {
	if len(vals) < 2 {
		return 0
	}
	var mean float64
	for _, v := range vals {
		mean += v
	}
	mean /= float64(len(vals))
	var ss float64
	for _, v := range vals {
		d := v - mean
		ss += d * d
	}
	return ss / float64(len(vals)-1)
}

// quantile computes position q*(n-1) with linear interpolation, the same
// positioning rule used by the box-plot preparer (spec §4.I).
func quantile(vals []float64, q float64) float64 {
	if len(vals) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
