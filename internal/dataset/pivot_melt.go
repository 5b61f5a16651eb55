package dataset

import (
	"context"
	"fmt"
	"sort"

	"github.com/samber/lo"

	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// PivotSpec implements spec §4.G pivot: index_cols + one column per
// distinct pivot value, aggregated with Agg.
type PivotSpec struct {
	IndexCols    []string
	PivotCol     string
	ValueCol     string
	Agg          AggFunc
	SortColumns  bool
	// WorkaroundPivotDateIndex casts a Date/Datetime index to a stable
	// type before pivoting and casts back after, guarding against the
	// backend-bug workaround described in spec §4.G/§9. The Go pivot
	// path below is generation-agnostic (it already treats every value
	// as a comparable Go value, never relying on a native date/pivot
	// primitive), so the cast is a no-op here; the flag is carried only
	// to keep callers' configuration schema stable across backends.
	WorkaroundPivotDateIndex bool
}

// MeltSpec implements spec §4.G melt: index_cols + variable_name +
// value_name over value_cols, whose common supertype becomes the value
// column's dtype.
type MeltSpec struct {
	IndexCols    []string
	ValueCols    []string
	VariableName string
	ValueName    string
}

// Pivot applies a PivotSpec to the current dataset.
func (d Dataset) Pivot(spec PivotSpec) (Dataset, error) {
	sch := d.Schema()
	for _, c := range spec.IndexCols {
		if sch.IndexOf(c) < 0 {
			return Dataset{}, errs.UnknownColumn.New(c)
		}
	}
	if sch.IndexOf(spec.PivotCol) < 0 {
		return Dataset{}, errs.UnknownColumn.New(spec.PivotCol)
	}
	if sch.IndexOf(spec.ValueCol) < 0 {
		return Dataset{}, errs.UnknownColumn.New(spec.ValueCol)
	}
	t, err := d.Collect(context.Background())
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{plan: &staticPlan{table: materializePivot(t, spec)}}, nil
}

func materializePivot(t *Table, spec PivotSpec) *Table {
	idxIdx := make([]int, len(spec.IndexCols))
	for i, c := range spec.IndexCols {
		idxIdx[i] = t.Schema.IndexOf(c)
	}
	pivotIdx := t.Schema.IndexOf(spec.PivotCol)
	valueIdx := t.Schema.IndexOf(spec.ValueCol)
	valueType := t.Schema[valueIdx].Type

	type groupKey string
	groupOrder := make([]groupKey, 0)
	groupIndexVals := make(map[groupKey]Row)
	cells := make(map[groupKey]map[string][]Value)

	var pivotValsOrdered []string
	seenPivotVal := make(map[string]bool)

	for _, r := range t.Rows {
		idxVals := make(Row, len(idxIdx))
		for i, ix := range idxIdx {
			idxVals[i] = r[ix]
		}
		gk := groupKey(fmt.Sprint(idxVals))
		if _, ok := cells[gk]; !ok {
			groupOrder = append(groupOrder, gk)
			groupIndexVals[gk] = idxVals
			cells[gk] = make(map[string][]Value)
		}
		pv := fmt.Sprint(r[pivotIdx])
		if !seenPivotVal[pv] {
			seenPivotVal[pv] = true
			pivotValsOrdered = append(pivotValsOrdered, pv)
		}
		cells[gk][pv] = append(cells[gk][pv], r[valueIdx])
	}

	pivotVals := lo.Uniq(pivotValsOrdered)
	if spec.SortColumns {
		sort.Strings(pivotVals)
	}

	outSchema := make(schema.Schema, 0, len(spec.IndexCols)+len(pivotVals))
	for _, c := range spec.IndexCols {
		outSchema = append(outSchema, t.Schema[t.Schema.IndexOf(c)])
	}
	outType := valueType
	if spec.Agg == AggCount {
		outType = schema.Int64
	} else if spec.Agg != AggFirst && spec.Agg != AggLast {
		outType = schema.Float64
	}
	for _, pv := range pivotVals {
		outSchema = append(outSchema, schema.Column{Name: pv, Type: outType})
	}

	rows := make([]Row, 0, len(groupOrder))
	for _, gk := range groupOrder {
		out := make(Row, 0, len(spec.IndexCols)+len(pivotVals))
		out = append(out, groupIndexVals[gk]...)
		for _, pv := range pivotVals {
			vals := cells[gk][pv]
			if len(vals) == 0 {
				out = append(out, nil)
				continue
			}
			out = append(out, aggregateCell(spec.Agg, vals))
		}
		rows = append(rows, out)
	}
	return &Table{Schema: outSchema, Rows: rows}
}

func aggregateCell(f AggFunc, vals []Value) Value {
	switch f {
	case AggFirst:
		return vals[0]
	case AggLast:
		return vals[len(vals)-1]
	case AggCount:
		return int64(len(vals))
	default:
		floats := make([]float64, 0, len(vals))
		for _, v := range vals {
			if fl, ok := toFloat(v); ok {
				floats = append(floats, fl)
			}
		}
		switch f {
		case AggSum:
			var s float64
			for _, v := range floats {
				s += v
			}
			return s
		case AggMean:
			if len(floats) == 0 {
				return nil
			}
			var s float64
			for _, v := range floats {
				s += v
			}
			return s / float64(len(floats))
		case AggMin:
			if len(floats) == 0 {
				return nil
			}
			m := floats[0]
			for _, v := range floats[1:] {
				if v < m {
					m = v
				}
			}
			return m
		case AggMax:
			if len(floats) == 0 {
				return nil
			}
			m := floats[0]
			for _, v := range floats[1:] {
				if v > m {
					m = v
				}
			}
			return m
		default:
			return vals[len(vals)-1]
		}
	}
}

// Melt applies a MeltSpec. Value dtype is the common supertype of
// ValueCols; incompatible types fail TypeMismatch (spec §4.G).
func (d Dataset) Melt(spec MeltSpec) (Dataset, error) {
	sch := d.Schema()
	for _, c := range spec.IndexCols {
		if sch.IndexOf(c) < 0 {
			return Dataset{}, errs.UnknownColumn.New(c)
		}
	}
	var valueType schema.DType
	for i, c := range spec.ValueCols {
		idx := sch.IndexOf(c)
		if idx < 0 {
			return Dataset{}, errs.UnknownColumn.New(c)
		}
		if i == 0 {
			valueType = sch[idx].Type
			continue
		}
		w, ok := schema.Widen(valueType, sch[idx].Type)
		if !ok {
			return Dataset{}, errs.TypeMismatch.New(fmt.Sprintf("melt value columns incompatible: %s vs %s", valueType, sch[idx].Type))
		}
		valueType = w
	}

	t, err := d.Collect(context.Background())
	if err != nil {
		return Dataset{}, err
	}

	idxIdx := make([]int, len(spec.IndexCols))
	for i, c := range spec.IndexCols {
		idxIdx[i] = t.Schema.IndexOf(c)
	}
	valIdx := make([]int, len(spec.ValueCols))
	for i, c := range spec.ValueCols {
		valIdx[i] = t.Schema.IndexOf(c)
	}

	outSchema := make(schema.Schema, 0, len(spec.IndexCols)+2)
	for _, c := range spec.IndexCols {
		outSchema = append(outSchema, t.Schema[t.Schema.IndexOf(c)])
	}
	outSchema = append(outSchema, schema.Column{Name: spec.VariableName, Type: schema.String})
	outSchema = append(outSchema, schema.Column{Name: spec.ValueName, Type: valueType})

	rows := make([]Row, 0, len(t.Rows)*len(spec.ValueCols))
	for _, r := range t.Rows {
		idxVals := make(Row, len(idxIdx))
		for i, ix := range idxIdx {
			idxVals[i] = r[ix]
		}
		for i, vc := range spec.ValueCols {
			out := make(Row, 0, len(idxVals)+2)
			out = append(out, idxVals...)
			out = append(out, vc)
			out = append(out, r[valIdx[i]])
			rows = append(rows, out)
		}
	}
	return Dataset{plan: &staticPlan{table: &Table{Schema: outSchema, Rows: rows}}}, nil
}
