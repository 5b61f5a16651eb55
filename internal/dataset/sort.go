package dataset

import (
	"context"
	"sort"
	"time"

	"github.com/derekwisong/datui/internal/schema"
)

// SortKey names a column, its ascending/descending direction, and its
// position for tie-breaking (ties on an earlier key are broken by the
// next key, per spec §4.D).
type SortKey struct {
	Column string
	Asc    bool
}

type sortPlan struct {
	input Plan
	keys  []SortKey
}

// Sort performs a stable sort; nulls sort last regardless of direction.
func (d Dataset) Sort(keys []SortKey) Dataset {
	return Dataset{plan: &sortPlan{input: d.plan, keys: keys}}
}

func (p *sortPlan) isPlan() {}

func (p *sortPlan) Schema() schema.Schema { return p.input.Schema() }

func (p *sortPlan) Materialize(ctx context.Context) (*Table, error) {
	in, err := p.input.Materialize(ctx)
	if err != nil {
		return nil, err
	}
	idxs := make([]int, len(in.Schema))
	for i, k := range p.keys {
		idxs[i] = in.Schema.IndexOf(k.Column)
	}
	rows := make([]Row, len(in.Rows))
	copy(rows, in.Rows)

	sort.SliceStable(rows, func(i, j int) bool {
		for ki, key := range p.keys {
			col := idxs[ki]
			if col < 0 {
				continue
			}
			a, b := rows[i][col], rows[j][col]
			if a == nil || b == nil {
				// nulls sort last regardless of direction
				c := compareValues(a, b)
				if c == 0 {
					continue
				}
				return c < 0
			}
			c := compareValues(a, b)
			if c == 0 {
				continue
			}
			if !key.Asc {
				c = -c
			}
			return c < 0
		}
		return false
	})

	return &Table{Schema: in.Schema, Rows: rows}, nil
}

// compareValues orders nulls last regardless of caller-requested
// direction (the sortPlan negates non-null comparisons for descending
// keys, but null-last is an absolute rule, so it's handled before that
// negation by returning a magnitude-preserving sentinel).
func compareValues(a, b Value) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return 1
	}
	if b == nil {
		return -1
	}
	switch av := a.(type) {
	case int64:
		bv, ok := toFloat(b)
		if ok {
			return compareFloat(float64(av), bv)
		}
	case float64:
		bv, ok := toFloat(b)
		if ok {
			return compareFloat(av, bv)
		}
	case bool:
		bv, ok := b.(bool)
		if ok {
			if av == bv {
				return 0
			}
			if !av {
				return -1
			}
			return 1
		}
	case string:
		bv, ok := b.(string)
		if ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			default:
				return 0
			}
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if ok {
			switch {
			case av.Before(bv):
				return -1
			case av.After(bv):
				return 1
			default:
				return 0
			}
		}
	case time.Duration:
		bv, ok := b.(time.Duration)
		if ok {
			return compareFloat(float64(av), float64(bv))
		}
	}
	return 0
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	}
	return 0, false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
