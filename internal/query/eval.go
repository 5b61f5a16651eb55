package query

import (
	"fmt"
	"strings"
	"time"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

var aggregateFuncNames = map[string]dataset.AggFunc{
	"sum":      dataset.AggSum,
	"mean":     dataset.AggMean,
	"min":      dataset.AggMin,
	"max":      dataset.AggMax,
	"count":    dataset.AggCount,
	"first":    dataset.AggFirst,
	"last":     dataset.AggLast,
	"std":      dataset.AggStd,
	"var":      dataset.AggVar,
	"median":   dataset.AggMedian,
	"quantile": dataset.AggQuantile,
}

var temporalMembers = map[string]bool{
	"year": true, "month": true, "day": true,
	"hour": true, "minute": true, "second": true,
	"date": true, "time": true,
}

// scalarEvaluator compiles an Expr into a per-row closure plus the
// resulting dtype, against the given input schema. Used both for
// non-aggregate projections and for where-clause predicates/arithmetic.
func scalarEvaluator(e Expr, sch schema.Schema) (func(row dataset.Row) (dataset.Value, error), schema.DType, error) {
	switch n := e.(type) {
	case Literal:
		v := n.Value
		dt := literalType(v)
		return func(dataset.Row) (dataset.Value, error) { return v, nil }, dt, nil

	case Column:
		idx := sch.IndexOf(n.Name)
		if idx < 0 {
			return nil, 0, errs.UnknownColumn.New(n.Name)
		}
		dt := sch[idx].Type
		return func(row dataset.Row) (dataset.Value, error) { return row[idx], nil }, dt, nil

	case MemberAccess:
		targetFn, targetType, err := scalarEvaluator(n.Target, sch)
		if err != nil {
			return nil, 0, err
		}
		if !targetType.IsTemporal() {
			return nil, 0, errs.TypeMismatch.New(fmt.Sprintf("member access .%s on non-temporal column", n.Member))
		}
		if !temporalMembers[n.Member] {
			return nil, 0, errs.UnknownFunction.New("." + n.Member)
		}
		outType := memberOutputType(n.Member)
		fn := func(row dataset.Row) (dataset.Value, error) {
			v, err := targetFn(row)
			if err != nil || v == nil {
				return nil, err
			}
			t, ok := v.(time.Time)
			if !ok {
				return nil, nil
			}
			return evalMember(t, n.Member), nil
		}
		return fn, outType, nil

	case UnaryOp:
		if n.Op != "not" {
			return nil, 0, errs.UnknownFunction.New(n.Op)
		}
		inner, _, err := scalarEvaluator(n.Expr, sch)
		if err != nil {
			return nil, 0, err
		}
		return func(row dataset.Row) (dataset.Value, error) {
			v, err := inner(row)
			if err != nil {
				return nil, err
			}
			b, _ := v.(bool)
			return !b, nil
		}, schema.Bool, nil

	case BinaryOp:
		return compileBinary(n, sch)

	case FunctionCall:
		return nil, 0, errs.UnknownFunction.New(n.Name + " (aggregation functions require a 'by' clause)")

	default:
		return nil, 0, errs.InternalInvariant.New(fmt.Sprintf("unhandled expr node %T", e))
	}
}

func literalType(v any) schema.DType {
	switch v.(type) {
	case int64:
		return schema.Int64
	case float64:
		return schema.Float64
	case string:
		return schema.String
	case bool:
		return schema.Bool
	default:
		return schema.Null
	}
}

func memberOutputType(member string) schema.DType {
	switch member {
	case "date":
		return schema.Date
	case "time":
		return schema.Time
	default:
		return schema.Int64
	}
}

func evalMember(t time.Time, member string) dataset.Value {
	switch member {
	case "year":
		return int64(t.Year())
	case "month":
		return int64(t.Month())
	case "day":
		return int64(t.Day())
	case "hour":
		return int64(t.Hour())
	case "minute":
		return int64(t.Minute())
	case "second":
		return int64(t.Second())
	case "date":
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
	case "time":
		return t.Sub(time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()))
	default:
		return nil
	}
}

func compileBinary(n BinaryOp, sch schema.Schema) (func(row dataset.Row) (dataset.Value, error), schema.DType, error) {
	left, leftType, err := scalarEvaluator(n.Left, sch)
	if err != nil {
		return nil, 0, err
	}
	right, rightType, err := scalarEvaluator(n.Right, sch)
	if err != nil {
		return nil, 0, err
	}

	switch n.Op {
	case "and", "or":
		op := n.Op
		return func(row dataset.Row) (dataset.Value, error) {
			lv, err := left(row)
			if err != nil {
				return nil, err
			}
			lb, _ := lv.(bool)
			if op == "and" && !lb {
				return false, nil
			}
			if op == "or" && lb {
				return true, nil
			}
			rv, err := right(row)
			if err != nil {
				return nil, err
			}
			rb, _ := rv.(bool)
			return rb, nil
		}, schema.Bool, nil

	case "=", "!=", ">", "<", ">=", "<=":
		if leftType.IsNumeric() && !rightType.IsNumeric() && rightType != schema.Null {
			return nil, 0, errs.TypeMismatch.New(fmt.Sprintf("cannot compare %s with %s", leftType, rightType))
		}
		return func(row dataset.Row) (dataset.Value, error) {
			lv, err := left(row)
			if err != nil {
				return nil, err
			}
			rv, err := right(row)
			if err != nil {
				return nil, err
			}
			return compareOp(n.Op, lv, rv), nil
		}, schema.Bool, nil

	case "~", "!~":
		return func(row dataset.Row) (dataset.Value, error) {
			lv, err := left(row)
			if err != nil {
				return nil, err
			}
			rv, err := right(row)
			if err != nil {
				return nil, err
			}
			ls, _ := lv.(string)
			rs, _ := rv.(string)
			contains := strings.Contains(strings.ToLower(ls), strings.ToLower(rs))
			if n.Op == "!~" {
				return !contains, nil
			}
			return contains, nil
		}, schema.Bool, nil

	case "+", "-", "*", "/", "%":
		if !leftType.IsNumeric() || !rightType.IsNumeric() {
			return nil, 0, errs.TypeMismatch.New(fmt.Sprintf("arithmetic on non-numeric types %s, %s", leftType, rightType))
		}
		outType := schema.Int64
		if leftType == schema.Float64 || rightType == schema.Float64 || leftType == schema.Float32 || rightType == schema.Float32 {
			outType = schema.Float64
		}
		op := n.Op
		return func(row dataset.Row) (dataset.Value, error) {
			lv, err := left(row)
			if err != nil {
				return nil, err
			}
			rv, err := right(row)
			if err != nil {
				return nil, err
			}
			lf, lok := toFloatVal(lv)
			rf, rok := toFloatVal(rv)
			if !lok || !rok {
				return nil, nil
			}
			var result float64
			switch op {
			case "+":
				result = lf + rf
			case "-":
				result = lf - rf
			case "*":
				result = lf * rf
			case "/":
				if rf == 0 {
					return nil, nil
				}
				result = lf / rf
			case "%":
				if rf == 0 {
					return nil, nil
				}
				result = float64(int64(lf) % int64(rf))
			}
			if outType == schema.Int64 {
				return int64(result), nil
			}
			return result, nil
		}, outType, nil

	default:
		return nil, 0, errs.UnknownFunction.New(n.Op)
	}
}

func toFloatVal(v dataset.Value) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

func compareOp(op string, a, b dataset.Value) bool {
	if a == nil || b == nil {
		switch op {
		case "=":
			return a == nil && b == nil
		case "!=":
			return !(a == nil && b == nil)
		default:
			return false
		}
	}
	af, aok := toFloatVal(a)
	bf, bok := toFloatVal(b)
	if aok && bok {
		switch op {
		case "=":
			return af == bf
		case "!=":
			return af != bf
		case ">":
			return af > bf
		case "<":
			return af < bf
		case ">=":
			return af >= bf
		case "<=":
			return af <= bf
		}
	}
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		switch op {
		case "=":
			return as == bs
		case "!=":
			return as != bs
		case ">":
			return as > bs
		case "<":
			return as < bs
		case ">=":
			return as >= bs
		case "<=":
			return as <= bs
		}
	}
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		switch op {
		case "=":
			return at.Equal(bt)
		case "!=":
			return !at.Equal(bt)
		case ">":
			return at.After(bt)
		case "<":
			return at.Before(bt)
		case ">=":
			return at.After(bt) || at.Equal(bt)
		case "<=":
			return at.Before(bt) || at.Equal(bt)
		}
	}
	return false
}

// exprName derives a default output column name for an unaliased
// projection, e.g. "c+b" for Column{c} + Column{b}.
func exprName(e Expr) string {
	switch n := e.(type) {
	case Column:
		return n.Name
	case Literal:
		return fmt.Sprint(n.Value)
	case BinaryOp:
		return exprName(n.Left) + n.Op + exprName(n.Right)
	case UnaryOp:
		return n.Op + exprName(n.Expr)
	case MemberAccess:
		return exprName(n.Target) + "." + n.Member
	case FunctionCall:
		parts := make([]string, len(n.Args))
		for i, a := range n.Args {
			parts[i] = exprName(a)
		}
		return n.Name + "(" + strings.Join(parts, ",") + ")"
	default:
		return "expr"
	}
}
