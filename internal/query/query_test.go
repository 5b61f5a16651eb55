package query

import (
	"context"
	"strings"
	"testing"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

func openS1() dataset.Dataset {
	sch := schema.Schema{
		{Name: "a", Type: schema.Int64},
		{Name: "b", Type: schema.Int64},
		{Name: "c", Type: schema.Int64},
	}
	rows := []dataset.Row{
		{int64(1), int64(2), int64(3)},
		{int64(4), int64(5), int64(6)},
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func TestS1LocalCSVOpenAndQuery(t *testing.T) {
	q, err := Parse("select a, c+b as d where a > 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	compiled := Compile(q)
	out, err := compiled(openS1())
	if err != nil {
		t.Fatalf("compile/apply failed: %v", err)
	}
	tbl, err := out.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(tbl.Schema) != 2 || tbl.Schema[0].Name != "a" || tbl.Schema[1].Name != "d" {
		t.Fatalf("unexpected schema: %+v", tbl.Schema)
	}
	if len(tbl.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][0] != int64(4) || tbl.Rows[0][1] != int64(11) {
		t.Errorf("unexpected row: %+v", tbl.Rows[0])
	}
}

func TestS8TemplateQuery(t *testing.T) {
	sch := schema.Schema{
		{Name: "region", Type: schema.String},
		{Name: "amount", Type: schema.Float64},
	}
	rows := []dataset.Row{
		{"east", 10.0},
		{"east", 20.0},
		{"west", 5.0},
	}
	d := dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})

	q, err := Parse("select region, sum(amount) as total by region")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out, err := Compile(q)(d)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	tbl, err := out.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(tbl.Rows))
	}
}

func TestAggregationRequiredWithoutAggFunc(t *testing.T) {
	q, err := Parse("select region by region")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	sch := schema.Schema{{Name: "region", Type: schema.String}}
	d := dataset.FromTable(&dataset.Table{Schema: sch, Rows: []dataset.Row{{"east"}}})
	if _, err := Compile(q)(d); err == nil {
		t.Fatalf("expected AggregationRequired error")
	}
}

func TestQueryIdempotence(t *testing.T) {
	// A query whose output schema is a subset of its input schema is
	// idempotent under reapplication (spec §8 invariant 2); "select a"
	// is the simplest such case against openS1's {a,b,c} schema.
	q, err := Parse("select a where a > 1")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	compiled := Compile(q)
	once, err := compiled(openS1())
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	twice, err := compiled(once)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}
	t1, _ := once.Collect(context.Background())
	t2, _ := twice.Collect(context.Background())
	if len(t1.Schema) != len(t2.Schema) || len(t1.Rows) != len(t2.Rows) {
		t.Fatalf("query not idempotent: %+v vs %+v", t1, t2)
	}
}

func TestParseErrorReportsPosition(t *testing.T) {
	_, err := Parse("select where")
	if err == nil {
		t.Fatalf("expected parse error")
	}
	if !strings.Contains(err.Error(), "line 1 col 8") {
		t.Fatalf("expected error to name line 1 col 8, got %v", err)
	}
}
