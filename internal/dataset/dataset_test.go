package dataset

import (
	"context"
	"testing"

	"github.com/derekwisong/datui/internal/schema"
)

func sampleTable() *Table {
	sch := schema.Schema{
		{Name: "id", Type: schema.Int64},
		{Name: "key", Type: schema.String},
		{Name: "value", Type: schema.Float64},
	}
	rows := []Row{
		{int64(1), "A", 10.0},
		{int64(1), "B", 20.0},
		{int64(2), "A", 30.0},
	}
	return &Table{Schema: sch, Rows: rows}
}

func TestPivotS4(t *testing.T) {
	d := FromTable(sampleTable())
	out, err := d.Pivot(PivotSpec{
		IndexCols:   []string{"id"},
		PivotCol:    "key",
		ValueCol:    "value",
		Agg:         AggLast,
		SortColumns: true,
	})
	if err != nil {
		t.Fatalf("pivot failed: %v", err)
	}
	tbl, err := out.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(tbl.Schema) != 3 || tbl.Schema[0].Name != "id" || tbl.Schema[1].Name != "A" || tbl.Schema[2].Name != "B" {
		t.Fatalf("unexpected schema: %+v", tbl.Schema)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][1] != 10.0 || tbl.Rows[0][2] != 20.0 {
		t.Errorf("row 0 mismatch: %+v", tbl.Rows[0])
	}
	if tbl.Rows[1][1] != 30.0 || tbl.Rows[1][2] != nil {
		t.Errorf("row 1 mismatch: %+v", tbl.Rows[1])
	}
}

func TestMeltS5(t *testing.T) {
	sch := schema.Schema{
		{Name: "id", Type: schema.Int64},
		{Name: "a", Type: schema.Float64},
		{Name: "b", Type: schema.Float64},
	}
	rows := []Row{{int64(1), 10.0, 20.0}}
	d := FromTable(&Table{Schema: sch, Rows: rows})
	out, err := d.Melt(MeltSpec{
		IndexCols:    []string{"id"},
		ValueCols:    []string{"a", "b"},
		VariableName: "variable",
		ValueName:    "value",
	})
	if err != nil {
		t.Fatalf("melt failed: %v", err)
	}
	tbl, err := out.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(tbl.Rows))
	}
	if tbl.Rows[0][1] != "a" || tbl.Rows[0][2] != 10.0 {
		t.Errorf("row 0 mismatch: %+v", tbl.Rows[0])
	}
	if tbl.Rows[1][1] != "b" || tbl.Rows[1][2] != 20.0 {
		t.Errorf("row 1 mismatch: %+v", tbl.Rows[1])
	}
}

func TestFilterCompositionality(t *testing.T) {
	d := FromTable(sampleTable())
	predA := func(r Row) (bool, error) { return r[0] == int64(1), nil }
	predB := func(r Row) (bool, error) { return r[1] == "A", nil }

	ab, _ := d.Filter(And(predA, predB)).Collect(context.Background())
	ba, _ := d.Filter(And(predB, predA)).Collect(context.Background())

	if len(ab.Rows) != len(ba.Rows) {
		t.Fatalf("expected equal row counts, got %d vs %d", len(ab.Rows), len(ba.Rows))
	}
}

func TestSortStability(t *testing.T) {
	sch := schema.Schema{{Name: "k", Type: schema.Int64}, {Name: "orig", Type: schema.Int64}}
	rows := []Row{
		{int64(1), int64(0)},
		{int64(1), int64(1)},
		{int64(0), int64(2)},
	}
	d := FromTable(&Table{Schema: sch, Rows: rows})
	out, err := d.Sort([]SortKey{{Column: "k", Asc: true}}).Collect(context.Background())
	if err != nil {
		t.Fatalf("sort failed: %v", err)
	}
	if out.Rows[0][1] != int64(2) {
		t.Fatalf("expected row with orig=2 first, got %+v", out.Rows[0])
	}
	if out.Rows[1][1] != int64(0) || out.Rows[2][1] != int64(1) {
		t.Errorf("expected ties to preserve input order, got %+v then %+v", out.Rows[1], out.Rows[2])
	}
}

func TestConcatSchemaMismatch(t *testing.T) {
	a := FromTable(&Table{
		Schema: schema.Schema{{Name: "x", Type: schema.Int64}},
		Rows:   []Row{{int64(1)}},
	})
	b := FromTable(&Table{
		Schema: schema.Schema{{Name: "x", Type: schema.String}},
		Rows:   []Row{{"nope"}},
	})
	if _, err := a.Concat([]Dataset{b}); err == nil {
		t.Fatalf("expected SchemaMismatch for incompatible concat")
	}
}
