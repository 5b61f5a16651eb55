package transform

import (
	"context"
	"testing"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/query"
	"github.com/derekwisong/datui/internal/schema"
)

func sample() dataset.Dataset {
	sch := schema.Schema{
		{Name: "region", Type: schema.String},
		{Name: "amount", Type: schema.Int64},
	}
	rows := []dataset.Row{
		{"east", int64(10)},
		{"east", int64(20)},
		{"west", int64(5)},
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func TestComposeQueryThenSort(t *testing.T) {
	q, err := query.Parse("select region, amount")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out, err := Compose(sample(), Spec{
		Query: q,
		Sort:  []dataset.SortKey{{Column: "amount", Asc: false}},
	})
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	tbl, err := out.Collect(context.Background())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(tbl.Rows) != 3 || tbl.Rows[0][1] != int64(20) {
		t.Fatalf("unexpected rows: %+v", tbl.Rows)
	}
}

func TestComposeConflictingTransforms(t *testing.T) {
	_, err := Compose(sample(), Spec{
		Pivot: &dataset.PivotSpec{},
		Melt:  &dataset.MeltSpec{},
	})
	if err == nil {
		t.Fatal("expected ConflictingTransforms error")
	}
}
