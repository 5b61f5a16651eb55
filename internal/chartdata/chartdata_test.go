package chartdata

import (
	"context"
	"testing"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/schema"
)

func sample() dataset.Dataset {
	sch := schema.Schema{
		{Name: "x", Type: schema.Float64},
		{Name: "y", Type: schema.Float64},
	}
	rows := []dataset.Row{
		{1.0, 10.0},
		{2.0, nil},
		{3.0, 30.0},
		{4.0, 40.0},
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func TestPrepareXYDropsNulls(t *testing.T) {
	res, err := PrepareXY(context.Background(), sample(), "x", []string{"y"}, false)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(res.Series) != 1 {
		t.Fatalf("expected 1 series, got %d", len(res.Series))
	}
	if len(res.Series[0].X) != 3 {
		t.Fatalf("expected 3 points after dropping null, got %d", len(res.Series[0].X))
	}
}

func TestPrepareXYUnknownColumn(t *testing.T) {
	if _, err := PrepareXY(context.Background(), sample(), "missing", []string{"y"}, false); err == nil {
		t.Fatal("expected error for unknown column")
	}
}

func TestPrepareHistogramEdgeBinCatchesMax(t *testing.T) {
	sch := schema.Schema{{Name: "v", Type: schema.Float64}}
	rows := []dataset.Row{{0.0}, {5.0}, {10.0}}
	ds := dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})

	res, err := PrepareHistogram(context.Background(), ds, "v", 5)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	var total int64
	for _, c := range res.Counts {
		total += c
	}
	if total != 3 {
		t.Fatalf("expected all 3 rows counted, got %d", total)
	}
	if res.Counts[len(res.Counts)-1] == 0 {
		t.Fatal("expected the max value to land in the edge bin")
	}
}

func TestPrepareBoxPlot(t *testing.T) {
	sch := schema.Schema{{Name: "v", Type: schema.Float64}}
	rows := []dataset.Row{{1.0}, {2.0}, {3.0}, {4.0}}
	ds := dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})

	bp, err := PrepareBoxPlot(context.Background(), ds, "v")
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if bp.Min != 1.0 || bp.Max != 4.0 {
		t.Fatalf("unexpected bounds: %+v", bp)
	}
	if bp.Median <= bp.Q1 || bp.Q3 <= bp.Median {
		t.Fatalf("expected Q1 < median < Q3, got %+v", bp)
	}
}

func TestPrepareKDEInsufficientData(t *testing.T) {
	sch := schema.Schema{{Name: "v", Type: schema.Float64}}
	ds := dataset.FromTable(&dataset.Table{Schema: sch, Rows: []dataset.Row{{1.0}}})
	if _, err := PrepareKDE(context.Background(), ds, "v", 1); err == nil {
		t.Fatal("expected insufficient data error for a single point")
	}
}

func TestPrepareHeatmapShape(t *testing.T) {
	res, err := PrepareHeatmap(context.Background(), sample(), "x", "y", 4)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if len(res.Counts) != 4 || len(res.Counts[0]) != 4 {
		t.Fatalf("expected 4x4 grid, got %dx%d", len(res.Counts), len(res.Counts[0]))
	}
	if len(res.XEdges) != 5 || len(res.YEdges) != 5 {
		t.Fatalf("expected bins+1 edges, got %d/%d", len(res.XEdges), len(res.YEdges))
	}
}
