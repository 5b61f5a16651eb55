package stats

import (
	"context"
	"math"
	"testing"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

func sample(n int) dataset.Dataset {
	sch := schema.Schema{
		{Name: "a", Type: schema.Float64},
		{Name: "b", Type: schema.Float64},
		{Name: "label", Type: schema.String},
	}
	rows := make([]dataset.Row, n)
	for i := 0; i < n; i++ {
		x := float64(i)
		rows[i] = dataset.Row{x, x * 2, "row"}
	}
	return dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
}

func TestRunDescribeAndCorrelation(t *testing.T) {
	res, err := Run(context.Background(), sample(50), Options{})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if len(res.Describes) != 2 {
		t.Fatalf("expected 2 numeric columns described, got %d", len(res.Describes))
	}
	if res.Correlation == nil {
		t.Fatal("expected a correlation matrix")
	}
	for i, name := range res.Correlation.Columns {
		if res.Correlation.Matrix[i][i] != 1 {
			t.Fatalf("expected unit diagonal for %s", name)
		}
	}
	// b = 2*a, so correlation should be ~1
	var ab float64
	for i, n1 := range res.Correlation.Columns {
		for j, n2 := range res.Correlation.Columns {
			if n1 == "a" && n2 == "b" {
				ab = res.Correlation.Matrix[i][j]
			}
		}
	}
	if math.Abs(ab-1) > 1e-6 {
		t.Fatalf("expected near-perfect correlation, got %f", ab)
	}
}

func TestRunInsufficientDataForCorrelation(t *testing.T) {
	ds := dataset.FromTable(&dataset.Table{
		Schema: schema.Schema{{Name: "a", Type: schema.Float64}},
		Rows:   []dataset.Row{{1.0}},
	})
	if _, err := Run(context.Background(), ds, Options{}); err == nil {
		t.Fatal("expected InsufficientData error for a single row")
	}
}

func TestRunInsufficientDataForSparsePair(t *testing.T) {
	sch := schema.Schema{
		{Name: "a", Type: schema.Float64},
		{Name: "b", Type: schema.Float64},
	}
	rows := []dataset.Row{
		{1.0, nil},
		{2.0, nil},
		{3.0, 9.0},
		{4.0, nil},
	}
	ds := dataset.FromTable(&dataset.Table{Schema: sch, Rows: rows})
	_, err := Run(context.Background(), ds, Options{})
	if err == nil {
		t.Fatal("expected InsufficientData for a pair with only one overlapping row")
	}
	if !errs.InsufficientData.Is(err) {
		t.Fatalf("expected InsufficientData, got %v", err)
	}
}

func TestRunWithSampling(t *testing.T) {
	res, err := Run(context.Background(), sample(1000), Options{SamplingThreshold: 100, Seed: 42})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.SampledRows != 100 {
		t.Fatalf("expected sampled rows capped at 100, got %d", res.SampledRows)
	}
	if res.TotalRows != 1000 {
		t.Fatalf("expected total rows 1000, got %d", res.TotalRows)
	}
}

func TestRunReportsProgressPhases(t *testing.T) {
	var stages []string
	_, err := Run(context.Background(), sample(20), Options{
		Progress: func(stage string, current, total int64, message string) {
			if len(stages) == 0 || stages[len(stages)-1] != stage {
				stages = append(stages, stage)
			}
		},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	want := []string{"loading", "describing", "fitting", "correlating"}
	if len(stages) != len(want) {
		t.Fatalf("expected phases %v, got %v", want, stages)
	}
	for i, s := range want {
		if stages[i] != s {
			t.Fatalf("expected phase %d to be %s, got %s", i, s, stages[i])
		}
	}
}

func TestFitDistributionNormal(t *testing.T) {
	values := make([]float64, 200)
	for i := range values {
		// deterministic pseudo-normal-ish spread via a fixed pattern
		values[i] = math.Sin(float64(i)) * 10
	}
	fit := fitDistribution("v", values)
	if len(fit.PValues) == 0 {
		t.Fatal("expected at least one candidate distribution to be scored")
	}
}

func TestOutliers1_5IQR(t *testing.T) {
	sorted := []float64{1, 2, 3, 4, 5, 6, 7, 100}
	idx, pct := outliers(sorted)
	if len(idx) == 0 {
		t.Fatal("expected the value 100 to be flagged as an outlier")
	}
	if pct <= 0 {
		t.Fatal("expected a positive outlier percentage")
	}
}
