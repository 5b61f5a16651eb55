// Package stats implements the Statistics Engine from spec §4.J:
// per-column describe, distribution fitting, outlier detection, and a
// Pearson correlation matrix, with deterministic sampling above a
// configurable row threshold and phased progress reporting.
//
// Hand-rolled on math (see DESIGN.md's standard-library-only section);
// the progress callback shape follows the teacher's
// interfaces.ProgressCallback (internal/interfaces/types.go):
// func(stage string, current, total int64, message string).
package stats

import (
	"context"
	"math"
	"math/rand"
	"sort"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// ProgressFunc reports phase progress; stage is one of "loading",
// "describing", "fitting", "correlating" (spec §4.J).
type ProgressFunc func(stage string, current, total int64, message string)

// Options configures a Run call.
type Options struct {
	SamplingThreshold int64 // 0 disables sampling
	Seed              int64
	Progress          ProgressFunc
}

// Describe is the five-number-plus-moments summary for one numeric
// column (spec §4.J).
type Describe struct {
	Column    string
	Count     int64
	NullCount int64
	Mean      float64
	Std       float64
	Min       float64
	P25       float64
	P50       float64
	P75       float64
	Max       float64
}

// DistributionFit is the best-fit candidate plus every candidate's
// p-value, and the outlier/shape diagnostics for one column.
type DistributionFit struct {
	Column        string
	Best          Distribution
	PValues       map[Distribution]float64
	Skewness      float64
	Kurtosis      float64
	OutlierIdx    []int
	OutlierPct    float64
}

// Correlation is the Pearson correlation matrix over numeric columns,
// symmetric with a unit diagonal.
type Correlation struct {
	Columns []string
	Matrix  [][]float64
}

// Results bundles everything Run produces.
type Results struct {
	Describes     []Describe
	Distributions []DistributionFit
	Correlation   *Correlation
	SampledRows   int64
	TotalRows     int64
	Seed          int64
}

// Run executes the staged pipeline: loading, describing, fitting,
// correlating. Cancellable between phases and, within fitting, between
// columns (spec §4.J, §5).
func Run(ctx context.Context, ds dataset.Dataset, opts Options) (*Results, error) {
	report := opts.Progress
	if report == nil {
		report = func(string, int64, int64, string) {}
	}

	report("loading", 0, 1, "collecting rows")
	table, err := ds.Collect(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	report("loading", 1, 1, "")

	seed := opts.Seed
	rows := table.Rows
	total := int64(len(rows))
	if opts.SamplingThreshold > 0 && total >= opts.SamplingThreshold {
		rows = sampleRows(rows, opts.SamplingThreshold, seed)
	}
	sampled := int64(len(rows))

	numericCols := numericColumns(table.Schema)

	describes := make([]Describe, 0, len(numericCols))
	report("describing", 0, int64(len(numericCols)), "")
	for i, col := range numericCols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, nulls := columnValues(rows, col.index)
		describes = append(describes, describeColumn(col.name, values, nulls))
		report("describing", int64(i+1), int64(len(numericCols)), col.name)
	}

	fits := make([]DistributionFit, 0, len(numericCols))
	report("fitting", 0, int64(len(numericCols)), "")
	for i, col := range numericCols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		values, _ := columnValues(rows, col.index)
		fits = append(fits, fitDistribution(col.name, values))
		report("fitting", int64(i+1), int64(len(numericCols)), col.name)
	}

	report("correlating", 0, 1, "")
	corr, err := correlate(numericCols, rows)
	if err != nil {
		return nil, err
	}
	report("correlating", 1, 1, "")

	return &Results{
		Describes:     describes,
		Distributions: fits,
		Correlation:   corr,
		SampledRows:   sampled,
		TotalRows:     total,
		Seed:          seed,
	}, nil
}

// sampleRows draws a deterministic sample of size n from rows, seeded
// so a caller can "roll" the seed to recalculate with a different draw
// (spec §4.J).
func sampleRows(rows []dataset.Row, n int64, seed int64) []dataset.Row {
	if n >= int64(len(rows)) {
		return rows
	}
	r := rand.New(rand.NewSource(seed))
	idx := r.Perm(len(rows))[:n]
	sort.Ints(idx)
	out := make([]dataset.Row, len(idx))
	for i, j := range idx {
		out[i] = rows[j]
	}
	return out
}

type numericColumn struct {
	name  string
	index int
}

func numericColumns(sch schema.Schema) []numericColumn {
	var out []numericColumn
	for i, c := range sch {
		if c.Type.IsNumeric() {
			out = append(out, numericColumn{name: c.Name, index: i})
		}
	}
	return out
}

func columnValues(rows []dataset.Row, idx int) (values []float64, nulls int64) {
	values = make([]float64, 0, len(rows))
	for _, row := range rows {
		v := row[idx]
		if v == nil {
			nulls++
			continue
		}
		f, ok := toFloat(v)
		if !ok {
			nulls++
			continue
		}
		values = append(values, f)
	}
	return values, nulls
}

func toFloat(v dataset.Value) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case float32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int:
		return float64(vv), true
	default:
		return 0, false
	}
}

func describeColumn(name string, values []float64, nulls int64) Describe {
	d := Describe{Column: name, Count: int64(len(values)), NullCount: nulls}
	if len(values) == 0 {
		return d
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	d.Min = sorted[0]
	d.Max = sorted[len(sorted)-1]
	d.P25 = quantile(sorted, 0.25)
	d.P50 = quantile(sorted, 0.5)
	d.P75 = quantile(sorted, 0.75)
	d.Mean, d.Std = meanStd(values)
	return d
}

func quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 1 {
		return sorted[0]
	}
	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

func meanStd(values []float64) (mean, std float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	for _, v := range values {
		mean += v
	}
	mean /= n
	if n < 2 {
		return mean, 0
	}
	var sumSq float64
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	std = math.Sqrt(sumSq / (n - 1))
	return mean, std
}

// correlate builds the symmetric Pearson matrix over numeric columns.
// Each pair is evaluated over its own row-aligned overlap: a row only
// contributes to the (i, j) cell if neither column's value is null at
// that row, so a pair with a sparser overlap than another pair in the
// same matrix is never silently padded or misaligned against it.
func correlate(cols []numericColumn, rows []dataset.Row) (*Correlation, error) {
	if len(rows) < 2 {
		return nil, errs.InsufficientData.New("correlation requires at least 2 rows")
	}
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}

	matrix := make([][]float64, len(cols))
	for i := range matrix {
		matrix[i] = make([]float64, len(cols))
		matrix[i][i] = 1
	}
	for i := range cols {
		for j := i + 1; j < len(cols); j++ {
			a, b, err := pairwiseValues(rows, cols[i].index, cols[j].index)
			if err != nil {
				return nil, errs.InsufficientData.New(cols[i].name + " vs " + cols[j].name)
			}
			c := pearson(a, b)
			matrix[i][j] = c
			matrix[j][i] = c
		}
	}
	return &Correlation{Columns: names, Matrix: matrix}, nil
}

// pairwiseValues drops a row unless both columns hold a parseable
// value in it, and requires at least 2 such rows — spec §4.J requires
// InsufficientData, checked per pair, rather than a silent 0
// indistinguishable from genuine zero correlation.
func pairwiseValues(rows []dataset.Row, ai, bi int) (a, b []float64, err error) {
	for _, row := range rows {
		fa, oka := toFloat(row[ai])
		fb, okb := toFloat(row[bi])
		if oka && okb {
			a = append(a, fa)
			b = append(b, fb)
		}
	}
	if len(a) < 2 {
		return nil, nil, errs.InsufficientData.New("pair")
	}
	return a, b, nil
}

func pearson(a, b []float64) float64 {
	n := len(a)
	ma, _ := meanStd(a)
	mb, _ := meanStd(b)
	var cov, varA, varB float64
	for i := 0; i < n; i++ {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		varA += da * da
		varB += db * db
	}
	denom := math.Sqrt(varA * varB)
	if denom == 0 {
		return 0
	}
	return cov / denom
}
