// Package chartdata implements the Chart-data Preparer from spec §4.I:
// XY, histogram, box-plot, KDE, and 2-D heatmap preparation over a
// dataset.Dataset, each with an exact-input cache.
//
// The binning style (map of bucket-start -> count, single pass over
// rows) is grounded on the teacher's histogram.BuildFromStageResult
// (internal/histogram/histogram.go), generalized from its
// timestamp-bucket-only logic to arbitrary numeric columns and the
// full set of chart kinds spec §4.I names. The exact-input cache
// itself is grounded on the teacher's app/cache.Cache and
// app/query.BuildCacheKeyFull: a mutex-guarded map keyed by a string
// built from every input that would change the result, so a repeated
// call with identical inputs is a map lookup instead of a recompute.
package chartdata

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/derekwisong/datui/internal/dataset"
	"github.com/derekwisong/datui/internal/errs"
	"github.com/derekwisong/datui/internal/schema"
)

// maxChartRows caps every preparer's input to the first 10,000 rows
// (spec §4.I).
const maxChartRows = 10000

// preparerCache is the exact-input cache one of each exists for every
// chart kind. A cache hit is keyed on the full set of inputs that can
// change the result; any input change is a different key, so there is
// nothing to explicitly invalidate.
type preparerCache struct {
	mu      sync.RWMutex
	entries map[string]any
}

func newPreparerCache() *preparerCache {
	return &preparerCache{entries: make(map[string]any)}
}

func (c *preparerCache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *preparerCache) put(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

var (
	xyCache        = newPreparerCache()
	histogramCache = newPreparerCache()
	boxPlotCache   = newPreparerCache()
	kdeCache       = newPreparerCache()
	heatmapCache   = newPreparerCache()
)

// datasetKey is a stable identity for a dataset.Dataset's underlying
// plan across repeated calls within a process (every concrete Plan in
// internal/dataset is built behind a pointer, so its default %p/%v
// formatting is pointer-stable and collision-free in practice).
func datasetKey(ds dataset.Dataset) string {
	return fmt.Sprintf("%v", ds)
}

// XKind is the temporal interpretation carried alongside numeric X data
// for label formatting (spec §4.I).
type XKind int

const (
	Numeric XKind = iota
	DateDays
	DatetimeMs
	DatetimeUs
	DatetimeNs
	TimeNs
)

func xKindFor(col schema.Column) XKind {
	switch col.Type {
	case schema.Date:
		return DateDays
	case schema.Time:
		return TimeNs
	case schema.Datetime:
		switch col.Unit {
		case schema.Microseconds:
			return DatetimeUs
		case schema.Nanoseconds:
			return DatetimeNs
		default:
			return DatetimeMs
		}
	default:
		return Numeric
	}
}

// toEpoch casts a temporal value through its integer epoch, per spec
// §4.I ("temporal types cast through the integer epoch first").
func toEpoch(v dataset.Value, kind XKind) (float64, bool) {
	t, ok := v.(time.Time)
	if !ok {
		if f, ok := toFloatMaybe(v); ok {
			return f, true
		}
		return 0, false
	}
	switch kind {
	case DateDays:
		return float64(t.Unix() / 86400), true
	case DatetimeUs:
		return float64(t.UnixMicro()), true
	case DatetimeNs:
		return float64(t.UnixNano()), true
	case TimeNs:
		return float64(t.Hour())*3.6e12 + float64(t.Minute())*6e10 + float64(t.Second())*1e9 + float64(t.Nanosecond()), true
	default:
		return float64(t.UnixMilli()), true
	}
}

func toFloatMaybe(v dataset.Value) (float64, bool) {
	switch vv := v.(type) {
	case float64:
		return vv, true
	case int64:
		return float64(vv), true
	case int:
		return float64(vv), true
	case bool:
		if vv {
			return 1, true
		}
		return 0, true
	default:
		return 0, false
	}
}

// selectColumn materializes ds, casts column name to f64 (through the
// epoch for temporal columns), drops nulls, and caps to maxChartRows.
func selectColumn(ctx context.Context, ds dataset.Dataset, name string) ([]float64, XKind, error) {
	sch := ds.Schema()
	idx := sch.IndexOf(name)
	if idx < 0 {
		return nil, Numeric, errs.UnknownColumn.New(name)
	}
	kind := xKindFor(sch[idx])

	table, err := ds.Collect(ctx)
	if err != nil {
		return nil, kind, err
	}
	out := make([]float64, 0, len(table.Rows))
	for _, row := range table.Rows {
		if len(out) >= maxChartRows {
			break
		}
		if row[idx] == nil {
			continue
		}
		f, ok := toEpoch(row[idx], kind)
		if !ok {
			continue
		}
		out = append(out, f)
	}
	return out, kind, nil
}

func selectColumnPair(ctx context.Context, ds dataset.Dataset, xcol, ycol string) (xs, ys []float64, xk XKind, err error) {
	sch := ds.Schema()
	xi, yi := sch.IndexOf(xcol), sch.IndexOf(ycol)
	if xi < 0 {
		return nil, nil, Numeric, errs.UnknownColumn.New(xcol)
	}
	if yi < 0 {
		return nil, nil, Numeric, errs.UnknownColumn.New(ycol)
	}
	xk = xKindFor(sch[xi])

	table, err := ds.Collect(ctx)
	if err != nil {
		return nil, nil, xk, err
	}
	for _, row := range table.Rows {
		if len(xs) >= maxChartRows {
			break
		}
		if row[xi] == nil || row[yi] == nil {
			continue
		}
		xv, ok1 := toEpoch(row[xi], xk)
		yv, ok2 := toFloatMaybe(row[yi])
		if !ok1 || !ok2 {
			continue
		}
		xs = append(xs, xv)
		ys = append(ys, yv)
	}
	return xs, ys, xk, nil
}

// XYSeries is one (f64, f64) sequence sharing the request's X column.
type XYSeries struct {
	Name string
	X    []float64
	Y    []float64
}

// XYResult is the prepared output for an XY chart.
type XYResult struct {
	XKind  XKind
	Series []XYSeries
}

// PrepareXY builds one XYSeries per yCol, all sharing xCol. If logY is
// true, y is replaced by ln(1+max(0,y)) (spec §4.I).
func PrepareXY(ctx context.Context, ds dataset.Dataset, xCol string, yCols []string, logY bool) (*XYResult, error) {
	key := fmt.Sprintf("%s|x:%s|y:%s|logy:%t", datasetKey(ds), xCol, strings.Join(yCols, ","), logY)
	if cached, ok := xyCache.get(key); ok {
		return cached.(*XYResult), nil
	}

	result := &XYResult{}
	for _, yCol := range yCols {
		xs, ys, xk, err := selectColumnPair(ctx, ds, xCol, yCol)
		if err != nil {
			return nil, err
		}
		result.XKind = xk
		if logY {
			for i, y := range ys {
				ys[i] = math.Log1p(math.Max(0, y))
			}
		}
		result.Series = append(result.Series, XYSeries{Name: yCol, X: xs, Y: ys})
	}
	xyCache.put(key, result)
	return result, nil
}

// HistogramResult is N bins over [min, max]; the edge bin catches max
// (spec §4.I).
type HistogramResult struct {
	BinCenters []float64
	Counts     []int64
}

func PrepareHistogram(ctx context.Context, ds dataset.Dataset, col string, bins int) (*HistogramResult, error) {
	if bins <= 0 {
		bins = 20
	}
	key := fmt.Sprintf("%s|col:%s|bins:%d", datasetKey(ds), col, bins)
	if cached, ok := histogramCache.get(key); ok {
		return cached.(*HistogramResult), nil
	}

	values, _, err := selectColumn(ctx, ds, col)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		res := &HistogramResult{}
		histogramCache.put(key, res)
		return res, nil
	}
	lo, hi := minMax(values)
	width := (hi - lo) / float64(bins)
	if width == 0 {
		width = 1
	}
	counts := make([]int64, bins)
	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1 // edge bin catches the max
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}
	centers := make([]float64, bins)
	for i := range centers {
		centers[i] = lo + width*(float64(i)+0.5)
	}
	res := &HistogramResult{BinCenters: centers, Counts: counts}
	histogramCache.put(key, res)
	return res, nil
}

// BoxPlotResult holds the five-number summary computed by linear
// interpolation of position q*(n-1) (spec §4.I, matching the box-plot
// quantile rule used in dataset.quantile).
type BoxPlotResult struct {
	Min, Q1, Median, Q3, Max float64
}

func PrepareBoxPlot(ctx context.Context, ds dataset.Dataset, col string) (*BoxPlotResult, error) {
	key := fmt.Sprintf("%s|col:%s", datasetKey(ds), col)
	if cached, ok := boxPlotCache.get(key); ok {
		return cached.(*BoxPlotResult), nil
	}

	values, _, err := selectColumn(ctx, ds, col)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, errs.InsufficientData.New(col)
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	res := &BoxPlotResult{
		Min:    sorted[0],
		Q1:     quantile(sorted, 0.25),
		Median: quantile(sorted, 0.5),
		Q3:     quantile(sorted, 0.75),
		Max:    sorted[len(sorted)-1],
	}
	boxPlotCache.put(key, res)
	return res, nil
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

func minMax(values []float64) (lo, hi float64) {
	lo, hi = values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return
}

// KDEResult is 200 sample points across [min-3h, max+3h] under a
// Gaussian kernel with bandwidth 1.06*sigma*n^(-1/5) * factor (spec
// §4.I).
type KDEResult struct {
	X []float64
	Y []float64
}

const kdeSamplePoints = 200

func PrepareKDE(ctx context.Context, ds dataset.Dataset, col string, bandwidthFactor float64) (*KDEResult, error) {
	if bandwidthFactor <= 0 {
		bandwidthFactor = 1
	}
	key := fmt.Sprintf("%s|col:%s|bw:%g", datasetKey(ds), col, bandwidthFactor)
	if cached, ok := kdeCache.get(key); ok {
		return cached.(*KDEResult), nil
	}

	values, _, err := selectColumn(ctx, ds, col)
	if err != nil {
		return nil, err
	}
	n := len(values)
	if n < 2 {
		return nil, errs.InsufficientData.New(col)
	}

	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(n)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	variance /= float64(n - 1)
	sigma := math.Sqrt(variance)
	h := 1.06 * sigma * math.Pow(float64(n), -0.2) * bandwidthFactor
	if h <= 0 {
		h = 1
	}

	lo, hi := minMax(values)
	lo -= 3 * h
	hi += 3 * h

	xs := make([]float64, kdeSamplePoints)
	ys := make([]float64, kdeSamplePoints)
	step := (hi - lo) / float64(kdeSamplePoints-1)
	norm := 1.0 / (float64(n) * h * math.Sqrt(2*math.Pi))
	for i := 0; i < kdeSamplePoints; i++ {
		x := lo + step*float64(i)
		density := 0.0
		for _, v := range values {
			u := (x - v) / h
			density += math.Exp(-0.5 * u * u)
		}
		xs[i] = x
		ys[i] = density * norm
	}
	res := &KDEResult{X: xs, Y: ys}
	kdeCache.put(key, res)
	return res, nil
}

// HeatmapResult is bins x bins counts over [xmin,xmax] x [ymin,ymax]
// (spec §4.I).
type HeatmapResult struct {
	Counts [][]int64
	XEdges []float64
	YEdges []float64
}

func PrepareHeatmap(ctx context.Context, ds dataset.Dataset, xCol, yCol string, bins int) (*HeatmapResult, error) {
	if bins <= 0 {
		bins = 20
	}
	key := fmt.Sprintf("%s|x:%s|y:%s|bins:%d", datasetKey(ds), xCol, yCol, bins)
	if cached, ok := heatmapCache.get(key); ok {
		return cached.(*HeatmapResult), nil
	}

	xs, ys, _, err := selectColumnPair(ctx, ds, xCol, yCol)
	if err != nil {
		return nil, err
	}
	if len(xs) == 0 {
		res := &HeatmapResult{}
		heatmapCache.put(key, res)
		return res, nil
	}
	xlo, xhi := minMax(xs)
	ylo, yhi := minMax(ys)
	xw := spanWidth(xlo, xhi, bins)
	yw := spanWidth(ylo, yhi, bins)

	counts := make([][]int64, bins)
	for i := range counts {
		counts[i] = make([]int64, bins)
	}
	for i := range xs {
		xi := clampBin(int((xs[i]-xlo)/xw), bins)
		yi := clampBin(int((ys[i]-ylo)/yw), bins)
		counts[yi][xi]++
	}

	xEdges := make([]float64, bins+1)
	yEdges := make([]float64, bins+1)
	for i := 0; i <= bins; i++ {
		xEdges[i] = xlo + xw*float64(i)
		yEdges[i] = ylo + yw*float64(i)
	}
	res := &HeatmapResult{Counts: counts, XEdges: xEdges, YEdges: yEdges}
	heatmapCache.put(key, res)
	return res, nil
}

func spanWidth(lo, hi float64, bins int) float64 {
	w := (hi - lo) / float64(bins)
	if w == 0 {
		return 1
	}
	return w
}

func clampBin(idx, bins int) int {
	if idx < 0 {
		return 0
	}
	if idx >= bins {
		return bins - 1
	}
	return idx
}
