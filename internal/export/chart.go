package export

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"strconv"

	"github.com/derekwisong/datui/internal/errs"
)

// ChartFormat is the closed set of chart export targets (spec §4.H).
type ChartFormat int

const (
	PNG ChartFormat = iota
	EPS
)

// Series is one named (x, y) sequence to plot.
type Series struct {
	Name string
	X    []float64
	Y    []float64
}

// ChartRequest bundles everything a chart exporter needs to render
// axes, ticks, grid, labels, and series without touching any wider
// chart-data preparation state.
type ChartRequest struct {
	Path    string
	Format  ChartFormat
	Title   string
	XLabel  string
	YLabel  string
	Series  []Series
	Width   int
	Height  int
}

// palette is the fixed 7-color series palette (spec §4.H).
var palette = [7]color.RGBA{
	{0x1f, 0x77, 0xb4, 0xff},
	{0xff, 0x7f, 0x0e, 0xff},
	{0x2c, 0xa0, 0x2c, 0xff},
	{0xd6, 0x27, 0x28, 0xff},
	{0x94, 0x67, 0xbd, 0xff},
	{0x8c, 0x56, 0x4b, 0xff},
	{0xe3, 0x77, 0xc2, 0xff},
}

// niceTicks computes up to maxTicks "nicely spaced" tick values over
// [lo, hi] using the 1-2-5 rule (spec §4.H / §4.I).
func niceTicks(lo, hi float64, maxTicks int) []float64 {
	if lo == hi {
		return []float64{lo}
	}
	span := hi - lo
	rough := span / float64(maxTicks)
	mag := math.Pow(10, math.Floor(math.Log10(rough)))
	for _, mult := range []float64{1, 2, 5, 10} {
		step := mult * mag
		if step < rough {
			continue
		}
		start := math.Ceil(lo/step) * step
		var ticks []float64
		for v := start; v <= hi+step*1e-9; v += step {
			ticks = append(ticks, v)
		}
		if len(ticks) <= maxTicks || mult == 10 {
			return ticks
		}
	}
	return []float64{lo, hi}
}

func seriesBounds(series []Series) (xlo, xhi, ylo, yhi float64) {
	xlo, ylo = math.Inf(1), math.Inf(1)
	xhi, yhi = math.Inf(-1), math.Inf(-1)
	for _, s := range series {
		for _, v := range s.X {
			xlo, xhi = math.Min(xlo, v), math.Max(xhi, v)
		}
		for _, v := range s.Y {
			ylo, yhi = math.Min(ylo, v), math.Max(yhi, v)
		}
	}
	if math.IsInf(xlo, 1) {
		xlo, xhi, ylo, yhi = 0, 1, 0, 1
	}
	if xlo == xhi {
		xhi = xlo + 1
	}
	if ylo == yhi {
		yhi = ylo + 1
	}
	return
}

// ExportChart writes req to req.Path in req.Format, atomically (write
// to a .tmp sibling then rename), mirroring the table exporter.
func ExportChart(req ChartRequest) error {
	if req.Width <= 0 {
		req.Width = 800
	}
	if req.Height <= 0 {
		req.Height = 600
	}
	if err := ensureDir(req.Path); err != nil {
		return err
	}
	tmp := req.Path + ".tmp"

	var err error
	switch req.Format {
	case PNG:
		err = writeChartPNG(tmp, req)
	case EPS:
		err = writeChartEPS(tmp, req)
	default:
		return errs.InvalidOption.New("unknown chart format")
	}
	if err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, req.Path); err != nil {
		os.Remove(tmp)
		return errs.Io.New("rename", err.Error())
	}
	return nil
}

const chartMargin = 60

func writeChartPNG(path string, req ChartRequest) error {
	img := image.NewRGBA(image.Rect(0, 0, req.Width, req.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)

	xlo, xhi, ylo, yhi := seriesBounds(req.Series)
	plotX0, plotY0 := chartMargin, chartMargin
	plotX1, plotY1 := req.Width-chartMargin, req.Height-chartMargin

	toPx := func(x, y float64) (int, int) {
		px := plotX0 + int((x-xlo)/(xhi-xlo)*float64(plotX1-plotX0))
		py := plotY1 - int((y-ylo)/(yhi-ylo)*float64(plotY1-plotY0))
		return px, py
	}

	axisColor := color.RGBA{0x40, 0x40, 0x40, 0xff}
	gridColor := color.RGBA{0xe0, 0xe0, 0xe0, 0xff}

	for _, tick := range niceTicks(ylo, yhi, 8) {
		_, py := toPx(xlo, tick)
		drawHLine(img, plotX0, plotX1, py, gridColor)
	}
	for _, tick := range niceTicks(xlo, xhi, 8) {
		px, _ := toPx(tick, ylo)
		drawVLine(img, px, plotY0, plotY1, gridColor)
	}

	drawHLine(img, plotX0, plotX1, plotY1, axisColor)
	drawVLine(img, plotX0, plotY0, plotY1, axisColor)

	for i, s := range req.Series {
		c := palette[i%len(palette)]
		for j := 1; j < len(s.X) && j < len(s.Y); j++ {
			x0, y0 := toPx(s.X[j-1], s.Y[j-1])
			x1, y1 := toPx(s.X[j], s.Y[j])
			drawLine(img, x0, y0, x1, y1, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		return errs.Io.New("png encode", err.Error())
	}
	return nil
}

func drawHLine(img *image.RGBA, x0, x1, y int, c color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, c)
	}
}

func drawVLine(img *image.RGBA, x, y0, y1 int, c color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, c)
	}
}

// drawLine is a basic Bresenham rasterizer; chart lines never need
// antialiasing at the resolutions this exporter targets.
func drawLine(img *image.RGBA, x0, y0, x1, y1 int, c color.Color) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		img.Set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// writeChartEPS emits a minimal PostScript document: axes, grid,
// nicely-spaced ticks with labels, titles, and per-series polylines in
// the fixed palette. No third-party encoder is involved (spec §4.H).
func writeChartEPS(path string, req ChartRequest) error {
	xlo, xhi, ylo, yhi := seriesBounds(req.Series)
	w, h := float64(req.Width), float64(req.Height)
	plotX0, plotY0 := chartMargin, chartMargin
	plotX1, plotY1 := req.Width-chartMargin, req.Height-chartMargin

	toPt := func(x, y float64) (float64, float64) {
		px := float64(plotX0) + (x-xlo)/(xhi-xlo)*float64(plotX1-plotX0)
		py := float64(plotY0) + (y-ylo)/(yhi-ylo)*float64(plotY1-plotY0)
		return px, py
	}

	f, err := os.Create(path)
	if err != nil {
		return errs.Io.New("create", err.Error())
	}
	defer f.Close()

	w2 := func(format string, args ...any) {
		fmt.Fprintf(f, format, args...)
	}

	w2("%%!PS-Adobe-3.0 EPSF-3.0\n")
	w2("%%%%BoundingBox: 0 0 %d %d\n", req.Width, req.Height)
	w2("%%%%Creator: datui\n")
	w2("%%%%EndComments\n")
	w2("/Helvetica findfont 9 scalefont setfont\n")
	w2("0.2 setlinewidth\n")

	// grid + ticks
	w2("0.85 0.85 0.85 setrgbcolor\n")
	for _, tick := range niceTicks(ylo, yhi, 8) {
		_, py := toPt(xlo, tick)
		w2("%g %g moveto %g %g lineto stroke\n", float64(plotX0), py, float64(plotX1), py)
	}
	for _, tick := range niceTicks(xlo, xhi, 8) {
		px, _ := toPt(tick, ylo)
		w2("%g %g moveto %g %g lineto stroke\n", px, float64(plotY0), px, float64(plotY1))
	}

	// axes
	w2("0 0 0 setrgbcolor\n")
	w2("%g %g moveto %g %g lineto stroke\n", float64(plotX0), float64(plotY0), float64(plotX0), float64(plotY1))
	w2("%g %g moveto %g %g lineto stroke\n", float64(plotX0), float64(plotY0), float64(plotX1), float64(plotY0))

	// tick labels
	for _, tick := range niceTicks(ylo, yhi, 8) {
		_, py := toPt(xlo, tick)
		w2("%g %g moveto (%s) show\n", float64(plotX0)-45, py-3, formatTick(tick))
	}
	for _, tick := range niceTicks(xlo, xhi, 8) {
		px, _ := toPt(tick, ylo)
		w2("%g %g moveto (%s) show\n", px-10, float64(plotY0)-15, formatTick(tick))
	}

	// axis titles
	w2("/Helvetica findfont 10 scalefont setfont\n")
	w2("%g %g moveto (%s) show\n", w/2-20, 15.0, req.XLabel)
	w2("gsave %g %g translate 90 rotate 0 0 moveto (%s) show grestore\n", 15.0, h/2-20, req.YLabel)
	w2("%g %g moveto (%s) show\n", w/2-30, h-20, req.Title)

	// series
	for i, s := range req.Series {
		c := palette[i%len(palette)]
		w2("%g %g %g setrgbcolor\n", float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
		for j := 0; j < len(s.X) && j < len(s.Y); j++ {
			px, py := toPt(s.X[j], s.Y[j])
			if j == 0 {
				w2("%g %g moveto\n", px, py)
			} else {
				w2("%g %g lineto\n", px, py)
			}
		}
		w2("stroke\n")
	}

	w2("showpage\n")
	return nil
}

func formatTick(v float64) string {
	return strconv.FormatFloat(v, 'g', 4, 64)
}
