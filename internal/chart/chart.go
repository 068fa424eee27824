// Package chart provides ASCII terminal charts of sales history followed by
// its forecast. Two renderers are available:
//
//   - Bar: horizontal bar chart, one bar per day; forecast bars use a lighter glyph
//   - Plot: multi-line ASCII chart with labeled axes; the forecast is dashed
package chart

import (
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/util"
)

const (
	historyGlyph  = "█"
	forecastGlyph = "░"

	// DefaultHistoryBars is how many trailing history days Bar shows.
	DefaultHistoryBars = 30
)

// point is one labelled value on the chart's x axis.
type point struct {
	label    string
	value    float64
	forecast bool
}

// combine lays out history then forecast. Forecast labels continue the
// calendar from the last dated observation, or count "+N" otherwise.
func combine(history []model.SalesObservation, forecast []float64) []point {
	pts := make([]point, 0, len(history)+len(forecast))
	for i, o := range history {
		label := util.FormatDate(o.Date)
		if o.IsUndated() {
			label = "#" + strconv.Itoa(i+1)
		}
		pts = append(pts, point{label: label, value: o.Quantity})
	}
	var last model.SalesObservation
	if n := len(history); n > 0 {
		last = history[n-1]
	}
	for i, v := range forecast {
		label := "+" + strconv.Itoa(i+1)
		if !last.IsUndated() {
			label = util.FormatDate(last.Date.AddDate(0, 0, i+1))
		}
		pts = append(pts, point{label: label, value: v, forecast: true})
	}
	return pts
}

// finitePoints drops NaN and Inf values.
func finitePoints(pts []point) []point {
	out := pts[:0:0]
	for _, p := range pts {
		if !math.IsNaN(p.value) && !math.IsInf(p.value, 0) {
			out = append(out, p)
		}
	}
	return out
}

// ─── Bar ─────────────────────────────────────────────────────────────────────

// BarOptions controls horizontal bar chart rendering.
type BarOptions struct {
	// Width is the total character width available for the chart.
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// HistoryBars caps how many trailing history days are drawn. The forecast
	// is always drawn in full. 0 selects DefaultHistoryBars; negative shows all.
	HistoryBars int
}

// Bar renders a horizontal bar chart: recent history in solid bars, then the
// forecast in light bars. Bars start from zero.
//
// Output example:
//
//	sku-1  2025-03-01 – 2025-03-04  (█ history  ░ forecast)
//	2025-03-01  10.0  ██████████████
//	2025-03-02  12.0  █████████████████
//	2025-03-03  11.2  ░░░░░░░░░░░░░░░░
func Bar(w io.Writer, productID string, history []model.SalesObservation, forecast []float64, opts BarOptions) error {
	totalWidth := opts.Width
	if totalWidth <= 0 {
		totalWidth = termWidth()
	}
	keep := opts.HistoryBars
	if keep == 0 {
		keep = DefaultHistoryBars
	}
	if keep > 0 && len(history) > keep {
		history = history[len(history)-keep:]
	}

	pts := finitePoints(combine(history, forecast))
	if len(pts) == 0 {
		return fmt.Errorf("chart bar: nothing to render")
	}

	maxVal := 0.0
	labelWidth, valWidth := 0, 0
	for _, p := range pts {
		if p.value > maxVal {
			maxVal = p.value
		}
		if l := len(p.label); l > labelWidth {
			labelWidth = l
		}
		if l := len(formatFloat(p.value)); l > valWidth {
			valWidth = l
		}
	}
	if maxVal == 0 {
		maxVal = 1 // avoid divide-by-zero for an all-zero series
	}

	// Bar area width = totalWidth - labelWidth - valWidth - separators (4 chars)
	barAreaWidth := totalWidth - labelWidth - valWidth - 4
	if barAreaWidth < 4 {
		barAreaWidth = 4
	}

	fmt.Fprintf(w, "%s  %s – %s  (%s history  %s forecast)\n",
		productID, pts[0].label, pts[len(pts)-1].label, historyGlyph, forecastGlyph)

	for _, p := range pts {
		barLen := 0
		if p.value > 0 {
			barLen = int(math.Round(p.value / maxVal * float64(barAreaWidth)))
			if barLen < 1 {
				barLen = 1 // minimum 1 block so every non-zero bar is visible
			}
		}
		glyph := historyGlyph
		if p.forecast {
			glyph = forecastGlyph
		}
		fmt.Fprintf(w, "%-*s  %*s  %s\n",
			labelWidth, p.label,
			valWidth, formatFloat(p.value),
			strings.Repeat(glyph, barLen),
		)
	}
	return nil
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

// PlotOptions controls multi-line ASCII plot rendering.
type PlotOptions struct {
	// Width is the total character width of the chart (including Y-axis label).
	// If 0, auto-detects from $COLUMNS, falls back to 80.
	Width int
	// Height is the number of data rows in the chart body (not counting axis labels).
	// If 0, defaults to 12.
	Height int
	// Title overrides the default title (productID).
	Title string
}

// Plot renders a multi-line ASCII chart of history followed by forecast.
// Columns that sample the forecast are drawn dashed.
func Plot(w io.Writer, productID string, history []model.SalesObservation, forecast []float64, opts PlotOptions) error {
	width := opts.Width
	if width <= 0 {
		width = termWidth()
	}
	height := opts.Height
	if height <= 0 {
		height = 12
	}
	title := opts.Title
	if title == "" {
		title = productID
	}

	pts := combine(history, forecast)
	valid := finitePoints(pts)
	if len(valid) < 2 {
		return fmt.Errorf("chart plot: need at least 2 finite values (got %d)", len(valid))
	}

	minVal, maxVal := valid[0].value, valid[0].value
	for _, p := range valid[1:] {
		minVal = math.Min(minVal, p.value)
		maxVal = math.Max(maxVal, p.value)
	}

	ticks := yTicks(minVal, maxVal, height)
	yLabelWidth := 0
	for _, t := range ticks {
		if l := len(formatFloat(t)); l > yLabelWidth {
			yLabelWidth = l
		}
	}
	yAxisWidth := yLabelWidth + 2

	plotWidth := width - yAxisWidth
	if plotWidth < 10 {
		plotWidth = 10
	}

	cols, forecastCol := sampleCols(pts, plotWidth)
	grid := buildGrid(cols, minVal, maxVal, height)
	dashForecast(grid, forecastCol)

	fmt.Fprintf(w, "%s  (%s to %s)\n", title, pts[0].label, pts[len(pts)-1].label)

	for row := 0; row < height; row++ {
		label := ""
		for _, t := range ticks {
			if math.Abs(rowForValue(t, minVal, maxVal, height)-float64(row)) < 0.5 {
				label = formatFloat(t)
				break
			}
		}
		axisCh := "┤"
		if label != "" && math.Abs(minVal) < 1e-9 && row == height-1 {
			axisCh = "┼"
		} else if label == "" {
			axisCh = " "
		}
		fmt.Fprintf(w, "%*s%s%s\n", yLabelWidth, label, axisCh, string(grid[row]))
	}

	fmt.Fprintf(w, "%s└%s\n", strings.Repeat(" ", yLabelWidth), strings.Repeat("─", plotWidth))
	fmt.Fprintf(w, "%s %s\n", strings.Repeat(" ", yLabelWidth), xAxisLabels(pts, plotWidth))
	return nil
}

// ─── Grid building ────────────────────────────────────────────────────────────

// sampleCols reduces pts to exactly n columns by bucket averaging.
// forecastCol is the first column whose bucket contains a forecast point,
// or n when there is none.
func sampleCols(pts []point, n int) (cols []float64, forecastCol int) {
	total := len(pts)
	cols = make([]float64, n)
	forecastCol = n
	for col := 0; col < n; col++ {
		lo := col * total / n
		hi := (col+1)*total/n - 1
		if hi >= total {
			hi = total - 1
		}
		if hi < lo {
			hi = lo // fewer points than columns: repeat the point
		}
		sum, count := 0.0, 0
		for i := lo; i <= hi; i++ {
			if pts[i].forecast && col < forecastCol {
				forecastCol = col
			}
			v := pts[i].value
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				sum += v
				count++
			}
		}
		if count == 0 {
			cols[col] = math.NaN()
		} else {
			cols[col] = sum / float64(count)
		}
	}
	return cols, forecastCol
}

// rowForValue returns the float row index (0=top=max) for a given value.
func rowForValue(v, minVal, maxVal float64, height int) float64 {
	if maxVal == minVal {
		return float64(height) / 2
	}
	return (maxVal - v) / (maxVal - minVal) * float64(height-1)
}

// buildGrid renders columns into a height×width rune grid using
// box-drawing characters to connect adjacent data points.
func buildGrid(cols []float64, minVal, maxVal float64, height int) [][]rune {
	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", len(cols)))
	}

	rowOf := make([]int, len(cols))
	for col, v := range cols {
		if math.IsNaN(v) {
			rowOf[col] = -1 // gap
			continue
		}
		r := int(math.Round(rowForValue(v, minVal, maxVal, height)))
		rowOf[col] = min(max(r, 0), height-1)
	}

	for col := 0; col < len(cols); col++ {
		r := rowOf[col]
		if r < 0 {
			continue
		}
		prevRow, nextRow := -2, -2
		if col > 0 {
			prevRow = rowOf[col-1]
		}
		if col < len(cols)-1 {
			nextRow = rowOf[col+1]
		}

		switch {
		case prevRow == -2 && nextRow == -2:
			grid[r][col] = '·'
		case (prevRow < 0 || prevRow == r) && (nextRow < 0 || nextRow == r):
			grid[r][col] = '─'
		case prevRow >= 0 && nextRow >= 0 && (prevRow < r) == (nextRow < r) && prevRow != r && nextRow != r:
			// peak or trough
			grid[r][col] = '─'
		case (prevRow < 0 || prevRow < r) && nextRow > r:
			grid[r][col] = '╭'
		case (prevRow < 0 || prevRow > r) && nextRow >= 0 && nextRow < r:
			grid[r][col] = '╰'
		case prevRow >= 0 && prevRow < r:
			grid[r][col] = '╮'
		case prevRow >= 0 && prevRow > r:
			grid[r][col] = '╯'
		default:
			grid[r][col] = '─'
		}

		// Vertical connectors toward the previous column's row.
		if prevRow >= 0 && prevRow != r {
			lo, hi := min(r, prevRow), max(r, prevRow)
			for fill := lo + 1; fill < hi; fill++ {
				if grid[fill][col] == ' ' {
					grid[fill][col] = '│'
				}
			}
		}
	}
	return grid
}

// dashForecast swaps solid strokes for dashed ones from column from onward.
func dashForecast(grid [][]rune, from int) {
	for r := range grid {
		for c := from; c < len(grid[r]); c++ {
			switch grid[r][c] {
			case '─':
				grid[r][c] = '╌'
			case '│':
				grid[r][c] = '┆'
			}
		}
	}
}

// ─── Axis helpers ─────────────────────────────────────────────────────────────

// yTicks returns 3–4 evenly-spaced tick values for the Y axis.
func yTicks(minVal, maxVal float64, height int) []float64 {
	if maxVal == minVal {
		return []float64{minVal}
	}
	nTicks := 4
	if height <= 6 {
		nTicks = 3
	}
	ticks := make([]float64, nTicks)
	for i := range ticks {
		ticks[i] = minVal + float64(i)*(maxVal-minVal)/float64(nTicks-1)
	}
	return ticks
}

// xAxisLabels builds a padded string with start, middle, and end labels.
func xAxisLabels(pts []point, plotWidth int) string {
	if len(pts) == 0 {
		return ""
	}
	start := pts[0].label
	mid := pts[len(pts)/2].label
	end := pts[len(pts)-1].label

	buf := []rune(strings.Repeat(" ", plotWidth))
	writeAt := func(pos int, s string) {
		for i, ch := range s {
			if pos+i >= 0 && pos+i < len(buf) {
				buf[pos+i] = ch
			}
		}
	}
	writeAt(0, start)
	writeAt(plotWidth/2-len(mid)/2, mid)
	writeAt(plotWidth-len(end), end)
	return string(buf)
}

// ─── Utilities ────────────────────────────────────────────────────────────────

// formatFloat formats a value for labels: compact notation for large numbers,
// at least one decimal place otherwise.
func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return "."
	}
	abs := math.Abs(v)
	var s string
	switch {
	case abs == 0:
		return "0"
	case abs >= 1e6:
		return strconv.FormatFloat(v/1e6, 'f', 1, 64) + "M"
	case abs >= 1e4:
		return strconv.FormatFloat(v/1e3, 'f', 1, 64) + "K"
	case abs >= 100:
		s = strconv.FormatFloat(v, 'f', 1, 64)
	case abs >= 1:
		s = strconv.FormatFloat(v, 'f', 2, 64)
	default:
		s = strconv.FormatFloat(v, 'f', 4, 64)
	}
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// termWidth returns the terminal width from $COLUMNS, defaulting to 80.
func termWidth() int {
	if cols := os.Getenv("COLUMNS"); cols != "" {
		if n, err := strconv.Atoi(cols); err == nil && n > 20 {
			return n
		}
	}
	return 80
}
