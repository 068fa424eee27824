// Package render converts Result values into human-readable or machine-parseable
// output. Each format is a separate function; the top-level Render dispatcher
// selects based on the format string.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/derickschaefer/stockcast/internal/analyze"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/pipeline"
	"github.com/derickschaefer/stockcast/internal/util"
)

// Format constants matching --format flag values.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatJSONL = "jsonl"
	FormatCSV   = "csv"
	FormatTSV   = "tsv"
	FormatMD    = "md"
)

// Formats lists every accepted format, in help-text order.
var Formats = []string{FormatTable, FormatJSON, FormatJSONL, FormatCSV, FormatTSV, FormatMD}

// ValidFormat reports whether f is a known format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if f == v {
			return true
		}
	}
	return false
}

// Render writes result to w in the specified format.
func Render(w io.Writer, result *model.Result, format string) error {
	switch format {
	case FormatJSON:
		return renderJSON(w, result)
	case FormatJSONL:
		return renderJSONL(w, result)
	case FormatCSV:
		return renderDelimited(w, result, ',')
	case FormatTSV:
		return renderDelimited(w, result, '\t')
	case FormatMD:
		return renderMarkdown(w, result)
	default:
		return renderTable(w, result)
	}
}

// ─── JSON ─────────────────────────────────────────────────────────────────────

func renderJSON(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// ─── JSONL ────────────────────────────────────────────────────────────────────

// renderJSONL writes one record per line: sales as pipeline rows, slices
// element by element, anything else as a single line.
func renderJSONL(w io.Writer, result *model.Result) error {
	enc := json.NewEncoder(w)
	switch d := result.Data.(type) {
	case *model.SalesData:
		return pipeline.WriteJSONL(w, d.ProductID, d.Obs)
	case model.SalesData:
		return pipeline.WriteJSONL(w, d.ProductID, d.Obs)
	case []model.SalesData:
		for _, sd := range d {
			if err := pipeline.WriteJSONL(w, sd.ProductID, sd.Obs); err != nil {
				return err
			}
		}
		return nil
	case []model.Recommendation:
		return encodeEach(enc, d)
	case []model.Anomaly:
		return encodeEach(enc, d)
	case []model.Product:
		return encodeEach(enc, d)
	case []model.PlanRun:
		return encodeEach(enc, d)
	default:
		return enc.Encode(result.Data)
	}
}

func encodeEach[T any](enc *json.Encoder, items []T) error {
	for _, it := range items {
		if err := enc.Encode(it); err != nil {
			return err
		}
	}
	return nil
}

// ─── Tabular view ─────────────────────────────────────────────────────────────

// tabular is the shared shape behind table, CSV/TSV and Markdown output.
// Preamble lines are shown above human formats and omitted from CSV.
type tabular struct {
	preamble [][2]string
	header   []string
	rows     [][]string
	right    map[int]bool // right-aligned columns in table output
}

func fieldTable(fields [][2]string) *tabular {
	t := &tabular{header: []string{"field", "value"}}
	for _, f := range fields {
		t.rows = append(t.rows, []string{f[0], f[1]})
	}
	return t
}

// tabulate builds the tabular view of result, or returns false for payloads
// without one.
func tabulate(result *model.Result) (*tabular, bool) {
	switch d := result.Data.(type) {
	case *model.SalesData:
		return salesTable([]model.SalesData{*d}), true
	case model.SalesData:
		return salesTable([]model.SalesData{d}), true
	case []model.SalesData:
		return salesTable(d), true
	case *model.ForecastResult:
		return forecastTable(*d), true
	case model.ForecastResult:
		return forecastTable(d), true
	case *model.DemandForecast:
		return demandTable(*d), true
	case model.DemandForecast:
		return demandTable(d), true
	case []model.Recommendation:
		return recommendationTable(d), true
	case []model.Anomaly:
		return anomalyTable(d), true
	case *model.Product:
		return productTable([]model.Product{*d}), true
	case []model.Product:
		return productTable(d), true
	case *model.PlanRun:
		return planTable([]model.PlanRun{*d}), true
	case []model.PlanRun:
		return planTable(d), true
	case *analyze.Summary:
		return summaryTable(*d), true
	case analyze.Summary:
		return summaryTable(d), true
	case []analyze.Summary:
		return summarySliceTable(d), true
	case *analyze.VelocityResult:
		return velocityTable(*d), true
	case analyze.VelocityResult:
		return velocityTable(d), true
	case *model.Table:
		return &tabular{header: d.Columns, rows: d.Rows}, true
	case model.Table:
		return &tabular{header: d.Columns, rows: d.Rows}, true
	}
	return nil, false
}

func salesTable(groups []model.SalesData) *tabular {
	t := &tabular{header: []string{"product_id", "date", "quantity"}, right: map[int]bool{2: true}}
	for _, sd := range groups {
		for _, o := range sd.Obs {
			t.rows = append(t.rows, []string{sd.ProductID, util.FormatDate(o.Date), formatValue(o.Quantity)})
		}
	}
	return t
}

func forecastTable(f model.ForecastResult) *tabular {
	t := &tabular{
		preamble: [][2]string{
			{"method", string(f.Method)},
			{"confidence", formatRatio(f.Confidence)},
			{"trend", string(f.Trend)},
			{"seasonality", strconv.FormatBool(f.Seasonality)},
			{"synthetic", strconv.FormatBool(f.Synthetic)},
		},
		header: []string{"day", "forecast"},
		right:  map[int]bool{0: true, 1: true, 2: true, 3: true},
	}
	band := len(f.Lower) == len(f.Forecast) && len(f.Upper) == len(f.Forecast) && f.Lower != nil
	if band {
		t.header = append(t.header, "lower", "upper")
	}
	for i, v := range f.Forecast {
		row := []string{strconv.Itoa(i + 1), formatValue(v)}
		if band {
			row = append(row, formatValue(f.Lower[i]), formatValue(f.Upper[i]))
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func demandTable(d model.DemandForecast) *tabular {
	return fieldTable([][2]string{
		{"total_demand", strconv.Itoa(d.TotalDemand)},
		{"avg_daily_demand", strconv.Itoa(d.AvgDailyDemand)},
		{"reorder_point", strconv.Itoa(d.ReorderPoint)},
		{"confidence", formatRatio(d.Confidence)},
		{"trend", string(d.Trend)},
	})
}

func recommendationTable(recs []model.Recommendation) *tabular {
	t := &tabular{header: []string{"type", "priority", "action", "message"}}
	for _, r := range recs {
		t.rows = append(t.rows, []string{string(r.Type), string(r.Priority), r.Action, r.Message})
	}
	return t
}

func anomalyTable(as []model.Anomaly) *tabular {
	t := &tabular{header: []string{"date", "value", "z_score", "direction"}, right: map[int]bool{1: true, 2: true}}
	for _, a := range as {
		t.rows = append(t.rows, []string{
			util.FormatDate(a.Date),
			formatValue(a.Value),
			strconv.FormatFloat(a.ZScore, 'f', 2, 64),
			a.Direction,
		})
	}
	return t
}

func productTable(ps []model.Product) *tabular {
	t := &tabular{header: []string{"id", "title", "current_stock", "lead_time_days", "updated_at"}, right: map[int]bool{2: true, 3: true}}
	for _, p := range ps {
		lead := "-"
		if p.LeadTimeDays > 0 {
			lead = strconv.Itoa(p.LeadTimeDays)
		}
		updated := "-"
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Format(time.RFC3339)
		}
		t.rows = append(t.rows, []string{p.ID, p.Title, strconv.Itoa(p.CurrentStock), lead, updated})
	}
	return t
}

func planTable(runs []model.PlanRun) *tabular {
	t := &tabular{
		header: []string{"product_id", "generated_at", "stock", "lead", "total_demand", "reorder_point", "confidence", "trend", "actions"},
		right:  map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true},
	}
	for _, r := range runs {
		actions := make([]string, 0, len(r.Recommendations))
		for _, rec := range r.Recommendations {
			actions = append(actions, string(rec.Type))
		}
		act := strings.Join(actions, ",")
		if act == "" {
			act = "-"
		}
		t.rows = append(t.rows, []string{
			r.ProductID,
			r.GeneratedAt.Format(time.RFC3339),
			strconv.Itoa(r.CurrentStock),
			strconv.Itoa(r.LeadTimeDays),
			strconv.Itoa(r.Demand.TotalDemand),
			strconv.Itoa(r.Demand.ReorderPoint),
			formatRatio(r.Demand.Confidence),
			string(r.Demand.Trend),
			act,
		})
	}
	return t
}

func summaryTable(s analyze.Summary) *tabular {
	return fieldTable([][2]string{
		{"product_id", s.ProductID},
		{"count", strconv.Itoa(s.Count)},
		{"undated", strconv.Itoa(s.Undated)},
		{"zero_days", fmt.Sprintf("%d (%.1f%%)", s.ZeroDays, s.ZeroPct)},
		{"total_units", formatValue(s.Total)},
		{"mean", formatValue(s.Mean)},
		{"std", formatValue(s.Std)},
		{"min", formatValue(s.Min)},
		{"p25", formatValue(s.P25)},
		{"median", formatValue(s.Median)},
		{"p75", formatValue(s.P75)},
		{"max", formatValue(s.Max)},
		{"first_date", util.FormatDate(s.FirstDate)},
		{"last_date", util.FormatDate(s.LastDate)},
		{"span_days", strconv.Itoa(s.SpanDays)},
		{"daily_units", formatValue(s.DailyUnits)},
	})
}

func summarySliceTable(ss []analyze.Summary) *tabular {
	t := &tabular{
		header: []string{"product_id", "count", "total_units", "mean", "median", "max", "daily_units", "first_date", "last_date"},
		right:  map[int]bool{1: true, 2: true, 3: true, 4: true, 5: true, 6: true},
	}
	for _, s := range ss {
		t.rows = append(t.rows, []string{
			s.ProductID,
			strconv.Itoa(s.Count),
			formatValue(s.Total),
			formatValue(s.Mean),
			formatValue(s.Median),
			formatValue(s.Max),
			formatValue(s.DailyUnits),
			util.FormatDate(s.FirstDate),
			util.FormatDate(s.LastDate),
		})
	}
	return t
}

func velocityTable(v analyze.VelocityResult) *tabular {
	return fieldTable([][2]string{
		{"product_id", v.ProductID},
		{"method", string(v.Method)},
		{"slope", strconv.FormatFloat(v.Slope, 'f', 4, 64)},
		{"slope_per_week", strconv.FormatFloat(v.SlopePerWeek, 'f', 4, 64)},
		{"intercept", strconv.FormatFloat(v.Intercept, 'f', 4, 64)},
		{"r2", strconv.FormatFloat(v.R2, 'f', 4, 64)},
		{"direction", string(v.Direction)},
	})
}

// ─── Table ────────────────────────────────────────────────────────────────────

func renderTable(w io.Writer, result *model.Result) error {
	t, ok := tabulate(result)
	if !ok {
		// Fallback: JSON
		return renderJSON(w, result)
	}
	for _, p := range t.preamble {
		fmt.Fprintf(w, "%-12s %s\n", p[0]+":", p[1])
	}
	if len(t.preamble) > 0 {
		fmt.Fprintln(w)
	}
	if len(t.rows) == 0 {
		fmt.Fprintf(w, "No %s.\n", kindNoun(result.Kind))
		return nil
	}

	tw := tablewriter.NewWriter(w)
	header := make([]string, len(t.header))
	align := make([]int, len(t.header))
	for i, h := range t.header {
		header[i] = strings.ToUpper(strings.ReplaceAll(h, "_", " "))
		align[i] = tablewriter.ALIGN_LEFT
		if t.right[i] {
			align[i] = tablewriter.ALIGN_RIGHT
		}
	}
	tw.SetHeader(header)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetColumnAlignment(align)
	tw.SetAutoWrapText(false)
	tw.SetAutoFormatHeaders(false)
	tw.AppendBulk(t.rows)
	tw.Render()
	return nil
}

func kindNoun(kind string) string {
	switch kind {
	case model.KindRecommendations:
		return "recommendations"
	case model.KindAnomalies:
		return "anomalies"
	case model.KindProduct:
		return "products"
	case model.KindPlan:
		return "plans"
	case model.KindSales:
		return "sales"
	}
	return "rows"
}

// ─── CSV / TSV ────────────────────────────────────────────────────────────────

func renderDelimited(w io.Writer, result *model.Result, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep

	if t, ok := tabulate(result); ok {
		_ = cw.Write(t.header)
		for _, r := range t.rows {
			_ = cw.Write(r)
		}
	} else {
		// Fallback: serialize as JSON on a single line
		b, _ := json.Marshal(result.Data)
		_ = cw.Write([]string{string(b)})
	}

	cw.Flush()
	return cw.Error()
}

// ─── Markdown ─────────────────────────────────────────────────────────────────

func renderMarkdown(w io.Writer, result *model.Result) error {
	t, ok := tabulate(result)
	if !ok {
		return renderJSON(w, result)
	}
	for _, p := range t.preamble {
		fmt.Fprintf(w, "- **%s**: %s\n", p[0], mdEscape(p[1]))
	}
	if len(t.preamble) > 0 {
		fmt.Fprintln(w)
	}

	header := make([]string, len(t.header))
	sep := make([]string, len(t.header))
	for i, h := range t.header {
		header[i] = strings.ToUpper(strings.ReplaceAll(h, "_", " "))
		sep[i] = "---"
	}
	fmt.Fprintf(w, "| %s |\n|%s|\n", strings.Join(header, " | "), strings.Join(sep, "|"))
	for _, r := range t.rows {
		cells := make([]string, len(r))
		for i, c := range r {
			cells[i] = mdEscape(c)
		}
		fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | "))
	}
	return nil
}

// ─── Warnings / Stats Footer ─────────────────────────────────────────────────

// PrintFooter writes warnings and stats to w when verbose mode is on.
func PrintFooter(w io.Writer, result *model.Result, verbose bool) {
	for _, warn := range result.Warnings {
		fmt.Fprintf(w, "⚠  %s\n", warn)
	}
	if verbose {
		src := "computed"
		if result.Stats.CacheHit {
			src = "cache"
		}
		fmt.Fprintf(w, "\n[%s • %d items • %dms • %s]\n",
			result.GeneratedAt.Format(time.RFC3339),
			result.Stats.Items,
			result.Stats.DurationMs,
			src,
		)
	}
}

// ─── Helpers ─────────────────────────────────────────────────────────────────

// formatValue formats a quantity for display: at most two decimals, with
// whole numbers shown as "4.0". NaN renders as ".".
func formatValue(v float64) string {
	s := util.FormatQuantity(v)
	if s != "." && !strings.ContainsAny(s, ".eE") && !strings.HasSuffix(s, "Inf") {
		s += ".0"
	}
	return s
}

func formatRatio(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func mdEscape(s string) string {
	s = strings.ReplaceAll(s, "|", "\\|")
	s = strings.ReplaceAll(s, "\n", " ")
	return s
}
