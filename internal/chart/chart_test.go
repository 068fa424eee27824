package chart_test

import (
	"bytes"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/derickschaefer/stockcast/internal/chart"
	"github.com/derickschaefer/stockcast/internal/model"
)

// ─── Helpers ──────────────────────────────────────────────────────────────────

var day0 = time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

// daily builds consecutive daily observations starting at day0.
func daily(values ...float64) []model.SalesObservation {
	out := make([]model.SalesObservation, len(values))
	for i, v := range values {
		out[i] = model.SalesObservation{Date: day0.AddDate(0, 0, i), Quantity: v}
	}
	return out
}

func lines(s string) []string {
	return strings.Split(strings.TrimRight(s, "\n"), "\n")
}

// ─── Bar ──────────────────────────────────────────────────────────────────────

func TestBarHistoryThenForecast(t *testing.T) {
	var buf bytes.Buffer
	err := chart.Bar(&buf, "sku-1", daily(10, 20), []float64{15}, chart.BarOptions{Width: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ls := lines(buf.String())
	if len(ls) != 4 {
		t.Fatalf("expected header + 3 bars, got %d lines:\n%s", len(ls), buf.String())
	}
	if !strings.HasPrefix(ls[0], "sku-1  2025-03-01 – 2025-03-03") {
		t.Errorf("header: %q", ls[0])
	}
	if !strings.Contains(ls[1], "█") || strings.Contains(ls[1], "░") {
		t.Errorf("history bar should be solid: %q", ls[1])
	}
	if !strings.HasPrefix(ls[3], "2025-03-03") || !strings.Contains(ls[3], "░") || strings.Contains(ls[3], "█") {
		t.Errorf("forecast bar should be light and dated after history: %q", ls[3])
	}
}

func TestBarScalesToMax(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "sku-1", daily(5, 10), nil, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ls := lines(buf.String())
	half := strings.Count(ls[1], "█")
	full := strings.Count(ls[2], "█")
	if full == 0 || half*2 < full-1 || half*2 > full+1 {
		t.Errorf("bars should scale linearly: half=%d full=%d", half, full)
	}
}

func TestBarZeroDayHasNoBar(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "sku-1", daily(0, 4), nil, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(lines(buf.String())[1], "█") {
		t.Errorf("zero sales should draw no bar: %q", lines(buf.String())[1])
	}
}

func TestBarCapsHistory(t *testing.T) {
	var buf bytes.Buffer
	opts := chart.BarOptions{Width: 60, HistoryBars: 3}
	if err := chart.Bar(&buf, "sku-1", daily(1, 2, 3, 4, 5, 6), []float64{7, 8}, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(lines(buf.String())); got != 1+3+2 {
		t.Errorf("expected 6 lines, got %d", got)
	}
}

func TestBarUndatedHistoryCountsForward(t *testing.T) {
	hist := []model.SalesObservation{{Quantity: 3}, {Quantity: 4}}
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "sku-1", hist, []float64{5}, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "#1") || !strings.Contains(out, "+1") {
		t.Errorf("expected index and offset labels:\n%s", out)
	}
}

func TestBarSkipsNonFinite(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "sku-1", daily(2), []float64{math.NaN(), 3}, chart.BarOptions{Width: 40}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := len(lines(buf.String())); got != 3 {
		t.Errorf("expected header + 2 bars, got %d", got)
	}
}

func TestBarEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Bar(&buf, "sku-1", nil, nil, chart.BarOptions{}); err == nil {
		t.Error("expected error for empty input")
	}
}

// ─── Plot ─────────────────────────────────────────────────────────────────────

func TestPlotDimensions(t *testing.T) {
	var buf bytes.Buffer
	opts := chart.PlotOptions{Width: 50, Height: 8}
	if err := chart.Plot(&buf, "sku-1", daily(1, 3, 2, 5, 4), []float64{6, 7}, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ls := lines(buf.String())
	// title + 8 rows + axis + labels
	if len(ls) != 11 {
		t.Fatalf("expected 11 lines, got %d:\n%s", len(ls), buf.String())
	}
	if !strings.HasPrefix(ls[0], "sku-1  (2025-03-01 to 2025-03-07)") {
		t.Errorf("title: %q", ls[0])
	}
	if !strings.Contains(ls[9], "└") {
		t.Errorf("axis line: %q", ls[9])
	}
}

func TestPlotDashesForecast(t *testing.T) {
	var buf bytes.Buffer
	opts := chart.PlotOptions{Width: 40, Height: 6}
	if err := chart.Plot(&buf, "sku-1", daily(5, 5, 5, 5), []float64{5, 5, 5, 5}, opts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "─") || !strings.Contains(out, "╌") {
		t.Errorf("expected solid history and dashed forecast:\n%s", out)
	}
}

func TestPlotNeedsTwoValues(t *testing.T) {
	var buf bytes.Buffer
	if err := chart.Plot(&buf, "sku-1", daily(1), nil, chart.PlotOptions{}); err == nil {
		t.Error("expected error for a single value")
	}
}
