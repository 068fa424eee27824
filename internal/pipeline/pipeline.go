// Package pipeline provides helpers for reading and writing sales history
// streams via stdin/stdout in JSONL format, the canonical pipe format.
//
// One line is one observation:
//
//	{"product_id":"sku-1","date":"2025-03-01","quantity":12}
//
// "sales" is accepted as an alias for "quantity", quantities may be JSON
// numbers or numeric strings, and "date" may be omitted for undated history.
package pipeline

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/util"
)

// Row is the wire shape of one sales observation, shared with the HTTP API.
type Row struct {
	ProductID string      `json:"product_id,omitempty"`
	Date      string      `json:"date,omitempty"`
	Quantity  interface{} `json:"quantity,omitempty"`
	Sales     interface{} `json:"sales,omitempty"`
}

// Observation converts r into a SalesObservation.
func (r Row) Observation() (model.SalesObservation, error) {
	var o model.SalesObservation
	if strings.TrimSpace(r.Date) != "" {
		d, err := util.ParseDate(r.Date)
		if err != nil {
			return o, err
		}
		o.Date = d
	}
	raw := r.Quantity
	if raw == nil {
		raw = r.Sales
	}
	q, err := parseQuantity(raw)
	if err != nil {
		return o, err
	}
	o.Quantity = q
	return o, nil
}

func parseQuantity(v interface{}) (float64, error) {
	switch q := v.(type) {
	case nil:
		return 0, fmt.Errorf("missing quantity")
	case float64:
		return q, nil
	case json.Number:
		return util.ParseQuantity(q.String())
	case string:
		return util.ParseQuantity(q)
	default:
		return 0, fmt.Errorf("unexpected quantity type %T", v)
	}
}

// Observations converts rows in order, reporting the first bad row by index.
func Observations(rows []Row) ([]model.SalesObservation, error) {
	out := make([]model.SalesObservation, len(rows))
	for i, r := range rows {
		o, err := r.Observation()
		if err != nil {
			return nil, fmt.Errorf("history[%d]: %w", i, err)
		}
		out[i] = o
	}
	return out, nil
}

// ReadSales reads JSONL records from r and groups them by product_id in
// first-seen order. Rows without a product_id form a group with an empty
// ProductID. Blank lines and lines starting with // are skipped.
func ReadSales(r io.Reader) ([]model.SalesData, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 1024*1024), 1024*1024)

	var groups []model.SalesData
	index := map[string]int{}

	lineNum := 0
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		lineNum++
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		var rec Row
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return nil, fmt.Errorf("line %d: invalid JSON: %w", lineNum, err)
		}
		o, err := rec.Observation()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}
		i, ok := index[rec.ProductID]
		if !ok {
			i = len(groups)
			index[rec.ProductID] = i
			groups = append(groups, model.SalesData{ProductID: rec.ProductID})
		}
		groups[i].Obs = append(groups[i].Obs, o)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if len(groups) == 0 {
		return nil, fmt.Errorf("no observations read from input (is stdin empty?)")
	}
	return groups, nil
}

// ReadSingle reads a JSONL stream that must hold one product's history and
// returns its product_id (possibly empty) and observations.
func ReadSingle(r io.Reader) (string, []model.SalesObservation, error) {
	groups, err := ReadSales(r)
	if err != nil {
		return "", nil, err
	}
	if len(groups) > 1 {
		ids := make([]string, len(groups))
		for i, g := range groups {
			ids[i] = g.ProductID
		}
		return "", nil, fmt.Errorf("input holds %d products (%s); expected one", len(groups), strings.Join(ids, ", "))
	}
	return groups[0].ProductID, groups[0].Obs, nil
}

// WriteJSONL writes observations as JSONL to w. Undated observations are
// written without a date field.
func WriteJSONL(w io.Writer, productID string, obs []model.SalesObservation) error {
	enc := json.NewEncoder(w)
	for _, o := range obs {
		if math.IsNaN(o.Quantity) || math.IsInf(o.Quantity, 0) {
			return fmt.Errorf("write %s: non-finite quantity", productID)
		}
		rec := Row{ProductID: productID, Quantity: o.Quantity}
		if !o.IsUndated() {
			rec.Date = util.FormatDate(o.Date)
		}
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

// IsTTY returns true if stdout is a terminal (not a pipe).
func IsTTY() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}
