package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/app"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/pipeline"
	"github.com/derickschaefer/stockcast/internal/render"
	"github.com/derickschaefer/stockcast/internal/store"
)

// normaliseIDs trims product IDs and removes blanks and duplicates while
// preserving order. IDs are case sensitive.
func normaliseIDs(ids []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// resolveFormat returns the effective format string, falling back to "table".
func resolveFormat(cfgFormat string) string {
	if globalFlags.Format != "" {
		return globalFlags.Format
	}
	if cfgFormat != "" {
		return cfgFormat
	}
	return render.FormatTable
}

// outputWriter returns w, or a file writer when --out is set. The returned
// close function must be called once output is complete.
func outputWriter(w io.Writer) (io.Writer, func() error, error) {
	if globalFlags.Out == "" {
		return w, func() error { return nil }, nil
	}
	f, err := os.Create(globalFlags.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// newResult builds a Result envelope stamped with the current time.
func newResult(kind, command string, data interface{}, items int, start time.Time) *model.Result {
	return &model.Result{
		Kind:        kind,
		GeneratedAt: time.Now().UTC(),
		Command:     command,
		Data:        data,
		Stats: model.ResultStats{
			Items:      items,
			DurationMs: time.Since(start).Milliseconds(),
		},
	}
}

// emit renders result in the resolved format to stdout (or --out) and prints
// warnings and, with --verbose, stats to stderr.
func emit(cmd *cobra.Command, deps *app.Deps, result *model.Result) error {
	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if err := render.Render(w, result, resolveFormat(deps.Config.Format)); err != nil {
		_ = closeFn()
		return err
	}
	if err := closeFn(); err != nil {
		return err
	}
	if !deps.Config.Quiet {
		render.PrintFooter(cmd.ErrOrStderr(), result, deps.Config.Verbose)
	}
	return nil
}

// printSimpleTable renders a simple table with headers using tablewriter.
// The add callback is called with row values as variadic strings.
func printSimpleTable(w io.Writer, headers []string, fill func(add func(...string))) {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(headers)
	tw.SetBorder(true)
	tw.SetRowLine(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAutoWrapText(false)

	fill(func(cols ...string) {
		tw.Append(cols)
	})
	tw.Render()
}

// printKVTable renders a two-column key/value listing with aligned columns.
func printKVTable(w io.Writer, rows [][]string) {
	maxKey := 0
	for _, r := range rows {
		if len(r[0]) > maxKey {
			maxKey = len(r[0])
		}
	}
	for _, r := range rows {
		padding := strings.Repeat(" ", maxKey-len(r[0]))
		fmt.Fprintf(w, "  %s%s  %s\n", r[0], padding, r[1])
	}
}

// ─── History input ────────────────────────────────────────────────────────────

// readHistory returns the sales history a command works on: the stored
// history of productID when set, otherwise one product's JSONL from stdin.
// A stored product without sales yields an empty history.
func readHistory(cmd *cobra.Command, deps *app.Deps, productID string) (string, []model.SalesObservation, error) {
	if productID == "" {
		if in := cmd.InOrStdin(); in == os.Stdin && stdinIsTerminal() {
			return "", nil, errors.New("no input: pipe JSONL sales on stdin or pass --product")
		}
		return pipeline.ReadSingle(cmd.InOrStdin())
	}
	if err := deps.RequireStore(); err != nil {
		return "", nil, err
	}
	if _, err := deps.Store.GetProduct(productID); err != nil {
		return "", nil, err
	}
	obs, err := deps.Store.GetSales(productID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", nil, err
	}
	return productID, obs, nil
}

// stdinIsTerminal reports whether stdin is an interactive terminal.
func stdinIsTerminal() bool {
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// writeSalesOutput writes observations as JSONL when piped (or when
// --format jsonl is set) and as a table on a terminal.
func writeSalesOutput(cmd *cobra.Command, command, productID string, obs []model.SalesObservation) error {
	format := resolveFormat("")
	// If no explicit format and stdout is a terminal, use table
	if globalFlags.Format == "" {
		if pipeline.IsTTY() {
			format = render.FormatTable
		} else {
			format = render.FormatJSONL
		}
	}

	w, closeFn, err := outputWriter(cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer closeFn()

	if format == render.FormatJSONL {
		return pipeline.WriteJSONL(w, productID, obs)
	}
	result := &model.Result{
		Kind:        model.KindSales,
		GeneratedAt: time.Now().UTC(),
		Command:     command,
		Data:        &model.SalesData{ProductID: productID, Obs: obs},
		Stats:       model.ResultStats{Items: len(obs)},
	}
	return render.Render(w, result, format)
}

// humanBytes formats a byte count for display.
func humanBytes(b int64) string {
	switch {
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
