package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/store"
)

var storeCmd = &cobra.Command{
	Use:   "store",
	Short: "Inspect and manage the local data store",
	Long: `Commands for inspecting and clearing the local bbolt database.

The store holds products, their sales history and every stored plan run.
Data persists until you explicitly clear it.`,
}

// ─── store stats ──────────────────────────────────────────────────────────────

var storeStatsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show row counts and sizes for each bucket",
	Example: `  stockcast store stats`,
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		stats, err := deps.Store.Stats()
		if err != nil {
			return fmt.Errorf("reading store stats: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Database: %s\n\n", deps.Store.Path())
		printSimpleTable(cmd.OutOrStdout(), []string{"BUCKET", "ROWS", "SIZE"}, func(add func(...string)) {
			for _, s := range stats {
				add(s.Name, strconv.Itoa(s.Count), humanBytes(s.Bytes))
			}
		})
		return nil
	},
}

// ─── store clear ──────────────────────────────────────────────────────────────

var storeClearYes bool

var storeClearCmd = &cobra.Command{
	Use:   "clear [bucket]",
	Short: "Delete entries from the local store",
	Long: `Delete every entry in one bucket, or in all buckets when none is named.
Buckets: products, sales, plans.

Clearing is irreversible and requires --yes.

Note: bbolt does not shrink the database file after clearing. Free pages are
reused internally on the next write.`,
	Example: `  stockcast store clear plans --yes
  stockcast store clear --yes`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: store.AllBuckets,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !storeClearYes {
			return fmt.Errorf("refusing to clear without --yes")
		}

		deps, err := buildDeps()
		if err != nil {
			return err
		}
		if err := deps.RequireStore(); err != nil {
			return err
		}
		defer deps.Close()

		if len(args) == 0 {
			if err := deps.Store.ClearAll(); err != nil {
				return fmt.Errorf("clearing all buckets: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "✓ Cleared all buckets")
			return nil
		}
		if err := deps.Store.ClearBucket(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared bucket %q\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(storeCmd)
	storeCmd.AddCommand(storeStatsCmd, storeClearCmd)

	storeClearCmd.Flags().BoolVar(&storeClearYes, "yes", false, "confirm deletion")
}
