package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/config"
	"github.com/derickschaefer/stockcast/internal/model"
	"github.com/derickschaefer/stockcast/internal/render"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage stockcast configuration",
	Long: `Read and write stockcast configuration stored in config.json.

Resolution order (later wins): built-in defaults, config.json in the current
directory, .env, environment variables (STOCKCAST_DB_PATH,
STOCKCAST_LISTEN_ADDR, STOCKCAST_LOG_LEVEL), then command-line flags.`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a template config.json in the current directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := config.DefaultConfigFile
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config.json already exists at %s (delete it first to re-initialise)", path)
		}
		if err := config.WriteFile(path, config.Template()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Created %s\n", path)
		fmt.Fprintln(cmd.OutOrStdout(), "  Edit it, or use 'stockcast config set <key> <value>'.")
		return nil
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Print the current resolved configuration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(config.Overrides{
			DBPath:    globalFlags.DB,
			LogLevel:  globalFlags.LogLevel,
			LogFormat: globalFlags.LogFormat,
		})
		if err != nil {
			return err
		}

		w, closeFn, err := outputWriter(cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer closeFn()

		format := resolveFormat(cfg.Format)
		if format == render.FormatTable {
			printKVTable(w, cfg.Rows())
			return nil
		}
		result := &model.Result{
			Kind:        model.KindTable,
			GeneratedAt: time.Now().UTC(),
			Command:     "config get",
			Data:        model.Table{Columns: []string{"key", "value"}, Rows: cfg.Rows()},
		}
		return render.Render(w, result, format)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value in config.json",
	Long: `Set a configuration value in config.json, creating the file from the
template if it does not exist.

Keys: ` + strings.Join(config.Keys(), ", "),
	Example: `  stockcast config set lead_time_days 10
  stockcast config set cache_ttl 30m`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key := strings.ToLower(args[0])
		if key == "format" {
			key = "default_format"
		}

		// Load existing file or start from template
		path := config.DefaultConfigFile
		f := config.Template()
		existing, err := config.ReadFile(path)
		switch {
		case err == nil:
			f = *existing
		case !errors.Is(err, os.ErrNotExist):
			return err
		}

		if err := f.Set(key, args[1]); err != nil {
			return err
		}
		if err := config.WriteFile(path, f); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Set %s in %s\n", key, path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configGetCmd, configSetCmd)
}
