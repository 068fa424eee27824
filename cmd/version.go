package cmd

import (
	"encoding/json"
	"fmt"
	"runtime"
	"runtime/debug"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/derickschaefer/stockcast/internal/forecast"
	"github.com/derickschaefer/stockcast/internal/store"
)

// Version is overwritten at release time:
//
//	go build -ldflags "-X github.com/derickschaefer/stockcast/cmd.Version=v0.2.0"
var Version = "v0.1.0"

// versionInfo is what `stockcast version --format json` prints.
type versionInfo struct {
	Version       string `json:"version"`
	Commit        string `json:"commit,omitempty"`
	GoVersion     string `json:"go_version"`
	Platform      string `json:"platform"`
	ModelOrder    int    `json:"model_order"`
	SchemaVersion int    `json:"schema_version"`
}

func currentVersion() versionInfo {
	info := versionInfo{
		Version:       Version,
		GoVersion:     runtime.Version(),
		Platform:      runtime.GOOS + "/" + runtime.GOARCH,
		ModelOrder:    forecast.ModelOrder,
		SchemaVersion: store.SchemaVersion,
	}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			if s.Key == "vcs.revision" && len(s.Value) >= 12 {
				info.Commit = s.Value[:12]
			}
		}
	}
	return info
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version, model order and store schema",
	Long: `Print the stockcast release along with the autoregression order the
forecaster fits and the store schema version this build reads.`,
	Example: `  stockcast version
  stockcast version --format json | jq .schema_version`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := currentVersion()
		w := cmd.OutOrStdout()

		switch globalFlags.Format {
		case "json":
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		case "jsonl":
			b, err := json.Marshal(info)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(w, "%s\n", b)
			return err
		}

		rows := [][]string{
			{"stockcast", info.Version},
			{"go", info.GoVersion},
			{"platform", info.Platform},
			{"model", "AR(" + strconv.Itoa(info.ModelOrder) + ") burg"},
			{"schema", strconv.Itoa(info.SchemaVersion)},
		}
		if info.Commit != "" {
			rows = append(rows, []string{"commit", info.Commit})
		}
		for _, r := range rows {
			fmt.Fprintf(w, "%-10s %s\n", r[0], r[1])
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
