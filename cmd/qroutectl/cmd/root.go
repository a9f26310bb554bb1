// Package cmd provides the qroutectl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"qroute/internal/buildinfo"
	"qroute/internal/config"
)

var (
	cfgFile      string
	verbose      bool
	outputFormat string
)

var rootCmd = &cobra.Command{
	Use:   "qroutectl",
	Short: "Solve bounded-hop transit paths offline",
	Long: `qroutectl runs the path pipeline without the HTTP service.

Examples:
  qroutectl solve problem.yaml
  qroutectl path --from 40.70,-74.00 --to 40.75,-73.98 --hops 5
  qroutectl grid --config qroute.yaml`,
	SilenceUsage: true,
}

// Execute runs the CLI
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $"+config.EnvConfigPath+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "text", "output format (text, json)")

	rootCmd.AddCommand(solveCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(gridCmd)
	rootCmd.AddCommand(versionCmd)

	logrus.SetOutput(os.Stderr)
}

// loadConfig reads --config, falling back to the environment variable.
func loadConfig() (config.Config, error) {
	path := cfgFile
	if path == "" {
		path = os.Getenv(config.EnvConfigPath)
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if verbose {
		cfg.Log.Level = "debug"
	}
	return cfg, cfg.Log.Apply()
}

// emit writes v as indented JSON, or calls text for the text format.
func emit(w io.Writer, v any, text func(io.Writer)) error {
	switch outputFormat {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "text", "":
		text(w)
		return nil
	default:
		return fmt.Errorf("unknown format: %s", outputFormat)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), buildinfo.Get())
	},
}
