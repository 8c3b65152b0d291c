// Command livid is a live-coding host for tabular data: it reads a CSV
// stream, compiles the user's C script on every save and shows the rows
// the script emits.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wippyai/livid/config"
)

func main() {
	os.Exit(execute())
}

func execute() int {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:   "livid [input]",
		Short: "Live C scripting over tabular data",
		Long: "livid reads delimited text from a file or stdin, generates a C script\n" +
			"declaring its columns and re-runs the script over the data every time\n" +
			"it is saved.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := config.New()
			if err := config.BindFlags(v, cmd.Flags()); err != nil {
				return err
			}
			if len(args) == 1 {
				v.Set("input", args[0])
			}
			cfg, err := config.Load(v, configFile)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.Flags()
	flags.StringP("delimiter", "t", ",", "Field delimiter (one character)")
	flags.StringP("workspace", "w", "", "Workspace directory (default: a new temporary directory)")
	flags.String("backend", "native", "Script backend (native, wasm)")
	flags.String("viewer", "auto", "Viewer (auto, vim, tui, none)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringVar(&configFile, "config", "", "Config file (default: ./livid.yaml if present)")

	return rootCmd
}
