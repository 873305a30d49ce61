// Command fetchclimate queries the FetchClimate service for climate
// parameters over points, areas, grids and time series, caching every
// answer on disk. The serve subcommand exposes the same queries over HTTP.
//
// Usage:
//
//	fetchclimate fetch FC_TEMPERATURE --lat 47.6 --lon -122.3
//	fetchclimate grid FC_PRECIPITATION --lat-min 40 --lat-max 45 --lon-min -100 --lon-max -95 --d-lat 1 --d-lon 1
//	fetchclimate series yearly FC_TEMPERATURE --lat 47.6 --lon -122.3 --step 10
//	fetchclimate serve
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	envFile string
	publish bool
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "fetchclimate",
		Short:        "Fetch climate data from the FetchClimate service",
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.output != outputTable && opts.output != outputJSON {
				return fmt.Errorf("unknown --output %q (want %s or %s)", opts.output, outputTable, outputJSON)
			}
			return loadEnvFile(opts.envFile)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", ".env", "load environment variables from this file if it exists")
	flags.BoolVar(&opts.publish, "publish", false, "publish each result to KAFKA_RESULTS_TOPIC")
	flags.StringVarP(&opts.output, "output", "o", outputTable, "output format: table or json")

	root.AddCommand(
		newFetchCmd(opts),
		newGridCmd(opts),
		newSeriesCmd(opts),
		newCacheCmd(opts),
		newParamsCmd(opts),
		newServeCmd(opts),
	)
	return root
}

// loadEnvFile loads path into the environment without overriding variables
// that are already set. A missing file is not an error.
func loadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}
