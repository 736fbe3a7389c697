// Command irlink merges multiple IR modules into a single output module.
//
//	irlink a.irb b.irb -o linked.irb
//	irlink main.irb --override patched.irb -S -o -
//	irlink main.irb --summary-index index.yaml --import helper:lib.irb
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/irlink/irlink/driver"
)

var cfg = driver.DefaultConfig()

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "irlink <input>... [flags]",
	Short: "Merge IR modules into one",
	Long: `irlink links the listed IR modules, in order, into a single module.

Inputs may be textual (.irt) or binary (.irb); the format is detected
from the content. Sources given with --override replace definitions
already linked in regardless of linkage. With a summary index, single
functions can be pulled out of peer modules via --import.`,
	Args:          cobra.MinimumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			l, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			driver.SetLogger(l)
			defer l.Sync()
		}
		cfg.Inputs = args
		return driver.New(cfg).Run(context.Background())
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringArrayVar(&cfg.Overrides, "override", nil, "module whose definitions override previously linked ones (repeatable)")
	f.StringArrayVar(&cfg.Imports, "import", nil, "function:source pair to import selectively (repeatable)")
	f.StringVar(&cfg.SummaryURL, "summary-index", "", "module summary index enabling --import and linkage promotion")
	f.StringVarP(&cfg.Output, "output", "o", cfg.Output, "output location, - for stdout")
	f.BoolVarP(&cfg.Textual, "textual", "S", false, "write output in textual form")
	f.BoolVarP(&cfg.Force, "force", "f", false, "write binary output even if stdout is a terminal")
	f.BoolVar(&cfg.Internalize, "internalize", false, "demote linked symbols to internal linkage")
	f.BoolVar(&cfg.OnlyNeeded, "only-needed", false, "link only symbols needed by the destination")
	f.BoolVar(&cfg.DisableLazyLoad, "disable-lazy-loading", false, "fully materialize modules at load time")
	f.BoolVar(&cfg.DisableTypeUniquing, "disable-type-uniquing", false, "disable merge-time structure uniquing, verifying each input up front instead")
	f.BoolVar(&cfg.SuppressWarnings, "suppress-warnings", false, "drop warning diagnostics")
	f.BoolVar(&cfg.PreserveTextOrder, "preserve-text-order", false, "keep definition order in textual output")
	f.BoolVar(&cfg.PreserveBinaryOrder, "preserve-binary-order", cfg.PreserveBinaryOrder, "keep definition order in binary output")
	f.BoolVarP(&cfg.DumpAfterLink, "dump", "d", false, "print the linked module to stderr before verification")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		// Run failures are already fully reported on stderr.
		if !errors.Is(err, driver.ErrFailed) {
			fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		}
		os.Exit(1)
	}
}
