// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/manylinux-go/rcpr/pkg/core"
	"github.com/manylinux-go/rcpr/pkg/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	verbosity int
	debug     bool
	config    *core.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "rcpr",
	Short: "Relocatable CPython Runtime extractor",
	Long: `rcpr - Relocatable CPython Runtime extractor

Extracts a tagged CPython build out of a Manylinux root filesystem and
rewrites its binaries with $ORIGIN-relative loader search paths, producing
a self-contained runtime that works from any install path.`,
	Version: "0.1.0",
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/rcpr/config.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase logging verbosity")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(extractCmd)
	rootCmd.AddCommand(tagsCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	if debug {
		config.Debug = true
	}
	if config.Debug && verbosity < 2 {
		verbosity = 2
	}
	logging.Setup(verbosity)
}
