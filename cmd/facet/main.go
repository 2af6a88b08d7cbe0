// Command facet explores reflected shapes and values: it prints shape trees, converts
// demo records between formats, lowers them through the component model ABI and browses
// them interactively.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/wippyai/go-facet/args"
	"github.com/wippyai/go-facet/poke"
	"github.com/wippyai/go-facet/shape"
	"github.com/wippyai/go-facet/wip"
	"github.com/wippyai/go-facet/witabi"
)

var (
	verbose bool
	noColor bool

	rootCmd = &cobra.Command{
		Use:           "facet",
		Short:         "Inspect reflected shapes and values",
		Long:          "facet prints shape trees, converts demo records between JSON, YAML and MessagePack, and browses values interactively.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return setupLogging(verbose)
		},
	}
)

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log construction and ABI steps to stderr")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(typesCmd, shapeCmd, convertCmd, inspectCmd, abiCmd, argsCmd, browseCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging(verbose bool) error {
	log := zap.NewNop()
	if verbose {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
	}
	shape.SetLogger(log.Named("shape"))
	poke.SetLogger(log.Named("poke"))
	wip.SetLogger(log.Named("wip"))
	witabi.SetLogger(log.Named("witabi"))
	args.SetLogger(log.Named("args"))
	return nil
}
