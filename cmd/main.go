package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jkarvonen/mongotype/internal/cmd"
)

var (
	flagConfig    string
	flagOutput    string
	flagMaxDepth  int
	flagTargets   []string
	flagGoPackage string
	flagWatch     bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "mongotype [model-file-or-glob ...]",
		Short: "Generate typed MongoDB query declarations from model definitions",
		Long: `mongotype reads declarative MongoDB model definitions from YAML files,
enumerates every legal dotted field path through nested models, and emits
statically-typed query, update and projection declarations.

Sources may be given as arguments or in mongotype.yaml. The python target
writes a runtime .py file and a type-checker-only .pyi file side by side;
the go target writes typed path constants for the MongoDB Go driver.

Examples:
  mongotype schemas/*.yaml --output gen/mongo_types.py
  mongotype --config mongotype.yaml
  mongotype schemas/*.yaml --target python --target go --watch`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().StringVarP(&flagConfig, "config", "c", "", `config file (default "mongotype.yaml" if present)`)
	rootCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "base output path for generated files")
	rootCmd.Flags().IntVarP(&flagMaxDepth, "max-depth", "d", 0, "nested model recursion depth limit (default 8)")
	rootCmd.Flags().StringSliceVarP(&flagTargets, "target", "t", nil, "emission targets: python, go (default [python])")
	rootCmd.Flags().StringVar(&flagGoPackage, "go-package", "", "package name for the go target")
	rootCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "regenerate when model definition files change")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), err)
		os.Exit(1)
	}
}

func run(_ *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to determine working directory: %w", err)
	}

	s := cmd.Settings{
		WorkingDir: wd,
		ConfigFile: flagConfig,
		Sources:    args,
		Output:     flagOutput,
		MaxDepth:   flagMaxDepth,
		Targets:    flagTargets,
		GoPackage:  flagGoPackage,
	}

	if flagWatch {
		stop := make(chan struct{})
		sigs := make(chan os.Signal, 1)
		signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigs
			close(stop)
		}()

		return cmd.Watch(s, stop, func(report *cmd.Report, runErr error) {
			printReport(report)
			if runErr != nil {
				fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("error:"), runErr)
			}
		})
	}

	report, err := cmd.Run(s)
	printReport(report)
	return err
}

func printReport(r *cmd.Report) {
	if r == nil {
		return
	}

	for _, w := range r.Warnings {
		fmt.Fprintf(os.Stderr, "%s %s\n", color.YellowString("warning:"), w)
	}
	for _, f := range r.Skipped {
		fmt.Fprintf(os.Stderr, "%s %s: %s\n", color.RedString("skipped"), f.Model, f.Err)
	}

	if len(r.Models) == 0 {
		return
	}

	fmt.Printf("Generated %d model types:\n", len(r.Models))
	for _, m := range r.Models {
		fmt.Printf("  - %s\n", m)
	}
	fmt.Println()
	fmt.Println("Output written to:")
	for _, o := range r.Outputs {
		fmt.Printf("  %s\n", o)
	}
}
