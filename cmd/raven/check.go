package main

import (
	"fmt"
	"os"

	"github.com/cryguy/raven"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkWorker bool

var checkCmd = &cobra.Command{
	Use:   "check <script.js>",
	Short: "Load a script and report the bindings it imports",
	Long: `Check resolves a script's imports and evaluates it without serving or
awaiting it. Operator scripts run up to their first await.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return checkScript(args[0])
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkWorker, "worker", false, "check as a worker script with a default export")
}

func checkScript(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	host, err := raven.NewHost(hostOptions(viper.GetViper()))
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	defer host.Close()

	wrapper := raven.Operator
	if checkWorker {
		wrapper = raven.Worker
	}
	loaded, err := host.Load(string(source), wrapper)
	if err != nil {
		return err
	}
	fmt.Printf("%s: ok (%s)\n", path, loaded.Wrapper)
	for _, imp := range loaded.Imports {
		fmt.Printf("  %s from %q\n", imp.Local, imp.Module)
	}
	return nil
}
