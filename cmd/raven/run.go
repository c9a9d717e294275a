package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/cryguy/raven"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var rawOutput bool

var runCmd = &cobra.Command{
	Use:   "run <script.js>",
	Short: "Run an operator script once and print its result",
	Long: `Run loads the script as an operator: its body runs as an async function,
so top-level await is allowed, and the returned value is printed as JSON.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runScript(args[0])
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&rawOutput, "raw", false, "print the result as plain text instead of JSON")
}

func runScript(path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}
	host, err := raven.NewHost(hostOptions(viper.GetViper()))
	if err != nil {
		return fmt.Errorf("creating host: %w", err)
	}
	defer host.Close()

	res, err := host.Run(string(source))
	if res != nil {
		for _, entry := range res.Logs {
			zap.L().Debug("console", zap.String("level", entry.Level), zap.String("message", entry.Message))
		}
	}
	if err != nil {
		return err
	}
	zap.L().Debug("script finished", zap.Duration("duration", res.Duration))

	if rawOutput {
		fmt.Println(res.Value.String())
		return nil
	}
	out, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
