package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/cryguy/raven/internal/imports"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List importable modules and their methods",
	RunE: func(cmd *cobra.Command, args []string) error {
		return listModules()
	},
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func listModules() error {
	catalog := imports.NewCatalog(hostOptions(viper.GetViper()).Catalog)
	described, err := catalog.Describe()
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(described))
	for p := range described {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tBINDING\tMETHOD\tKIND")
	for _, p := range paths {
		for _, b := range described[p] {
			for _, m := range b.Methods() {
				kind := "sync"
				if m.Async {
					kind = "async"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p, b.Name(), m.Name, kind)
			}
		}
	}
	return w.Flush()
}
