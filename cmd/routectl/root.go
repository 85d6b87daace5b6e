// routectl inspects and maintains city email routing.
//
// Usage:
//
//	routectl resolve  -f city.yaml --ward 3 [--category 10] [-o text|json|yaml]
//	routectl describe -f city.yaml [--ward 3] [-o text|json|yaml]
//	routectl migrate
//
// resolve and describe work offline against a YAML city fixture, so a city's
// rules can be reviewed before they are loaded. migrate applies the embedded
// database migrations using the same configuration as the API.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"fixmystreet/internal/config"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "routectl",
		Short:         "Inspect FixMyStreet email routing rules",
		Version:       config.NewBuildInfo().String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.AddCommand(newResolveCmd(), newDescribeCmd(), newMigrateCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// addOutputFlag registers -o on cmd and returns the bound value.
func addOutputFlag(cmd *cobra.Command) *string {
	var format string
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "Output format: text, json or yaml")
	return &format
}

// writeStructured encodes v as JSON or YAML.
func writeStructured(w io.Writer, format string, v any) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown output format %q", format)
}

func checkFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	}
	return fmt.Errorf("unknown output format %q (want text, json or yaml)", format)
}
