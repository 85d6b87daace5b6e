package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDescribeCmd() *cobra.Command {
	var flags struct {
		fixture string
		wardID  int64
	}

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Summarize a city's rules, optionally for one ward",
		Args:  cobra.NoArgs,
	}
	format := addOutputFlag(cmd)

	f := cmd.Flags()
	f.StringVarP(&flags.fixture, "fixture", "f", "", "Path to the city fixture (required)")
	f.Int64Var(&flags.wardID, "ward", 0, "Resolve ward-dependent rules for this ward")
	_ = cmd.MarkFlagRequired("fixture")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(*format); err != nil {
			return err
		}
		fx, err := LoadFixture(flags.fixture)
		if err != nil {
			return err
		}
		descs, err := fx.Describe(flags.wardID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if *format != formatText {
			return writeStructured(out, *format, descs)
		}
		if len(descs) == 0 {
			fmt.Fprintf(out, "%s has no email routing configured.\n", fx.City.Name)
			return nil
		}
		for _, d := range descs {
			fmt.Fprintln(out, d.String())
		}
		return nil
	}
	return cmd
}
