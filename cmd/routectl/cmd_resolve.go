package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var flags struct {
		fixture    string
		wardID     int64
		categoryID int64
	}

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show who a report in a ward would be sent to",
		Args:  cobra.NoArgs,
	}
	format := addOutputFlag(cmd)

	f := cmd.Flags()
	f.StringVarP(&flags.fixture, "fixture", "f", "", "Path to the city fixture (required)")
	f.Int64Var(&flags.wardID, "ward", 0, "Ward ID of the report (required)")
	f.Int64Var(&flags.categoryID, "category", 0, "Category ID of the report (required)")
	_ = cmd.MarkFlagRequired("fixture")
	_ = cmd.MarkFlagRequired("ward")
	_ = cmd.MarkFlagRequired("category")

	cmd.RunE = func(cmd *cobra.Command, _ []string) error {
		if err := checkFormat(*format); err != nil {
			return err
		}
		fx, err := LoadFixture(flags.fixture)
		if err != nil {
			return err
		}
		rcpt, err := fx.Resolve(flags.wardID, flags.categoryID)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if *format != formatText {
			return writeStructured(out, *format, rcpt)
		}
		if rcpt.Empty() {
			fmt.Fprintln(out, "No recipients: the report would not be sent.")
			return nil
		}
		fmt.Fprintf(out, "To: %s\n", strings.Join(rcpt.To, ", "))
		if len(rcpt.CC) > 0 {
			fmt.Fprintf(out, "CC: %s\n", strings.Join(rcpt.CC, ", "))
		}
		return nil
	}
	return cmd
}
