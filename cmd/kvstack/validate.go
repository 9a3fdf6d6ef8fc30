package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/klothoplatform/kvstack/pkg/infra/cloudformation"
	"github.com/lex00/cfn-lint-go/pkg/lint"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <template>",
		Short: "Lint a synthesized CloudFormation template",
		Args:  cobra.ExactArgs(1),
		RunE:  runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	result, err := cloudformation.Lint(args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	groups := []struct {
		level   string
		c       *color.Color
		matches []lint.Match
	}{
		{"error", color.New(color.FgRed), result.Errors},
		{"warning", color.New(color.FgYellow), result.Warnings},
		{"info", color.New(color.FgCyan), result.Informational},
	}
	for _, group := range groups {
		for _, m := range group.matches {
			group.c.Fprintf(out, "%-8s ", group.level) //nolint:errcheck
			fmt.Fprintln(out, cloudformation.FormatMatch(m))
		}
	}
	if !result.Passed() {
		return errors.Errorf("%s has %d lint errors", args[0], len(result.Errors))
	}
	_, err = fmt.Fprintf(out, "%s passed with %d findings\n", args[0], result.Total())
	return err
}
