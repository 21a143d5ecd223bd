package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"agentflow/internal/services"
)

var errInvalidWorkflow = errors.New("workflow is invalid")

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate -f <file>",
		Short: "Check a YAML or JSON workflow definition without a database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("file")
			asJSON, _ := cmd.Flags().GetBool("json")

			in, err := services.LoadDefinition(path)
			if err != nil {
				return err
			}
			report, err := services.CheckDefinition(in.Workflow())
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else if report.Valid {
				fmt.Fprintf(out, "%s: valid, order %s\n", path, strings.Join(report.Order, " -> "))
			} else {
				fmt.Fprintf(out, "%s: %d problem(s)\n", path, len(report.Violations))
				for _, v := range report.Violations {
					fmt.Fprintf(out, "  - %s\n", v)
				}
			}

			if !report.Valid {
				return errInvalidWorkflow
			}
			return nil
		},
	}
	cmd.Flags().StringP("file", "f", "", "Workflow definition file")
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
