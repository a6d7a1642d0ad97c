package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCompareCmd(opts *globalOptions) *cobra.Command {
	var export string

	cmd := &cobra.Command{
		Use:   "compare <entity-type>",
		Short: "compare one entity type between P6 and EBS",
		Long: `Fetch one entity type from both systems and list the discrepancies.
The result is kept on the server as a discrepancy set that can be resolved and
committed through the API, or exported as a workbook with --export.`,
		Example: `  $ p6ebsctl compare resource
  $ p6ebsctl compare project --export projects.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			set, err := c.Compare(ctx, args[0])
			if err != nil {
				return err
			}

			if export != "" {
				f, err := os.Create(export)
				if err != nil {
					return fmt.Errorf("create %s: %w", export, err)
				}
				if err := c.Export(ctx, set.ID, f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
			}

			return opts.render(cmd.OutOrStdout(), set, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "SET\t%s\n", set.ID)
				fmt.Fprintf(tw, "MISSING IN P6\t%d\n", set.Summary.MissingInP6)
				fmt.Fprintf(tw, "MISSING IN EBS\t%d\n", set.Summary.MissingInEBS)
				fmt.Fprintf(tw, "MISMATCHED\t%d\n", set.Summary.ValueMismatch)
				if export != "" {
					fmt.Fprintf(tw, "EXPORTED\t%s\n", export)
				}
				fmt.Fprintln(tw)
				fmt.Fprintln(tw, "ENTITY\tEBS ID\tNAME\tKIND\tFIELDS")
				for _, r := range set.Records {
					fields := ""
					for i, fd := range r.FieldDiscrepancies {
						if i > 0 {
							fields += ", "
						}
						fields += fd.FieldName
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.EntityID, r.EntityIDB, r.EntityName, r.DiscrepancyType, fields)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&export, "export", "x", "", "Write the reconciliation workbook to this file")
	return cmd
}

func newValidateCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <integration-type>",
		Short: "run the pre-sync validation checks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			rep, err := c.Validate(ctx, args[0])
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), rep, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "%d issues, %d blocking, %d warnings\n", rep.TotalIssues, rep.BlockingIssues, rep.Warnings)
				if len(rep.Issues) == 0 {
					return
				}
				fmt.Fprintln(tw, "SEVERITY\tENTITY\tISSUE\tDESCRIPTION")
				for _, issue := range rep.Issues {
					severity := "warn"
					if issue.Blocking {
						severity = "BLOCK"
					}
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", severity, issue.EntityType, issue.IssueType, issue.Description)
				}
			})
		},
	}
}

func newReportCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "generate and list reports",
	}

	summary := &cobra.Command{
		Use:   "summary",
		Short: "generate the integration summary report on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			info, err := c.GenerateSummary(ctx)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), info, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "generated %s\n", info.Path)
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "list reports on the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			reports, err := c.Reports(ctx)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), reports, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "NAME\tTYPE\tSIZE\tCREATED")
				for _, r := range reports {
					created := r.Created
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", r.Name, r.Type, r.Size, formatTime(&created))
				}
			})
		},
	}

	cmd.AddCommand(summary, list)
	return cmd
}
