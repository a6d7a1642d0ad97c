package commands

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tpcgrp/p6ebs-sync/internal/api"
)

func newHealthCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "check the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			health, err := c.Health(ctx)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), health, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "STATUS\t%s\n", health.Status)
				fmt.Fprintf(tw, "ACTIVE\t%v\n", health.ActiveIntegrations)
			})
		},
	}
}

func newRunCmd(opts *globalOptions) *cobra.Command {
	var (
		wait     bool
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "run <integration-type>",
		Short: "start an integration run",
		Long: `Start a sync session for one integration type in the background.
With --wait the command polls until the session finishes and prints its result.`,
		Example: `  $ p6ebsctl run projectFinancials
  $ p6ebsctl run timesheet --wait`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			run, err := c.Run(ctx, args[0])
			if err != nil {
				return err
			}
			if wait {
				if run, err = c.WaitRun(ctx, run.ID, interval); err != nil {
					return err
				}
			}
			return opts.render(cmd.OutOrStdout(), run, func(tw *tabwriter.Writer) {
				printRun(tw, run)
			})
		},
	}
	cmd.Flags().BoolVarP(&wait, "wait", "w", false, "Wait for the run to finish")
	cmd.Flags().DurationVar(&interval, "poll", time.Second, "Polling interval with --wait")
	return cmd
}

func printRun(tw *tabwriter.Writer, run *api.RunResponse) {
	fmt.Fprintf(tw, "RUN\t%s\n", run.ID)
	fmt.Fprintf(tw, "TYPE\t%s\n", run.IntegrationType)
	fmt.Fprintf(tw, "STARTED\t%s\n", formatTime(&run.StartedAt))
	if !run.Finished || run.Result == nil {
		fmt.Fprintf(tw, "STATUS\trunning\n")
		return
	}
	r := run.Result
	fmt.Fprintf(tw, "STATUS\t%s\n", r.Status)
	fmt.Fprintf(tw, "ENTITIES\t%d\n", r.TotalEntities)
	fmt.Fprintf(tw, "UPDATED\t%d\n", r.UpdatedEntities)
	fmt.Fprintf(tw, "FAILED\t%d\n", r.FailedEntities)
	fmt.Fprintf(tw, "SKIPPED\t%d\n", r.SkippedRecords)
	fmt.Fprintf(tw, "DISCREPANCIES\tmissing in P6 %d, missing in EBS %d, mismatched %d\n",
		r.Discrepancies.MissingInP6, r.Discrepancies.MissingInEBS, r.Discrepancies.ValueMismatch)
	if r.Error != "" {
		fmt.Fprintf(tw, "ERROR\t%s\n", r.Error)
	}
}

func newCancelCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <integration-type>",
		Short: "cancel a running session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if err := c.Cancel(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "cancellation requested for %s\n", args[0])
			return nil
		},
	}
}

func newSchedulesCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "schedules",
		Short: "list integration schedules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			schedules, err := c.Schedules(ctx)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), schedules, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "TYPE\tINTERVAL\tACTIVE\tLAST RUN\tNEXT RUN\tLAST ERROR")
				for _, s := range schedules {
					fmt.Fprintf(tw, "%s\t%gh\t%t\t%s\t%s\t%s\n", s.IntegrationType, s.IntervalHours, s.Active,
						formatTime(s.LastRun), formatTime(s.NextRun), s.LastError)
				}
			})
		},
	}
}

func newScheduleCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "change or remove a schedule",
	}

	var hours int
	set := &cobra.Command{
		Use:     "set <integration-type>",
		Short:   "set the interval of an integration type",
		Example: `  $ p6ebsctl schedule set timesheet --hours 4`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if hours <= 0 {
				return fmt.Errorf("--hours must be positive")
			}
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			info, err := c.SetSchedule(ctx, args[0], hours)
			if err != nil {
				return err
			}
			return opts.render(cmd.OutOrStdout(), info, func(tw *tabwriter.Writer) {
				fmt.Fprintf(tw, "%s scheduled every %gh\n", info.IntegrationType, info.IntervalHours)
			})
		},
	}
	set.Flags().IntVar(&hours, "hours", 0, "Interval in hours")
	_ = set.MarkFlagRequired("hours")

	remove := &cobra.Command{
		Use:   "delete <integration-type>",
		Short: "stop scheduling an integration type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			if err := c.DeleteSchedule(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schedule for %s removed\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(set, remove)
	return cmd
}

func newHistoryCmd(opts *globalOptions) *cobra.Command {
	var (
		integrationType string
		limit           int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "show finished sessions, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			records, err := c.History(ctx, integrationType)
			if err != nil {
				return err
			}
			if limit > 0 && len(records) > limit {
				records = records[:limit]
			}
			return opts.render(cmd.OutOrStdout(), records, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "SESSION\tTYPE\tSTATUS\tSTARTED\tDURATION\tPROCESSED\tUPDATED\tFAILED\tERROR")
				for _, r := range records {
					start := r.StartTime
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%s\n", r.SessionID, r.SyncType, r.Status,
						formatTime(&start), r.Duration.Round(time.Second), r.EntitiesProcessed, r.EntitiesUpdated,
						r.EntitiesFailed, r.ErrorMessage)
				}
			})
		},
	}
	cmd.Flags().StringVarP(&integrationType, "type", "t", "", "Only this integration type")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum records to show, 0 for all")
	return cmd
}
