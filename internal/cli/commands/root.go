package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tpcgrp/p6ebs-sync/internal/cli/client"
)

const version = "0.1.0"

const (
	outputTable = "table"
	outputJSON  = "json"
)

type globalOptions struct {
	server  string
	output  string
	timeout time.Duration
}

// NewRootCmd builds the p6ebsctl command tree
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:     "p6ebsctl",
		Short:   "P6-EBS sync CLI",
		Version: version,
		Long: `A command-line tool for operating the P6-EBS sync service: trigger and cancel
integration runs, manage schedules, inspect history and compare entities
between Primavera P6 and Oracle EBS.`,
		Example: `  # Run the timesheet integration and wait for the result
  $ p6ebsctl run timesheet --wait

  # Show schedules
  $ p6ebsctl schedules

  # Compare projects and save the reconciliation workbook
  $ p6ebsctl compare project --export projects.xlsx`,
		SilenceUsage: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true

	server := os.Getenv("P6EBS_SERVER")
	if server == "" {
		server = "http://localhost:8080"
	}
	root.PersistentFlags().StringVarP(&opts.server, "server", "s", server, "API server address (env P6EBS_SERVER)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", outputTable, "Output format: table or json")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Request timeout")

	root.AddCommand(
		newHealthCmd(opts),
		newRunCmd(opts),
		newCancelCmd(opts),
		newSchedulesCmd(opts),
		newScheduleCmd(opts),
		newHistoryCmd(opts),
		newCompareCmd(opts),
		newValidateCmd(opts),
		newReportCmd(opts),
	)
	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *globalOptions) client() (*client.APIClient, error) {
	if o.output != outputTable && o.output != outputJSON {
		return nil, fmt.Errorf("unknown output format %q", o.output)
	}
	return client.NewAPIClient(o.server, nil)
}

// render writes v as JSON, or calls table when the output format is table
func (o *globalOptions) render(w io.Writer, v interface{}, table func(tw *tabwriter.Writer)) error {
	if o.output == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	table(tw)
	return tw.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
