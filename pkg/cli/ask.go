package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/dashboard"
	"github.com/ekaya-inc/ekaya-dashboard/pkg/models"
)

// NewAskCmd creates the 'ask' command that runs one query and prints its result.
func NewAskCmd(version string) *cobra.Command {
	var jsonOutput bool
	var dashboardID string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Run a single query and print the result",
		Long: `Submit one natural-language query, wait for it to resolve and print the result.

With --dashboard the query is recorded in that dashboard's saved history.`,
		Example: `  ekaya-dashboard ask "Show sales breakdown"
  ekaya-dashboard ask --json "revenue over time"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), version)
			if err != nil {
				return err
			}
			defer a.close()

			queryCfg, err := queryServiceConfig(&a.cfg.Query)
			if err != nil {
				return err
			}
			opts := dashboard.Options{ID: dashboardID, Query: queryCfg}
			if dashboardID != "" {
				opts.History = a.historyRepository()
			}

			d, err := dashboard.New(cmd.Context(), opts, a.logger)
			if err != nil {
				return err
			}
			defer d.Close()

			return runAsk(cmd.Context(), d, args[0], jsonOutput, cmd.OutOrStdout())
		},
	}

	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	cmd.Flags().StringVarP(&dashboardID, "dashboard", "d", "", "Dashboard id whose saved history records the query")

	return cmd
}

func runAsk(ctx context.Context, d *dashboard.Dashboard, question string, jsonOutput bool, out io.Writer) error {
	sub, err := d.SubmitQuery(question)
	if err != nil {
		return err
	}

	result, err := sub.Wait(ctx)
	if err != nil {
		if errors.Is(err, apperrors.ErrQueryProcessing) {
			return errors.New(apperrors.QueryProcessingMessage)
		}
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}
	return printResult(out, result)
}

func printResult(out io.Writer, result *models.QueryResult) error {
	fmt.Fprintf(out, "%s (%s chart)\n%s\n\n", result.Title, result.ChartType, result.Description)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE")
	for _, p := range result.Data {
		fmt.Fprintf(tw, "%s\t%g\n", p.Name, p.Value)
	}
	return tw.Flush()
}
