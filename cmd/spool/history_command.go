package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"spool/internal/ledger"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show recorded runs, or per-file outcomes for one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := ledger.Open(cfg)
			if err != nil {
				return fmt.Errorf("open run history: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				outcomes, err := store.RunOutcomes(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(outcomes) == 0 {
					fmt.Fprintf(out, "No outcomes recorded for run %s\n", args[0])
					return nil
				}
				rows := make([][]string, 0, len(outcomes))
				for _, outcome := range outcomes {
					rows = append(rows, []string{
						outcome.Status,
						outcome.Source,
						outcome.Target,
						outcome.Detail,
					})
				}
				fmt.Fprintln(out, renderTable([]string{"Status", "Source", "Target", "Detail"}, rows, nil))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				finished := "running"
				if run.FinishedAt != nil {
					finished = run.FinishedAt.Local().Format("2006-01-02 15:04:05")
				}
				rows = append(rows, []string{
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					finished,
					run.Root,
					yesNo(run.DryRun),
					strconv.Itoa(run.Summary.OK),
					strconv.Itoa(run.Summary.Skip),
					strconv.Itoa(run.Summary.Manual),
					strconv.Itoa(run.Summary.Fail),
				})
			}
			aligns := []columnAlignment{
				alignLeft, alignLeft, alignLeft, alignLeft, alignLeft,
				alignRight, alignRight, alignRight, alignRight,
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Finished", "Root", "Dry", "OK", "Skip", "Manual", "Fail"},
				rows, aligns))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to list")
	return cmd
}
