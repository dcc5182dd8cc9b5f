package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show per-queue job counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				stats, err := store.AllStats(cmd.Context())
				if err != nil {
					return err
				}
				views := api.FromAllStats(stats)
				if len(views) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No queues yet")
					return nil
				}

				rows := make([][]string, 0, len(views))
				for _, view := range views {
					rows = append(rows, []string{
						view.Queue,
						strconv.Itoa(view.Waiting),
						strconv.Itoa(view.Delayed),
						strconv.Itoa(view.Active),
						strconv.Itoa(view.Completed),
						strconv.Itoa(view.Failed),
						strconv.Itoa(view.Total),
						yesNo(view.Paused),
					})
				}
				out := renderTable(
					[]string{"Queue", "Waiting", "Delayed", "Active", "Completed", "Failed", "Total", "Paused"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), out)
				return nil
			})
		},
	}
}
