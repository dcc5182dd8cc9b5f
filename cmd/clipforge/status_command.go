package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipforge/internal/api"
	"clipforge/internal/config"
	"clipforge/internal/deps"
	"clipforge/internal/queue"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon and queue status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)

			if status, err := fetchDaemonStatus(cfg); err == nil {
				fmt.Fprintln(out, renderStatusLine("Daemon", statusOK, fmt.Sprintf("running (pid %d)", status.PID), colorize))
				fmt.Fprintln(out, renderStatusLine("Queue DB", statusInfo, status.QueueDBPath, colorize))
				printQueueLines(out, status.Queues, colorize)
				for _, dep := range status.Dependencies {
					printDependencyLine(out, dep.Name, dep.Available, dep.Detail, colorize)
				}
				return nil
			}

			// Daemon unreachable: fall back to reading the queue database
			// directly so status still works offline.
			fmt.Fprintln(out, renderStatusLine("Daemon", statusWarn, "not reachable", colorize))
			for _, dep := range deps.Check(cfg) {
				printDependencyLine(out, dep.Name, dep.Available, dep.Detail, colorize)
			}
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				stats, err := store.AllStats(cmd.Context())
				if err != nil {
					return err
				}
				printQueueLines(out, api.FromAllStats(stats), colorize)
				return nil
			})
		},
	}
}

func fetchDaemonStatus(cfg *config.Config) (*api.DaemonStatus, error) {
	bind := strings.TrimSpace(cfg.APIBind)
	if bind == "" {
		return nil, fmt.Errorf("api disabled")
	}
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s/api/status", bind))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("daemon status: http %d", resp.StatusCode)
	}
	var status api.DaemonStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, err
	}
	return &status, nil
}

func printDependencyLine(out io.Writer, name string, available bool, detail string, colorize bool) {
	kind := statusOK
	message := "available"
	if !available {
		kind = statusError
		message = detail
	}
	fmt.Fprintln(out, renderStatusLine(name, kind, message, colorize))
}

func printQueueLines(out io.Writer, queues []api.QueueStatsView, colorize bool) {
	for _, view := range queues {
		kind := statusOK
		switch {
		case view.Paused:
			kind = statusWarn
		case view.Failed > 0:
			kind = statusError
		}
		message := fmt.Sprintf("%d waiting, %d active, %d failed", view.Waiting+view.Delayed, view.Active, view.Failed)
		if view.Paused {
			message += " (paused)"
		}
		fmt.Fprintln(out, renderStatusLine(view.Queue, kind, message, colorize))
	}
}
