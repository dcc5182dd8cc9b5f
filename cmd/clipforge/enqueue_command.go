package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"clipforge/internal/config"
	"clipforge/internal/queue"
)

func newEnqueueCommand(ctx *commandContext) *cobra.Command {
	var videoID string
	var userID string
	var priority int
	var delaySeconds int

	cmd := &cobra.Command{
		Use:   "enqueue <source>",
		Short: "Queue a video for processing",
		Long:  "Queue a video for processing. The source may be a local file path or an http(s) URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				payload, err := buildVideoPayload(args[0], videoID, userID)
				if err != nil {
					return err
				}

				job, err := store.Enqueue(cmd.Context(), queue.QueueVideoProcessing, queue.KindProcessVideo, payload,
					queue.EnqueueOptions{
						Priority: priority,
						Delay:    time.Duration(delaySeconds) * time.Second,
					})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued video %s as job %d\n", payload.VideoID, job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoID, "video-id", "", "Video identifier (generated when omitted)")
	cmd.Flags().StringVar(&userID, "user", "", "Owning user identifier")
	cmd.Flags().IntVar(&priority, "priority", 0, "Claim priority (higher first)")
	cmd.Flags().IntVar(&delaySeconds, "delay", 0, "Delay before the job becomes claimable, in seconds")
	return cmd
}

func newThumbnailCommand(ctx *commandContext) *cobra.Command {
	var videoID string

	cmd := &cobra.Command{
		Use:   "thumbnail <source>",
		Short: "Queue a standalone thumbnail job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				video := buildVideoPayloadID(videoID)
				payload := queue.GenerateThumbnailPayload{VideoID: video}
				if isRemoteSource(args[0]) {
					payload.SourceURL = args[0]
				} else {
					abs, err := resolveSourcePath(args[0])
					if err != nil {
						return err
					}
					payload.SourcePath = abs
				}

				job, err := store.Enqueue(cmd.Context(), queue.QueueThumbnailGeneration, queue.KindGenerateThumbnail,
					payload, queue.EnqueueOptions{})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued thumbnail for video %s as job %d\n", video, job.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&videoID, "video-id", "", "Video identifier (generated when omitted)")
	return cmd
}

func buildVideoPayload(source, videoID, userID string) (queue.ProcessVideoPayload, error) {
	payload := queue.ProcessVideoPayload{
		VideoID: buildVideoPayloadID(videoID),
		UserID:  strings.TrimSpace(userID),
	}
	if isRemoteSource(source) {
		payload.SourceURL = source
		return payload, nil
	}
	abs, err := resolveSourcePath(source)
	if err != nil {
		return queue.ProcessVideoPayload{}, err
	}
	payload.SourcePath = abs
	return payload, nil
}

func buildVideoPayloadID(videoID string) string {
	if trimmed := strings.TrimSpace(videoID); trimmed != "" {
		return trimmed
	}
	return uuid.NewString()
}

func isRemoteSource(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func resolveSourcePath(source string) (string, error) {
	abs, err := filepath.Abs(strings.TrimSpace(source))
	if err != nil {
		return "", fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat source file: %w", err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("source path %q is a directory", abs)
	}
	return abs, nil
}
