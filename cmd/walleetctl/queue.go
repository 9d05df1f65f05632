package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"walleet/internal/core"
	"walleet/internal/services"
)

func newQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and drain the offline receipt queue",
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List queued receipt images, oldest first",
		Args:  cobra.NoArgs,
		RunE: withEnv(func(cmd *cobra.Command, _ []string, e *env) error {
			imgs, err := e.replay.Pending(cmd.Context())
			if err != nil {
				return err
			}
			return writeQueue(cmd.OutOrStdout(), imgs)
		}),
	}

	discard := &cobra.Command{
		Use:     "discard ID",
		Aliases: []string{"rm"},
		Short:   "Drop a queued image without analyzing it",
		Args:    cobra.ExactArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			if err := e.replay.Discard(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "discarded %s\n", args[0])
			return nil
		}),
	}

	replay := &cobra.Command{
		Use:   "replay [ID]",
		Short: "Analyze queued images and record the expenses found",
		Long: `Analyze one queued image, or every queued image oldest first when no
ID is given. Expenses found are recorded without confirmation and the image
leaves the queue. The sweep stops at the first image that fails.`,
		Args: cobra.MaximumNArgs(1),
		RunE: withEnv(func(cmd *cobra.Command, args []string, e *env) error {
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				res, err := e.replay.Replay(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				writeReplayResult(out, res)
				return nil
			}
			results, err := e.replay.ReplayAll(cmd.Context())
			for _, res := range results {
				writeReplayResult(out, res)
			}
			if err != nil {
				return fmt.Errorf("replay stopped after %d image(s): %w", len(results), err)
			}
			if len(results) == 0 {
				fmt.Fprintln(out, "queue is empty")
			}
			return nil
		}),
	}

	cmd.AddCommand(ls, discard, replay)
	return cmd
}

func writeQueue(w io.Writer, imgs []core.QueuedImage) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tQUEUED\tTYPE\tBYTES")
	for _, img := range imgs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", img.ID, img.CreatedAt.Local().Format(time.DateTime), img.MimeType, len(img.ImageData))
	}
	return tw.Flush()
}

func writeReplayResult(w io.Writer, res services.ReplayResult) {
	fmt.Fprintf(w, "%s: %d expense(s) recorded", res.ImageID, len(res.Added))
	if res.Skipped > 0 {
		fmt.Fprintf(w, ", %d skipped", res.Skipped)
	}
	fmt.Fprintln(w)
}
