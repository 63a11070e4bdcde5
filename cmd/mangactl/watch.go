package main

import (
	"fmt"
	"path/filepath"
	"time"

	"manga-library/internal/library"
	"manga-library/internal/monitor"

	"github.com/spf13/cobra"
)

func newWatchCmd(opts *options) *cobra.Command {
	var (
		pollInterval time.Duration
		forcePolling bool
	)

	cmd := &cobra.Command{
		Use:   "watch <root>",
		Short: "Index a root and print change events until interrupted",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			svc := library.New(library.Config{
				Root:         root,
				ManifestPath: opts.manifestPath,
				PollInterval: pollInterval,
				ForcePolling: forcePolling,
			})
			defer svc.Close()

			events, unsubscribe := svc.Subscribe()
			defer unsubscribe()

			ctx := cmd.Context()
			if err := svc.Start(ctx); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			stats := svc.GetStats()
			fmt.Fprintf(out, "Watching %s (%s): %d entries, %d chapters\n",
				root, svc.MonitorMode(), stats.Entries, stats.Chapters)

			for {
				select {
				case <-ctx.Done():
					return nil
				case ev, ok := <-events:
					if !ok {
						return nil
					}
					fmt.Fprintln(out, formatEvent(ev))
				}
			}
		},
	}

	cmd.Flags().DurationVar(&pollInterval, "poll-interval", monitor.DefaultPollInterval, "polling interval when native watching is unavailable")
	cmd.Flags().BoolVar(&forcePolling, "force-polling", false, "poll even if native watching works")
	return cmd
}

func formatEvent(ev monitor.ChangeEvent) string {
	ts := time.Now().Format("15:04:05")
	switch {
	case ev.Kind == monitor.Renamed && ev.OldPath != "":
		return fmt.Sprintf("%s %-8s %s -> %s", ts, ev.Kind, ev.OldPath, ev.FullPath)
	case ev.EntryPath != "" && ev.EntryPath != ev.FullPath:
		return fmt.Sprintf("%s %-8s %s (entry %s)", ts, ev.Kind, ev.FullPath, ev.EntryPath)
	default:
		return fmt.Sprintf("%s %-8s %s", ts, ev.Kind, ev.FullPath)
	}
}
