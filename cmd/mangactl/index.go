package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"manga-library/internal/indexer"
	"manga-library/internal/manifest"

	"github.com/spf13/cobra"
)

func newIndexCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "index <root>",
		Short: "Index a library root and list its entries",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			store := manifest.Load(opts.manifestPath)
			idx := indexer.New(store, indexer.Options{})
			entries, err := idx.IndexRoot(cmd.Context(), root)
			if err != nil {
				return err
			}
			if err := store.SaveIfDirty(); err != nil {
				return fmt.Errorf("save manifest: %w", err)
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintf(out, "No entries under %s\n", root)
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.GroupKey,
					e.Title,
					strconv.Itoa(e.ChapterCount),
					e.LastModified.Local().Format("2006-01-02 15:04"),
				})
			}
			fmt.Fprintf(out, "%s (%d entries, %v)\n", root, len(entries), idx.LastIndexDuration().Round(1e6))
			fmt.Fprintln(out, renderTable([]string{"", "Title", "Chapters", "Modified"}, rows))
			return nil
		},
	}
}

func newPruneCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prune <root>",
		Short: "Drop manifest rows under root whose directories are gone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if _, err := os.Stat(opts.manifestPath); err != nil {
				return fmt.Errorf("manifest %s: %w", opts.manifestPath, err)
			}

			store := manifest.Load(opts.manifestPath)
			removed := store.Prune(root, nil)
			if err := store.SaveIfDirty(); err != nil {
				return fmt.Errorf("save manifest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d rows; %d remain\n", removed, store.Len())
			return nil
		},
	}
}
