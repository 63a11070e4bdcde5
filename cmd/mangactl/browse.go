package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"manga-library/internal/indexer"
	"manga-library/internal/library"
	"manga-library/internal/manifest"

	"github.com/spf13/cobra"
)

func newChaptersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "chapters <entry-dir>",
		Short: "List the chapters of an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}

			idx := indexer.New(manifest.Load(opts.manifestPath), indexer.Options{})
			chapters, err := idx.Chapters(cmd.Context(), dir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, chapters)
			}
			rows := make([][]string, 0, len(chapters))
			for _, c := range chapters {
				rows = append(rows, []string{strconv.Itoa(c.Number), c.Title, c.URL})
			}
			fmt.Fprintln(out, renderTable([]string{"#", "Chapter", "URL"}, rows))
			return nil
		},
	}
}

func newPagesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pages <chapter-url>",
		Short: "List the page image URLs of a chapter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx := indexer.New(manifest.New(opts.manifestPath), indexer.Options{})
			images, err := idx.ChapterImages(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.json {
				return writeJSON(out, images)
			}
			for _, img := range images {
				fmt.Fprintln(out, img.ImageURL)
			}
			return nil
		},
	}
}

func newPageCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "page <image-url>",
		Short: "Write one page image to stdout or a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := library.OpenPage(args[0])
			if err != nil {
				return err
			}
			defer page.Close()

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			n, err := io.Copy(w, page)
			if err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d bytes (%s) to %s\n", n, page.MimeType, output)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the page here instead of stdout")
	return cmd
}
