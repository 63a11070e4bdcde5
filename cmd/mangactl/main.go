package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"manga-library/internal/logging"
	"manga-library/internal/manifest"

	"github.com/spf13/cobra"
)

type options struct {
	manifestPath string
	logLevel     string
	json         bool
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func defaultManifestPath() string {
	if dir := os.Getenv("DATA_DIR"); dir != "" {
		return filepath.Join(dir, manifest.DefaultFileName)
	}
	return manifest.DefaultFileName
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "mangactl",
		Short:         "Inspect a local manga library",
		Long:          "Index a manga library folder, browse its chapters and pages, and watch it for changes.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if opts.logLevel == "" {
				return nil
			}
			level, ok := logging.ParseLevel(opts.logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", opts.logLevel)
			}
			logging.SetLevel(level)
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&opts.manifestPath, "manifest", defaultManifestPath(), "manifest file caching chapter counts")
	flags.StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error (default from LOG_LEVEL)")
	flags.BoolVar(&opts.json, "json", false, "print JSON instead of tables")

	root.AddCommand(
		newIndexCmd(opts),
		newPruneCmd(opts),
		newChaptersCmd(opts),
		newPagesCmd(opts),
		newPageCmd(),
		newWatchCmd(opts),
	)
	return root
}
