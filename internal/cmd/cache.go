package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/twitchdesk/twitchdesk-desktop/internal/cache"
	"github.com/twitchdesk/twitchdesk-desktop/internal/output"
)

type cacheListing struct {
	Root    string        `json:"root" yaml:"root"`
	Entries []cache.Entry `json:"entries" yaml:"entries"`
}

func (l cacheListing) WriteText(w io.Writer) error {
	if len(l.Entries) == 0 {
		_, err := fmt.Fprintf(w, "No cached updates.\nCache directory: %s\n", l.Root)
		return err
	}

	_, _ = fmt.Fprintf(w, "Cached updates in %s:\n\n", l.Root)
	rows := make([][]string, 0, len(l.Entries))
	for _, e := range l.Entries {
		rows = append(rows, []string{e.Version, e.UpdatedAt.Format(time.DateTime), output.Size(e.Size)})
	}
	return output.Table(w, []string{"VERSION", "DOWNLOADED", "SIZE"}, rows)
}

type pruneReport struct {
	Deleted []cache.Entry `json:"deleted" yaml:"deleted"`
	Kept    int           `json:"kept" yaml:"kept"`
}

func (r pruneReport) WriteText(w io.Writer) error {
	if len(r.Deleted) == 0 {
		_, err := fmt.Fprintf(w, "Nothing to prune (%d cached version(s) kept).\n", r.Kept)
		return err
	}
	for _, e := range r.Deleted {
		_, _ = fmt.Fprintf(w, "✓ Deleted %s (%s)\n", e.Version, output.Size(e.Size))
	}
	_, err := fmt.Fprintf(w, "\nKept %d cached version(s).\n", r.Kept)
	return err
}

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage downloaded update bundles",
		Long: `Cache manages the per-user update cache.

Each downloaded release is stored in its own version directory. The helper
copy used to apply updates lives in the helper/ directory and is never
listed or pruned.`,
	}

	cmd.AddCommand(newCacheListCmd())
	cmd.AddCommand(newCachePruneCmd())

	return cmd
}

func newCacheListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List cached update bundles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := cache.NewManager()
			if err != nil {
				return err
			}
			entries, err := mgr.List()
			if err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			return w.Write(cacheListing{Root: mgr.Root(), Entries: entries})
		},
	}
}

func newCachePruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest cached versions",
		Long: `Prune deletes cached update bundles, keeping the newest versions.

The default comes from keep_versions in the updater config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("keep") {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				keep = cfg.KeepVersions
			}

			mgr, err := cache.NewManager()
			if err != nil {
				return err
			}
			result, err := mgr.Prune(keep)
			if err != nil {
				return err
			}

			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			return w.Write(pruneReport{Deleted: result.Deleted, Kept: result.Kept})
		},
	}

	cmd.Flags().IntVar(&keep, "keep", cache.DefaultKeepCount, "Number of newest versions to keep")

	return cmd
}
