package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/twitchdesk/twitchdesk-desktop/internal/update"
)

type versionInfo struct {
	Version string `json:"version" yaml:"version"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
	Go      string `json:"go" yaml:"go"`
	Asset   string `json:"asset" yaml:"asset"`
}

func (v versionInfo) WriteText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "twitchdesk version %s (commit %s, built %s, %s)\nrelease asset: %s\n",
		v.Version, v.Commit, v.Date, v.Go, v.Asset)
	return err
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display the running TwitchDesk version and the release asset name this
build looks for when updating.

Use 'twitchdesk update check' to ask the release feed for a newer version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w, err := newWriter(cmd)
			if err != nil {
				return err
			}
			return w.Write(versionInfo{
				Version: build.Version,
				Commit:  build.Commit,
				Date:    build.Date,
				Go:      runtime.Version(),
				Asset:   update.Detect().AssetName(),
			})
		},
	}
}
