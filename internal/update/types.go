package update

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrFeedUnavailable marks any failure to obtain release information.
	// Callers treat it as "no update available".
	ErrFeedUnavailable = errors.New("release feed unavailable")

	// ErrInvalidVersion marks a version string that does not parse.
	ErrInvalidVersion = errors.New("invalid version")
)

// Release describes the latest published release
type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Asset is one downloadable artifact of a release
type Asset struct {
	Name        string `json:"name"`
	DownloadURL string `json:"browser_download_url"`
}

// FindAsset returns the first asset whose name equals name exactly
func (r *Release) FindAsset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}

// Plan is built only when the feed's latest version is strictly newer than the
// running build and a matching asset exists. It is consumed by the downloader.
type Plan struct {
	Current      *Version `json:"current_version" yaml:"current_version"`
	Latest       *Version `json:"latest_version" yaml:"latest_version"`
	AssetName    string   `json:"asset_name" yaml:"asset_name"`
	DownloadURL  string   `json:"download_url" yaml:"download_url"`
	DownloadPath string   `json:"download_path" yaml:"download_path"`
}

// Result is the outcome of one check cycle
type Result struct {
	Available      bool   `json:"available" yaml:"available"`
	CurrentVersion string `json:"current_version" yaml:"current_version"`
	LatestVersion  string `json:"latest_version,omitempty" yaml:"latest_version,omitempty"`
	AssetName      string `json:"asset_name" yaml:"asset_name"`
	Plan           *Plan  `json:"plan,omitempty" yaml:"plan,omitempty"`
	Message        string `json:"message" yaml:"message"`
}

// String returns the human-readable status line
func (r *Result) String() string {
	if r.Message != "" {
		return r.Message
	}
	if r.Available {
		return fmt.Sprintf("update available: %s -> %s", r.CurrentVersion, r.LatestVersion)
	}
	return "no update available"
}

// Feed fetches the latest release
type Feed interface {
	Latest(ctx context.Context) (*Release, error)
}

// UpdateChecker runs one check cycle
type UpdateChecker interface {
	Check(ctx context.Context) (*Result, error)
}

// Downloader streams a bundle to a local path
type Downloader interface {
	Download(ctx context.Context, url, dst string) error
}
