package update

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultAPIBaseURL is the release-hosting API root
	DefaultAPIBaseURL = "https://api.github.com"

	// UserAgent identifies the updater to the release feed
	UserAgent = "twitchdesk-desktop-updater"

	// DefaultRequestTimeout bounds a single feed request
	DefaultRequestTimeout = 25 * time.Second

	maxFeedResponseBytes = 10 << 20
)

// ReleaseClient fetches the latest release from a GitHub-style releases API
type ReleaseClient struct {
	owner   string
	repo    string
	client  *http.Client
	baseURL string // Base URL for the API (overridable for testing)
}

// NewReleaseClient creates a client for owner/repo
func NewReleaseClient(owner, repo string) *ReleaseClient {
	return &ReleaseClient{
		owner: owner,
		repo:  repo,
		client: &http.Client{
			Timeout: DefaultRequestTimeout,
		},
		baseURL: DefaultAPIBaseURL,
	}
}

// WithBaseURL points the client at a different API root
func (c *ReleaseClient) WithBaseURL(baseURL string) *ReleaseClient {
	if baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	return c
}

// WithTimeout sets the per-request timeout
func (c *ReleaseClient) WithTimeout(d time.Duration) *ReleaseClient {
	if d > 0 {
		c.client.Timeout = d
	}
	return c
}

// Repository returns "owner/repo"
func (c *ReleaseClient) Repository() string {
	return c.owner + "/" + c.repo
}

// Latest fetches the most recently published release. Every failure wraps
// ErrFeedUnavailable.
func (c *ReleaseClient) Latest(ctx context.Context) (*Release, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/releases/latest", c.baseURL, c.owner, c.repo)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}

	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFeedUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: release API returned status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var release Release
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxFeedResponseBytes)).Decode(&release); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %w", ErrFeedUnavailable, err)
	}

	if release.TagName == "" {
		return nil, fmt.Errorf("%w: release has no tag", ErrFeedUnavailable)
	}

	return &release, nil
}

// Checker compares the running build against the feed's latest release
type Checker struct {
	current    *Version
	feed       Feed
	platform   Platform
	bundlePath func(version, assetName string) string
}

// NewChecker creates a checker for the running build. An unparseable current
// version is a build defect and fails construction.
func NewChecker(currentVersion string, feed Feed, platform Platform, bundlePath func(version, assetName string) string) (*Checker, error) {
	current, err := ParseVersion(currentVersion)
	if err != nil {
		return nil, fmt.Errorf("running build version: %w", err)
	}
	if feed == nil {
		return nil, errors.New("release feed is required")
	}
	if bundlePath == nil {
		return nil, errors.New("bundle path resolver is required")
	}

	return &Checker{
		current:    current,
		feed:       feed,
		platform:   platform,
		bundlePath: bundlePath,
	}, nil
}

// Current returns the running build version
func (c *Checker) Current() *Version {
	return c.current
}

// AssetName returns the bundle name expected for this platform
func (c *Checker) AssetName() string {
	return c.platform.AssetName()
}

// Check runs one check cycle. Feed errors wrap ErrFeedUnavailable and an
// unparseable latest tag wraps ErrInvalidVersion; both mean "no update".
func (c *Checker) Check(ctx context.Context) (*Result, error) {
	release, err := c.feed.Latest(ctx)
	if err != nil {
		return nil, err
	}

	latest, err := ParseVersion(release.TagName)
	if err != nil {
		return nil, fmt.Errorf("latest release tag: %w", err)
	}

	assetName := c.platform.AssetName()
	result := &Result{
		CurrentVersion: c.current.String(),
		LatestVersion:  latest.String(),
		AssetName:      assetName,
	}

	if !latest.IsGreaterThan(c.current) {
		result.Message = fmt.Sprintf("no update available (running %s, latest %s)", result.CurrentVersion, result.LatestVersion)
		return result, nil
	}

	asset, ok := release.FindAsset(assetName)
	if !ok {
		result.Message = fmt.Sprintf("release %s has no bundle for this platform (%s)", result.LatestVersion, assetName)
		return result, nil
	}

	result.Available = true
	result.Plan = &Plan{
		Current:      c.current,
		Latest:       latest,
		AssetName:    assetName,
		DownloadURL:  asset.DownloadURL,
		DownloadPath: c.bundlePath(latest.String(), assetName),
	}
	result.Message = fmt.Sprintf("update available: %s -> %s", result.CurrentVersion, result.LatestVersion)

	return result, nil
}
