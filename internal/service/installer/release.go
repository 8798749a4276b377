package installer

import (
	"context"
	"errors"
	"fmt"

	"github.com/oshokin/plutonium-manager/internal/logger"
)

// errNoReleaseAssets is returned when the latest release publishes no downloadable asset.
var errNoReleaseAssets = errors.New("release has no downloadable assets")

// release is the part of the releases API response the installer reads.
type release struct {
	TagName string         `json:"tag_name"`
	Assets  []releaseAsset `json:"assets"`
}

type releaseAsset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// latestReleaseAsset queries the releases API and returns the download link of the first asset.
func (i *Installer) latestReleaseAsset(ctx context.Context, apiURL string) (string, error) {
	var latest release
	if err := i.downloader.FetchJSON(ctx, apiURL, &latest); err != nil {
		return "", fmt.Errorf("query latest release: %w", err)
	}

	if len(latest.Assets) == 0 || latest.Assets[0].BrowserDownloadURL == "" {
		return "", fmt.Errorf("%s: %w", apiURL, errNoReleaseAssets)
	}

	asset := latest.Assets[0]
	logger.DebugKV(ctx, "Resolved latest release", "tag", latest.TagName, "asset", asset.Name)

	return asset.BrowserDownloadURL, nil
}
