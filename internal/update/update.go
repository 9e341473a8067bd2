// Package update checks GitHub for a newer newsdesk release.
package update

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

// DefaultReleasesURL is the latest-release endpoint for this repository.
const DefaultReleasesURL = "https://api.github.com/repos/VaIkyranna/SheSpeaksMainSite/releases/latest"

// Result holds the outcome of a version check.
type Result struct {
	LatestVersion string
}

type ghRelease struct {
	TagName string `json:"tag_name"`
}

// Check queries releasesURL and returns a Result only when the latest tag
// differs from currentVersion. A nil Result with a nil error means up to date.
func Check(ctx context.Context, client *web.Client, releasesURL, currentVersion string) (*Result, error) {
	if releasesURL == "" {
		releasesURL = DefaultReleasesURL
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	var release ghRelease
	if err := client.GetJSON(ctx, releasesURL, &release); err != nil {
		return nil, fmt.Errorf("checking latest release: %w", err)
	}

	latest := strings.TrimPrefix(release.TagName, "v")
	current := strings.TrimPrefix(currentVersion, "v")

	if latest == "" || latest == current {
		return nil, nil
	}
	return &Result{LatestVersion: latest}, nil
}
