package release

import (
	"errors"
	"fmt"
	"strings"
)

const (
	archiveSuffix = ".tar.gz"
	ChecksumAsset = "sha256sums.txt"
)

var ErrNoMatchingAsset = errors.New("no matching release asset")

// SelectAsset returns the first tarball whose name contains tag.
func SelectAsset(rel *Release, tag string) (Asset, error) {
	for _, a := range rel.Assets {
		if strings.Contains(a.Name, tag) && strings.HasSuffix(a.Name, archiveSuffix) && a.BrowserDownloadURL != "" {
			return a, nil
		}
	}
	return Asset{}, fmt.Errorf("%w: release %s has no %s%s asset", ErrNoMatchingAsset, rel.TagName, tag, archiveSuffix)
}

func findAsset(rel *Release, name string) (Asset, bool) {
	for _, a := range rel.Assets {
		if a.Name == name {
			return a, true
		}
	}
	return Asset{}, false
}
