package release

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	ErrNoChecksum       = errors.New("release publishes no checksum for asset")
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// VerifyChecksum compares the SHA-256 of path against the release's
// sha256sums.txt entry for asset. It returns ErrNoChecksum when the release
// has no checksum file or the file does not list the asset.
func (c *Client) VerifyChecksum(ctx context.Context, rel *Release, asset Asset, path string) error {
	sums, ok := findAsset(rel, ChecksumAsset)
	if !ok {
		return ErrNoChecksum
	}

	sumsPath := filepath.Join(filepath.Dir(path), ChecksumAsset)
	if err := c.Download(ctx, sums.BrowserDownloadURL, sumsPath); err != nil {
		return fmt.Errorf("download %s: %w", ChecksumAsset, err)
	}

	want, err := lookupChecksum(sumsPath, asset.Name)
	if err != nil {
		return err
	}
	got, err := fileSHA256(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(want, got) {
		return fmt.Errorf("%w: %s: want %s, got %s", ErrChecksumMismatch, asset.Name, want, got)
	}
	return nil
}

// lookupChecksum reads "<hex>  <name>" lines as produced by sha256sum.
func lookupChecksum(sumsPath, name string) (string, error) {
	f, err := os.Open(sumsPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) != 2 {
			continue
		}
		if strings.TrimPrefix(fields[1], "*") == name {
			return fields[0], nil
		}
	}
	if err := sc.Err(); err != nil {
		return "", err
	}
	return "", ErrNoChecksum
}

func fileSHA256(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
