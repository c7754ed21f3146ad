// Package release finds, downloads and unpacks node_exporter release
// artifacts from the GitHub releases API.
package release

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
)

const (
	acceptHeader = "application/vnd.github+json"
	userAgent    = "nxsetup"
)

type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
}

type Release struct {
	TagName string  `json:"tag_name"`
	Assets  []Asset `json:"assets"`
}

// Options configures a Client. Zero durations fall back to defaults.
type Options struct {
	URL             string
	Token           string // optional GitHub token, sent as a bearer token
	HTTPTimeout     time.Duration
	RetryMaxElapsed time.Duration
	InitialInterval time.Duration
}

type Client struct {
	http            *http.Client
	httpTimeout     time.Duration
	url             string
	token           string
	retryMaxElapsed time.Duration
	initialInterval time.Duration
	log             *logrus.Entry
}

func NewClient(opts Options, log *logrus.Entry) *Client {
	if opts.HTTPTimeout <= 0 {
		opts.HTTPTimeout = 30 * time.Second
	}
	if opts.RetryMaxElapsed <= 0 {
		opts.RetryMaxElapsed = 2 * time.Minute
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = 500 * time.Millisecond
	}
	// HTTPTimeout bounds the wait for response headers only. Metadata reads
	// get a per-attempt deadline in Latest; artifact bodies are bounded by
	// the caller's context.
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = opts.HTTPTimeout

	return &Client{
		http:            &http.Client{Transport: transport},
		httpTimeout:     opts.HTTPTimeout,
		url:             opts.URL,
		token:           strings.TrimSpace(opts.Token),
		retryMaxElapsed: opts.RetryMaxElapsed,
		initialInterval: opts.InitialInterval,
		log:             log,
	}
}

// Latest fetches the metadata of the most recent published release.
func (c *Client) Latest(ctx context.Context) (*Release, error) {
	var rel Release
	operation := func() error {
		actx, cancel := context.WithTimeout(ctx, c.httpTimeout)
		defer cancel()

		resp, err := c.get(ctx, actx, c.url, acceptHeader)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		rel = Release{}
		if err := json.NewDecoder(resp.Body).Decode(&rel); err != nil {
			if actx.Err() != nil && ctx.Err() == nil {
				return fmt.Errorf("read release metadata: %w", err)
			}
			return backoff.Permanent(fmt.Errorf("decode release metadata: %w", err))
		}
		return nil
	}

	if err := c.retry(ctx, "release lookup", operation); err != nil {
		return nil, err
	}
	if strings.TrimSpace(rel.TagName) == "" {
		return nil, errors.New("release metadata is missing tag_name")
	}
	return &rel, nil
}

// Download streams url into dest, replacing it on every attempt. Only ctx
// limits how long the body may take.
func (c *Client) Download(ctx context.Context, url, dest string) error {
	operation := func() error {
		resp, err := c.get(ctx, ctx, url, "application/octet-stream")
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		f, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("create %s: %w", dest, err))
		}
		if _, err := io.Copy(f, resp.Body); err != nil {
			f.Close()
			if ctx.Err() != nil {
				return backoff.Permanent(fmt.Errorf("download %s: %w", url, err))
			}
			return fmt.Errorf("download %s: %w", url, err)
		}
		return f.Close()
	}

	return c.retry(ctx, "download", operation)
}

// get performs one request under reqCtx. Transport errors, header timeouts
// and 5xx/429 are retryable; cancellation of ctx and other statuses are
// permanent.
func (c *Client) get(ctx, reqCtx context.Context, url, accept string) (*http.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, backoff.Permanent(err)
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", accept)
	req.Header.Set("User-Agent", userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, backoff.Permanent(err)
		}
		return nil, fmt.Errorf("request %s: %w", url, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
	statusErr := fmt.Errorf("GET %s: status=%d body=%s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return nil, statusErr
	}
	return nil, backoff.Permanent(statusErr)
}

func (c *Client) retry(ctx context.Context, name string, operation backoff.Operation) error {
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = c.initialInterval
	expBackoff.MaxElapsedTime = c.retryMaxElapsed

	return backoff.RetryNotify(
		operation,
		backoff.WithContext(expBackoff, ctx),
		func(err error, d time.Duration) {
			if c.log != nil {
				c.log.WithError(err).Warnf("%s failed, retrying in %.2f seconds", name, d.Seconds())
			}
		},
	)
}
