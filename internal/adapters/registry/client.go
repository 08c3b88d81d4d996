// Package registry implements a crates.io version lookup client.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.trai.ch/wash/internal/build"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/singleflight"
)

var _ ports.Registry = (*Client)(nil)

// maxResponseSize bounds the crate metadata read from the registry.
const maxResponseSize = 8 << 20

// Client looks up crate versions over the crates.io HTTP API.
// Concurrent lookups of the same crate share one request.
type Client struct {
	http    *http.Client
	baseURL string
	timeout time.Duration
	agent   string
	group   singleflight.Group
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a Client for the registry API at baseURL.
// timeout bounds each lookup independently of the caller's context.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = domain.DefaultRegistryURL
	}
	if timeout <= 0 {
		timeout = domain.DefaultLookupTimeout
	}
	c := &Client{
		http:    http.DefaultClient,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		agent:   fmt.Sprintf("wash/%s (https://go.trai.ch/wash)", build.Version),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type crateResponse struct {
	Crate struct {
		MaxStableVersion string `json:"max_stable_version"`
		MaxVersion       string `json:"max_version"`
	} `json:"crate"`
}

// LatestVersion returns the newest stable version of the named crate, falling back
// to the newest version when the crate has no stable release.
func (c *Client) LatestVersion(ctx context.Context, name string) (string, error) {
	ch := c.group.DoChan(name, func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.fetch(lookupCtx, name)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", zerr.With(zerr.Wrap(ctx.Err(), domain.ErrLookupFailed.Error()), "crate", name)
	}
}

func (c *Client) fetch(ctx context.Context, name string) (string, error) {
	endpoint := c.baseURL + "/crates/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrLookupFailed.Error()), "crate", name)
	}
	req.Header.Set("User-Agent", c.agent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrLookupFailed.Error()), "crate", name)
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return "", zerr.With(zerr.Wrap(domain.ErrCrateNotFound, "lookup failed"), "crate", name)
	case resp.StatusCode != http.StatusOK:
		err := zerr.Wrap(domain.ErrLookupFailed, "unexpected registry response")
		return "", zerr.With(zerr.With(err, "crate", name), "status", resp.StatusCode)
	}

	var body crateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrLookupFailed.Error()), "crate", name)
	}

	latest := body.Crate.MaxStableVersion
	if latest == "" {
		latest = body.Crate.MaxVersion
	}
	if latest == "" {
		return "", zerr.With(zerr.Wrap(domain.ErrLookupFailed, "registry returned no version"), "crate", name)
	}
	return latest, nil
}
