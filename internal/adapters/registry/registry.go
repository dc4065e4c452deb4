// Package registry fetches package metadata from ecosystem registries. Each
// client normalizes registry-specific payloads into a common Metadata shape
// consumed by the fetch-package processor.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	bloomerrors "git.home.luguber.info/inful/seedbloom/internal/errors"
)

// Metadata is the normalized registry view of one package version.
type Metadata struct {
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description,omitempty"`
	License     string `json:"license,omitempty"`
	Repository  string `json:"repository,omitempty"` // discovered source URL, may be empty
	Homepage    string `json:"homepage,omitempty"`
	Checksum    string `json:"checksum,omitempty"` // registry content checksum, may be empty
}

// Client fetches metadata for one package version.
type Client interface {
	Fetch(ctx context.Context, name, version string) (*Metadata, error)
}

const requestTimeout = 30 * time.Second

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: requestTimeout}
}

// getJSON issues a GET and decodes the JSON body into out. Registry errors
// keep the upstream status for operator visibility.
func getJSON(ctx context.Context, client *http.Client, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return bloomerrors.Wrap(err, bloomerrors.CategoryRegistry, bloomerrors.SeverityError, "build registry request")
	}
	req.Header.Set("User-Agent", "seedbloom")

	resp, err := client.Do(req)
	if err != nil {
		return bloomerrors.WrapRetryable(err, bloomerrors.CategoryRegistry, bloomerrors.SeverityError, "registry request failed").
			WithContext("url", url)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return bloomerrors.New(bloomerrors.CategoryRegistry, bloomerrors.SeverityError,
			fmt.Sprintf("package not found: %s", url))
	case resp.StatusCode == http.StatusTooManyRequests:
		return bloomerrors.WrapRetryable(nil, bloomerrors.CategoryRegistry, bloomerrors.SeverityError,
			fmt.Sprintf("registry rate limited: %s", url))
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return bloomerrors.New(bloomerrors.CategoryRegistry, bloomerrors.SeverityError,
			fmt.Sprintf("registry returned %d: %s", resp.StatusCode, string(body))).
			WithContext("url", url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return bloomerrors.Wrap(err, bloomerrors.CategoryRegistry, bloomerrors.SeverityError, "decode registry response").
			WithContext("url", url)
	}
	return nil
}
