package registry

import (
	"context"
	"fmt"
	"net/http"
)

// CratesClient fetches crate metadata from crates.io.
type CratesClient struct {
	BaseURL string
	Client  *http.Client
}

// NewCratesClient creates a client against the public crates.io API.
func NewCratesClient() *CratesClient {
	return &CratesClient{BaseURL: "https://crates.io", Client: newHTTPClient()}
}

type cratesResponse struct {
	Crate struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Repository  string `json:"repository"`
		Homepage    string `json:"homepage"`
	} `json:"crate"`
	Versions []struct {
		Num      string `json:"num"`
		Checksum string `json:"checksum"`
		License  string `json:"license"`
		Yanked   bool   `json:"yanked"`
	} `json:"versions"`
}

// Fetch implements Client.
func (c *CratesClient) Fetch(ctx context.Context, name, version string) (*Metadata, error) {
	var resp cratesResponse
	url := fmt.Sprintf("%s/api/v1/crates/%s", c.BaseURL, name)
	if err := getJSON(ctx, c.Client, url, &resp); err != nil {
		return nil, err
	}

	md := &Metadata{
		Name:        resp.Crate.Name,
		Version:     version,
		Description: resp.Crate.Description,
		Repository:  resp.Crate.Repository,
		Homepage:    resp.Crate.Homepage,
	}
	for _, v := range resp.Versions {
		if v.Num == version {
			md.Checksum = v.Checksum
			md.License = v.License
			break
		}
	}
	return md, nil
}
