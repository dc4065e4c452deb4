package registry

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// PyPIClient fetches project metadata from the Python Package Index.
type PyPIClient struct {
	BaseURL string
	Client  *http.Client
}

// NewPyPIClient creates a client against the public PyPI JSON API.
func NewPyPIClient() *PyPIClient {
	return &PyPIClient{BaseURL: "https://pypi.org", Client: newHTTPClient()}
}

type pypiResponse struct {
	Info struct {
		Name        string            `json:"name"`
		Version     string            `json:"version"`
		Summary     string            `json:"summary"`
		License     string            `json:"license"`
		HomePage    string            `json:"home_page"`
		ProjectURLs map[string]string `json:"project_urls"`
	} `json:"info"`
	URLs []struct {
		PackageType string `json:"packagetype"`
		Digests     struct {
			SHA256 string `json:"sha256"`
		} `json:"digests"`
	} `json:"urls"`
}

// Fetch implements Client.
func (c *PyPIClient) Fetch(ctx context.Context, name, version string) (*Metadata, error) {
	var resp pypiResponse
	url := fmt.Sprintf("%s/pypi/%s/%s/json", c.BaseURL, name, version)
	if err := getJSON(ctx, c.Client, url, &resp); err != nil {
		return nil, err
	}

	md := &Metadata{
		Name:        resp.Info.Name,
		Version:     resp.Info.Version,
		Description: resp.Info.Summary,
		License:     resp.Info.License,
		Homepage:    resp.Info.HomePage,
		Repository:  repositoryURL(resp.Info.ProjectURLs, resp.Info.HomePage),
	}
	// Prefer the sdist digest; fall back to any upload.
	for _, u := range resp.URLs {
		if u.Digests.SHA256 == "" {
			continue
		}
		if md.Checksum == "" || u.PackageType == "sdist" {
			md.Checksum = u.Digests.SHA256
		}
	}
	return md, nil
}

// repositoryURL picks the best source-repository candidate from PyPI's
// free-form project_urls map.
func repositoryURL(urls map[string]string, homepage string) string {
	for _, key := range []string{"Source", "Source Code", "Repository", "Code", "GitHub"} {
		if u, ok := urls[key]; ok && u != "" {
			return u
		}
	}
	if strings.Contains(homepage, "github.com") {
		return homepage
	}
	return ""
}
