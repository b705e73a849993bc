package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/02loveslollipop/perftest-dashboard/services/tagsync/internal/models"
)

// maxPayloadBytes caps the catalogue body.
const maxPayloadBytes = 8 << 20

// ErrEmptyCatalog means the feed answered without any tags.
var ErrEmptyCatalog = errors.New("tag catalogue is empty")

// Client reads the tag catalogue feed.
type Client struct {
	http *http.Client
	url  string
}

// NewClient returns a Client for the catalogue at rawURL.
func NewClient(httpClient *http.Client, rawURL string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalogue url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid catalogue url %q: scheme must be http or https", rawURL)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{http: httpClient, url: u.String()}, nil
}

// FetchTags retrieves the catalogue. A payload without a source is labelled
// with the feed host. An empty tag list returns the payload and ErrEmptyCatalog.
func (c *Client) FetchTags(ctx context.Context) (models.CatalogResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return models.CatalogResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return models.CatalogResponse{}, fmt.Errorf("request tag catalogue: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.CatalogResponse{}, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var payload models.CatalogResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxPayloadBytes)).Decode(&payload); err != nil {
		return models.CatalogResponse{}, fmt.Errorf("decode payload: %w", err)
	}

	if payload.Source == "" {
		if u, err := url.Parse(c.url); err == nil {
			payload.Source = u.Host
		}
	}
	if len(payload.Tags) == 0 {
		return payload, ErrEmptyCatalog
	}
	return payload, nil
}
