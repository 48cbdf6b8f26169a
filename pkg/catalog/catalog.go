// Package catalog fetches the disc-golf reference data (brand names and
// mold names) used by the word categorizer. The fetch is fail-open: any
// error degrades to empty lists so categorization still runs, it just
// stops tagging brands and molds.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"
)

// Lists are the lowercased reference names as of call time. Fetched once
// per categorization pass, never cached across requests.
type Lists struct {
	Brands []string
	Discs  []string
}

// Fetcher is implemented by Client; handlers and the vision pipeline take
// the interface so tests can substitute fixed lists.
type Fetcher interface {
	Fetch(ctx context.Context) Lists
}

// Client reads the two catalog endpoints. The HTTP client carries a 5s
// timeout; expiry counts as a failed fetch and therefore empty lists.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 5 * time.Second},
	}
}

// record is the only part of a catalog row this service reads.
type record struct {
	Name string `json:"name"`
}

// Fetch retrieves brands and discs. Each list fails open independently: a
// broken endpoint logs and yields an empty slice, never an error.
func (c *Client) Fetch(ctx context.Context) Lists {
	return Lists{
		Brands: c.names(ctx, "/brands"),
		Discs:  c.names(ctx, "/discs"),
	}
}

func (c *Client) names(ctx context.Context, path string) []string {
	recs, err := c.get(ctx, path)
	if err != nil {
		log.Printf("catalog fetch %s failed (continuing with empty list): %v", path, err)
		return nil
	}
	names := make([]string, 0, len(recs))
	for _, r := range recs {
		if n := strings.ToLower(strings.TrimSpace(r.Name)); n != "" {
			names = append(names, n)
		}
	}
	return names
}

func (c *Client) get(ctx context.Context, path string) ([]record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	var recs []record
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	return recs, nil
}
