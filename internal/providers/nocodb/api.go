package nocodb

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
)

const requestTimeout = 10 * time.Second

// recordLimit caps how many records are pulled from a table.
const recordLimit = 1000

// apiClient talks to a NocoDB instance. Self-hosted deployments commonly run
// with self-signed certificates, so TLS verification is off.
type apiClient struct {
	baseURL string
	token   string
	http    *http.Client
}

func newAPIClient(baseURL, token string) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			},
		},
	}
}

// getList tries each endpoint in order and returns the first list-shaped
// response. NocoDB moved its metadata API across versions; the fallbacks
// cover v2 and v1 deployments.
func (c *apiClient) getList(ctx context.Context, endpoints []string, query url.Values) []map[string]any {
	for _, endpoint := range endpoints {
		items, err := c.getOnce(ctx, endpoint, query)
		if err != nil {
			logging.L_debug("nocodb endpoint failed", "endpoint", endpoint, "error", err)
			continue
		}
		return items
	}
	return nil
}

func (c *apiClient) getOnce(ctx context.Context, endpoint string, query url.Values) ([]map[string]any, error) {
	raw, err := c.get(ctx, endpoint, query)
	if err != nil {
		return nil, err
	}

	// Either {"list": [...]}, {"data": [...]}, or a bare array.
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	var payload any
	if err := dec.Decode(&payload); err != nil {
		return nil, err
	}
	switch v := payload.(type) {
	case []any:
		return toMaps(v), nil
	case map[string]any:
		for _, key := range []string{"list", "data"} {
			if items, ok := v[key].([]any); ok {
				return toMaps(items), nil
			}
		}
	}
	return nil, fmt.Errorf("unexpected response shape from %s", endpoint)
}

// getMap fetches a single JSON object, trying each endpoint in order.
func (c *apiClient) getMap(ctx context.Context, endpoints []string) map[string]any {
	for _, endpoint := range endpoints {
		raw, err := c.get(ctx, endpoint, nil)
		if err != nil {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(string(raw)))
		dec.UseNumber()
		var m map[string]any
		if err := dec.Decode(&m); err == nil {
			return m
		}
	}
	return nil
}

func (c *apiClient) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xc-token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func toMaps(items []any) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func (c *apiClient) bases(ctx context.Context) []map[string]any {
	return c.getList(ctx, []string{
		"/api/v2/meta/bases",
		"/api/v1/db/meta/projects",
		"/api/v2/bases",
	}, nil)
}

func (c *apiClient) tables(ctx context.Context, baseID string) []map[string]any {
	return c.getList(ctx, []string{
		"/api/v2/meta/bases/" + baseID + "/tables",
		"/api/v1/db/meta/projects/" + baseID + "/tables",
		"/api/v2/bases/" + baseID + "/tables",
	}, nil)
}

func (c *apiClient) tableSchema(ctx context.Context, tableID string) map[string]any {
	return c.getMap(ctx, []string{
		"/api/v2/meta/tables/" + tableID,
		"/api/v1/db/meta/tables/" + tableID,
	})
}

func (c *apiClient) records(ctx context.Context, baseID, tableID, tableTitle string) []map[string]any {
	query := url.Values{"limit": {fmt.Sprintf("%d", recordLimit)}}
	return c.getList(ctx, []string{
		"/api/v2/tables/" + tableID + "/records",
		"/api/v1/db/data/noco/" + baseID + "/" + url.PathEscape(tableTitle),
		"/api/v1/db/data/" + baseID + "/" + tableID,
	}, query)
}
