// Package httploader serves a Catalog-strategy resolved location, decoding
// the endpoint's JSON array-of-objects response into rows (§4.3 Catalog
// strategy; see SPEC_FULL.md §6).
package httploader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/tabkit/pipeline/frame"
	"github.com/tabkit/pipeline/frame/memframe"
	"github.com/tabkit/pipeline/model"
	"github.com/tabkit/pipeline/resolver"
)

// Loader fetches catalog responses over HTTP.
type Loader struct {
	Client *http.Client
}

// New returns a Loader using client, or http.DefaultClient's timeout
// semantics with a bounded default if client is nil.
func New(client *http.Client) *Loader {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Loader{Client: client}
}

func (l *Loader) Load(ctx context.Context, location resolver.ResolvedLocation, schema model.TableSchema) (frame.Frame, error) {
	if location.Path == "" {
		return nil, fmt.Errorf("httploader: resolved location has no endpoint")
	}

	method := http.MethodGet
	endpoint := location.Path
	var auth string
	var headers map[string]any
	if cr := location.CatalogResponse; cr != nil {
		if m, ok := cr["method"].(string); ok && m != "" {
			method = m
		}
		if a, ok := cr["auth"].(string); ok {
			auth = a
		}
		if p, ok := cr["params"].(map[string]any); ok && len(p) > 0 {
			q := url.Values{}
			for k, v := range p {
				q.Set(k, fmt.Sprint(v))
			}
			endpoint += "?" + q.Encode()
		}
		if h, ok := cr["headers"].(map[string]any); ok {
			headers = h
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	for k, v := range headers {
		req.Header.Set(k, fmt.Sprint(v))
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httploader: fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httploader: %s returned status %d", endpoint, resp.StatusCode)
	}

	var payload []map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("httploader: decode %s: %w", endpoint, err)
	}
	return l.decode(payload, schema)
}

func (l *Loader) decode(payload []map[string]any, schema model.TableSchema) (frame.Frame, error) {
	rows := make([]frame.Row, len(payload))
	for i, obj := range payload {
		row := make(frame.Row, len(obj))
		for k, v := range obj {
			row[k] = v
		}
		rows[i] = row
	}
	cols := make([]frame.Column, len(schema.Columns))
	for i, c := range schema.Columns {
		cols[i] = frame.Column{Name: c.Name, Type: c.Type, Nullable: c.Nullable}
	}
	return memframe.New(frame.Schema{Columns: cols}, rows), nil
}
