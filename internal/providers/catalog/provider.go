// Package catalog serves a static JSON file of objects. It exists to
// exercise the generic side of the protocol: unknown classes and arbitrary
// extras pass through untouched, with hierarchy derived from id segments.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// Provider implements provider.Backend over a fixed object list.
type Provider struct {
	objects []*model.Object
}

// Load reads the catalog file, which holds either a bare JSON array of
// objects or {"objects": [...]}.
func Load(path string) (*Provider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return parse(data, path)
}

func parse(data []byte, path string) (*Provider, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		var wrapped struct {
			Objects []json.RawMessage `json:"objects"`
		}
		if err := json.Unmarshal(data, &wrapped); err != nil || wrapped.Objects == nil {
			return nil, fmt.Errorf("catalog %s: expected an object array or {\"objects\": [...]}", path)
		}
		raw = wrapped.Objects
	}
	return &Provider{objects: model.DecodeList(raw)}, nil
}

// RootObjects lists objects whose id has a single path segment.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	return p.children(""), nil
}

// ObjectsForPath lists objects one segment below id.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	parent := strings.TrimRight(strings.TrimSpace(id), "/")
	return p.children(parent), nil
}

func (p *Provider) children(parent string) []*model.Object {
	result := []*model.Object{}
	for _, o := range p.objects {
		if !strings.HasPrefix(o.ID, parent+"/") {
			continue
		}
		rest := strings.TrimPrefix(o.ID, parent+"/")
		if rest == "" || strings.Contains(rest, "/") {
			continue
		}
		result = append(result, o)
	}
	return result
}
