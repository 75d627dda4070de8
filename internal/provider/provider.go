// Package provider contains the runtime shared by all object providers:
// the TCP line server, request dispatch, and icon catalog assembly.
// Concrete back-ends implement Backend (and optionally Searcher) and reuse
// the pipeline package for command token handling.
package provider

import (
	"context"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// Backend is the data-retrieval surface a concrete provider implements.
// Implementations must be safe for concurrent use; the runtime invokes them
// from one goroutine per connection.
type Backend interface {
	// RootObjects lists the provider's root.
	RootObjects(ctx context.Context) ([]*model.Object, error)

	// ObjectsForPath lists the objects at an id, which may carry command
	// tokens.
	ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error)
}

// SearchRequest carries the parameters of a Search call.
type SearchRequest struct {
	ID        string
	Term      string
	Recursive bool
	// Handle is the carried-forward handle object on polling calls, nil on
	// the initial call.
	Handle *model.Object
}

// Searcher is implemented by backends that support the asynchronous search
// sub-protocol. Backends without it answer Search with an empty listing.
type Searcher interface {
	Search(ctx context.Context, req SearchRequest) []*model.Object
}

// Options configure a provider instance.
type Options struct {
	// RootName is the display name reported by GetInfo.
	RootName string

	// ResourcesDir holds the provider's *.png icons.
	ResourcesDir string

	// CustomizeIcons lists base icon filenames (e.g. "Job.png") that get an
	// additional IDCard-badged variant in the catalog.
	CustomizeIcons []string
}
