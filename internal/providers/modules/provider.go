// Package modules serves an Lmod software tree: dependency directories as
// branches, entries under modulefiles directories as software leaves. It is
// the one provider with asynchronous search.
package modules

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/search"
)

// DefaultRoot is the Lmod tree served when no --root flag is given.
const DefaultRoot = "/N/soft/rhel8/modules/quartz"

const (
	dependencyIcon = "./resources/Box.png"
	softwareIcon   = "./resources/Software.png"
)

// Provider implements provider.Backend and provider.Searcher over a
// directory tree laid out the Lmod way.
type Provider struct {
	root     string
	searches *search.Manager
}

// New creates the provider rooted at dir. The manager context bounds all
// background search workers.
func New(ctx context.Context, dir string) *Provider {
	if dir == "" {
		dir = DefaultRoot
	}
	return &Provider{
		root:     dir,
		searches: search.NewManager(ctx),
	}
}

// Close cancels any running searches.
func (p *Provider) Close() {
	p.searches.Close()
}

// RootObjects lists the top-level dependency directories.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	names := listDirs(p.root)
	objects := make([]*model.Object, 0, len(names))
	for _, name := range names {
		count := countSoftware(filepath.Join(p.root, name))
		objects = append(objects, model.New(model.ClassLmodDependency, "/"+name, name, dependencyIcon, count))
	}
	return objects, nil
}

// ObjectsForPath lists the children of a dependency directory: nested
// dependency directories first, then software entries under any immediate
// modulefiles directory.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	rel := strings.TrimLeft(strings.TrimSpace(id), "/")
	if rel == "" {
		return p.RootObjects(ctx)
	}
	base := filepath.Join(p.root, filepath.FromSlash(rel))
	if !isDir(base) {
		return []*model.Object{}, nil
	}

	objects := []*model.Object{}
	for _, name := range listDirs(base) {
		if name == "modulefiles" {
			continue
		}
		count := countSoftware(filepath.Join(base, name))
		objects = append(objects, model.New(model.ClassLmodDependency, "/"+rel+"/"+name, name, dependencyIcon, count))
	}
	mf := filepath.Join(base, "modulefiles")
	if isDir(mf) {
		for _, name := range listDirs(mf) {
			objects = append(objects, model.New(model.ClassLmodSoftware, "/"+rel+"/"+name, name, softwareIcon, 0))
		}
	}
	return objects, nil
}

// Search starts a background walk when no handle is supplied, otherwise
// polls the handle's progress and results.
func (p *Provider) Search(ctx context.Context, req provider.SearchRequest) []*model.Object {
	if req.Handle != nil {
		return p.searches.Poll(req.Handle.ID)
	}
	if req.Term == "" {
		return []*model.Object{}
	}

	base := filepath.Join(p.root, filepath.FromSlash(strings.TrimLeft(strings.TrimSpace(req.ID), "/")))
	term := req.Term
	recursive := req.Recursive
	handle := p.searches.Begin(term, recursive, func(jobCtx context.Context) []*model.Object {
		return p.findSoftware(jobCtx, base, term, recursive)
	})
	L_debug("search started", "term", term, "handle", handle.ID)
	return []*model.Object{handle}
}

// findSoftware walks the tree below base collecting software entries whose
// name contains term, case-insensitively. Non-recursive searches only look
// at base's immediate modulefiles directory.
func (p *Provider) findSoftware(ctx context.Context, base, term string, recursive bool) []*model.Object {
	needle := strings.ToLower(term)
	var results []*model.Object

	var visit func(dir string)
	visit = func(dir string) {
		if ctx.Err() != nil || len(results) >= search.MaxResults {
			return
		}
		mf := filepath.Join(dir, "modulefiles")
		if isDir(mf) {
			for _, name := range listDirs(mf) {
				if !strings.Contains(strings.ToLower(name), needle) {
					continue
				}
				rel, err := filepath.Rel(p.root, filepath.Join(dir, name))
				if err != nil {
					continue
				}
				results = append(results, model.New(model.ClassLmodSoftware, "/"+filepath.ToSlash(rel), name, softwareIcon, 0))
				if len(results) >= search.MaxResults {
					return
				}
			}
		}
		if !recursive {
			return
		}
		for _, name := range listDirs(dir) {
			if name == "modulefiles" {
				continue
			}
			visit(filepath.Join(dir, name))
		}
	}
	visit(base)
	return results
}

// listDirs returns the sorted directory names directly under dir. Missing
// or unreadable directories yield nil.
func listDirs(dir string) []string {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var names []string
	for _, de := range dirents {
		if de.IsDir() {
			names = append(names, de.Name())
		}
	}
	sort.Strings(names)
	return names
}

// countSoftware counts directory entries under every modulefiles directory
// at or below base.
func countSoftware(base string) int {
	total := 0
	filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || d.Name() != "modulefiles" {
			return nil
		}
		total += len(listDirs(path))
		return filepath.SkipDir
	})
	return total
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
