// Package homedir serves the user's home directory: directories with
// non-recursive child counts, regular files as leaves.
package homedir

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

const (
	dirIcon  = "./resources/Directory.png"
	fileIcon = "./resources/File.png"
)

// Provider implements provider.Backend over a directory tree.
type Provider struct {
	root string
}

// New creates the provider. An empty root means the current user's home
// directory.
func New(root string) *Provider {
	if root == "" {
		if home, err := os.UserHomeDir(); err == nil {
			root = home
		}
	}
	return &Provider{root: root}
}

// RootObjects lists the home directory itself.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	return p.list("")
}

// ObjectsForPath lists the directory named by id, relative to the root.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	rel := strings.TrimLeft(strings.TrimSpace(id), "/")
	return p.list(rel)
}

func (p *Provider) list(rel string) ([]*model.Object, error) {
	dir := p.root
	if rel != "" {
		dir = filepath.Join(p.root, filepath.FromSlash(rel))
	}
	// Refuse to follow ids that escape the root. A bare prefix check is not
	// enough: it admits sibling directories sharing the root's name prefix.
	root := filepath.Clean(p.root)
	dir = filepath.Clean(dir)
	if dir != root && !strings.HasPrefix(dir, root+string(os.PathSeparator)) {
		return []*model.Object{}, nil
	}

	dirents, err := os.ReadDir(dir)
	if err != nil {
		return []*model.Object{}, nil
	}
	sort.Slice(dirents, func(i, j int) bool {
		return strings.ToLower(dirents[i].Name()) < strings.ToLower(dirents[j].Name())
	})

	objects := []*model.Object{}
	for _, de := range dirents {
		name := de.Name()
		id := "/" + name
		if rel != "" {
			id = "/" + rel + "/" + name
		}
		if de.IsDir() {
			objects = append(objects, model.New(model.ClassDirectory, id, name, dirIcon, childCount(filepath.Join(dir, name))))
			continue
		}
		if de.Type().IsRegular() {
			objects = append(objects, model.New(model.ClassFile, id, name, fileIcon, 0))
		}
	}
	return objects, nil
}

// childCount is the non-recursive entry count inside a directory.
func childCount(dir string) int {
	dirents, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	return len(dirents)
}
