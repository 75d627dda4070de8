package provider

import (
	"bytes"
	"encoding/base64"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/fsnotify/fsnotify"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/wire"
)

// badgeName is the overlay composited onto customized icons.
const badgeName = "IDCard.png"

// badgeScale divides the shorter icon side to size the overlay.
const badgeScale = 1.75

// iconCatalog assembles and caches the provider's GetInfo icon list. A
// watch on the resources directory invalidates the cache so icon edits
// show up without a restart.
type iconCatalog struct {
	dir   string
	badge []string

	mu      sync.Mutex
	entries []wire.IconEntry
	watcher *fsnotify.Watcher
}

func newIconCatalog(dir string, badge []string) *iconCatalog {
	c := &iconCatalog{dir: dir, badge: badge}
	if dir == "" {
		return c
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		L_debug("icon watcher unavailable", "error", err)
		return c
	}
	if err := w.Add(dir); err != nil {
		L_debug("icon watch failed", "dir", dir, "error", err)
		w.Close()
		return c
	}
	c.watcher = w
	go c.watch()
	return c
}

func (c *iconCatalog) watch() {
	for {
		select {
		case _, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			c.mu.Lock()
			c.entries = nil
			c.mu.Unlock()
		case _, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Close stops the directory watch.
func (c *iconCatalog) Close() {
	if c.watcher != nil {
		c.watcher.Close()
	}
}

// Entries returns the catalog, building it on first use. An unreadable
// resources directory yields an empty catalog, never an error: GetInfo must
// always answer with a valid shape.
func (c *iconCatalog) Entries() []wire.IconEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = c.collect()
	}
	return c.entries
}

func (c *iconCatalog) collect() []wire.IconEntry {
	entries := []wire.IconEntry{}
	if c.dir == "" {
		return entries
	}
	dirents, err := os.ReadDir(c.dir)
	if err != nil {
		L_debug("resources dir unreadable", "dir", c.dir, "error", err)
		return entries
	}

	var names []string
	for _, de := range dirents {
		if de.IsDir() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(de.Name()), ".png") {
			continue
		}
		names = append(names, de.Name())
	}
	sort.Slice(names, func(i, j int) bool {
		return strings.ToLower(names[i]) < strings.ToLower(names[j])
	})

	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		entries = append(entries, wire.IconEntry{
			// Normalized client filename with lowercase 'resources'.
			Filename: "./resources/" + name,
			Data:     base64.StdEncoding.EncodeToString(data),
		})
	}

	entries = append(entries, c.badgedEntries()...)
	return entries
}

// badgedEntries composites the IDCard badge over each configured base icon
// and emits the result as <base>_IDCard.png. If the overlay can't be
// loaded the base bytes are duplicated under the badge name so listings
// referencing it still resolve.
func (c *iconCatalog) badgedEntries() []wire.IconEntry {
	if len(c.badge) == 0 {
		return nil
	}
	var overlay image.Image
	if data, err := os.ReadFile(filepath.Join(c.dir, badgeName)); err == nil {
		if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
			overlay = img
		}
	}

	var entries []wire.IconEntry
	for _, name := range c.badge {
		if !strings.EqualFold(filepath.Ext(name), ".png") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(c.dir, name))
		if err != nil {
			continue
		}
		outName := "./resources/" + strings.TrimSuffix(name, filepath.Ext(name)) + "_IDCard.png"
		if overlay == nil {
			entries = append(entries, wire.IconEntry{
				Filename: outName,
				Data:     base64.StdEncoding.EncodeToString(data),
			})
			continue
		}
		composed, err := compositeBadge(data, overlay)
		if err != nil {
			L_debug("badge compositing failed", "icon", name, "error", err)
			continue
		}
		entries = append(entries, wire.IconEntry{
			Filename: outName,
			Data:     base64.StdEncoding.EncodeToString(composed),
		})
	}
	return entries
}

// compositeBadge scales the overlay to 1/1.75 of the base icon's shorter
// side (aspect preserved) and alpha-composites it at the bottom-right
// corner with no margin.
func compositeBadge(baseData []byte, overlay image.Image) ([]byte, error) {
	base, err := imaging.Decode(bytes.NewReader(baseData))
	if err != nil {
		return nil, err
	}
	bb := base.Bounds()
	bw, bh := bb.Dx(), bb.Dy()
	target := bw
	if bh < bw {
		target = bh
	}
	target = int(float64(target) / badgeScale)
	if target < 1 {
		target = 1
	}

	ob := overlay.Bounds()
	ow, oh := ob.Dx(), ob.Dy()
	var newW, newH int
	if ow >= oh {
		newW = target
		newH = oh * target / ow
	} else {
		newH = target
		newW = ow * target / oh
	}
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}

	scaled := imaging.Resize(overlay, newW, newH, imaging.Lanczos)
	x := bw - newW
	if x < 0 {
		x = 0
	}
	y := bh - newH
	if y < 0 {
		y = 0
	}
	composed := imaging.Overlay(base, scaled, image.Pt(x, y), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, composed, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
