// Package settings persists browser state between runs as a TOML file.
package settings

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
)

// Zoom bounds. Values outside the range are clamped on load and on set.
const (
	MinZoom = 0.5
	MaxZoom = 3.0
)

// Settings is the persisted browser state.
type Settings struct {
	Geometry          string  `toml:"geometry"`
	WindowState       string  `toml:"windowState"`
	ZoomLevel         float64 `toml:"zoomLevel"`
	DetailsVisible    bool    `toml:"detailsVisible"`
	SplitterSizes     []int   `toml:"splitterSizes"`
	DetailsSavedWidth int     `toml:"detailsSavedWidth"`
}

// Store loads and saves Settings at a fixed path.
type Store struct {
	path     string
	Settings Settings
}

// DefaultPath is the per-user settings file location.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "hierarchybrowser", "settings.toml")
}

// Open loads settings from path, falling back to defaults when the file is
// missing or unreadable.
func Open(path string) *Store {
	s := &Store{
		path: path,
		Settings: Settings{
			ZoomLevel:      1.0,
			DetailsVisible: true,
		},
	}
	if _, err := toml.DecodeFile(path, &s.Settings); err != nil && !os.IsNotExist(err) {
		L_debug("settings unreadable, using defaults", "path", path, "error", err)
	}
	s.Settings.ZoomLevel = clampZoom(s.Settings.ZoomLevel)
	return s
}

// SetZoom clamps and stores the zoom level.
func (s *Store) SetZoom(z float64) {
	s.Settings.ZoomLevel = clampZoom(z)
}

// Save writes the settings atomically: temp file in the same directory,
// then rename over the target.
func (s *Store) Save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(s.Settings); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "settings-*.toml")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

func clampZoom(z float64) float64 {
	if z < MinZoom {
		return MinZoom
	}
	if z > MaxZoom {
		return MaxZoom
	}
	return z
}
