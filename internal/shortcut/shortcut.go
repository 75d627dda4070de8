// Package shortcut writes Linux .desktop launchers that reopen the browser
// at a deep link.
package shortcut

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Write creates an executable .desktop file in dir. name becomes both the
// display name and the filename; link is passed back to the browser via
// --path. exe and icon must be absolute paths.
func Write(dir, name, exe, icon, link string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, sanitizeName(name)+".desktop")

	var b strings.Builder
	b.WriteString("[Desktop Entry]\n")
	b.WriteString("Type=Application\n")
	fmt.Fprintf(&b, "Name=%s\n", name)
	fmt.Fprintf(&b, "Exec=/bin/bash -lc '%s --path \"%s\"'\n", exe, link)
	fmt.Fprintf(&b, "Icon=%s\n", icon)
	b.WriteString("Terminal=false\n")

	if err := os.WriteFile(path, []byte(b.String()), 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// DesktopDir is where shortcuts land by default.
func DesktopDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, "Desktop")
}

// sanitizeName keeps the filename filesystem-safe.
func sanitizeName(name string) string {
	out := []rune(name)
	for i, r := range out {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			out[i] = '_'
		}
	}
	return string(out)
}
