package main

import (
	"os"

	"github.com/alecthomas/kong"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/browser"
	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/nav"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/settings"
)

var cli struct {
	Host     string `help:"Provider host." default:"127.0.0.1"`
	Port     int    `help:"Provider port." default:"8888"`
	Path     string `help:"Deep link to navigate to at startup."`
	Settings string `help:"Settings file path (default: per-user config dir)."`
	LogLevel string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("browser"),
		kong.Description("Hierarchical object browser."))
	// Log output is redirected into the TUI log pane once it exists.
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	settingsPath := cli.Settings
	if settingsPath == "" {
		settingsPath = settings.DefaultPath()
	}
	store := settings.Open(settingsPath)

	session := nav.NewSession(cli.Host, cli.Port, nil, nil)
	if cli.Path != "" {
		session.NavigateToPath(cli.Path)
	}

	selfPath, err := os.Executable()
	if err != nil {
		selfPath = os.Args[0]
	}

	app := browser.New(session, store, selfPath)
	if err := app.Run(); err != nil {
		L_fatal("browser failed: %v", err)
	}
}
