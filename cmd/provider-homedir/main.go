package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/providers/homedir"
)

var cli struct {
	Host      string `help:"Host to bind." default:"127.0.0.1"`
	Port      int    `help:"Port to bind." default:"8891"`
	Root      string `help:"Directory to serve (default: the user's home)."`
	Resources string `help:"Icon resources directory." default:"./resources" type:"path"`
	LogLevel  string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("provider-homedir"),
		kong.Description("Home directory object provider."))
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := provider.NewServer(provider.Options{
		RootName:     "Quartz Home Directory",
		ResourcesDir: cli.Resources,
	}, homedir.New(cli.Root))

	if err := srv.ListenAndServe(ctx, cli.Host, cli.Port); err != nil {
		L_fatal("server failed: %v", err)
	}
}
