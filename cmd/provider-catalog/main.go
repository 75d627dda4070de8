package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/providers/catalog"
)

var cli struct {
	Host      string `help:"Host to bind." default:"127.0.0.1"`
	Port      int    `help:"Port to bind." default:"8894"`
	File      string `help:"JSON catalog file to serve." default:"./catalog.json" type:"path"`
	RootName  string `help:"Display name reported by GetInfo." default:"Catalog"`
	Resources string `help:"Icon resources directory." default:"./resources" type:"path"`
	LogLevel  string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("provider-catalog"),
		kong.Description("Static JSON catalog object provider."))
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	backend, err := catalog.Load(cli.File)
	if err != nil {
		L_fatal("catalog: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := provider.NewServer(provider.Options{
		RootName:     cli.RootName,
		ResourcesDir: cli.Resources,
	}, backend)

	if err := srv.ListenAndServe(ctx, cli.Host, cli.Port); err != nil {
		L_fatal("server failed: %v", err)
	}
}
