package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/providers/nocodb"
)

var cli struct {
	Host      string `help:"Host to bind." default:"127.0.0.1"`
	Port      int    `help:"Port to bind." default:"8893"`
	Config    string `help:"Path to the provider config file." default:"./nocodb.toml" type:"path"`
	Resources string `help:"Icon resources directory." default:"./resources" type:"path"`
	LogLevel  string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("provider-nocodb"),
		kong.Description("NocoDB table object provider."))
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	cfg, err := nocodb.LoadConfig(cli.Config)
	if err != nil {
		L_fatal("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := provider.NewServer(provider.Options{
		RootName:     cfg.RootName,
		ResourcesDir: cli.Resources,
	}, nocodb.New(cfg))

	if err := srv.ListenAndServe(ctx, cli.Host, cli.Port); err != nil {
		L_fatal("server failed: %v", err)
	}
}
