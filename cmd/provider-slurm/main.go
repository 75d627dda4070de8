package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/providers/slurm"
)

var cli struct {
	Host          string `help:"Host to bind." default:"127.0.0.1"`
	Port          int    `help:"Port to bind." default:"8888"`
	Resources     string `help:"Icon resources directory." default:"./resources" type:"path"`
	ScrambleUsers bool   `help:"ROT13-scramble user names on the wire."`
	LogLevel      string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("provider-slurm"),
		kong.Description("Slurm batch system object provider."))
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := provider.NewServer(provider.Options{
		RootName:       "Slurm Batch System",
		ResourcesDir:   cli.Resources,
		CustomizeIcons: []string{"Job.png"},
	}, slurm.New(cli.ScrambleUsers))

	if err := srv.ListenAndServe(ctx, cli.Host, cli.Port); err != nil {
		L_fatal("server failed: %v", err)
	}
}
