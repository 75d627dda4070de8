package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/provider"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/providers/modules"
)

var cli struct {
	Host      string `help:"Host to bind." default:"127.0.0.1"`
	Port      int    `help:"Port to bind." default:"8890"`
	Root      string `help:"Lmod module tree root." default:"/N/soft/rhel8/modules/quartz" type:"path"`
	Resources string `help:"Icon resources directory." default:"./resources" type:"path"`
	LogLevel  string `help:"Log level (trace..fatal)." default:"info"`
}

func main() {
	kong.Parse(&cli,
		kong.Name("provider-modules"),
		kong.Description("Lmod available-software object provider."))
	Init(&Config{Level: ParseLevel(cli.LogLevel)})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend := modules.New(ctx, cli.Root)
	defer backend.Close()

	srv := provider.NewServer(provider.Options{
		RootName:     "Available Software",
		ResourcesDir: cli.Resources,
	}, backend)

	if err := srv.ListenAndServe(ctx, cli.Host, cli.Port); err != nil {
		L_fatal("server failed: %v", err)
	}
}
