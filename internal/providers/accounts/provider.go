// Package accounts probes a fixed table of compute systems over ssh and
// lists the ones the caller can reach. Each account carries an openaction
// pointing the browser at that system's own provider.
package accounts

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

const accountIcon = "./resources/IDCard.png"

const (
	sshConnectTimeout = 5 * time.Second
	sshOverallTimeout = 7 * time.Second
)

// System is one probed compute system. ProviderHost/ProviderPort, when set,
// become an objectbrowser openaction on the account object.
type System struct {
	Name         string
	Hostname     string
	ProviderHost string
	ProviderPort int
}

// DefaultSystems is the probe table served when no configuration overrides
// it.
var DefaultSystems = []System{
	{Name: "Quartz", Hostname: "quartz.uits.iu.edu", ProviderHost: "127.0.0.1", ProviderPort: 8888},
	{Name: "Big Red 200", Hostname: "bigred200.uits.iu.edu"},
	{Name: "Research Desktop", Hostname: "quartz.uits.iu.edu"},
}

// prober reports whether a host accepts a batch ssh login. Stubbed in tests.
type prober func(ctx context.Context, hostname string) bool

// Provider implements provider.Backend.
type Provider struct {
	systems []System
	probe   prober
}

// New creates the provider over systems, or DefaultSystems when nil.
func New(systems []System) *Provider {
	if systems == nil {
		systems = DefaultSystems
	}
	return &Provider{systems: systems, probe: sshProbe}
}

// RootObjects lists one WPAccount per reachable system.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	objects := []*model.Object{}
	for _, sys := range p.systems {
		if !p.probe(ctx, sys.Hostname) {
			L_debug("system unreachable", "system", sys.Name, "host", sys.Hostname)
			continue
		}
		o := model.New(model.ClassAccount, "/"+sys.Name, sys.Name, accountIcon, 0)
		o.SetExtra("hostname", sys.Hostname)
		if sys.ProviderHost != "" && sys.ProviderPort > 0 {
			o.SetExtra("openaction", []any{map[string]any{
				"action":   "objectbrowser",
				"hostname": sys.ProviderHost,
				"port":     sys.ProviderPort,
			}})
		}
		objects = append(objects, o)
	}
	return objects, nil
}

// ObjectsForPath is the root listing: accounts are leaves.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	return p.RootObjects(ctx)
}

// sshProbe runs a batch-mode ssh with no prompts. Exit 0 means the caller
// has a working account on the host.
func sshProbe(ctx context.Context, hostname string) bool {
	ctx, cancel := context.WithTimeout(ctx, sshOverallTimeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, "ssh",
		"-o", "BatchMode=yes",
		"-o", "StrictHostKeyChecking=no",
		"-o", "UserKnownHostsFile=/dev/null",
		"-o", fmt.Sprintf("ConnectTimeout=%d", int(sshConnectTimeout.Seconds())),
		hostname, "true")
	return cmd.Run() == nil
}
