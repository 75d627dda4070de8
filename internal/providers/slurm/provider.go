// Package slurm exposes a Slurm batch system as an object tree: partitions
// at the root, jobs beneath them, with GroupBy/Show pipelines over job
// properties and a ShowMy shortcut for the caller's own jobs.
package slurm

import (
	"context"
	"os/user"
	"strings"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/pipeline"
)

// groupFields are the job properties GroupBy may aggregate on. Anything
// else yields an empty listing so the UI can hide the operation.
var groupFields = map[string]bool{
	"userid":    true,
	"jobstate":  true,
	"partition": true,
	"account":   true,
	"jobname":   true,
	"cpus":      true,
	"nodecount": true,
	"priority":  true,
	"jobarray":  true,
}

// Provider implements provider.Backend over the Slurm CLIs.
type Provider struct {
	scrambleUsers bool
	userID        string
	run           runner
}

// New creates the provider. scrambleUsers applies ROT13 to every user name
// on the wire, for demoing with real queues without exposing identities.
func New(scrambleUsers bool) *Provider {
	name := ""
	if u, err := user.Current(); err == nil {
		name = u.Username
	}
	return &Provider{
		scrambleUsers: scrambleUsers,
		userID:        name,
		run:           execRunner,
	}
}

// RootObjects lists one partition object per Slurm partition plus the
// caller's "My Jobs" group.
func (p *Provider) RootObjects(ctx context.Context) ([]*model.Object, error) {
	names := partitions(ctx, p.run)
	def := defaultPartition(ctx, p.run)

	objects := make([]*model.Object, 0, len(names)+1)
	for _, name := range names {
		count := 0
		if js, err := p.jobsForPartition(ctx, name); err == nil {
			count = len(js)
		}
		objects = append(objects, newPartition(name, count, name == def))
	}

	mine := model.New(model.ClassGroup, "/<ShowMy:"+p.userID+">", "My Jobs", personIcon, myJobCount(ctx, p.run))
	objects = append(objects, mine)
	return objects, nil
}

// ObjectsForPath lists jobs for a partition, running any command tokens
// carried in the id through the pipeline engine.
func (p *Provider) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	if trimmed := strings.TrimSpace(id); trimmed == "/" || trimmed == "" {
		return p.RootObjects(ctx)
	}

	lister := func(base string) ([]*model.Object, error) {
		// The partition is always the first segment; command tokens were
		// already peeled off.
		part := firstSegment(base)
		jobs, err := p.jobsForPartition(ctx, part)
		if err != nil {
			L_error("squeue failed", "partition", part, "error", err)
			return []*model.Object{}, nil
		}
		objs := make([]*model.Object, 0, len(jobs))
		for _, j := range jobs {
			objs = append(objs, j.Object())
		}
		return objs, nil
	}

	return pipeline.Evaluate(id, lister, pipeline.Options{
		AllowedGroupFields: groupFields,
		GroupIcon:          groupIcon,
		ShowMyProperty:     "userid",
		ShowMyValue:        p.wireUser,
	})
}

// jobsForPartition fetches and post-processes squeue rows: user scrambling
// and the caller's badge icon.
func (p *Provider) jobsForPartition(ctx context.Context, partition string) ([]Job, error) {
	rows, err := jobs(ctx, p.run, partition)
	if err != nil {
		return nil, err
	}
	me := p.wireUser(p.userID)
	for i := range rows {
		if p.scrambleUsers {
			rows[i].UserID = rot13(rows[i].UserID)
		}
		rows[i].Mine = rows[i].UserID == me
	}
	return rows, nil
}

// wireUser maps a local user name to its on-the-wire form.
func (p *Provider) wireUser(name string) string {
	if p.scrambleUsers {
		return rot13(name)
	}
	return name
}

func firstSegment(base string) string {
	seg, _, _ := strings.Cut(strings.TrimLeft(base, "/"), "/")
	return seg
}
