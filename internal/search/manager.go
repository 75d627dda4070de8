// Package search implements the asynchronous search sub-protocol used by
// slow providers: handle issuance, background workers, and deterministic
// poll responses once a search completes.
package search

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// Search states reported in WPLmodSearchProgress objects.
const (
	StateOngoing = "ongoing"
	StateDone    = "done"
)

// MaxResults bounds stored results per handle.
const MaxResults = 50

// Job runs the provider-specific search. It is called on a background
// goroutine with a manager-scoped context and returns the raw matches.
type Job func(ctx context.Context) []*model.Object

type entry struct {
	done     bool
	results  []*model.Object
	finished time.Time
}

// Manager owns the handle store for one provider instance. All access to
// the maps goes through the mutex; workers may outlive the connection that
// started them but not the manager's context.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewManager creates a manager whose workers are cancelled when ctx ends.
func NewManager(ctx context.Context) *Manager {
	ctx, cancel := context.WithCancel(ctx)
	return &Manager{
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Close cancels all running workers.
func (m *Manager) Close() {
	m.cancel()
}

// Begin issues a new handle, spawns the worker, and returns the handle
// object to reply with. The reply carries exactly this one object.
func (m *Manager) Begin(term string, recursive bool, job Job) *model.Object {
	id := uuid.NewString()

	m.mu.Lock()
	m.entries[id] = &entry{}
	m.mu.Unlock()

	L_debug("search: started", "handle", id, "term", term, "recursive", recursive)

	go func() {
		results := job(m.ctx)
		results = dedupeByTitle(results, MaxResults)

		m.mu.Lock()
		e := m.entries[id]
		if e != nil {
			e.results = results
			e.done = true
			e.finished = time.Now()
		}
		m.mu.Unlock()

		L_debug("search: finished", "handle", id, "results", len(results))
	}()

	handle := model.New(model.ClassSearchHandle, id, term, "", 0)
	handle.SetExtra("search_string", term)
	handle.SetExtra("recursive", recursive)
	return handle
}

// Poll answers a polling request carrying a previously issued handle.
// Unknown handles yield an empty listing; running searches a single
// progress object; completed searches the done progress marker followed by
// the stored results, deterministically on every subsequent poll.
func (m *Manager) Poll(handleID string) []*model.Object {
	m.mu.Lock()
	e := m.entries[handleID]
	var done bool
	var results []*model.Object
	if e != nil {
		done = e.done
		results = e.results
	}
	m.mu.Unlock()

	if e == nil {
		return []*model.Object{}
	}
	if !done {
		progress := model.New(model.ClassSearchProgress, handleID, "", "", 0)
		progress.SetExtra("state", StateOngoing)
		return []*model.Object{progress}
	}
	progress := model.New(model.ClassSearchProgress, handleID, "", "", len(results))
	progress.SetExtra("state", StateDone)
	out := make([]*model.Object, 0, len(results)+1)
	out = append(out, progress)
	out = append(out, results...)
	return out
}

// Prune drops completed handles older than maxAge. Nothing calls this on a
// timer; handle lifetime is the process by default.
func (m *Manager) Prune(maxAge time.Duration) int {
	cutoff := time.Now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, e := range m.entries {
		if e.done && e.finished.Before(cutoff) {
			delete(m.entries, id)
			removed++
		}
	}
	return removed
}

func dedupeByTitle(objs []*model.Object, limit int) []*model.Object {
	seen := make(map[string]bool, len(objs))
	out := make([]*model.Object, 0, len(objs))
	for _, o := range objs {
		if seen[o.Title] {
			continue
		}
		seen[o.Title] = true
		out = append(out, o)
		if len(out) >= limit {
			break
		}
	}
	return out
}
