// Package nav is the browser's navigation core: the crumb stack, object
// activation rules, endpoint switching, deep links, and the session icon
// cache. It is UI-free so the whole navigation model is testable without a
// terminal.
package nav

import (
	"context"
	"encoding/base64"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/client"
	. "github.com/RobertHenschel/HierarchyBrowserv2/internal/logging"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/wire"
)

// Transport is the per-endpoint RPC surface the session needs. Satisfied by
// *client.Client; stubbed in tests.
type Transport interface {
	Info(ctx context.Context) (*wire.Info, error)
	RootObjects(ctx context.Context) ([]*model.Object, error)
	Objects(ctx context.Context, id string) ([]*model.Object, error)
	Search(ctx context.Context, id, term string, recursive bool, handle *model.Object) ([]*model.Object, error)
}

// Connect dials an endpoint. Swapped out in tests.
type Connect func(host string, port int) Transport

// Entry is one crumb on the navigation stack. Entry 0 is the provider root.
type Entry struct {
	ID       string
	Title    string
	Host     string
	Port     int
	RemoteID string
}

// Session holds the live navigation state for one browser window.
type Session struct {
	connect Connect
	actions Actions

	stack   []Entry
	objects []*model.Object
	icons   map[string][]byte // filename -> decoded PNG bytes
}

// NewSession connects to the root provider, loads its name and icon
// catalog, and fetches the root listing. Transport failures leave an empty
// but usable session.
func NewSession(host string, port int, connect Connect, actions Actions) *Session {
	if connect == nil {
		connect = func(h string, p int) Transport { return client.New(h, p) }
	}
	if actions == nil {
		actions = NewSystemActions()
	}
	s := &Session{
		connect: connect,
		actions: actions,
		icons:   make(map[string][]byte),
	}
	rootName := s.loadEndpoint(host, port)
	s.stack = []Entry{{Title: rootName, Host: host, Port: port, RemoteID: "/"}}
	s.refresh()
	return s
}

// loadEndpoint fetches GetInfo for an endpoint, merges its icons into the
// session cache, and returns the provider's root name.
func (s *Session) loadEndpoint(host string, port int) string {
	t := s.connect(host, port)
	info, err := t.Info(context.Background())
	if err != nil {
		L_warn("provider info unavailable", "host", host, "port", port, "error", err)
		return "Provider"
	}
	for _, entry := range info.Icons {
		data, err := base64.StdEncoding.DecodeString(entry.Data)
		if err != nil {
			continue
		}
		// Last writer wins on identical filenames across providers.
		s.icons[entry.Filename] = data
	}
	if info.RootName == "" {
		return "Provider"
	}
	return info.RootName
}

// Current is the top of the stack.
func (s *Session) Current() Entry {
	return s.stack[len(s.stack)-1]
}

// Depth is the stack depth including the root crumb.
func (s *Session) Depth() int { return len(s.stack) }

// Breadcrumbs renders the crumb titles, root first.
func (s *Session) Breadcrumbs() []string {
	titles := make([]string, len(s.stack))
	for i, e := range s.stack {
		titles[i] = e.Title
	}
	return titles
}

// Objects is the current listing. Mutating the slice is not allowed.
func (s *Session) Objects() []*model.Object { return s.objects }

// SetObjects replaces the current listing without touching the stack, for
// ad-hoc result sets such as completed searches.
func (s *Session) SetObjects(objects []*model.Object) {
	if objects == nil {
		objects = []*model.Object{}
	}
	s.objects = objects
}

// Icon resolves a filename from the session icon cache.
func (s *Session) Icon(filename string) ([]byte, bool) {
	data, ok := s.icons[filename]
	return data, ok
}

// refresh fetches the listing for the current crumb. Any failure yields an
// empty listing; the selection is implicitly cleared because the listing
// changed.
func (s *Session) refresh() {
	cur := s.Current()
	t := s.connect(cur.Host, cur.Port)
	var (
		objects []*model.Object
		err     error
	)
	if cur.RemoteID == "/" || cur.RemoteID == "" {
		objects, err = t.RootObjects(context.Background())
	} else {
		objects, err = t.Objects(context.Background(), cur.RemoteID)
	}
	if err != nil {
		L_warn("listing failed", "remote", cur.RemoteID, "error", err)
		objects = []*model.Object{}
	}
	s.objects = objects
}

// Activate applies the activation rules to an object in the current
// listing: an objectbrowser openaction switches endpoints, a container
// pushes a crumb, anything else falls through to its openaction.
func (s *Session) Activate(o *model.Object) {
	if o == nil {
		return
	}
	if host, port, ok := endpointSwitch(o); ok {
		s.pushEndpoint(host, port)
		return
	}
	if o.Objects > 0 {
		cur := s.Current()
		s.stack = append(s.stack, Entry{
			ID:       o.ID,
			Title:    HumanizeTitle(o.ID, o.Title),
			Host:     cur.Host,
			Port:     cur.Port,
			RemoteID: o.ID,
		})
		s.refresh()
		return
	}
	s.PerformOpenAction(o)
}

// pushEndpoint pushes a synthetic crumb at the new provider's root.
func (s *Session) pushEndpoint(host string, port int) {
	rootName := s.loadEndpoint(host, port)
	s.stack = append(s.stack, Entry{
		Title:    rootName,
		Host:     host,
		Port:     port,
		RemoteID: "/",
	})
	s.refresh()
}

// CrumbClicked truncates the stack to depth k+1 and reloads that crumb's
// listing. k=0 returns to the root provider's root.
func (s *Session) CrumbClicked(k int) {
	if k < 0 || k >= len(s.stack) {
		return
	}
	s.stack = s.stack[:k+1]
	s.refresh()
}

// SearchFunc snapshots the current endpoint and remote id and returns a
// search call bound to them. Poll loops run on their own goroutine; the
// snapshot keeps them off the stack while the user keeps navigating.
func (s *Session) SearchFunc() func(context.Context, string, bool, *model.Object) ([]*model.Object, error) {
	cur := s.Current()
	t := s.connect(cur.Host, cur.Port)
	return func(ctx context.Context, term string, recursive bool, handle *model.Object) ([]*model.Object, error) {
		return t.Search(ctx, cur.RemoteID, term, recursive, handle)
	}
}

// Search runs one search call against the current crumb.
func (s *Session) Search(ctx context.Context, term string, recursive bool, handle *model.Object) ([]*model.Object, error) {
	return s.SearchFunc()(ctx, term, recursive, handle)
}

// PerformOpenAction dispatches the first recognized entry of the object's
// openaction list.
func (s *Session) PerformOpenAction(o *model.Object) {
	entries := actionEntries(o, "openaction")
	for _, entry := range entries {
		if s.dispatchAction(entry) {
			return
		}
	}
}

// ContextMenu returns the object's context menu entries for the UI to
// render.
func (s *Session) ContextMenu(o *model.Object) []map[string]any {
	return actionEntries(o, "contextmenu")
}

// DispatchContextAction fires one context menu entry.
func (s *Session) DispatchContextAction(entry map[string]any) {
	s.dispatchAction(entry)
}

func (s *Session) dispatchAction(entry map[string]any) bool {
	action, _ := entry["action"].(string)
	switch action {
	case "objectbrowser":
		host, port, ok := parseEndpointEntry(entry)
		if !ok {
			return false
		}
		s.pushEndpoint(host, port)
		return true
	case "terminal":
		if cmd, ok := entry["command"].(string); ok && cmd != "" {
			if err := s.actions.OpenTerminal(cmd); err != nil {
				L_warn("terminal action failed", "error", err)
			}
			return true
		}
		return false
	case "browser", "open":
		if u, ok := entry["url"].(string); ok && u != "" {
			if err := s.actions.OpenURL(u); err != nil {
				L_warn("browser action failed", "error", err)
			}
			return true
		}
		return false
	default:
		s.actions.Other(entry)
		return true
	}
}

// endpointSwitch inspects an object's openaction for an objectbrowser
// entry.
func endpointSwitch(o *model.Object) (string, int, bool) {
	for _, entry := range actionEntries(o, "openaction") {
		if action, _ := entry["action"].(string); action != "objectbrowser" {
			continue
		}
		return parseEndpointEntry(entry)
	}
	return "", 0, false
}

func parseEndpointEntry(entry map[string]any) (string, int, bool) {
	host, _ := entry["hostname"].(string)
	if host == "" {
		host, _ = entry["host"].(string)
	}
	port := model.ToInt(entry["port"])
	if host == "" || port <= 0 {
		return "", 0, false
	}
	return host, port, true
}

// actionEntries decodes a list-of-maps extra such as openaction or
// contextmenu.
func actionEntries(o *model.Object, key string) []map[string]any {
	raw, ok := o.Extra(key)
	if !ok {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	var entries []map[string]any
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			entries = append(entries, m)
		}
	}
	return entries
}
