package nav

import (
	"reflect"
	"testing"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

func TestSplitLink(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"/", nil},
		{"/a/b", []string{"a", "b"}},
		{"/[127.0.0.1:8888]/hopper/<GroupBy:userid>", []string{"[127.0.0.1:8888]", "hopper", "<GroupBy:userid>"}},
		{"/a/<Show:path:/usr/bin>", []string{"a", "<Show:path:/usr/bin>"}},
		{"/x/[openaction]", []string{"x", "[openaction]"}},
	}
	for _, c := range cases {
		got := splitLink(c.in)
		if !reflect.DeepEqual(got, c.want) {
			t.Errorf("splitLink(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestHumanizeTitle(t *testing.T) {
	cases := []struct {
		id, fallback, want string
	}{
		{"/x/<GroupBy:userid>", "raw", "Group by userid"},
		{"/x/<Show:userid:alice>", "raw", "Show userid = alice"},
		{"/x/plain", "raw", "raw"},
		{"/x/<ShowMy:alice>", "My Jobs", "My Jobs"},
	}
	for _, c := range cases {
		if got := HumanizeTitle(c.id, c.fallback); got != c.want {
			t.Errorf("HumanizeTitle(%q) = %q, want %q", c.id, got, c.want)
		}
	}
}

func TestNavigateToPathSegments(t *testing.T) {
	s, _ := newTestSession(t, map[string]*fakeProvider{"a:1": slurmFake()})
	s.NavigateToPath("/hopper/<GroupBy:userid>")
	if s.Depth() != 3 {
		t.Fatalf("depth: %d, crumbs %v", s.Depth(), s.Breadcrumbs())
	}
	if s.Current().RemoteID != "/hopper/<GroupBy:userid>" {
		t.Errorf("remote id: %s", s.Current().RemoteID)
	}
	crumbs := s.Breadcrumbs()
	if crumbs[2] != "Group by userid" {
		t.Errorf("command crumb: %v", crumbs)
	}
}

func TestNavigateToPathEndpointToken(t *testing.T) {
	providers := map[string]*fakeProvider{
		"a:1": {rootName: "Default"},
		"b:2": slurmFake(),
	}
	s, _ := newTestSession(t, providers)
	s.NavigateToPath("/[b:2]/hopper")
	if s.Breadcrumbs()[0] != "Slurm Batch System" {
		t.Fatalf("first endpoint token must replace the root: %v", s.Breadcrumbs())
	}
	if s.Current().RemoteID != "/hopper" {
		t.Errorf("remote id: %s", s.Current().RemoteID)
	}
}

func TestNavigateToPathStopsOnMismatch(t *testing.T) {
	s, _ := newTestSession(t, map[string]*fakeProvider{"a:1": slurmFake()})
	s.NavigateToPath("/nosuch/child")
	if s.Depth() != 1 {
		t.Errorf("mismatch must stop traversal: depth %d", s.Depth())
	}
}

func TestNavigateToPathTrailingOpenAction(t *testing.T) {
	p := slurmFake()
	leaf := model.New(model.ClassObject, "/hopper/run", "run", "", 0)
	leaf.SetExtra("openaction", []any{map[string]any{"action": "terminal", "command": "echo hi"}})
	p.byID["/hopper"] = append(p.byID["/hopper"], leaf)

	s, actions := newTestSession(t, map[string]*fakeProvider{"a:1": p})
	s.NavigateToPath("/hopper/run/[openaction]")
	if len(actions.terminals) != 1 || actions.terminals[0] != "echo hi" {
		t.Errorf("openaction not fired: %v", actions.terminals)
	}
}

func TestDeepLinkRoundTrip(t *testing.T) {
	s, _ := newTestSession(t, map[string]*fakeProvider{"a:1": slurmFake()})
	s.Activate(s.Objects()[0]) // hopper
	var group *model.Object
	for _, o := range s.Objects() {
		if o.Class == model.ClassGroup {
			group = o
		}
	}
	s.Activate(group)

	link := s.BuildDeepLink()
	want := "/[a:1]/hopper/<Show:userid:alice>"
	if link != want {
		t.Fatalf("built link %q, want %q", link, want)
	}

	// Replaying the link reproduces the stack.
	s2, _ := newTestSession(t, map[string]*fakeProvider{"a:1": slurmFake()})
	s2.NavigateToPath(link)
	if s2.Depth() != s.Depth() {
		t.Fatalf("replayed depth %d, want %d", s2.Depth(), s.Depth())
	}
	if s2.Current().RemoteID != s.Current().RemoteID {
		t.Errorf("replayed remote id %q, want %q", s2.Current().RemoteID, s.Current().RemoteID)
	}
}

func TestBuildDeepLinkEmitsEndpointOnlyOnChange(t *testing.T) {
	other := &fakeProvider{rootName: "Other", roots: []*model.Object{}}
	account := model.New(model.ClassAccount, "/Go", "Go", "", 0)
	account.SetExtra("openaction", []any{map[string]any{"action": "objectbrowser", "hostname": "b", "port": 2}})
	first := &fakeProvider{rootName: "Accounts", roots: []*model.Object{account}}

	s, _ := newTestSession(t, map[string]*fakeProvider{"a:1": first, "b:2": other})
	s.Activate(s.Objects()[0])
	if got := s.BuildDeepLink(); got != "/[a:1]/[b:2]" {
		t.Errorf("link: %q", got)
	}
}
