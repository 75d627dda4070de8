package pipeline

import (
	"testing"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

func TestParsePath(t *testing.T) {
	cases := []struct {
		id     string
		base   string
		tokens []string
	}{
		{"/", "/", nil},
		{"/hopper", "/hopper", nil},
		{"/hopper/<GroupBy:userid>", "/hopper", []string{"<GroupBy:userid>"}},
		{"/hopper/<GroupBy:userid>/<Show:userid:alice>", "/hopper", []string{"<GroupBy:userid>", "<Show:userid:alice>"}},
		{"/<ShowMy:alice>", "/", []string{"<ShowMy:alice>"}},
		{"/<Search:gcc>", "/", []string{"<Search:gcc>"}},
		{"/a/b/c", "/a/b/c", nil},
	}
	for _, c := range cases {
		base, tokens := ParsePath(c.id)
		if base != c.base {
			t.Errorf("ParsePath(%s) base = %q, want %q", c.id, base, c.base)
		}
		if len(tokens) != len(c.tokens) {
			t.Errorf("ParsePath(%s) tokens = %v, want %v", c.id, tokens, c.tokens)
			continue
		}
		for i, tok := range tokens {
			if tok.String() != c.tokens[i] {
				t.Errorf("ParsePath(%s) token %d = %s, want %s", c.id, i, tok.String(), c.tokens[i])
			}
		}
	}
}

func TestParseTokenValueMayContainColons(t *testing.T) {
	tok, ok := ParseToken("<Show:remainingruntime:1-02:03:04>")
	if !ok {
		t.Fatal("token did not parse")
	}
	if tok.Value != "1-02:03:04" {
		t.Errorf("value split wrongly: %q", tok.Value)
	}
}

func TestNormalizeCollapsesGroupShowPair(t *testing.T) {
	_, tokens := ParsePath("/x/<GroupBy:userid>/<Show:userid:alice>")
	out := Normalize(tokens)
	if len(out) != 1 || out[0].String() != "<Show:userid:alice>" {
		t.Errorf("normalize: %v", out)
	}

	// Different property: no collapse.
	_, tokens = ParsePath("/x/<GroupBy:userid>/<Show:state:Running>")
	out = Normalize(tokens)
	if len(out) != 2 {
		t.Errorf("should not collapse across properties: %v", out)
	}
}

func jobs() []*model.Object {
	mk := func(id, user, state string) *model.Object {
		o := model.New(model.ClassSlurmJob, id, id, "", 0)
		o.SetExtra("userid", user)
		o.SetExtra("jobstate", state)
		return o
	}
	return []*model.Object{
		mk("/part/1", "alice", "Running"),
		mk("/part/2", "alice", "Pending"),
		mk("/part/3", "bob", "Running"),
	}
}

func lister(objs []*model.Object) Lister {
	return func(base string) ([]*model.Object, error) {
		return objs, nil
	}
}

func evalJobs(t *testing.T, id string, opts Options) []*model.Object {
	t.Helper()
	out, err := Evaluate(id, lister(jobs()), opts)
	if err != nil {
		t.Fatalf("Evaluate(%s): %v", id, err)
	}
	return out
}

func TestGroupByCountsAndIDs(t *testing.T) {
	out := evalJobs(t, "/part/<GroupBy:userid>", Options{})
	if len(out) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(out))
	}
	if out[0].Title != "alice" || out[0].Objects != 2 {
		t.Errorf("first group: %s %d", out[0].Title, out[0].Objects)
	}
	if out[0].ID != "/part/<Show:userid:alice>" {
		t.Errorf("group id: %s", out[0].ID)
	}
	if out[1].Title != "bob" || out[1].Objects != 1 {
		t.Errorf("second group: %s %d", out[1].Title, out[1].Objects)
	}
	// Sum of group counts equals leaves with non-null property.
	total := 0
	for _, g := range out {
		total += g.Objects
	}
	if total != 3 {
		t.Errorf("group count law violated: %d", total)
	}
}

func TestGroupByAtRootCollapsesDoubleSlash(t *testing.T) {
	out := evalJobs(t, "/<GroupBy:userid>", Options{})
	if len(out) == 0 {
		t.Fatal("no groups")
	}
	if out[0].ID != "/<Show:userid:alice>" {
		t.Errorf("root group id: %s", out[0].ID)
	}
}

func TestGroupByWhitelistMissIsEmpty(t *testing.T) {
	out := evalJobs(t, "/part/<GroupBy:secret>", Options{AllowedGroupFields: map[string]bool{"userid": true}})
	if len(out) != 0 {
		t.Errorf("whitelist miss should be empty, got %v", out)
	}
}

func TestShowPartitionLaw(t *testing.T) {
	all := jobs()
	seen := map[string]bool{}
	total := 0
	for _, v := range []string{"alice", "bob"} {
		out := evalJobs(t, "/part/<Show:userid:"+v+">", Options{})
		for _, o := range out {
			if seen[o.ID] {
				t.Errorf("object %s appears in two partitions", o.ID)
			}
			seen[o.ID] = true
			total++
		}
	}
	if total != len(all) {
		t.Errorf("partition law: %d objects, want %d", total, len(all))
	}
}

func TestNormalizationEquivalence(t *testing.T) {
	a := evalJobs(t, "/part/<GroupBy:userid>/<Show:userid:alice>", Options{})
	b := evalJobs(t, "/part/<Show:userid:alice>", Options{})
	if len(a) != len(b) || len(a) != 2 {
		t.Fatalf("drill-through mismatch: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i].ID != b[i].ID {
			t.Errorf("object %d differs: %s vs %s", i, a[i].ID, b[i].ID)
		}
	}
}

func TestShowMyMapping(t *testing.T) {
	opts := Options{
		ShowMyProperty: "userid",
		ShowMyValue:    func(u string) string { return u },
	}
	out := evalJobs(t, "/<ShowMy:bob>", opts)
	if len(out) != 1 || out[0].ID != "/part/3" {
		t.Errorf("ShowMy filter: %v", out)
	}
}

func TestSearchTokenRequiresSyncSearch(t *testing.T) {
	if out := evalJobs(t, "/part/<Search:alice>", Options{}); len(out) != 0 {
		t.Errorf("search without SyncSearch must be empty: %v", out)
	}
	out := evalJobs(t, "/part/<Search:alice>", Options{SyncSearch: true})
	if len(out) != 2 {
		t.Errorf("sync search: got %d", len(out))
	}
	// Search composes with nothing.
	if out := evalJobs(t, "/part/<Show:userid:alice>/<Search:run>", Options{SyncSearch: true}); len(out) != 0 {
		t.Errorf("composed search must be empty: %v", out)
	}
}

func TestLegacySearchForm(t *testing.T) {
	// <Search:yes:term> carries a recursion flag, not a property name.
	out := evalJobs(t, "/part/<Search:yes:alice>", Options{SyncSearch: true})
	if len(out) != 2 {
		t.Errorf("legacy search form: got %d", len(out))
	}
}

func TestIntermediateMustBeShow(t *testing.T) {
	if out := evalJobs(t, "/part/<GroupBy:userid>/<GroupBy:jobstate>", Options{}); len(out) != 0 {
		t.Errorf("GroupBy in intermediate position must yield empty: %v", out)
	}
}

func TestTrailingShowAfterShow(t *testing.T) {
	out := evalJobs(t, "/part/<Show:userid:alice>/<Show:jobstate:Running>", Options{})
	if len(out) != 1 || out[0].ID != "/part/1" {
		t.Errorf("chained Show: %v", out)
	}
}
