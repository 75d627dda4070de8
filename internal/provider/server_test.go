package provider

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/client"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

type fakeBackend struct {
	searched []SearchRequest
}

func (f *fakeBackend) RootObjects(ctx context.Context) ([]*model.Object, error) {
	return []*model.Object{
		model.New(model.ClassSlurmPartition, "/hopper", "hopper", "./resources/Partition.png", 3),
	}, nil
}

func (f *fakeBackend) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	if id == "/boom" {
		return nil, fmt.Errorf("backend exploded")
	}
	return []*model.Object{model.New(model.ClassSlurmJob, id+"/1", "1", "", 0)}, nil
}

func (f *fakeBackend) Search(ctx context.Context, req SearchRequest) []*model.Object {
	f.searched = append(f.searched, req)
	return []*model.Object{model.New(model.ClassSearchHandle, "h-1", req.Term, "", 0)}
}

// startServer runs a server on an ephemeral port and returns a client for
// it.
func startServer(t *testing.T, backend Backend, opts Options) *client.Client {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	srv := NewServer(opts, backend)
	go srv.Serve(ctx, ln)
	return client.New("127.0.0.1", ln.Addr().(*net.TCPAddr).Port)
}

// rawCall sends one raw line and returns the raw response line.
func rawCall(t *testing.T, c *client.Client, line string) string {
	t.Helper()
	conn, err := net.Dial("tcp", c.Endpoint())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	resp, err := bufio.NewReader(conn).ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestGetInfoAlwaysValidShape(t *testing.T) {
	c := startServer(t, &fakeBackend{}, Options{RootName: "Test Provider"})
	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if info.RootName != "Test Provider" {
		t.Errorf("root name: %q", info.RootName)
	}
	if info.Icons == nil {
		t.Errorf("icons must be an array even when empty")
	}
}

func TestRootAndObjects(t *testing.T) {
	c := startServer(t, &fakeBackend{}, Options{RootName: "T"})
	roots, err := c.RootObjects(context.Background())
	if err != nil {
		t.Fatalf("RootObjects: %v", err)
	}
	if len(roots) != 1 || roots[0].Class != model.ClassSlurmPartition {
		t.Fatalf("roots: %v", roots)
	}

	objs, err := c.Objects(context.Background(), "/hopper")
	if err != nil {
		t.Fatalf("Objects: %v", err)
	}
	if len(objs) != 1 || objs[0].ID != "/hopper/1" {
		t.Errorf("objects: %v", objs)
	}
}

func TestProtocolErrors(t *testing.T) {
	c := startServer(t, &fakeBackend{}, Options{RootName: "T"})
	cases := []struct {
		line string
		want string
	}{
		{`{broken`, "Invalid JSON"},
		{`{"method":"Frobnicate"}`, "Unknown message"},
		{`{"method":"GetObjects"}`, "Missing id"},
	}
	for _, tc := range cases {
		resp := rawCall(t, c, tc.line)
		var e struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal([]byte(resp), &e); err != nil {
			t.Fatalf("bad error shape for %q: %s", tc.line, resp)
		}
		if e.Error != tc.want {
			t.Errorf("error for %q = %q, want %q", tc.line, e.Error, tc.want)
		}
	}
}

func TestBackendErrorSameLine(t *testing.T) {
	c := startServer(t, &fakeBackend{}, Options{RootName: "T"})
	_, err := c.Objects(context.Background(), "/boom")
	if err == nil {
		t.Fatal("backend error should surface to the client")
	}
}

func TestLegacyAndBareStringForms(t *testing.T) {
	c := startServer(t, &fakeBackend{}, Options{RootName: "T"})
	for _, line := range []string{`{"GetRootObjects":true}`, `"GetRootObjects"`} {
		resp := rawCall(t, c, line)
		var payload struct {
			Objects []json.RawMessage `json:"objects"`
		}
		if err := json.Unmarshal([]byte(resp), &payload); err != nil || len(payload.Objects) != 1 {
			t.Errorf("legacy form %q: %s", line, resp)
		}
	}
}

func TestSearchWithoutSearcherIsEmpty(t *testing.T) {
	c := startServer(t, plainBackend{}, Options{RootName: "T"})
	objs, err := c.Search(context.Background(), "/", "gcc", true, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("non-searcher backend must answer empty: %v", objs)
	}
}

type plainBackend struct{}

func (plainBackend) RootObjects(ctx context.Context) ([]*model.Object, error) {
	return nil, nil
}

func (plainBackend) ObjectsForPath(ctx context.Context, id string) ([]*model.Object, error) {
	return nil, nil
}

func TestSearchDispatch(t *testing.T) {
	backend := &fakeBackend{}
	c := startServer(t, backend, Options{RootName: "T"})
	objs, err := c.Search(context.Background(), "/sub", "gcc", true, nil)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(objs) != 1 || objs[0].Class != model.ClassSearchHandle {
		t.Fatalf("search reply: %v", objs)
	}
	if len(backend.searched) != 1 {
		t.Fatalf("backend not called")
	}
	req := backend.searched[0]
	if req.ID != "/sub" || req.Term != "gcc" || !req.Recursive || req.Handle != nil {
		t.Errorf("request fields: %+v", req)
	}
}

func TestIconCatalog(t *testing.T) {
	dir := t.TempDir()
	png := []byte("\x89PNG fake")
	if err := os.WriteFile(filepath.Join(dir, "Beta.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "alpha.PNG"), png, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	c := startServer(t, &fakeBackend{}, Options{RootName: "T", ResourcesDir: dir})
	info, err := c.Info(context.Background())
	if err != nil {
		t.Fatalf("Info: %v", err)
	}
	if len(info.Icons) != 2 {
		t.Fatalf("expected 2 icons, got %d", len(info.Icons))
	}
	// Case-insensitive filename order.
	if info.Icons[0].Filename != "./resources/alpha.PNG" || info.Icons[1].Filename != "./resources/Beta.png" {
		t.Errorf("icon order: %s, %s", info.Icons[0].Filename, info.Icons[1].Filename)
	}
	decoded, err := base64.StdEncoding.DecodeString(info.Icons[1].Data)
	if err != nil || string(decoded) != string(png) {
		t.Errorf("icon payload mangled")
	}
}
