package nocodb

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

// fakeNocoDB serves the v2 metadata endpoints with one base, one table and
// two records.
func fakeNocoDB(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, v any) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/v2/meta/bases", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xc-token") != "sekrit" {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
		reply(w, map[string]any{"list": []any{map[string]any{"id": "b1", "title": "Astro"}}})
	})
	mux.HandleFunc("/api/v2/meta/bases/b1/tables", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"list": []any{map[string]any{"id": "t1", "title": "Images"}}})
	})
	mux.HandleFunc("/api/v2/meta/tables/t1", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"columns": []any{map[string]any{"title": "URL"}, map[string]any{"title": "status"}}})
	})
	mux.HandleFunc("/api/v2/tables/t1/records", func(w http.ResponseWriter, r *http.Request) {
		reply(w, map[string]any{"list": []any{
			map[string]any{
				"URL":                        "https://img.example.org/carina.png",
				"status":                     "published",
				"EXIF.XMP:Title":             "Carina Nebula",
				"EXIF.XMP:Instrument":        `["NIRCam"]`,
				"EXIF.File:ImageWidth":       4537,
				"EXIF.File:ImageHeight":      2880,
			},
			map[string]any{
				"URL":    "https://img.example.org/deepfield.png",
				"status": "draft",
			},
		}})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testProvider(t *testing.T) *Provider {
	t.Helper()
	srv := fakeNocoDB(t)
	return New(&Config{BaseURL: srv.URL, APIToken: "sekrit", RootName: "NocoDB"})
}

func TestRootObjects(t *testing.T) {
	p := testProvider(t)
	objs, err := p.RootObjects(context.Background())
	if err != nil {
		t.Fatalf("RootObjects: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("tables: %v", objs)
	}
	tab := objs[0]
	if tab.Class != model.ClassNocoTable || tab.ID != "/t1" || tab.Title != "Images" {
		t.Errorf("table object: %+v", tab)
	}
	if tab.Objects != 2 {
		t.Errorf("record count: %d", tab.Objects)
	}
	if v, _ := tab.Extra("column_count"); v != 2 {
		t.Errorf("column count: %v", v)
	}
	if v, _ := tab.Extra("base_id"); v != "b1" {
		t.Errorf("base id: %v", v)
	}
}

func TestRecordListing(t *testing.T) {
	p := testProvider(t)
	objs, err := p.ObjectsForPath(context.Background(), "/t1")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("records: %v", objs)
	}
	rec := objs[0]
	if rec.Class != model.ClassNocoRecord || rec.ID != "/t1/0" {
		t.Errorf("record object: %+v", rec)
	}
	if rec.Title != "Carina Nebula" {
		t.Errorf("title from EXIF: %q", rec.Title)
	}
	if v, _ := rec.Extra("instrument"); v != "NIRCam" {
		t.Errorf("instrument from JSON list: %v", v)
	}
	if v, _ := rec.Extra("image_width"); v != 4537 {
		t.Errorf("image width: %v", v)
	}
	raw, ok := rec.Extra("contextmenu")
	if !ok {
		t.Fatal("record with URL should carry a contextmenu")
	}
	entry := raw.([]any)[0].(map[string]any)
	if entry["action"] != "open" || entry["url"] != "https://img.example.org/carina.png" {
		t.Errorf("contextmenu entry: %v", entry)
	}

	// Title falls back to the URL basename.
	if objs[1].Title != "deepfield.png" {
		t.Errorf("fallback title: %q", objs[1].Title)
	}
}

func TestGroupByStatus(t *testing.T) {
	p := testProvider(t)
	objs, err := p.ObjectsForPath(context.Background(), "/t1/<GroupBy:status>")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("groups: %v", objs)
	}
	if objs[0].Class != model.ClassGroup || objs[0].ID != "/t1/<Show:status:published>" {
		t.Errorf("group: %+v", objs[0])
	}
}

func TestUnknownTableIsEmpty(t *testing.T) {
	p := testProvider(t)
	objs, err := p.ObjectsForPath(context.Background(), "/t9")
	if err != nil || len(objs) != 0 {
		t.Errorf("unknown table: %v %v", objs, err)
	}
}

func TestFirstOfJSONList(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{`["NIRCam","MIRI"]`, "NIRCam"},
		{[]any{"MIRI"}, "MIRI"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, c := range cases {
		if got := firstOfJSONList(c.in); got != c.want {
			t.Errorf("firstOfJSONList(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestLoadConfigValidation(t *testing.T) {
	if _, err := LoadConfig("/no/such/file.toml"); err == nil {
		t.Error("missing file should error")
	}
}
