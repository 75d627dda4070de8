package catalog

import (
	"context"
	"encoding/json"
	"testing"
)

const sample = `{"objects":[
	{"class":"WPShelf","id":"/fiction","title":"Fiction","icon":null,"objects":2,"floor":1},
	{"class":"WPBook","id":"/fiction/dune","title":"Dune","icon":null,"objects":0,"author":"Herbert"},
	{"class":"WPBook","id":"/fiction/lotr","title":"LotR","icon":null,"objects":0,"author":"Tolkien"},
	{"class":"WPShelf","id":"/science","title":"Science","icon":null,"objects":0,"floor":2}
]}`

func load(t *testing.T, data string) *Provider {
	t.Helper()
	p, err := parse([]byte(data), "test")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return p
}

func TestRootObjects(t *testing.T) {
	p := load(t, sample)
	objs, err := p.RootObjects(context.Background())
	if err != nil {
		t.Fatalf("RootObjects: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("roots: %v", objs)
	}
	if objs[0].ID != "/fiction" || objs[1].ID != "/science" {
		t.Errorf("root ids: %s %s", objs[0].ID, objs[1].ID)
	}
}

func TestChildren(t *testing.T) {
	p := load(t, sample)
	objs, err := p.ObjectsForPath(context.Background(), "/fiction")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 2 || objs[0].Title != "Dune" {
		t.Errorf("children: %v", objs)
	}
	if v, _ := objs[0].Extra("author"); v != "Herbert" {
		t.Errorf("extras must pass through untouched: %v", v)
	}
}

func TestUnknownClassesRoundTrip(t *testing.T) {
	p := load(t, sample)
	objs, _ := p.RootObjects(context.Background())
	data, err := json.Marshal(objs[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"class":"WPShelf","id":"/fiction","title":"Fiction","icon":null,"objects":2,"floor":1}`
	if string(data) != want {
		t.Errorf("passthrough changed payload:\n got: %s\nwant: %s", data, want)
	}
}

func TestBareArrayForm(t *testing.T) {
	p := load(t, `[{"class":"WPObject","id":"/a","title":"a","icon":null,"objects":0}]`)
	objs, _ := p.RootObjects(context.Background())
	if len(objs) != 1 || objs[0].ID != "/a" {
		t.Errorf("bare array: %v", objs)
	}
}

func TestGarbageRejected(t *testing.T) {
	if _, err := parse([]byte(`{"nope":1}`), "test"); err == nil {
		t.Error("expected parse error")
	}
}
