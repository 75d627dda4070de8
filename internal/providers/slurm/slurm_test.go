package slurm

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
)

const squeueSample = "" +
	"101|alice|2|RUNNING|hopper|train|8|16G|1-00:00:00|proj1|0:10:00|None|1000|gpu:2\n" +
	"102_3|bob|1|PENDING|hopper|sim|4|8G|04:00:00|proj2|0:00|Priority|900|N/A\n"

// stubRunner fakes the scheduler CLIs with canned output.
func stubRunner(outputs map[string]string) runner {
	return func(ctx context.Context, name string, args ...string) (string, error) {
		key := name + " " + strings.Join(args, " ")
		for prefix, out := range outputs {
			if strings.HasPrefix(key, prefix) {
				return out, nil
			}
		}
		return "", fmt.Errorf("%s: not stubbed", key)
	}
}

func testProvider(outputs map[string]string, scramble bool) *Provider {
	return &Provider{
		scrambleUsers: scramble,
		userID:        "alice",
		run:           stubRunner(outputs),
	}
}

func TestParseJobLine(t *testing.T) {
	j, ok := parseJobLine("101|alice|2|RUNNING|hopper|train|8|16G|1-00:00:00|proj1|0:10:00|None|1000|gpu:2")
	if !ok {
		t.Fatal("line did not parse")
	}
	if j.ID != "101" || j.UserID != "alice" || j.NodeCount != 2 || j.CPUs != 8 {
		t.Errorf("fields: %+v", j)
	}
	if j.State != "Running" {
		t.Errorf("state not capitalized: %q", j.State)
	}
	if j.Priority == nil || *j.Priority != 1000 {
		t.Errorf("priority: %v", j.Priority)
	}
	if j.JobArray {
		t.Errorf("101 is not an array job")
	}
	if j.RemainingRuntime != "23:50:00" {
		t.Errorf("remaining runtime: %q", j.RemainingRuntime)
	}

	arr, ok := parseJobLine("102_3|bob|1|PENDING|hopper|sim|4|8G|04:00:00|proj2|0:00|Priority|900|N/A")
	if !ok || !arr.JobArray {
		t.Errorf("array job not detected: %+v", arr)
	}
}

func TestParseJobLineRejectsGarbage(t *testing.T) {
	for _, line := range []string{"", "   ", "a|b|c", "|alice|1|R|p|n|1|1G|1:00|a|0:00|r|1|g"} {
		if _, ok := parseJobLine(line); ok {
			t.Errorf("line %q should not parse", line)
		}
	}
}

func TestRemainingRuntime(t *testing.T) {
	cases := []struct {
		limit, elapsed, want string
	}{
		{"1-00:00:00", "0:10:00", "23:50:00"},
		{"2-12:00:00", "1:00:00", "2-11:00:00"},
		{"04:00:00", "05:00:00", "00:00:00"},
		{"UNLIMITED", "0:10:00", ""},
		{"", "0:10:00", ""},
	}
	for _, c := range cases {
		if got := remainingRuntime(c.limit, c.elapsed); got != c.want {
			t.Errorf("remainingRuntime(%q,%q) = %q, want %q", c.limit, c.elapsed, got, c.want)
		}
	}
}

func TestRot13(t *testing.T) {
	if got := rot13("alice"); got != "nyvpr" {
		t.Errorf("rot13: %q", got)
	}
	if got := rot13(rot13("Bob-7")); got != "Bob-7" {
		t.Errorf("rot13 must be an involution")
	}
}

func TestPartitionsFromScontrol(t *testing.T) {
	run := stubRunner(map[string]string{
		"scontrol": "PartitionName=hopper Default=YES\nPartitionName=debug State=UP\n",
	})
	got := partitions(context.Background(), run)
	if len(got) != 2 || got[0] != "debug" || got[1] != "hopper" {
		t.Errorf("partitions: %v", got)
	}
}

func TestPartitionsFallbackToSinfo(t *testing.T) {
	run := stubRunner(map[string]string{
		"sinfo": "hopper*\ndebug\nhopper*\n",
	})
	got := partitions(context.Background(), run)
	if len(got) != 2 || got[0] != "debug" || got[1] != "hopper" {
		t.Errorf("partitions: %v", got)
	}
	if def := defaultPartition(context.Background(), run); def != "hopper" {
		t.Errorf("default partition: %q", def)
	}
}

func TestRootObjects(t *testing.T) {
	p := testProvider(map[string]string{
		"scontrol":        "PartitionName=hopper\n",
		"sinfo":           "hopper*\n",
		"squeue -h --me":  "101\n",
		"squeue -h -p":    squeueSample,
	}, false)

	objs, err := p.RootObjects(context.Background())
	if err != nil {
		t.Fatalf("RootObjects: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("expected partition + My Jobs, got %v", objs)
	}
	part := objs[0]
	if part.Class != model.ClassSlurmPartition || part.ID != "/hopper" || part.Objects != 2 {
		t.Errorf("partition object: %+v", part)
	}
	if v, _ := part.Extra("isdefault"); v != true {
		t.Errorf("isdefault: %v", v)
	}
	mine := objs[1]
	if mine.Class != model.ClassGroup || mine.ID != "/<ShowMy:alice>" || mine.Title != "My Jobs" {
		t.Errorf("my jobs group: %+v", mine)
	}
	if mine.Objects != 1 {
		t.Errorf("my job count: %d", mine.Objects)
	}
}

func TestObjectsForPartition(t *testing.T) {
	p := testProvider(map[string]string{"squeue -h -p": squeueSample}, false)
	objs, err := p.ObjectsForPath(context.Background(), "/hopper")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("jobs: %v", objs)
	}
	job := objs[0]
	if job.Class != model.ClassSlurmJob || job.ID != "/hopper/101" {
		t.Errorf("job object: %+v", job)
	}
	// Caller's own job carries the badged icon.
	if job.Icon == nil || *job.Icon != "./resources/Job_IDCard.png" {
		t.Errorf("own-job icon: %v", job.Icon)
	}
	if objs[1].Icon == nil || *objs[1].Icon != "./resources/Job.png" {
		t.Errorf("other-job icon: %v", objs[1].Icon)
	}
}

func TestGroupByUserid(t *testing.T) {
	p := testProvider(map[string]string{"squeue -h -p": squeueSample}, false)
	objs, err := p.ObjectsForPath(context.Background(), "/hopper/<GroupBy:userid>")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 2 {
		t.Fatalf("groups: %v", objs)
	}
	if objs[0].Class != model.ClassGroup || objs[0].ID != "/hopper/<Show:userid:alice>" {
		t.Errorf("group: %+v", objs[0])
	}
}

func TestFirstSegment(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"/hopper", "hopper"},
		{"/hopper/101", "hopper"},
		{"hopper", "hopper"},
		{"//hopper", "hopper"},
		{"/", ""},
	}
	for _, c := range cases {
		if got := firstSegment(c.in); got != c.want {
			t.Errorf("firstSegment(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestGroupByUnknownPropertyIsEmpty(t *testing.T) {
	p := testProvider(map[string]string{"squeue -h -p": squeueSample}, false)
	objs, err := p.ObjectsForPath(context.Background(), "/hopper/<GroupBy:favouritecolor>")
	if err != nil || len(objs) != 0 {
		t.Errorf("whitelist miss: %v %v", objs, err)
	}
}

func TestShowMyWithScrambledUsers(t *testing.T) {
	p := testProvider(map[string]string{"squeue -h -p": squeueSample}, true)
	objs, err := p.ObjectsForPath(context.Background(), "/hopper/<ShowMy:alice>")
	if err != nil {
		t.Fatalf("ObjectsForPath: %v", err)
	}
	if len(objs) != 1 {
		t.Fatalf("my jobs: %v", objs)
	}
	if v, _ := objs[0].Extra("userid"); v != "nyvpr" {
		t.Errorf("scrambled userid: %v", v)
	}
}

func TestCLIFailureYieldsEmptyListing(t *testing.T) {
	p := testProvider(map[string]string{}, false)
	objs, err := p.ObjectsForPath(context.Background(), "/hopper")
	if err != nil {
		t.Fatalf("CLI failure must not error: %v", err)
	}
	if len(objs) != 0 {
		t.Errorf("expected empty listing: %v", objs)
	}
}
