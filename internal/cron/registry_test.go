package cron

import (
	"context"
	"testing"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryStoresJobs(t *testing.T) {
	registry := NewRegistry()
	jobA := &stubJob{name: "a"}
	jobB := &stubJob{name: "b"}
	if err := registry.Register(jobA); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := registry.Register(jobB); err != nil {
		t.Fatalf("register b: %v", err)
	}
	jobs := registry.Jobs()
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0] != jobA || jobs[1] != jobB {
		t.Fatalf("jobs returned out of order")
	}
	// ensure caller cannot mutate internal slice
	jobs[0] = nil
	if registry.Jobs()[0] == nil {
		t.Fatalf("internal slice leaked")
	}
}

func TestRegistryRejectsRepeatedNames(t *testing.T) {
	first := &stubJob{name: "reservation_lifecycle"}
	registry := NewRegistry(first, &stubJob{name: "reservation_lifecycle"}, nil)
	if jobs := registry.Jobs(); len(jobs) != 1 || jobs[0] != first {
		t.Fatalf("expected only the first job to be kept, got %d", len(jobs))
	}
	if err := registry.Register(&stubJob{name: "reservation_lifecycle"}); err == nil {
		t.Fatal("expected duplicate name to be rejected")
	}
	if err := registry.Register(nil); err == nil {
		t.Fatal("expected nil job to be rejected")
	}
}
