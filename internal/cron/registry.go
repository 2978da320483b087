package cron

import (
	"context"
	"fmt"
)

// Job is one maintenance pass the worker runs each cycle (reservation
// lifecycle, outbox retention, notification cleanup).
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in run order. Names are unique since metrics and
// logs are keyed by them.
type Registry struct {
	jobs  []Job
	names map[string]struct{}
}

// NewRegistry registers jobs in order; nil jobs and repeated names are skipped.
func NewRegistry(jobs ...Job) *Registry {
	registry := &Registry{names: make(map[string]struct{}, len(jobs))}
	for _, job := range jobs {
		_ = registry.Register(job)
	}
	return registry
}

func (r *Registry) Register(job Job) error {
	if job == nil {
		return fmt.Errorf("cron job is nil")
	}
	if r.names == nil {
		r.names = make(map[string]struct{})
	}
	name := job.Name()
	if _, taken := r.names[name]; taken {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.names[name] = struct{}{}
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}
