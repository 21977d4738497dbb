package job

import "sync"

// Registry is the append-only collection of every job submitted since the
// process started. Jobs are never removed or reordered; re-deploying an
// application adds a new job while the old ones stay visible. History is
// kept in memory only and grows without bound, which mirrors the observed
// behavior of the service.
type Registry struct {
	mx   sync.RWMutex
	jobs []*Job
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a job. Safe to call concurrently with Snapshot and other Adds.
func (r *Registry) Add(j *Job) {
	r.mx.Lock()
	defer r.mx.Unlock()
	r.jobs = append(r.jobs, j)
}

// Snapshot returns the jobs in submission order, oldest first. The slice is
// a copy; the jobs themselves are shared and internally synchronized, so a
// caller can read each job's current result while its runner keeps writing.
func (r *Registry) Snapshot() []*Job {
	r.mx.RLock()
	defer r.mx.RUnlock()

	jobs := make([]*Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Len reports how many jobs have been submitted so far.
func (r *Registry) Len() int {
	r.mx.RLock()
	defer r.mx.RUnlock()
	return len(r.jobs)
}
