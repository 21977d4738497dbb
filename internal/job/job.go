package job

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// Source tags an output line with the stream it arrived on.
type Source int

const (
	Stdout Source = iota
	Stderr
)

func (s Source) String() string {
	switch s {
	case Stdout:
		return "stdout"
	case Stderr:
		return "stderr"
	default:
		return "unknown"
	}
}

// OutputLine is a single line of child process output tagged with its origin.
type OutputLine struct {
	Source Source
	Text   string
}

// Result is a point-in-time copy of a job's mutable state. Status is nil
// while the process is still running.
type Result struct {
	Output []OutputLine
	Status *int
}

// Summary renders the console one-liner for a result.
func (r Result) Summary() string {
	if r.Status == nil {
		return "Running..."
	}
	return fmt.Sprintf("Exit code: %d", *r.Status)
}

// Job is one tracked execution of a deploy script. ID and App are immutable
// after creation. The result record is mutated only by the job's own runner
// and may be read concurrently by any number of console requests, so all
// access goes through the embedded RWMutex.
type Job struct {
	ID  uuid.UUID
	App string

	mx     sync.RWMutex
	output []OutputLine
	status *int
}

func New(app string) *Job {
	return &Job{
		ID:  uuid.New(),
		App: app,
	}
}

// AppendLine records one merged output line. Safe for concurrent use with
// Snapshot; a reader never observes a partially appended line.
func (j *Job) AppendLine(line OutputLine) {
	j.mx.Lock()
	defer j.mx.Unlock()
	j.output = append(j.output, line)
}

// Finalize records the terminal status. Called exactly once by the runner,
// after the process has actually exited.
func (j *Job) Finalize(code int) {
	j.mx.Lock()
	defer j.mx.Unlock()
	j.status = &code
}

// Snapshot returns a consistent copy of the current result. The copy is
// owned by the caller and does not alias the job's internal slice.
func (j *Job) Snapshot() Result {
	j.mx.RLock()
	defer j.mx.RUnlock()

	out := make([]OutputLine, len(j.output))
	copy(out, j.output)
	return Result{
		Output: out,
		Status: j.status,
	}
}

// Running reports whether the job has no terminal status yet.
func (j *Job) Running() bool {
	j.mx.RLock()
	defer j.mx.RUnlock()
	return j.status == nil
}
