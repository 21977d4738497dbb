package deploy

import (
	"bufio"
	"context"
	"errors"
	"io"
	"log/slog"
	"os/exec"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/deckhand-io/deckhand/internal/job"
)

// sentinelStatus is recorded when the real exit code is unavailable: spawn
// failure, wait failure, or death by signal.
const sentinelStatus = 255

// maxLineSize bounds a single output line; longer lines abort that stream's
// draining but not the job.
const maxLineSize = 1 << 20

// Run executes the deploy script and drives the job to its terminal state.
// All operational failures are absorbed into the job's own result record;
// Run never reports them to the caller because there is no caller left to
// report to - it executes detached from the triggering request.
//
// Both pipes are drained concurrently so a child blocked on a full stdout
// or stderr buffer always makes progress, and the terminal status is written
// only after the process has actually exited.
func Run(ctx context.Context, j *job.Job, script string) {
	cmd := exec.Command(script)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		fail(ctx, j, "opening stdout pipe: "+err.Error())
		return
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		fail(ctx, j, "opening stderr pipe: "+err.Error())
		return
	}

	if err := cmd.Start(); err != nil {
		fail(ctx, j, "starting deploy script: "+err.Error())
		return
	}
	slog.DebugContext(ctx, "deploy script started", "pid", cmd.Process.Pid)

	var g errgroup.Group
	g.Go(func() error {
		return drain(ctx, j, stdout, job.Stdout)
	})
	g.Go(func() error {
		return drain(ctx, j, stderr, job.Stderr)
	})
	// os/exec requires the pipes to be fully consumed before Wait; the two
	// goroutines above read them in parallel until EOF, which coincides with
	// process exit.
	_ = g.Wait()

	status := 0
	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() >= 0 {
			status = exitErr.ExitCode()
		} else {
			// killed by a signal, or the process could not be reaped
			status = sentinelStatus
		}
	}
	j.Finalize(status)
	slog.InfoContext(ctx, "deploy finished", "status", status)
}

// drain forwards newline-delimited text from one pipe into the job, tagged
// with its source. Per-source ordering is the read order; interleaving with
// the other source reflects arrival. Lines that are not valid UTF-8 are
// dropped rather than failing the stream.
func drain(ctx context.Context, j *job.Job, r io.Reader, src job.Source) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		if !utf8.ValidString(line) {
			slog.DebugContext(ctx, "dropping non-utf8 output line", "source", src.String())
			continue
		}
		j.AppendLine(job.OutputLine{Source: src, Text: line})
	}
	if err := scanner.Err(); err != nil {
		slog.ErrorContext(ctx, "reading deploy output", "source", src.String(), "error", err)
		j.AppendLine(job.OutputLine{Source: src, Text: "output truncated: " + err.Error()})
		// the pipe must still reach EOF: a child blocked on a write here
		// would never exit and the job would hang at running forever
		_, _ = io.Copy(io.Discard, r)
	}
	return nil
}

// fail finalizes a job that never produced a usable process: the diagnostic
// becomes part of the job's visible output so the console shows why the
// deploy never ran, instead of a job stuck in the running state.
func fail(ctx context.Context, j *job.Job, diagnostic string) {
	slog.ErrorContext(ctx, "deploy failed to run", "error", diagnostic)
	j.AppendLine(job.OutputLine{Source: job.Stderr, Text: diagnostic})
	j.Finalize(sentinelStatus)
}
