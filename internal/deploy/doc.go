// Package deploy implements execution and tracking of deploy scripts.
//
// Overview
// Submit is the trigger entry point: it creates a job, registers it, and
// launches Run in its own goroutine. The HTTP response returns as soon as
// registration succeeds; nothing waits for the script.
//
// Run is a thin, opinionated wrapper around os/exec:
//   - starts the script with stdout and stderr piped, stdin not connected
//   - drains both pipes concurrently, one goroutine per stream
//   - merges the streams into the job as tagged lines in arrival order
//   - waits for the process and records the exit code, or 255 when the
//     real code is unavailable (spawn failure, wait failure, signal death)
//
// Data flow:
//
//	web.handleTrigger        Submit            Run{script}
//	     |                     |                   |
//	auth + resolve ----------->| job.New/Add       |
//	     | 200 + job id <------| go Run ---------->| exec.Start
//	     |                     |                   | drain stdout  \ concurrent,
//	     |                     |                   | drain stderr  / appends lines
//	     |                     |                   | exec.Wait -> Finalize(status)
//	     |                                         |
//	console reads registry.Snapshot() at any time, racing the appends safely.
//
// Invariants:
//   - Exactly one runner mutates a given job; readers take snapshots.
//   - Per-stream line order is preserved; cross-stream interleave is arrival.
//   - Status is written once, only after the process has exited.
//   - Failures after registration are terminal for that job only; they are
//     never propagated and never affect other jobs.
//   - Lines that are not valid UTF-8 are dropped (kept permissive on purpose).
package deploy
