package deploy

import (
	"context"
	"log/slog"

	"github.com/deckhand-io/deckhand/internal/job"
	"github.com/deckhand-io/deckhand/internal/log"
)

// Submit creates a job for an already-authorized, already-resolved trigger,
// registers it, and launches the runner detached from the request. It returns
// immediately; the returned job is the only channel through which the deploy
// outcome is observable. There is no join and no way to cancel a launched
// run - a hung script leaves its job in the running state forever.
func Submit(ctx context.Context, registry *job.Registry, app, script string) *job.Job {
	j := job.New(app)
	registry.Add(j)

	// outlive the triggering request, keep the log correlation attrs
	runCtx := log.ContextAttrs(context.WithoutCancel(ctx),
		slog.String("job_id", j.ID.String()),
		slog.String("app", app),
	)
	slog.InfoContext(runCtx, "deploy triggered", "script", script)
	go Run(runCtx, j, script)

	return j
}
