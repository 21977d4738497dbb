package web

import (
	"html/template"
	"log/slog"
	"net/http"

	_ "embed"

	"github.com/deckhand-io/deckhand/internal/job"
)

//go:embed console.html
var consoleSource string

var consoleTmpl = template.Must(template.New("console").Parse(consoleSource))

// consoleJob is the render model for one job: a point-in-time snapshot taken
// while the runner may still be appending.
type consoleJob struct {
	ID      string
	App     string
	Summary string
	Output  []job.OutputLine
}

type consolePage struct {
	Jobs []consoleJob
}

func (s *Server) handleConsole(w http.ResponseWriter, r *http.Request) {
	jobs := s.registry.Snapshot()

	page := consolePage{Jobs: make([]consoleJob, 0, len(jobs))}
	for _, j := range jobs {
		res := j.Snapshot()
		page.Jobs = append(page.Jobs, consoleJob{
			ID:      j.ID.String(),
			App:     j.App,
			Summary: res.Summary(),
			Output:  res.Output,
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := consoleTmpl.Execute(w, page); err != nil {
		slog.ErrorContext(r.Context(), "rendering console", "error", err)
	}
}
