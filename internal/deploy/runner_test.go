package deploy_test

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/deckhand-io/deckhand/internal/deploy"
	"github.com/deckhand-io/deckhand/internal/job"
)

// writeScript drops an executable shell script into a temp dir and returns
// its path.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	needSh(t)

	path := filepath.Join(t.TempDir(), "app.deploy")
	err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755)
	require.NoError(t, err)
	return path
}

func needSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skipf("skipped, binary sh not available: %v", err)
	}
}

func status(t *testing.T, j *job.Job) int {
	t.Helper()
	res := j.Snapshot()
	require.NotNil(t, res.Status)
	return *res.Status
}

func TestRun(t *testing.T) {
	t.Parallel()

	t.Run("echo and exit zero", func(t *testing.T) {
		t.Parallel()
		script := writeScript(t, "echo line1\n")
		j := job.New("foo")
		deploy.Run(t.Context(), j, script)

		res := j.Snapshot()
		require.Equal(t, []job.OutputLine{{Source: job.Stdout, Text: "line1"}}, res.Output)
		require.Equal(t, 0, status(t, j))
		require.Equal(t, "Exit code: 0", res.Summary())
	})

	t.Run("nonzero exit code", func(t *testing.T) {
		t.Parallel()
		script := writeScript(t, "exit 7\n")
		j := job.New("foo")
		deploy.Run(t.Context(), j, script)
		require.Equal(t, 7, status(t, j))
	})

	t.Run("interleaved streams keep per-stream order", func(t *testing.T) {
		t.Parallel()
		script := writeScript(t, `i=0
while [ $i -lt 100 ]; do
  echo "out $i"
  echo "err $i" 1>&2
  i=$((i+1))
done
`)
		j := job.New("foo")
		deploy.Run(t.Context(), j, script)
		require.Equal(t, 0, status(t, j))

		var outs, errs []string
		for _, line := range j.Snapshot().Output {
			switch line.Source {
			case job.Stdout:
				outs = append(outs, line.Text)
			case job.Stderr:
				errs = append(errs, line.Text)
			}
		}
		require.Len(t, outs, 100)
		require.Len(t, errs, 100)
		for i := range 100 {
			require.Equal(t, fmt.Sprintf("out %d", i), outs[i])
			require.Equal(t, fmt.Sprintf("err %d", i), errs[i])
		}
	})

	t.Run("signal death maps to sentinel", func(t *testing.T) {
		t.Parallel()
		script := writeScript(t, "kill -9 $$\n")
		j := job.New("foo")
		deploy.Run(t.Context(), j, script)
		require.Equal(t, 255, status(t, j))
	})

	t.Run("spawn failure finalizes with diagnostic", func(t *testing.T) {
		t.Parallel()
		j := job.New("foo")
		deploy.Run(t.Context(), j, filepath.Join(t.TempDir(), "does-not-exist"))

		res := j.Snapshot()
		require.Equal(t, 255, status(t, j))
		require.NotEmpty(t, res.Output)
		require.Equal(t, job.Stderr, res.Output[0].Source)
		require.Contains(t, res.Output[0].Text, "starting deploy script")
	})

	t.Run("non-utf8 lines are dropped", func(t *testing.T) {
		t.Parallel()
		script := writeScript(t, "printf '\\377\\376bad\\n'\necho ok\n")
		j := job.New("foo")
		deploy.Run(t.Context(), j, script)

		require.Equal(t, 0, status(t, j))
		require.Equal(t, []job.OutputLine{{Source: job.Stdout, Text: "ok"}}, j.Snapshot().Output)
	})
}

// TestRunBackpressure floods one stream while the other stays silent. A
// runner draining the pipes sequentially would deadlock once the child
// fills the 64KiB pipe buffer; concurrent draining must complete.
func TestRunBackpressure(t *testing.T) {
	t.Parallel()

	flood := `i=0
while [ $i -lt 5000 ]; do
  echo "xxxxxxxxxxxxxxxxxxxxxxxxxxxxxxxx $i" %s
  i=$((i+1))
done
`
	cases := []struct {
		scenario string
		redirect string
		source   job.Source
	}{
		{"stderr only", "1>&2", job.Stderr},
		{"stdout only", "", job.Stdout},
	}

	for _, tc := range cases {
		t.Run(tc.scenario, func(t *testing.T) {
			t.Parallel()
			script := writeScript(t, fmt.Sprintf(flood, tc.redirect))
			j := job.New("foo")

			done := make(chan struct{})
			go func() {
				deploy.Run(t.Context(), j, script)
				close(done)
			}()
			select {
			case <-done:
			case <-time.After(30 * time.Second):
				t.Fatal("runner deadlocked under pipe backpressure")
			}

			require.Equal(t, 0, status(t, j))
			res := j.Snapshot()
			require.Len(t, res.Output, 5000)
			for _, line := range res.Output {
				require.Equal(t, tc.source, line.Source)
			}
		})
	}
}

// TestRunOverlongLine feeds a single line far beyond the scanner cap. The
// stream is truncated, but the pipe must still be consumed to EOF so the
// child can finish and the job must reach a terminal status instead of
// hanging at running.
func TestRunOverlongLine(t *testing.T) {
	t.Parallel()

	// ~2MiB on stdout without a newline, completion marker on stderr
	script := writeScript(t, `i=0
while [ $i -lt 32 ]; do
  printf '%s' "`+strings.Repeat("x", 64*1024)+`"
  i=$((i+1))
done
echo
echo done 1>&2
exit 0
`)
	j := job.New("foo")

	done := make(chan struct{})
	go func() {
		deploy.Run(t.Context(), j, script)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(30 * time.Second):
		t.Fatal("runner hung on an over-long output line")
	}

	require.Equal(t, 0, status(t, j))
	res := j.Snapshot()

	var stdout, stderr []job.OutputLine
	for _, line := range res.Output {
		switch line.Source {
		case job.Stdout:
			stdout = append(stdout, line)
		case job.Stderr:
			stderr = append(stderr, line)
		}
	}
	require.Equal(t, []job.OutputLine{{Source: job.Stderr, Text: "done"}}, stderr)
	require.Len(t, stdout, 1)
	require.Contains(t, stdout[0].Text, "output truncated")
}

// TestRunningVisibility checks that the job stays in the running state, with
// no status, until the process has actually exited.
func TestRunningVisibility(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "echo started\nsleep 1\n")
	j := job.New("foo")

	done := make(chan struct{})
	go func() {
		deploy.Run(t.Context(), j, script)
		close(done)
	}()

	// the script is alive once its first line arrived
	require.Eventually(t, func() bool {
		return len(j.Snapshot().Output) > 0
	}, 10*time.Second, 10*time.Millisecond)
	require.True(t, j.Running())
	require.Equal(t, "Running...", j.Snapshot().Summary())

	<-done
	require.Equal(t, 0, status(t, j))
}

func TestSubmit(t *testing.T) {
	t.Parallel()

	script := writeScript(t, "echo line1\n")
	registry := job.NewRegistry()

	j := deploy.Submit(t.Context(), registry, "foo", script)
	require.Equal(t, "foo", j.App)

	jobs := registry.Snapshot()
	require.Len(t, jobs, 1)
	require.Same(t, j, jobs[0])

	// fire and forget: the job is the only way to observe the outcome
	require.Eventually(t, func() bool {
		return !j.Running()
	}, 10*time.Second, 10*time.Millisecond)
	res := j.Snapshot()
	require.Equal(t, 0, *res.Status)
	require.Equal(t, []job.OutputLine{{Source: job.Stdout, Text: "line1"}}, res.Output)
}
