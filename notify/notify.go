// Package notify triggers the static dashboard rebuild and its git deploy
// after each persisted sample.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"strings"
	"time"
)

// rebuildTimeout bounds the dashboard generator. A hung generator must not
// stall the sampling loop indefinitely.
const rebuildTimeout = 2 * time.Minute

// runner executes one command and returns its combined output. Replaced in
// tests.
type runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Dashboard regenerates a static dashboard and optionally commits and pushes
// the output directory. Both steps are best effort: failures are logged and
// never propagate into the sampling loop.
type Dashboard struct {
	rebuildCmd []string
	deploy     bool
	outputDir  string
	run        runner
}

// Options configures the dashboard trigger. RebuildCmd is the generator
// command and its arguments; empty disables the rebuild. Deploy enables the
// git commit-and-push of OutputDir after a successful rebuild.
type Options struct {
	RebuildCmd []string
	Deploy     bool
	OutputDir  string
}

func New(o Options) *Dashboard {
	return &Dashboard{
		rebuildCmd: o.RebuildCmd,
		deploy:     o.Deploy,
		outputDir:  o.OutputDir,
		run:        execRunner,
	}
}

// SamplePersisted runs the rebuild and, if enabled, the deploy. Called from
// the collector loop after each durable sample.
func (d *Dashboard) SamplePersisted(ctx context.Context) {
	if len(d.rebuildCmd) == 0 {
		return
	}
	if err := d.rebuild(ctx); err != nil {
		slog.Warn("dashboard rebuild failed", slog.Any("err", err))
		return
	}
	if d.deploy {
		if err := d.push(ctx); err != nil {
			slog.Warn("dashboard deploy failed", slog.Any("err", err))
		}
	}
}

func (d *Dashboard) rebuild(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, rebuildTimeout)
	defer cancel()

	out, err := d.run(ctx, d.rebuildCmd[0], d.rebuildCmd[1:]...)
	if err != nil {
		return commandError("rebuild", err, out)
	}
	return nil
}

// push commits the output directory and pushes. A clean staging area after
// git add means the generated output did not change, and the commit and push
// are skipped.
func (d *Dashboard) push(ctx context.Context) error {
	steps := [][]string{
		{"git", "config", "user.name", "streampulse-bot"},
		{"git", "config", "user.email", "bot@streampulse.local"},
		{"git", "add", d.outputDir},
	}
	for _, step := range steps {
		if out, err := d.run(ctx, step[0], step[1:]...); err != nil {
			return commandError(strings.Join(step[:2], " "), err, out)
		}
	}

	// Exit status 0 from diff --cached --quiet means nothing is staged.
	if _, err := d.run(ctx, "git", "diff", "--cached", "--quiet"); err == nil {
		return nil
	}

	for _, step := range [][]string{
		{"git", "commit", "-m", "Update dashboard data"},
		{"git", "push"},
	} {
		if out, err := d.run(ctx, step[0], step[1:]...); err != nil {
			return commandError(strings.Join(step[:2], " "), err, out)
		}
	}
	return nil
}

func commandError(step string, err error, out []byte) error {
	msg := strings.TrimSpace(string(out))
	if msg == "" {
		return errors.New(step + ": " + err.Error())
	}
	return errors.New(step + ": " + err.Error() + ": " + msg)
}
