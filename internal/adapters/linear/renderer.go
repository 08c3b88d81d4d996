// Package linear renders state snapshots as chronological, prefixed log lines
// for pipes and CI.
package linear

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/muesli/termenv"
	"go.trai.ch/wash/internal/core/domain"
	"go.trai.ch/wash/internal/core/ports"
	"go.trai.ch/wash/internal/ui/output"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer implements ports.Renderer. Each snapshot is diffed against what was
// already printed, so coalesced snapshots never repeat or lose lines.
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output
	checks bool

	mu       sync.Mutex
	tabs     map[int]*tabProgress
	reported map[domain.ProjectID]string
}

type tabProgress struct {
	lines    int
	finished bool
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithChecks enables reporting of dependency check results.
func WithChecks(enabled bool) Option {
	return func(r *Renderer) { r.checks = enabled }
}

// NewRenderer creates a Renderer. Nil writers default to stdout and stderr.
func NewRenderer(stdout, stderr io.Writer, opts ...Option) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	r := &Renderer{
		stdout:   stdout,
		stderr:   stderr,
		output:   output.NewWithProfile(stderr, output.ColorProfileANSI),
		tabs:     make(map[int]*tabProgress),
		reported: make(map[domain.ProjectID]string),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start is a no-op; rendering happens synchronously in Render.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop is a no-op; nothing is buffered between snapshots.
func (r *Renderer) Stop() error {
	return nil
}

// Wait is a no-op.
func (r *Renderer) Wait() error {
	return nil
}

// Render prints everything in snap that has not been printed yet.
func (r *Renderer) Render(snap domain.Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tabs := slices.Clone(snap.Tabs)
	slices.SortFunc(tabs, func(a, b domain.TabView) int { return a.Index - b.Index })
	for i := range tabs {
		r.renderTabLocked(&tabs[i])
	}

	if r.checks {
		for i := range snap.All {
			r.renderCheckLocked(&snap.All[i])
		}
	}
}

func (r *Renderer) renderTabLocked(tab *domain.TabView) {
	progress, ok := r.tabs[tab.Index]
	if !ok {
		progress = &tabProgress{}
		r.tabs[tab.Index] = progress
		_, _ = fmt.Fprintf(r.stderr, "%s %s\n", r.prefix(tab.Title), tab.Header)
	}

	for _, line := range tab.Lines[progress.lines:] {
		_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", tab.Title, line.Text)
	}
	progress.lines = len(tab.Lines)

	if tab.Finished && !progress.finished {
		progress.finished = true
		for _, l := range strings.Split(tab.Footer, "\n") {
			_, _ = fmt.Fprintf(r.stderr, "%s %s\n", r.prefix(tab.Title), r.colorize(tab.Status.Success(), l))
		}
	}
}

func (r *Renderer) renderCheckLocked(p *domain.Project) {
	status := p.CheckStatus()
	switch status {
	case domain.ProjectHasUpdates, domain.ProjectUpToDate, domain.ProjectCheckFailed:
	default:
		return
	}

	summary := checkSummary(p, status)
	if r.reported[p.ID] == summary {
		return
	}
	r.reported[p.ID] = summary

	_, _ = fmt.Fprintf(r.stdout, "%s %s\n", r.prefix(p.Name), summary)
	for _, d := range p.OutdatedDependencies() {
		line := fmt.Sprintf("    %s %s → %s", d.Name, d.LockedVersion, d.LatestVersion)
		if note := d.UpdateNote(); note != "" {
			line += " (" + note + ")"
		}
		_, _ = fmt.Fprintln(r.stdout, line)
	}
}

func checkSummary(p *domain.Project, status domain.ProjectCheckStatus) string {
	var outdated, failed int
	for _, d := range p.Dependencies {
		switch d.Status {
		case domain.DependencyOutdated:
			outdated++
		case domain.DependencyFailed:
			failed++
		default:
		}
	}

	switch status {
	case domain.ProjectHasUpdates:
		s := fmt.Sprintf("● %d of %d dependencies outdated", outdated, len(p.Dependencies))
		if failed > 0 {
			s += fmt.Sprintf(", %d lookups failed", failed)
		}
		return s
	case domain.ProjectCheckFailed:
		return fmt.Sprintf("✗ %d of %d lookups failed", failed, len(p.Dependencies))
	default:
		return fmt.Sprintf("✓ %d dependencies up to date", len(p.Dependencies))
	}
}

func (r *Renderer) prefix(name string) string {
	return r.output.String("[" + name + "]").Faint().String()
}

func (r *Renderer) colorize(ok bool, s string) string {
	if ok {
		return r.output.String(s).Foreground(termenv.ANSIGreen).String()
	}
	return r.output.String(s).Foreground(termenv.ANSIRed).String()
}
