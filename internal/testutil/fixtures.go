// Package testutil provides test helper utilities for consultprep tests.
package testutil

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consultprep-dev/consultprep/internal/interview"
)

// TempWorkspace creates a temporary workspace with the given files and returns its path.
// Files is a map of relative path -> content, e.g. ".consultprep/config.yaml".
// Directories are created as needed. The directory is cleaned up when the test finishes.
func TempWorkspace(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}

	return dir
}

// AeroWidget returns the default practice case.
func AeroWidget() interview.Case {
	return interview.Case{
		ID:       "aerowidget",
		Company:  "AeroWidget Inc.",
		Industry: "Manufacturing",
		Problem:  "Declining profits",
		Goal:     "Turnaround",
		Facts: []string{
			"Revenue: Down 15% YoY.",
			"Costs: Flat.",
			"Volume: Down 15%.",
		},
	}
}

// Generator is a scriptable interview.Generator. Zero value replies "ok"
// and evaluates to interview.DefaultBreakdown.
type Generator struct {
	mu sync.Mutex

	Reply       string
	GenerateErr error
	Breakdown   interview.Breakdown
	EvaluateErr error
	// Block makes every call wait for ctx to be cancelled.
	Block bool

	Requests    []interview.Request
	Evaluations int
}

// Generate implements interview.Generator.
func (g *Generator) Generate(ctx context.Context, req interview.Request) (string, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	reply, err, block := g.Reply, g.GenerateErr, g.Block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if err != nil {
		return "", err
	}
	if reply == "" {
		reply = "ok"
	}
	return reply, nil
}

// Evaluate implements interview.Generator.
func (g *Generator) Evaluate(ctx context.Context, _ interview.Case, _ []interview.Message) (interview.Breakdown, error) {
	g.mu.Lock()
	g.Evaluations++
	b, err, block := g.Breakdown, g.EvaluateErr, g.Block
	g.mu.Unlock()

	if block {
		<-ctx.Done()
		return interview.Breakdown{}, ctx.Err()
	}
	if err != nil {
		return interview.Breakdown{}, err
	}
	if b == (interview.Breakdown{}) {
		b = interview.DefaultBreakdown
	}
	return b, nil
}

// Recorder collects history entries in memory and can be told to fail.
type Recorder struct {
	mu      sync.Mutex
	Err     error
	entries []interview.HistoryEntry
}

// Record implements interview.Recorder.
func (r *Recorder) Record(_ context.Context, e interview.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.entries = append(r.entries, e)
	return nil
}

// Entries returns a copy of everything recorded so far.
func (r *Recorder) Entries() []interview.HistoryEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]interview.HistoryEntry, len(r.entries))
	copy(out, r.entries)
	return out
}
