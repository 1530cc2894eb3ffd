// Package support holds the godog step definitions for the acceptance
// features. Scenarios drive the scanner facade and the codescan command line
// in-process.
package support

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/codescan/internal/capture/capturetest"
	"github.com/MeKo-Tech/codescan/internal/event"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scanner"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	TempDir string
	// Files maps scenario file names to absolute paths.
	Files map[string]string

	Recorder  *event.Recorder
	Scanner   *scanner.Scanner
	Scheduler *scheduler.Frame
	Gated     *capturetest.Gated
	Static    *capturetest.Static

	LastResult scanerr.Result
	LastErr    error

	// Command execution state
	LastOutput   string
	LastStderr   string
	LastExitCode int
}

// NewTestContext creates a scenario context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "codescan-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:  tempDir,
		Files:    map[string]string{},
		Recorder: event.NewRecorder(),
	}, nil
}

// Cleanup closes the scanner and removes every file the scenario created.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Scanner != nil {
		testCtx.Scanner.Close()
	}
	if testCtx.Scheduler != nil {
		testCtx.Scheduler.Close()
	}
	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

func (testCtx *TestContext) writeFile(name string, data []byte) error {
	path := filepath.Join(testCtx.TempDir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	testCtx.Files[name] = path
	return nil
}

// path resolves a scenario file name; unknown names resolve inside the temp
// directory so "missing file" scenarios work.
func (testCtx *TestContext) path(name string) string {
	if p, ok := testCtx.Files[name]; ok {
		return p
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substitute replaces {name} placeholders with file paths.
func (testCtx *TestContext) substitute(s string) string {
	for name, p := range testCtx.Files {
		s = strings.ReplaceAll(s, "{"+name+"}", p)
	}
	return strings.ReplaceAll(s, "{tmp}", testCtx.TempDir)
}
