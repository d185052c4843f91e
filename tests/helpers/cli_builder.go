package helpers

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// CLIBuilder builds the nxshell binary and runs it against an isolated
// configuration.
type CLIBuilder struct {
	t            *testing.T
	workDir      string
	binaryPath   string
	configPath   string
	env          map[string]string
	buildTimeout time.Duration
	runTimeout   time.Duration
}

// NewCLIBuilder creates a builder working in a temporary directory. The
// shell it runs reads its configuration and history from that directory,
// with the keyring and spinners off.
func NewCLIBuilder(t *testing.T) *CLIBuilder {
	workDir := t.TempDir()
	cb := &CLIBuilder{
		t:            t,
		workDir:      workDir,
		configPath:   filepath.Join(workDir, "config.yaml"),
		env:          make(map[string]string),
		buildTimeout: 5 * time.Minute,
		runTimeout:   30 * time.Second,
	}
	cb.env["XDG_CONFIG_HOME"] = filepath.Join(workDir, "config")
	cb.env["XDG_STATE_HOME"] = filepath.Join(workDir, "state")
	cb.env["NXSHELL_CONFIG"] = cb.configPath
	cb.env["NXSHELL_KEYRING_ENABLED"] = "false"
	cb.env["NXSHELL_PROGRESS_ENABLED"] = "false"
	cb.env["NXSHELL_OUTPUT_COLOR"] = "false"
	return cb
}

// WithConfig writes the config file of the shell.
func (cb *CLIBuilder) WithConfig(content string) *CLIBuilder {
	cb.t.Helper()
	if err := os.WriteFile(cb.configPath, []byte(content), 0600); err != nil {
		cb.t.Fatalf("failed to write config file: %v", err)
	}
	return cb
}

// Build builds the binary from the package at pkgPath, relative to the
// module root found from the current directory.
func (cb *CLIBuilder) Build(pkgPath string) error {
	cb.t.Helper()

	root, err := ModuleRoot()
	if err != nil {
		return err
	}
	cb.binaryPath = filepath.Join(cb.workDir, "nxshell")

	ctx, cancel := context.WithTimeout(context.Background(), cb.buildTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "go", "build", "-o", cb.binaryPath, pkgPath)
	cmd.Dir = root
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("build failed: %w\nstdout: %s\nstderr: %s", err, stdout.String(), stderr.String())
	}
	if _, err := os.Stat(cb.binaryPath); err != nil {
		return fmt.Errorf("binary not found at %s: %w", cb.binaryPath, err)
	}
	return nil
}

// WorkDir returns the working directory.
func (cb *CLIBuilder) WorkDir() string {
	return cb.workDir
}

// HistoryPath returns the history file of the shell.
func (cb *CLIBuilder) HistoryPath() string {
	return filepath.Join(cb.env["XDG_STATE_HOME"], "nxshell", "history")
}

// Run executes the shell with the given arguments and no input.
func (cb *CLIBuilder) Run(args ...string) *CLIResult {
	return cb.RunWithInput("", args...)
}

// RunWithInput executes the shell, feeding stdin as the typed lines.
func (cb *CLIBuilder) RunWithInput(stdin string, args ...string) *CLIResult {
	cb.t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), cb.runTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, cb.binaryPath, args...)
	cmd.Dir = cb.workDir
	cmd.Env = os.Environ()
	for k, v := range cb.env {
		cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, v))
	}
	cmd.Stdin = strings.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}

	return &CLIResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
		Error:    err,
	}
}

// ModuleRoot walks up from the current directory to the directory holding
// go.mod.
func ModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found")
		}
		dir = parent
	}
}

// CLIResult represents the result of a CLI execution.
type CLIResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
	Error    error
}

// Success returns true if the command succeeded (exit code 0).
func (r *CLIResult) Success() bool {
	return r.ExitCode == 0 && r.Error == nil
}

// AssertSuccess asserts that the command succeeded.
func (r *CLIResult) AssertSuccess(t *testing.T) {
	t.Helper()
	if !r.Success() {
		t.Fatalf("Command failed with exit code %d: %v\nStdout: %s\nStderr: %s", r.ExitCode, r.Error, r.Stdout, r.Stderr)
	}
}

// AssertContains asserts that stdout contains the given substring.
func (r *CLIResult) AssertContains(t *testing.T, substr string) {
	t.Helper()
	if !strings.Contains(r.Stdout, substr) {
		t.Fatalf("Expected stdout to contain %q, but it didn't\nStdout: %s", substr, r.Stdout)
	}
}

// AssertNotContains asserts that stdout does not contain the given substring.
func (r *CLIResult) AssertNotContains(t *testing.T, substr string) {
	t.Helper()
	if strings.Contains(r.Stdout, substr) {
		t.Fatalf("Expected stdout not to contain %q, but it did\nStdout: %s", substr, r.Stdout)
	}
}

// AssertStderrContains asserts that stderr contains the given substring.
func (r *CLIResult) AssertStderrContains(t *testing.T, substr string) {
	t.Helper()
	if !strings.Contains(r.Stderr, substr) {
		t.Fatalf("Expected stderr to contain %q, but it didn't\nStderr: %s", substr, r.Stderr)
	}
}

// AssertExitCode asserts the exit code matches.
func (r *CLIResult) AssertExitCode(t *testing.T, expected int) {
	t.Helper()
	if r.ExitCode != expected {
		t.Fatalf("Expected exit code %d, got %d\nStdout: %s\nStderr: %s", expected, r.ExitCode, r.Stdout, r.Stderr)
	}
}
