// Package testutil provides shared test utilities for CLI testing across packages.
// This enables co-located CLI tests while maintaining consistent test infrastructure.
package testutil

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dolist/cmd/dolist/cmd"
)

// CLITest provides a test helper for running CLI commands in isolation.
type CLITest struct {
	t          *testing.T
	cfg        *cmd.Config
	tmpDir     string
	configPath string
}

// NewCLITest creates a CLI test helper over a fresh sqlite store in a
// temporary directory.
func NewCLITest(t *testing.T) *CLITest {
	return NewCLITestWithBackend(t, "sqlite")
}

// NewCLITestWithBackend creates a CLI test helper whose config selects the
// named backend, stored under the test's temporary directory.
func NewCLITestWithBackend(t *testing.T, backendName string) *CLITest {
	t.Helper()

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	c := &CLITest{
		t:          t,
		tmpDir:     tmpDir,
		configPath: configPath,
		cfg: &cmd.Config{
			NoPrompt:   true,
			ConfigPath: configPath,
		},
	}
	c.SetFullConfig(DefaultConfig(tmpDir, backendName))
	return c
}

// DefaultConfig returns a config that keeps every backend under dir.
func DefaultConfig(dir, backendName string) string {
	var b strings.Builder
	b.WriteString("# test config\n")
	b.WriteString("default_backend: " + backendName + "\n")
	b.WriteString("backends:\n")
	b.WriteString("  sqlite:\n    path: " + filepath.Join(dir, "test.db") + "\n")
	b.WriteString("  file:\n    path: " + filepath.Join(dir, "lists.md") + "\n")
	b.WriteString("  badger:\n    path: " + filepath.Join(dir, "badger") + "\n")
	b.WriteString("logging:\n  background_enabled: false\n")
	return b.String()
}

// Config returns the test configuration.
func (c *CLITest) Config() *cmd.Config {
	return c.cfg
}

// TmpDir returns the temporary directory for the test.
func (c *CLITest) TmpDir() string {
	return c.tmpDir
}

// SetFullConfig replaces the entire config file with the given YAML content.
func (c *CLITest) SetFullConfig(yamlContent string) {
	c.t.Helper()

	if err := os.WriteFile(c.configPath, []byte(yamlContent), 0644); err != nil {
		c.t.Fatalf("failed to write config file: %v", err)
	}
}

// SetStdin makes prompts read input.
func (c *CLITest) SetStdin(input string) {
	c.cfg.Stdin = strings.NewReader(input)
}

// Execute runs a CLI command with the given arguments and returns stdout, stderr, and exit code.
func (c *CLITest) Execute(args ...string) (stdout, stderr string, exitCode int) {
	c.t.Helper()

	var stdoutBuf, stderrBuf bytes.Buffer
	exitCode = cmd.Execute(args, &stdoutBuf, &stderrBuf, c.cfg)
	return stdoutBuf.String(), stderrBuf.String(), exitCode
}

// MustExecute runs a CLI command and fails the test if exit code is non-zero.
func (c *CLITest) MustExecute(args ...string) string {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode != 0 {
		c.t.Fatalf("expected exit code 0, got %d: stdout=%s stderr=%s", exitCode, stdout, stderr)
	}
	return stdout
}

// ExecuteAndFail runs a CLI command and fails the test if exit code is zero.
func (c *CLITest) ExecuteAndFail(args ...string) (stdout, stderr string) {
	c.t.Helper()

	stdout, stderr, exitCode := c.Execute(args...)
	if exitCode == 0 {
		c.t.Fatalf("expected non-zero exit code, got 0: stdout=%s", stdout)
	}
	return stdout, stderr
}

// AssertContains fails the test if output doesn't contain expected string.
func AssertContains(t *testing.T, output, expected string) {
	t.Helper()
	if !strings.Contains(output, expected) {
		t.Errorf("expected output to contain %q, got:\n%s", expected, output)
	}
}

// AssertNotContains fails the test if output contains unexpected string.
func AssertNotContains(t *testing.T, output, unexpected string) {
	t.Helper()
	if strings.Contains(output, unexpected) {
		t.Errorf("expected output NOT to contain %q, got:\n%s", unexpected, output)
	}
}

// AssertResultCode fails the test if the last non-empty output line is not
// the expected result code.
func AssertResultCode(t *testing.T, output, expectedCode string) {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(output), "\n")
	if len(lines) == 0 {
		t.Errorf("expected result code %s, got empty output", expectedCode)
		return
	}
	if last := strings.TrimSpace(lines[len(lines)-1]); last != expectedCode {
		t.Errorf("expected result code %s, got %q in:\n%s", expectedCode, last, output)
	}
}
