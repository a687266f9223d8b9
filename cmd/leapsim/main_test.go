// Package main provides tests for the LeapSim CLI.
package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/leapstack-labs/leapsim/internal/cli"
	"github.com/leapstack-labs/leapsim/internal/cli/testutil"
)

func TestVersionCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"version"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("version command error = %v", err)
	}

	if output := buf.String(); !strings.Contains(output, "LeapSim") {
		t.Errorf("version output should contain 'LeapSim', got: %s", output)
	}
}

func TestHelpCommand(t *testing.T) {
	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	if err := cmd.Execute(); err != nil {
		t.Errorf("help command error = %v", err)
	}

	output := buf.String()
	for _, expected := range []string{"run", "list", "merge", "runs", "version"} {
		if !strings.Contains(output, expected) {
			t.Errorf("help output should contain '%s', got: %s", expected, output)
		}
	}
}

func TestRunCommand(t *testing.T) {
	dir := testutil.SetupTestProject(t)

	cmd := cli.NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"run", "--scenario", filepath.Join(dir, "leapsim.yaml"), "--no-history", "-o", "markdown"})

	if err := cmd.Execute(); err != nil {
		t.Fatalf("run command error = %v\n%s", err, buf.String())
	}

	if output := buf.String(); !strings.Contains(output, "Completed in") {
		t.Errorf("run output should report completion, got: %s", output)
	}

	if _, err := os.Stat(filepath.Join(dir, "out", "households.csv")); err != nil {
		t.Errorf("export not written: %v", err)
	}
}
