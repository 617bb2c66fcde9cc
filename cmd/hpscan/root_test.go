package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRootCmdHasSubcommands(t *testing.T) {
	cmd := NewRootCmd()
	want := []string{"scan", "listen", "destinations", "version"}
	for _, name := range want {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("root command lacks %q subcommand", name)
		}
	}
}

func TestVersionCmd(t *testing.T) {
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !strings.HasPrefix(out.String(), "hpscan version ") {
		t.Errorf("version output = %q", out.String())
	}
}

func TestScanCmdRequiresHost(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	// Run from an empty directory so no config file is picked up.
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cmd.SetArgs([]string{"scan"})
	err := cmd.Execute()
	if err == nil {
		t.Fatal("Execute() = nil without a host")
	}
	if !strings.Contains(err.Error(), "host") {
		t.Errorf("error = %v, want a host hint", err)
	}
}

func TestScanCmdExplicitConfigMissing(t *testing.T) {
	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	missing := filepath.Join(t.TempDir(), "absent.yaml")
	cmd.SetArgs([]string{"scan", "--config", missing})
	if err := cmd.Execute(); err == nil {
		t.Fatal("Execute() = nil with a missing explicit config file")
	}
}

func TestScanCmdLoadsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hpscan.yaml")
	// Invalid format makes loadConfig fail after the file was parsed,
	// proving the file was actually read.
	if err := os.WriteFile(path, []byte("host: printer.local\nformat: tiff\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cmd := NewRootCmd()
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"scan", "--config", path})
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "format") {
		t.Errorf("Execute() = %v, want invalid format error", err)
	}
}
