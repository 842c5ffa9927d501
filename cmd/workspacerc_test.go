package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadWorkspaceRC_FromCwd(t *testing.T) {
	dir := t.TempDir()
	content := "path = \"/projects/demo\"\nworkspace = \"demo\"\n"
	if err := os.WriteFile(filepath.Join(dir, ".workspacerc"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	rc, err := loadWorkspaceRC()
	if err != nil {
		t.Fatal(err)
	}
	if rc == nil {
		t.Fatal("rc not found")
	}
	if rc.Path != "/projects/demo" || rc.Workspace != "demo" {
		t.Errorf("rc = %+v", rc)
	}
}

func TestLoadWorkspaceRC_ParseErrorPropagates(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".workspacerc"), []byte("path = not-a-string\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	if _, err := loadWorkspaceRC(); err == nil {
		t.Error("expected a parse error for malformed TOML")
	}
}

func TestRootCommand_KnowsAllSubcommands(t *testing.T) {
	want := []string{
		"init", "build", "start", "stop", "destroy", "status", "info",
		"shell", "proxy", "logs", "list", "config", "doctor", "buildkit", "version",
	}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		if !have[name] {
			t.Errorf("missing subcommand %q", name)
		}
	}
}
