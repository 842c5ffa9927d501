package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestFindWorkspaceDir_WalksUp(t *testing.T) {
	root := t.TempDir()
	projDir := filepath.Join(root, "proj")
	nested := filepath.Join(projDir, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(projDir, ConfigFileName), []byte("forwards: [3000]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindWorkspaceDir(FindOptions{Path: nested, RepoRoot: root, HostHome: "/nonexistent"})
	if err != nil {
		t.Fatal(err)
	}
	if got != projDir {
		t.Errorf("found %q, want %q", got, projDir)
	}
}

func TestFindWorkspaceDir_StopsAtRepoRoot(t *testing.T) {
	root := t.TempDir()
	// Config above the repo root must not be found.
	if err := os.WriteFile(filepath.Join(root, ConfigFileName), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	repoRoot := filepath.Join(root, "repo")
	nested := filepath.Join(repoRoot, "sub")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := FindWorkspaceDir(FindOptions{Path: nested, RepoRoot: repoRoot, HostHome: "/nonexistent"})
	if !errors.Is(err, ErrConfigMissing) {
		t.Fatalf("err = %v, want ErrConfigMissing", err)
	}
}

func TestFindWorkspaceDir_ConfigAtRepoRoot(t *testing.T) {
	root := t.TempDir()
	repoRoot := filepath.Join(root, "repo")
	nested := filepath.Join(repoRoot, "sub")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(repoRoot, ConfigFileName), []byte("{}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindWorkspaceDir(FindOptions{Path: nested, RepoRoot: repoRoot, HostHome: "/nonexistent"})
	if err != nil {
		t.Fatal(err)
	}
	if got != repoRoot {
		t.Errorf("found %q, want repo root %q", got, repoRoot)
	}
}

func TestLoadProjectConfig_EmptyDocumentIsNil(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ConfigFileName), []byte("# only comments\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadProjectConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg != nil {
		t.Errorf("empty document should parse to nil, got %+v", cfg)
	}

	if _, err := Resolve(cfg, nil, dir, ResolveOptions{HostHome: "/home/u"}); !errors.Is(err, ErrConfigInvalid) {
		t.Errorf("Resolve(nil) err = %v, want ErrConfigInvalid", err)
	}
}

func TestEnsureUserConfig_Idempotent(t *testing.T) {
	home := t.TempDir()

	for i := 0; i < 2; i++ {
		if err := EnsureUserConfig(home); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	if _, err := os.Stat(UserScriptsDir(home)); err != nil {
		t.Errorf("userscripts dir missing: %v", err)
	}
	data, err := os.ReadFile(UserConfigPath(home))
	if err != nil {
		t.Fatalf("config.yml missing: %v", err)
	}
	if len(data) == 0 {
		t.Error("config.yml template is empty")
	}

	// A user edit must survive a second EnsureUserConfig.
	if err := os.WriteFile(UserConfigPath(home), []byte("ssh:\n  defaultKey: ~/.ssh/id_rsa\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureUserConfig(home); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadUserConfig(home)
	if err != nil {
		t.Fatal(err)
	}
	if cfg == nil || cfg.SSH.DefaultKey != "~/.ssh/id_rsa" {
		t.Errorf("user edit overwritten: %+v", cfg)
	}
}

func TestRepoKeyList_PreservesOrder(t *testing.T) {
	cfg := parseUser(t, `
ssh:
  repos:
    "git@github.com:a/*": /k/a
    "git@github.com:b/*": /k/b
    "git@github.com:c/*": /k/c
`)
	if len(cfg.SSH.Repos) != 3 {
		t.Fatalf("got %d rules", len(cfg.SSH.Repos))
	}
	wantOrder := []string{"git@github.com:a/*", "git@github.com:b/*", "git@github.com:c/*"}
	for i, rule := range cfg.SSH.Repos {
		if rule.Pattern != wantOrder[i] {
			t.Errorf("rule %d = %q, want %q", i, rule.Pattern, wantOrder[i])
		}
	}
}
