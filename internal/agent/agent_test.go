package agent

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/workspace-dev/workspace/internal/execx"
)

func testAgent() *Agent {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Agent{runner: execx.New(logger), logger: logger}
}

func TestAppendAuthorizedKey_DedupesAndSorts(t *testing.T) {
	a := testAgent()
	sshDir := t.TempDir()

	existing := "ssh-rsa ZZZZ old\nssh-ed25519 AAAA controller\n"
	if err := os.WriteFile(filepath.Join(sshDir, "authorized_keys"), []byte(existing), 0o600); err != nil {
		t.Fatal(err)
	}

	// Appending a key that is already present must not duplicate it.
	if err := a.appendAuthorizedKey(sshDir, "ssh-ed25519 AAAA controller"); err != nil {
		t.Fatal(err)
	}
	// A new key lands and the file ends up sorted.
	if err := a.appendAuthorizedKey(sshDir, "ssh-ed25519 BBBB new"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(sshDir, "authorized_keys"))
	if err != nil {
		t.Fatal(err)
	}
	want := "ssh-ed25519 AAAA controller\nssh-ed25519 BBBB new\nssh-rsa ZZZZ old\n"
	if string(data) != want {
		t.Errorf("authorized_keys = %q, want %q", string(data), want)
	}
}

func TestWriteClientConfig_Idempotent(t *testing.T) {
	a := testAgent()
	sshDir := t.TempDir()

	for i := 0; i < 2; i++ {
		if err := a.writeClientConfig(sshDir, "id_work"); err != nil {
			t.Fatal(err)
		}
	}

	data, err := os.ReadFile(filepath.Join(sshDir, "config"))
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	if strings.Count(content, "IdentityFile ~/.ssh/id_work") != 1 {
		t.Errorf("config block duplicated:\n%s", content)
	}
	for _, want := range []string{"Host *", "IdentitiesOnly yes", "AddKeysToAgent yes"} {
		if !strings.Contains(content, want) {
			t.Errorf("missing %q in config:\n%s", want, content)
		}
	}
}

func TestFixSSHModes(t *testing.T) {
	sshDir := t.TempDir()
	files := map[string]os.FileMode{
		"id_ed25519":      0o600,
		"authorized_keys": 0o600,
		"id_ed25519.pub":  0o644,
		"known_hosts":     0o644,
		"config":          0o644,
	}
	for name := range files {
		if err := os.WriteFile(filepath.Join(sshDir, name), []byte("x"), 0o666); err != nil {
			t.Fatal(err)
		}
	}

	fixSSHModes(sshDir)

	for name, want := range files {
		info, err := os.Stat(filepath.Join(sshDir, name))
		if err != nil {
			t.Fatal(err)
		}
		if info.Mode().Perm() != want {
			t.Errorf("%s mode = %o, want %o", name, info.Mode().Perm(), want)
		}
	}
}

func TestRepoBasename(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"git@github.com:org/demo.git", "demo"},
		{"https://github.com/org/demo.git", "demo"},
		{"ssh://git@host/org/demo", "demo"},
		{"git@github.com:solo.git", "solo"},
	}
	for _, tt := range tests {
		if got := repoBasename(tt.remote); got != tt.want {
			t.Errorf("repoBasename(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestSSHHostOf(t *testing.T) {
	tests := []struct {
		remote string
		want   string
	}{
		{"git@github.com:org/demo.git", "github.com"},
		{"ssh://git@gitlab.com:2222/org/demo.git", "gitlab.com"},
		{"ssh://bitbucket.org/org/demo.git", "bitbucket.org"},
		{"https://github.com/org/demo.git", ""},
		{"/local/path", ""},
	}
	for _, tt := range tests {
		if got := sshHostOf(tt.remote); got != tt.want {
			t.Errorf("sshHostOf(%q) = %q, want %q", tt.remote, got, tt.want)
		}
	}
}

func TestCloneArgsSetBranch(t *testing.T) {
	tests := []struct {
		args []string
		want bool
	}{
		{nil, false},
		{[]string{"--depth", "1"}, false},
		{[]string{"--branch", "dev"}, true},
		{[]string{"-b", "dev"}, true},
		{[]string{"--branch=dev"}, true},
	}
	for _, tt := range tests {
		if got := cloneArgsSetBranch(tt.args); got != tt.want {
			t.Errorf("cloneArgsSetBranch(%v) = %v, want %v", tt.args, got, tt.want)
		}
	}
}

func TestOpencodeArch(t *testing.T) {
	if arch, ok := opencodeArch("amd64"); !ok || arch != "x64" {
		t.Errorf("amd64 -> %q, %v", arch, ok)
	}
	if arch, ok := opencodeArch("arm64"); !ok || arch != "arm64" {
		t.Errorf("arm64 -> %q, %v", arch, ok)
	}
	if _, ok := opencodeArch("riscv64"); ok {
		t.Error("riscv64 should be unsupported")
	}
}

func TestDedupeSorted(t *testing.T) {
	in := []string{"a", "a", "b", "c", "c", "c"}
	got := dedupeSorted(in)
	want := []string{"a", "b", "c"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q", i, got[i])
		}
	}
}

func TestIsNumeric(t *testing.T) {
	if !isNumeric("1234") {
		t.Error("1234 should be numeric")
	}
	for _, s := range []string{"", "self", "12a"} {
		if isNumeric(s) {
			t.Errorf("%q should not be numeric", s)
		}
	}
}
