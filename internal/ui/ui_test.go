package ui

import (
	"bytes"
	"strings"
	"testing"
)

func testUI() (*UI, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return New(&out, &errOut), &out, &errOut
}

func TestOutput_NonTTY(t *testing.T) {
	u, out, errOut := testUI()
	if u.IsTTY() {
		t.Fatal("buffer-backed UI should not be a TTY")
	}

	u.Header("Starting")
	u.Success("done")
	u.Keyval("ssh port", "2301")
	u.Error("boom")
	u.Warn("careful")

	stdout := out.String()
	if !strings.Contains(stdout, ":: Starting") {
		t.Errorf("missing header: %q", stdout)
	}
	if !strings.Contains(stdout, "ok done") {
		t.Errorf("missing success: %q", stdout)
	}
	if !strings.Contains(stdout, "ssh port") || !strings.Contains(stdout, "2301") {
		t.Errorf("missing keyval: %q", stdout)
	}

	stderr := errOut.String()
	if !strings.Contains(stderr, "error: boom") {
		t.Errorf("missing error: %q", stderr)
	}
	if !strings.Contains(stderr, "warning: careful") {
		t.Errorf("missing warning: %q", stderr)
	}
}

func TestStatusColor_NonTTYPassthrough(t *testing.T) {
	u, _, _ := testUI()
	for _, status := range []string{"running", "exited", "paused"} {
		if got := u.StatusColor(status); got != status {
			t.Errorf("non-TTY should not style %q: got %q", status, got)
		}
	}
}

func TestKeyval_LabelColumn(t *testing.T) {
	u, out, _ := testUI()
	u.Keyval("Repo", "git@github.com:org/demo.git")
	u.Keyval("SSH port", "2301")

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines", len(lines))
	}
	// Values start at the same column.
	c1 := strings.Index(lines[0], "git@")
	c2 := strings.Index(lines[1], "2301")
	if c1 != c2 {
		t.Errorf("values misaligned: %d vs %d\n%q\n%q", c1, c2, lines[0], lines[1])
	}
}

func TestTable_Alignment(t *testing.T) {
	u, out, _ := testUI()
	u.Table([]string{"NAME", "STATUS"}, [][]string{
		{"a", "running"},
		{"longer-name", "exited"},
	})

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	col := strings.Index(lines[0], "STATUS")
	if col < 0 {
		t.Fatalf("header missing STATUS: %q", lines[0])
	}
	if !strings.HasPrefix(lines[1][col:], "running") {
		t.Errorf("row 1 misaligned: %q", lines[1])
	}
	if !strings.HasPrefix(lines[2][col:], "exited") {
		t.Errorf("row 2 misaligned: %q", lines[2])
	}
}

func TestProgress_NonTTYPrintsEachMessage(t *testing.T) {
	u, out, _ := testUI()

	p := u.StartProgress()
	p.Update("Creating container...")
	p.Update("Waiting for Docker daemon...")
	p.Done()
	p.Done() // idempotent

	stdout := out.String()
	if !strings.Contains(stdout, "Creating container...") {
		t.Errorf("first message missing: %q", stdout)
	}
	if !strings.Contains(stdout, "Waiting for Docker daemon...") {
		t.Errorf("second message missing: %q", stdout)
	}
}

func TestConfirm(t *testing.T) {
	u, _, _ := testUI()
	u.in = strings.NewReader("y\n")
	if !u.Confirm("sure?") {
		t.Error("y should confirm")
	}

	u.in = strings.NewReader("\n")
	if u.Confirm("sure?") {
		t.Error("empty answer should decline")
	}

	u.in = strings.NewReader("nope\n")
	if u.Confirm("sure?") {
		t.Error("non-yes answer should decline")
	}
}

func TestPad(t *testing.T) {
	if got := pad("ab", 4); got != "ab  " {
		t.Errorf("pad = %q", got)
	}
	if got := pad("abcd", 2); got != "abcd" {
		t.Errorf("overlong input should pass through: %q", got)
	}
}
