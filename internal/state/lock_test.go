package state

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"github.com/workspace-dev/workspace/internal/fsutil"
)

func TestWithLock_BlockedByHolder(t *testing.T) {
	s := testStore(t, nil)
	if err := fsutil.EnsureDir(s.baseDir); err != nil {
		t.Fatal(err)
	}

	// Hold the lock from "another process".
	holder := flock.New(s.statePath() + ".lock")
	locked, err := holder.TryLock()
	if err != nil || !locked {
		t.Fatalf("could not take holder lock: %v", err)
	}
	defer func() { _ = holder.Unlock() }()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	err = s.WithLock(ctx, func(st *File) error {
		t.Error("mutation ran while lock was held elsewhere")
		return nil
	})
	if err == nil {
		t.Fatal("expected an error while lock is held")
	}
}

func TestWithLock_SequentialMutations(t *testing.T) {
	s := testStore(t, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := s.WithLock(ctx, func(st *File) error {
			st.Workspaces["w"] = &WorkspaceState{SSHPort: 2300 + i, ConfigDir: "/p", Forwards: []int{}}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	ws, err := s.Workspace(ctx, "w")
	if err != nil {
		t.Fatal(err)
	}
	if ws == nil || ws.SSHPort != 2302 {
		t.Errorf("final record = %+v, want port 2302", ws)
	}
}
