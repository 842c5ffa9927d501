// Package state persists workspace records (SSH port, forwards, selected
// key) and the shared image build timestamp in a single JSON file guarded by
// an exclusive advisory lock.
package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/execx"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

// ErrLocked is returned when the state lock cannot be acquired. Mutations
// never proceed unlocked.
var ErrLocked = errors.New("state file is locked by another workspace process")

const (
	stateFileName = "state.json"

	lockAttempts   = 10
	lockBackoffMin = 50 * time.Millisecond
	lockBackoffMax = 500 * time.Millisecond
)

// WorkspaceState is the persisted record for one workspace.
type WorkspaceState struct {
	SSHPort     int    `json:"sshPort"`
	Forwards    []int  `json:"forwards"`
	ConfigDir   string `json:"configDir"`
	SelectedKey string `json:"selectedKey,omitempty"`
}

// SharedImage tracks the shared workspace image.
type SharedImage struct {
	LastBuildAt string `json:"lastBuildAt,omitempty"`
}

// File is the on-disk shape of state.json.
type File struct {
	Workspaces  map[string]*WorkspaceState `json:"workspaces"`
	SharedImage SharedImage                `json:"sharedImage"`
}

// Store reads and mutates the state file. All mutations run under the
// file lock via WithLock.
type Store struct {
	baseDir string
	logger  *slog.Logger

	// listeningPorts reports host TCP ports currently listening. It is a
	// field so tests can substitute a fixture.
	listeningPorts func(ctx context.Context) map[int]bool
}

// NewStore creates a Store rooted at <hostHome>/.workspaces/state.
func NewStore(hostHome string, runner *execx.Runner, logger *slog.Logger) *Store {
	return &Store{
		baseDir: filepath.Join(hostHome, ".workspaces", "state"),
		logger:  logger,
		listeningPorts: func(ctx context.Context) map[int]bool {
			return probeListeningPorts(ctx, runner, logger)
		},
	}
}

// BaseDir returns the state root directory.
func (s *Store) BaseDir() string { return s.baseDir }

// WorkspaceDir returns the per-workspace state directory.
func (s *Store) WorkspaceDir(name string) string {
	return filepath.Join(s.baseDir, name)
}

func (s *Store) statePath() string {
	return filepath.Join(s.baseDir, stateFileName)
}

// WithLock acquires the exclusive advisory lock, loads (and normalizes) the
// state file, invokes fn, and writes the state back whenever fn succeeds. Lock
// acquisition retries with jitter; running out of attempts aborts with
// ErrLocked rather than proceeding unlocked.
func (s *Store) WithLock(ctx context.Context, fn func(*File) error) error {
	if err := fsutil.EnsureDir(s.baseDir); err != nil {
		return err
	}

	lock := flock.New(s.statePath() + ".lock")
	locked := false
	for attempt := 0; attempt < lockAttempts; attempt++ {
		ok, err := lock.TryLock()
		if err != nil {
			return fmt.Errorf("acquiring state lock: %w", err)
		}
		if ok {
			locked = true
			break
		}
		backoff := lockBackoffMin + time.Duration(rand.Int63n(int64(lockBackoffMax-lockBackoffMin)))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	if !locked {
		return ErrLocked
	}
	defer func() { _ = lock.Unlock() }()

	st, err := s.load()
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return fsutil.WriteJSONAtomic(s.statePath(), st, 0o644)
}

// load reads state.json, starting from the empty document when the file
// does not exist yet, and drops malformed records rather than propagating
// corruption.
func (s *Store) load() (*File, error) {
	st := &File{Workspaces: map[string]*WorkspaceState{}}
	if _, err := fsutil.ReadJSON(s.statePath(), st); err != nil {
		return nil, fmt.Errorf("loading state: %w", err)
	}
	if st.Workspaces == nil {
		st.Workspaces = map[string]*WorkspaceState{}
	}
	for name, ws := range st.Workspaces {
		if ws == nil || ws.SSHPort <= 0 || ws.ConfigDir == "" {
			s.logger.Warn("dropping malformed workspace state record", "workspace", name)
			delete(st.Workspaces, name)
			continue
		}
		if ws.Forwards == nil {
			ws.Forwards = []int{}
		}
	}
	return st, nil
}

// EnsureWorkspaceState claims (or refreshes) the record for a workspace
// under the lock. New workspaces get the next available SSH port; existing
// ones keep theirs. Forwards and configDir always reflect the resolved
// config, and a previously selected key is preserved.
func (s *Store) EnsureWorkspaceState(ctx context.Context, resolved *config.Resolved) (*WorkspaceState, error) {
	var out *WorkspaceState
	err := s.WithLock(ctx, func(st *File) error {
		ws := st.Workspaces[resolved.Name]
		if ws == nil {
			port, err := s.findAvailableSSHPort(ctx, st)
			if err != nil {
				return err
			}
			ws = &WorkspaceState{SSHPort: port}
			st.Workspaces[resolved.Name] = ws
			s.logger.Debug("allocated ssh port", "workspace", resolved.Name, "port", port)
		}
		ws.ConfigDir = resolved.ConfigDir
		ws.Forwards = append([]int{}, resolved.Forwards...)
		out = &WorkspaceState{
			SSHPort:     ws.SSHPort,
			Forwards:    append([]int{}, ws.Forwards...),
			ConfigDir:   ws.ConfigDir,
			SelectedKey: ws.SelectedKey,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// SetSelectedKey records the basename of the key chosen for a workspace.
func (s *Store) SetSelectedKey(ctx context.Context, name, key string) error {
	return s.WithLock(ctx, func(st *File) error {
		ws := st.Workspaces[name]
		if ws == nil {
			return fmt.Errorf("no state record for workspace %s", name)
		}
		ws.SelectedKey = key
		return nil
	})
}

// Workspace returns a copy of the record for name, or nil when absent.
func (s *Store) Workspace(ctx context.Context, name string) (*WorkspaceState, error) {
	var out *WorkspaceState
	err := s.WithLock(ctx, func(st *File) error {
		if ws := st.Workspaces[name]; ws != nil {
			copied := *ws
			copied.Forwards = append([]int{}, ws.Forwards...)
			out = &copied
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RemoveWorkspaceState deletes the record under the lock, then removes the
// per-workspace state directory outside it.
func (s *Store) RemoveWorkspaceState(ctx context.Context, name string) error {
	err := s.WithLock(ctx, func(st *File) error {
		delete(st.Workspaces, name)
		return nil
	})
	if err != nil {
		return err
	}
	if err := os.RemoveAll(s.WorkspaceDir(name)); err != nil {
		return fmt.Errorf("removing workspace state dir: %w", err)
	}
	return nil
}

// ListWorkspaceNames returns the known workspace names in no guaranteed order.
func (s *Store) ListWorkspaceNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.WithLock(ctx, func(st *File) error {
		for name := range st.Workspaces {
			names = append(names, name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// RecordSharedImageBuild stamps the shared image build time.
func (s *Store) RecordSharedImageBuild(ctx context.Context, now time.Time) error {
	return s.WithLock(ctx, func(st *File) error {
		st.SharedImage.LastBuildAt = now.UTC().Format(time.RFC3339)
		return nil
	})
}

// LastSharedImageBuild returns the recorded build time, or zero when the
// image has never been built (or the stamp is unreadable).
func (s *Store) LastSharedImageBuild(ctx context.Context) (time.Time, error) {
	var out time.Time
	err := s.WithLock(ctx, func(st *File) error {
		if st.SharedImage.LastBuildAt == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, st.SharedImage.LastBuildAt)
		if err != nil {
			s.logger.Warn("unparseable sharedImage.lastBuildAt", "value", st.SharedImage.LastBuildAt)
			return nil
		}
		out = t
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}
	return out, nil
}
