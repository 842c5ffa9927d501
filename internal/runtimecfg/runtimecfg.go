// Package runtimecfg defines the per-workspace runtime JSON document. The
// host controller writes it each time start creates the workspace
// container; resuming an existing container does not rewrite it. The
// in-container agent reads it at /workspace/config/runtime.json. Keys are lowerCamelCase and the shape
// is part of the host/agent contract.
package runtimecfg

import (
	"fmt"

	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/fsutil"
)

// ContainerPath is where the runtime document is mounted inside the
// container.
const ContainerPath = "/workspace/config/runtime.json"

// Repo mirrors the resolved repository settings.
type Repo struct {
	Remote    string   `json:"remote"`
	Branch    string   `json:"branch"`
	CloneArgs []string `json:"cloneArgs"`
}

// Workspace names the workspace and its repository.
type Workspace struct {
	Name string `json:"name"`
	Repo Repo   `json:"repo"`
}

// SSH carries the assigned host port and the selected key basename.
type SSH struct {
	Port        int     `json:"port"`
	SelectedKey *string `json:"selectedKey"`
}

// Bootstrap wraps the ordered script list.
type Bootstrap struct {
	Scripts []config.Script `json:"scripts"`
}

// File is the full runtime document.
type File struct {
	Workspace Workspace `json:"workspace"`
	SSH       SSH       `json:"ssh"`
	Forwards  []int     `json:"forwards"`
	Bootstrap Bootstrap `json:"bootstrap"`
}

// Build assembles the document from resolved config plus state values.
func Build(resolved *config.Resolved, sshPort int, selectedKey string) *File {
	f := &File{
		Workspace: Workspace{
			Name: resolved.Name,
			Repo: Repo{
				Remote:    resolved.Repo.Remote,
				Branch:    resolved.Repo.Branch,
				CloneArgs: append([]string{}, resolved.Repo.CloneArgs...),
			},
		},
		SSH:      SSH{Port: sshPort},
		Forwards: append([]int{}, resolved.Forwards...),
		Bootstrap: Bootstrap{
			Scripts: append([]config.Script{}, resolved.Bootstrap...),
		},
	}
	if f.Workspace.Repo.CloneArgs == nil {
		f.Workspace.Repo.CloneArgs = []string{}
	}
	if f.Forwards == nil {
		f.Forwards = []int{}
	}
	if f.Bootstrap.Scripts == nil {
		f.Bootstrap.Scripts = []config.Script{}
	}
	if selectedKey != "" {
		f.SSH.SelectedKey = &selectedKey
	}
	return f
}

// Write persists the document atomically at path.
func Write(path string, f *File) error {
	return fsutil.WriteJSONAtomic(path, f, 0o644)
}

// Read loads the document from path.
func Read(path string) (*File, error) {
	var f File
	found, err := fsutil.ReadJSON(path, &f)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("runtime config not found at %s", path)
	}
	return &f, nil
}

// SelectedKey returns the key basename or "".
func (f *File) SelectedKey() string {
	if f.SSH.SelectedKey == nil {
		return ""
	}
	return *f.SSH.SelectedKey
}
