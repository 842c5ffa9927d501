package config

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/workspace-dev/workspace/internal/fsutil"
)

const (
	// ConfigFileName is the project config file searched for by FindWorkspaceDir.
	ConfigFileName = ".workspace.yml"

	// SharedImageTag is the image every workspace container runs.
	SharedImageTag = "workspace:latest"

	// ContainerNamePrefix prefixes the workspace name to form the container name.
	ContainerNamePrefix = "workspace-"

	// DefaultBranch is used when repo.branch is not configured.
	DefaultBranch = "main"

	containerHome = "/home/workspace"
)

// agentCredentialFiles are host files mounted read-write into the container
// when mountAgentsCredentials is enabled, relative to the host home. The
// tools that own them rewrite them in place, so they stay rw.
var agentCredentialFiles = []string{
	".codex/auth.json",
	".local/share/opencode/auth.json",
	".claude/.credentials.json",
}

// Mount is a normalized bind mount. Mode is always "ro" or "rw".
type Mount struct {
	Source string
	Target string
	Mode   string
}

// String renders the mount in docker -v form.
func (m Mount) String() string {
	return m.Source + ":" + m.Target + ":" + m.Mode
}

// Script is a normalized bootstrap script entry. Source is "project" or
// "user" and determines the base directory inside the container.
type Script struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

// StatePaths locates the per-workspace host-side state.
type StatePaths struct {
	Root              string
	SSHDir            string
	KeyPath           string
	RuntimeConfigPath string
}

// Resolved is the synthesized configuration consumed by lifecycle
// operations. Once built it is never mutated.
type Resolved struct {
	Name          string
	ContainerName string
	ImageTag      string
	ConfigDir     string

	Repo      RepoConfig
	Forwards  []int
	Mounts    []Mount
	Bootstrap []Script

	State        StatePaths
	BuildContext string
}

// ResolveOptions adjusts Resolve behavior.
type ResolveOptions struct {
	// WorkspaceName overrides the name derived from the config directory.
	WorkspaceName string

	// HostHome is the invoking user's home directory.
	HostHome string

	// BuildContext is the directory holding the shared image's Dockerfile.
	BuildContext string
}

// Resolve merges the project config with the user config and applies every
// normalization rule: range expansion for forwards, mount splitting with the
// Windows drive heuristic, bootstrap script tagging, and state path
// derivation. A nil project config is ErrConfigInvalid.
func Resolve(project *ProjectConfig, user *UserConfig, configDir string, opts ResolveOptions) (*Resolved, error) {
	if project == nil {
		return nil, fmt.Errorf("%w: empty document in %s", ErrConfigInvalid, filepath.Join(configDir, ConfigFileName))
	}

	name := opts.WorkspaceName
	if name == "" {
		name = filepath.Base(configDir)
	}

	merged := mergeConfigs(project, user)

	repo := merged.Repo
	if repo.Branch == "" {
		repo.Branch = DefaultBranch
	}

	r := &Resolved{
		Name:          name,
		ContainerName: ContainerNamePrefix + name,
		ImageTag:      SharedImageTag,
		ConfigDir:     configDir,
		Repo:          repo,
		Forwards:      normalizeForwards(merged.Forwards),
		Mounts:        normalizeMounts(merged.Mounts, configDir, opts.HostHome),
		Bootstrap:     merged.Scripts,
		BuildContext:  opts.BuildContext,
	}

	if merged.MountAgentCredentials {
		r.Mounts = append(r.Mounts, credentialMounts(opts.HostHome)...)
	}

	root := filepath.Join(opts.HostHome, ".workspaces", "state", name)
	r.State = StatePaths{
		Root:              root,
		SSHDir:            filepath.Join(root, "ssh"),
		KeyPath:           filepath.Join(root, "ssh", "id_ed25519"),
		RuntimeConfigPath: filepath.Join(root, "runtime.json"),
	}

	return r, nil
}

// mergedConfig is the intermediate combination of project and user config.
type mergedConfig struct {
	Repo                  RepoConfig
	Forwards              []ForwardSpec
	Mounts                []string
	Scripts               []Script
	MountAgentCredentials bool
}

// mergeConfigs combines project and user configuration: forwards and mounts
// concatenate project-first, bootstrap scripts concatenate with origin tags,
// repo is shallow-merged user-over-project, and mountAgentsCredentials from
// the user config overrides the project's when set.
func mergeConfigs(project *ProjectConfig, user *UserConfig) mergedConfig {
	m := mergedConfig{
		Repo:     project.Repo,
		Forwards: append([]ForwardSpec(nil), project.Forwards...),
		Mounts:   append([]string(nil), project.Mounts...),
		Scripts:  tagScripts(project.Bootstrap.Scripts, "project"),
	}
	if project.MountAgentCredentials != nil {
		m.MountAgentCredentials = *project.MountAgentCredentials
	}

	if user == nil {
		return m
	}

	if user.Repo.Remote != "" {
		m.Repo.Remote = user.Repo.Remote
	}
	if user.Repo.Branch != "" {
		m.Repo.Branch = user.Repo.Branch
	}
	if len(user.Repo.CloneArgs) > 0 {
		m.Repo.CloneArgs = user.Repo.CloneArgs
	}

	m.Forwards = append(m.Forwards, user.Forwards...)
	m.Mounts = append(m.Mounts, user.Mounts...)
	m.Scripts = append(m.Scripts, tagScripts(user.Bootstrap.Scripts, "user")...)

	if user.MountAgentCredentials != nil {
		m.MountAgentCredentials = *user.MountAgentCredentials
	}

	return m
}

// tagScripts converts raw script specs into tagged entries. An explicit
// source on the object form wins over the origin tag.
func tagScripts(specs []ScriptSpec, origin string) []Script {
	scripts := make([]Script, 0, len(specs))
	for _, spec := range specs {
		if spec.Path == "" {
			continue
		}
		source := spec.Source
		if source != "project" && source != "user" {
			source = origin
		}
		scripts = append(scripts, Script{Path: spec.Path, Source: source})
	}
	return scripts
}

// normalizeForwards expands the raw forward specs into an ordered port
// list. Duplicates are preserved in declared order; malformed or inverted
// ranges and non-positive ports produce nothing.
func normalizeForwards(specs []ForwardSpec) []int {
	var ports []int
	for _, spec := range specs {
		if !spec.valid {
			continue
		}
		if spec.Range != "" {
			ports = append(ports, expandRange(spec.Range)...)
			continue
		}
		if spec.Port > 0 {
			ports = append(ports, spec.Port)
		}
	}
	return ports
}

// expandRange parses "A-B" or "A:B" into the inclusive port sequence.
// Returns nil for malformed or inverted ranges. A bare numeric string is a
// single port.
func expandRange(s string) []int {
	sep := ""
	switch {
	case strings.Contains(s, "-"):
		sep = "-"
	case strings.Contains(s, ":"):
		sep = ":"
	default:
		port, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || port <= 0 {
			return nil
		}
		return []int{port}
	}

	startStr, endStr, _ := strings.Cut(s, sep)
	start, err := strconv.Atoi(strings.TrimSpace(startStr))
	if err != nil {
		return nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(endStr))
	if err != nil {
		return nil
	}
	if start <= 0 || end <= 0 || start > end {
		return nil
	}

	ports := make([]int, 0, end-start+1)
	for p := start; p <= end; p++ {
		ports = append(ports, p)
	}
	return ports
}

// normalizeMounts parses SOURCE:TARGET[:ro|:rw] strings. Relative sources
// resolve against the project config directory and "~" expands to the host
// home. A leading single letter plus colon is treated as a Windows drive
// prefix belonging to the source; 4-part forms without that shape are
// dropped.
func normalizeMounts(raw []string, configDir, hostHome string) []Mount {
	var mounts []Mount
	for _, entry := range raw {
		parts := strings.Split(entry, ":")

		var m Mount
		switch {
		case len(parts) < 2:
			continue
		case isDrivePrefixed(parts):
			// parts[0]:parts[1] form a drive-qualified source.
			if len(parts) == 3 {
				m = Mount{Source: parts[0] + ":" + parts[1], Target: parts[2], Mode: "rw"}
			} else if len(parts) == 4 {
				m = Mount{Source: parts[0] + ":" + parts[1], Target: parts[2], Mode: parts[3]}
			} else {
				continue
			}
		case len(parts) == 2:
			m = Mount{Source: parts[0], Target: parts[1], Mode: "rw"}
		case len(parts) == 3:
			m = Mount{Source: parts[0], Target: parts[1], Mode: parts[2]}
		default:
			continue
		}

		if m.Mode != "ro" && m.Mode != "rw" {
			m.Mode = "rw"
		}
		m.Source = resolveSource(m.Source, configDir, hostHome)
		if m.Target == "" {
			continue
		}
		mounts = append(mounts, m)
	}
	return mounts
}

// isDrivePrefixed reports whether the split parts start with a Windows
// drive letter followed by an absolute path.
func isDrivePrefixed(parts []string) bool {
	if len(parts) < 3 || len(parts[0]) != 1 {
		return false
	}
	c := parts[0][0]
	if !(c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z') {
		return false
	}
	return strings.HasPrefix(parts[1], "/") || strings.HasPrefix(parts[1], "\\")
}

// resolveSource expands "~" and resolves relative paths against the config
// directory. Drive-qualified sources pass through untouched.
func resolveSource(source, configDir, hostHome string) string {
	if source == "~" {
		return hostHome
	}
	if strings.HasPrefix(source, "~/") {
		return filepath.Join(hostHome, source[2:])
	}
	if len(source) >= 2 && source[1] == ':' {
		return source
	}
	if !filepath.IsAbs(source) {
		return filepath.Join(configDir, source)
	}
	return source
}

// credentialMounts returns the well-known agent credential files that exist
// on this host, mapped into the workspace home read-write.
func credentialMounts(hostHome string) []Mount {
	var mounts []Mount
	for _, rel := range agentCredentialFiles {
		src := filepath.Join(hostHome, rel)
		if !fsutil.PathExists(src) {
			continue
		}
		mounts = append(mounts, Mount{
			Source: src,
			Target: containerHome + "/" + filepath.ToSlash(rel),
			Mode:   "rw",
		})
	}
	return mounts
}
