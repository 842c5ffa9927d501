package config

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

// ErrConfigMissing is returned when no .workspace.yml is found walking up
// from the start directory.
var ErrConfigMissing = errors.New("no .workspace.yml found")

// ErrConfigInvalid is returned when a config document is malformed beyond
// what normalization can repair.
var ErrConfigInvalid = errors.New("invalid workspace config")

// ProjectConfig is the raw declarative form of .workspace.yml. All fields
// are optional; normalization happens in Resolve.
type ProjectConfig struct {
	Repo                  RepoConfig      `yaml:"repo"`
	Forwards              []ForwardSpec   `yaml:"forwards"`
	Mounts                []string        `yaml:"mounts"`
	Bootstrap             BootstrapConfig `yaml:"bootstrap"`
	MountAgentCredentials *bool           `yaml:"mountAgentsCredentials"`
}

// UserConfig is the raw form of ~/.workspaces/config.yml. It shares the
// project schema and adds SSH key selection settings.
type UserConfig struct {
	ProjectConfig `yaml:",inline"`
	SSH           SSHConfig `yaml:"ssh"`
}

// RepoConfig describes the repository to clone into a workspace.
type RepoConfig struct {
	Remote    string   `yaml:"remote"`
	Branch    string   `yaml:"branch"`
	CloneArgs []string `yaml:"cloneArgs"`
}

// BootstrapConfig wraps the ordered list of bootstrap scripts.
type BootstrapConfig struct {
	Scripts []ScriptSpec `yaml:"scripts"`
}

// SSHConfig holds per-user SSH key selection settings.
type SSHConfig struct {
	DefaultKey string      `yaml:"defaultKey"`
	Repos      RepoKeyList `yaml:"repos"`
}

// RepoKeyRule maps a repository URL pattern to a private key path.
// Patterns support "*" wildcards; all other characters match literally.
type RepoKeyRule struct {
	Pattern string
	KeyPath string
}

// RepoKeyList preserves the declaration order of ssh.repos entries, which
// determines wildcard match precedence.
type RepoKeyList []RepoKeyRule

// UnmarshalYAML decodes a YAML mapping into an ordered rule list.
func (l *RepoKeyList) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("ssh.repos must be a mapping of pattern to key path")
	}
	rules := make(RepoKeyList, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		var pattern, keyPath string
		if err := node.Content[i].Decode(&pattern); err != nil {
			return fmt.Errorf("ssh.repos pattern: %w", err)
		}
		if err := node.Content[i+1].Decode(&keyPath); err != nil {
			return fmt.Errorf("ssh.repos key path for %q: %w", pattern, err)
		}
		rules = append(rules, RepoKeyRule{Pattern: pattern, KeyPath: keyPath})
	}
	*l = rules
	return nil
}

// ForwardSpec is the raw form of a forwards entry. The config accepts an
// integer, an "A-B"/"A:B" range string, or an object with an `internal`
// field; anything else is recorded as invalid and dropped by normalization.
type ForwardSpec struct {
	Port  int
	Range string
	valid bool
}

// UnmarshalYAML decodes the three accepted shapes of a forward entry.
// Unknown shapes are swallowed so a single bad entry does not fail the
// whole document.
func (f *ForwardSpec) UnmarshalYAML(node *yaml.Node) error {
	*f = ForwardSpec{}

	switch node.Kind {
	case yaml.ScalarNode:
		var port int
		if err := node.Decode(&port); err == nil {
			f.Port = port
			f.valid = true
			return nil
		}
		var s string
		if err := node.Decode(&s); err == nil {
			f.Range = s
			f.valid = true
			return nil
		}
	case yaml.MappingNode:
		var obj struct {
			Internal yaml.Node `yaml:"internal"`
		}
		if err := node.Decode(&obj); err == nil && obj.Internal.Kind == yaml.ScalarNode {
			var port int
			if err := obj.Internal.Decode(&port); err == nil {
				f.Port = port
				f.valid = true
				return nil
			}
			var s string
			if err := obj.Internal.Decode(&s); err == nil {
				f.Range = s
				f.valid = true
				return nil
			}
		}
	}
	return nil
}

// ScriptSpec is the raw form of a bootstrap script entry: a plain path
// string or a {path, source} object.
type ScriptSpec struct {
	Path   string `yaml:"path"`
	Source string `yaml:"source"`
}

// UnmarshalYAML accepts both the string and object forms.
func (s *ScriptSpec) UnmarshalYAML(node *yaml.Node) error {
	*s = ScriptSpec{}

	if node.Kind == yaml.ScalarNode {
		return node.Decode(&s.Path)
	}

	type scriptAlias ScriptSpec
	var alias scriptAlias
	if err := node.Decode(&alias); err != nil {
		return fmt.Errorf("bootstrap script must be a path or {path, source}: %w", err)
	}
	*s = ScriptSpec(alias)
	return nil
}
