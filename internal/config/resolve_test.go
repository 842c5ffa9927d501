package config

import (
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func boolPtr(b bool) *bool { return &b }

func parseProject(t *testing.T, doc string) *ProjectConfig {
	t.Helper()
	var cfg *ProjectConfig
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("parsing project config: %v", err)
	}
	return cfg
}

func parseUser(t *testing.T, doc string) *UserConfig {
	t.Helper()
	var cfg *UserConfig
	if err := yaml.Unmarshal([]byte(doc), &cfg); err != nil {
		t.Fatalf("parsing user config: %v", err)
	}
	return cfg
}

func TestResolve_NilProjectConfig(t *testing.T) {
	_, err := Resolve(nil, nil, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err == nil {
		t.Fatal("expected error for nil project config")
	}
}

func TestResolve_Identity(t *testing.T) {
	cfg := parseProject(t, "forwards: [3000]")

	r, err := Resolve(cfg, nil, "/projects/myapp", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "myapp" {
		t.Errorf("Name = %q, want myapp", r.Name)
	}
	if r.ContainerName != "workspace-myapp" {
		t.Errorf("ContainerName = %q, want workspace-myapp", r.ContainerName)
	}
	if r.ImageTag != "workspace:latest" {
		t.Errorf("ImageTag = %q, want workspace:latest", r.ImageTag)
	}
	if r.Repo.Branch != "main" {
		t.Errorf("Branch = %q, want main (default)", r.Repo.Branch)
	}

	wantRoot := filepath.Join("/home/u", ".workspaces", "state", "myapp")
	if r.State.Root != wantRoot {
		t.Errorf("State.Root = %q, want %q", r.State.Root, wantRoot)
	}
	if r.State.KeyPath != filepath.Join(wantRoot, "ssh", "id_ed25519") {
		t.Errorf("State.KeyPath = %q", r.State.KeyPath)
	}
	if r.State.RuntimeConfigPath != filepath.Join(wantRoot, "runtime.json") {
		t.Errorf("State.RuntimeConfigPath = %q", r.State.RuntimeConfigPath)
	}
}

func TestResolve_NameOverride(t *testing.T) {
	cfg := parseProject(t, "{}")
	r, err := Resolve(cfg, nil, "/projects/myapp", ResolveOptions{HostHome: "/home/u", WorkspaceName: "other"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "other" || r.ContainerName != "workspace-other" {
		t.Errorf("override not applied: %q / %q", r.Name, r.ContainerName)
	}
}

func TestForwards_Normalization(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want []int
	}{
		{"single int", "forwards: [3000]", []int{3000}},
		{"range dash", `forwards: ["5000-5003"]`, []int{5000, 5001, 5002, 5003}},
		{"range colon", `forwards: ["9000:9001"]`, []int{9000, 9001}},
		{"degenerate range", `forwards: ["7000-7000"]`, []int{7000}},
		{"object internal", "forwards: [{internal: 4000}]", []int{4000}},
		{"object internal string", `forwards: [{internal: "4100-4101"}]`, []int{4100, 4101}},
		{"zero rejected", "forwards: [0]", nil},
		{"negative rejected", "forwards: [-1]", nil},
		{"inverted range dropped", `forwards: ["5003-5000"]`, nil},
		{"malformed dropped", `forwards: ["abc-def"]`, nil},
		{"other shapes dropped", "forwards: [{external: 1}]", nil},
		{"duplicates preserved in order", `forwards: [8080, 8080]`, []int{8080, 8080}},
		{
			"mixed literal scenario",
			`forwards: [3000, "5000-5003", 8080, "9000-9001", "7000-7000"]`,
			[]int{3000, 5000, 5001, 5002, 5003, 8080, 9000, 9001, 7000},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := parseProject(t, tt.doc)
			r, err := Resolve(cfg, nil, "/proj", ResolveOptions{HostHome: "/home/u"})
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(r.Forwards, tt.want) {
				t.Errorf("Forwards = %v, want %v", r.Forwards, tt.want)
			}
			for _, p := range r.Forwards {
				if p <= 0 {
					t.Errorf("non-positive port %d in output", p)
				}
			}
		})
	}
}

func TestMounts_Normalization(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want *Mount
	}{
		{"two parts default rw", "/tmp/a:/b", &Mount{"/tmp/a", "/b", "rw"}},
		{"explicit ro", "/tmp/a:/b:ro", &Mount{"/tmp/a", "/b", "ro"}},
		{"bad mode corrected", "/tmp/a:/b:rx", &Mount{"/tmp/a", "/b", "rw"}},
		{"windows drive three parts", "C:/path:/container/path", &Mount{"C:/path", "/container/path", "rw"}},
		{"windows drive four parts", "C:/path:/container/path:ro", &Mount{"C:/path", "/container/path", "ro"}},
		{"one part dropped", "/tmp/a", nil},
		{"relative source resolved", "data:/b", &Mount{"/proj/data", "/b", "rw"}},
		{"tilde expanded", "~/notes:/b:ro", &Mount{"/home/u/notes", "/b", "ro"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeMounts([]string{tt.in}, "/proj", "/home/u")
			if tt.want == nil {
				if len(got) != 0 {
					t.Fatalf("expected drop, got %v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d mounts, want 1", len(got))
			}
			if got[0] != *tt.want {
				t.Errorf("mount = %+v, want %+v", got[0], *tt.want)
			}
			if got[0].Mode != "ro" && got[0].Mode != "rw" {
				t.Errorf("mode %q outside {ro, rw}", got[0].Mode)
			}
			driveQualified := len(got[0].Source) >= 2 && got[0].Source[1] == ':'
			if !driveQualified && !filepath.IsAbs(got[0].Source) {
				t.Errorf("source %q not absolute after normalization", got[0].Source)
			}
		})
	}
}

func TestMerge_ConcatOrderAndTags(t *testing.T) {
	project := parseProject(t, `
forwards: [3000]
mounts: ["/p:/p"]
bootstrap:
  scripts:
    - scripts/01.sh
`)
	user := parseUser(t, `
forwards: [9000]
mounts: ["/u:/u"]
bootstrap:
  scripts:
    - extra.sh
`)

	r, err := Resolve(project, user, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}

	if !reflect.DeepEqual(r.Forwards, []int{3000, 9000}) {
		t.Errorf("Forwards = %v, want project first", r.Forwards)
	}
	if len(r.Mounts) != 2 || r.Mounts[0].Source != "/p" || r.Mounts[1].Source != "/u" {
		t.Errorf("Mounts = %v, want project first", r.Mounts)
	}

	want := []Script{
		{Path: "scripts/01.sh", Source: "project"},
		{Path: "extra.sh", Source: "user"},
	}
	if !reflect.DeepEqual(r.Bootstrap, want) {
		t.Errorf("Bootstrap = %v, want %v", r.Bootstrap, want)
	}
}

func TestMerge_RepoShallowUserOverProject(t *testing.T) {
	project := parseProject(t, `
repo:
  remote: git@github.com:org/a.git
  branch: develop
`)
	user := parseUser(t, `
repo:
  branch: override
`)

	r, err := Resolve(project, user, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}
	if r.Repo.Remote != "git@github.com:org/a.git" {
		t.Errorf("Remote = %q, project value should survive", r.Repo.Remote)
	}
	if r.Repo.Branch != "override" {
		t.Errorf("Branch = %q, user value should win", r.Repo.Branch)
	}
}

func TestMerge_MountAgentCredentialsUserOverrides(t *testing.T) {
	project := &ProjectConfig{MountAgentCredentials: boolPtr(true)}
	user := &UserConfig{ProjectConfig: ProjectConfig{MountAgentCredentials: boolPtr(false)}}

	m := mergeConfigs(project, user)
	if m.MountAgentCredentials {
		t.Error("user false should override project true")
	}

	m = mergeConfigs(project, nil)
	if !m.MountAgentCredentials {
		t.Error("project true should apply without user config")
	}
}

func TestScriptSpec_ObjectFormWithExplicitSource(t *testing.T) {
	project := parseProject(t, `
bootstrap:
  scripts:
    - {path: shared.sh, source: user}
`)
	r, err := Resolve(project, nil, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Bootstrap) != 1 || r.Bootstrap[0].Source != "user" {
		t.Errorf("explicit source lost: %v", r.Bootstrap)
	}
}

func TestResolve_StableAcrossParses(t *testing.T) {
	doc := `
repo:
  remote: git@github.com:org/a.git
forwards: [3000, "5000-5001"]
mounts: ["/a:/b:ro"]
bootstrap:
  scripts: [setup.sh]
`
	first, err := Resolve(parseProject(t, doc), nil, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}

	second, err := Resolve(parseProject(t, doc), nil, "/proj", ResolveOptions{HostHome: "/home/u"})
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Resolve is not stable:\n%+v\n%+v", first, second)
	}
}
