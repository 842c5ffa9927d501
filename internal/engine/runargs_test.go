package engine

import (
	"strings"
	"testing"

	"github.com/workspace-dev/workspace/internal/config"
)

func testResolved() *config.Resolved {
	return &config.Resolved{
		Name:          "demo",
		ContainerName: "workspace-demo",
		ImageTag:      "workspace:latest",
		ConfigDir:     "/projects/demo",
		Repo: config.RepoConfig{
			Remote: "git@github.com:org/demo.git",
			Branch: "main",
		},
		Forwards: []int{3000},
		Mounts: []config.Mount{
			{Source: "/tmp/ro", Target: "/workspace/test-ro", Mode: "ro"},
		},
		State: config.StatePaths{
			Root:              "/home/u/.workspaces/state/demo",
			KeyPath:           "/home/u/.workspaces/state/demo/ssh/id_ed25519",
			RuntimeConfigPath: "/home/u/.workspaces/state/demo/runtime.json",
		},
	}
}

func testInput() runArgsInput {
	return runArgsInput{
		resolved:    testResolved(),
		sshPort:     2301,
		publicKey:   "ssh-ed25519 AAAA workspace",
		selectedKey: "id_work",
		hostHome:    "/home/u",
		agentSock:   "",
		uid:         1001,
		gid:         1001,
	}
}

// hasPair reports whether flag is immediately followed by value somewhere
// in args.
func hasPair(args []string, flag, value string) bool {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func TestBuildRunArgs_Core(t *testing.T) {
	args := buildRunArgs(testInput())

	for _, want := range []string{"--detach", "--privileged"} {
		found := false
		for _, a := range args {
			if a == want {
				found = true
			}
		}
		if !found {
			t.Errorf("missing %s in %v", want, args)
		}
	}

	if !hasPair(args, "--name", "workspace-demo") {
		t.Error("missing --name workspace-demo")
	}
	if !hasPair(args, "--hostname", "workspace-demo") {
		t.Error("missing --hostname workspace-demo")
	}
	if !hasPair(args, "-p", "2301:22") {
		t.Error("missing -p 2301:22")
	}

	if args[len(args)-1] != "workspace:latest" {
		t.Errorf("image must be the final argument, got %q", args[len(args)-1])
	}
}

func TestBuildRunArgs_Environment(t *testing.T) {
	args := buildRunArgs(testInput())

	wantEnv := []string{
		"USER=workspace",
		"WORKSPACE_NAME=demo",
		"SSH_PUBLIC_KEY=ssh-ed25519 AAAA workspace",
		"HOST_UID=1001",
		"HOST_GID=1001",
		"WORKSPACE_RUNTIME_CONFIG=/workspace/config/runtime.json",
		"WORKSPACE_SOURCE_DIR=/workspace/source",
		"HOST_HOME=/host/home",
		"WORKSPACE_ASSIGNED_SSH_PORT=2301",
		"WORKSPACE_REPO_URL=git@github.com:org/demo.git",
		"WORKSPACE_REPO_BRANCH=main",
		"WORKSPACE_SELECTED_SSH_KEY=id_work",
		"DOCKER_BUILDKIT=1",
		"COMPOSE_DOCKER_CLI_BUILD=1",
	}
	for _, kv := range wantEnv {
		if !hasPair(args, "-e", kv) {
			t.Errorf("missing -e %s", kv)
		}
	}

	// No agent socket: no SSH_AUTH_SOCK.
	for i, a := range args {
		if a == "-e" && strings.HasPrefix(args[i+1], "SSH_AUTH_SOCK=") {
			t.Error("SSH_AUTH_SOCK set without a live agent socket")
		}
	}
}

func TestBuildRunArgs_NoSelectedKeyOmitsVar(t *testing.T) {
	in := testInput()
	in.selectedKey = ""
	args := buildRunArgs(in)

	for i, a := range args {
		if a == "-e" && strings.HasPrefix(args[i+1], "WORKSPACE_SELECTED_SSH_KEY") {
			t.Error("WORKSPACE_SELECTED_SSH_KEY should be omitted when unset")
		}
	}
}

func TestBuildRunArgs_AgentSocket(t *testing.T) {
	in := testInput()
	in.agentSock = "/run/user/1001/ssh-agent.sock"
	args := buildRunArgs(in)

	if !hasPair(args, "-e", "SSH_AUTH_SOCK=/ssh-agent") {
		t.Error("missing SSH_AUTH_SOCK env")
	}
	if !hasPair(args, "-v", "/run/user/1001/ssh-agent.sock:/ssh-agent") {
		t.Error("missing agent socket bind")
	}
}

func TestBuildRunArgs_MountsAndVolumes(t *testing.T) {
	args := buildRunArgs(testInput())

	wantMounts := []string{
		"/home/u/.workspaces/state/demo/runtime.json:/workspace/config/runtime.json:ro",
		"/projects/demo:/workspace/source:ro",
		"/home/u:/host/home:ro",
		"/tmp/ro:/workspace/test-ro:ro",
		"workspace-demo-home:/home/workspace",
		"workspace-demo-docker:/var/lib/docker",
		"workspace-demo-cache:/home/workspace/.cache",
	}
	for _, m := range wantMounts {
		if !hasPair(args, "-v", m) {
			t.Errorf("missing -v %s", m)
		}
	}
}
