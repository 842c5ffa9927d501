package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/fsutil"
	"github.com/workspace-dev/workspace/internal/runtimecfg"
)

// OS identity probes are variables so tests can pin them.
var (
	getuid = os.Getuid
	getgid = os.Getgid
)

const (
	containerSourceDir = "/workspace/source"
	containerUserCfg   = "/workspace/userconfig"
	containerHostHome  = "/host/home"
	containerAgentSock = "/ssh-agent"
)

// runArgsInput collects everything buildRunArgs needs, so the assembly is a
// pure function.
type runArgsInput struct {
	resolved    *config.Resolved
	sshPort     int
	publicKey   string
	selectedKey string
	hostHome    string
	agentSock   string
	uid         int
	gid         int
}

// buildRunArgs assembles the `docker run` argument list for a workspace
// container. The caller prepends "run"; --detach is included here.
func buildRunArgs(in runArgsInput) []string {
	r := in.resolved

	args := []string{
		"--detach",
		"--privileged",
		"--name", r.ContainerName,
		"--hostname", r.ContainerName,
		"-p", fmt.Sprintf("%d:22", in.sshPort),
	}

	env := [][2]string{
		{"USER", "workspace"},
		{"WORKSPACE_NAME", r.Name},
		{"SSH_PUBLIC_KEY", in.publicKey},
		{"HOST_UID", strconv.Itoa(in.uid)},
		{"HOST_GID", strconv.Itoa(in.gid)},
		{"WORKSPACE_RUNTIME_CONFIG", runtimecfg.ContainerPath},
		{"WORKSPACE_SOURCE_DIR", containerSourceDir},
		{"HOST_HOME", containerHostHome},
		{"WORKSPACE_ASSIGNED_SSH_PORT", strconv.Itoa(in.sshPort)},
		{"WORKSPACE_REPO_URL", r.Repo.Remote},
		{"WORKSPACE_REPO_BRANCH", r.Repo.Branch},
		{"DOCKER_BUILDKIT", "1"},
		{"COMPOSE_DOCKER_CLI_BUILD", "1"},
	}
	if in.selectedKey != "" {
		env = append(env, [2]string{"WORKSPACE_SELECTED_SSH_KEY", in.selectedKey})
	}
	if in.agentSock != "" {
		env = append(env, [2]string{"SSH_AUTH_SOCK", containerAgentSock})
	}
	for _, kv := range env {
		if kv[1] == "" {
			// The -e KEY= form would unset rather than set; skip empties.
			continue
		}
		args = append(args, "-e", kv[0]+"="+kv[1])
	}

	// Bind mounts, read-only unless marked.
	args = append(args,
		"-v", r.State.RuntimeConfigPath+":"+runtimecfg.ContainerPath+":ro",
		"-v", r.ConfigDir+":"+containerSourceDir+":ro",
	)
	userCfgDir := filepath.Join(in.hostHome, ".workspaces")
	if fsutil.PathExists(userCfgDir) {
		args = append(args, "-v", userCfgDir+":"+containerUserCfg+":ro")
	}
	args = append(args, "-v", in.hostHome+":"+containerHostHome+":ro")
	if in.agentSock != "" {
		args = append(args, "-v", in.agentSock+":"+containerAgentSock)
	}
	for _, m := range r.Mounts {
		args = append(args, "-v", m.String())
	}

	// Named volumes, read-write.
	args = append(args,
		"-v", homeVolume(r.ContainerName)+":/home/workspace",
		"-v", dockerVolume(r.ContainerName)+":/var/lib/docker",
		"-v", cacheVolume(r.ContainerName)+":/home/workspace/.cache",
	)

	args = append(args, r.ImageTag)
	return args
}

// liveAgentSocket returns $SSH_AUTH_SOCK when it names an existing socket.
func liveAgentSocket() string {
	sock := os.Getenv("SSH_AUTH_SOCK")
	if sock == "" || !fsutil.PathExists(sock) {
		return ""
	}
	return sock
}
