package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/workspace-dev/workspace/internal/execx"
)

const (
	workspaceUser  = "workspace"
	workspaceGroup = "workspace"
	workspaceHome  = "/home/workspace"

	// evictedID is where a conflicting user or group is shifted so the
	// workspace user can take its numeric id.
	evictedID = 60000
)

// syncUser rewrites the workspace user and group so file ownership inside
// the container matches the invoking host user. Refuses to act for root
// ids or unparseable input; a no-op when the ids already match.
func (a *Agent) syncUser(ctx context.Context, hostUID, hostGID string) error {
	uid, err := strconv.Atoi(strings.TrimSpace(hostUID))
	if err != nil {
		return fmt.Errorf("unparseable HOST_UID %q: %w", hostUID, err)
	}
	gid, err := strconv.Atoi(strings.TrimSpace(hostGID))
	if err != nil {
		return fmt.Errorf("unparseable HOST_GID %q: %w", hostGID, err)
	}
	if uid == 0 || gid == 0 {
		return fmt.Errorf("refusing to sync workspace user to root ids (uid=%d gid=%d)", uid, gid)
	}

	currentUID, currentGID, err := a.currentIDs(ctx)
	if err != nil {
		return err
	}
	if currentUID == uid && currentGID == gid {
		a.logger.Debug("workspace user already matches host ids", "uid", uid, "gid", gid)
		return nil
	}

	if currentGID != gid {
		if err := a.changeGroupID(ctx, gid); err != nil {
			return err
		}
	}
	if err := a.changeUserID(ctx, uid, gid); err != nil {
		return err
	}

	a.logger.Info("synced workspace user", "uid", uid, "gid", gid)
	if _, err := a.runner.Captured(ctx, "chown", []string{"-R", fmt.Sprintf("%d:%d", uid, gid), workspaceHome}, execx.CapturedOptions{}); err != nil {
		return fmt.Errorf("rechowning %s: %w", workspaceHome, err)
	}
	return nil
}

// currentIDs reads the workspace user's current uid and gid.
func (a *Agent) currentIDs(ctx context.Context) (int, int, error) {
	uidRes, err := a.runner.Captured(ctx, "id", []string{"-u", workspaceUser}, execx.CapturedOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("probing workspace uid: %w", err)
	}
	gidRes, err := a.runner.Captured(ctx, "id", []string{"-g", workspaceUser}, execx.CapturedOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("probing workspace gid: %w", err)
	}
	uid, err := strconv.Atoi(strings.TrimSpace(uidRes.Stdout))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing uid: %w", err)
	}
	gid, err := strconv.Atoi(strings.TrimSpace(gidRes.Stdout))
	if err != nil {
		return 0, 0, fmt.Errorf("parsing gid: %w", err)
	}
	return uid, gid, nil
}

// changeGroupID moves the workspace group to gid, evicting any group that
// already owns it.
func (a *Agent) changeGroupID(ctx context.Context, gid int) error {
	res, err := a.runner.Captured(ctx, "groupmod", []string{"-g", strconv.Itoa(gid), workspaceGroup}, execx.CapturedOptions{IgnoreFailure: true})
	if err == nil && res.Code == 0 {
		return nil
	}

	if conflict := a.lookupName(ctx, "group", gid); conflict != "" && conflict != workspaceGroup {
		a.logger.Info("evicting conflicting group", "group", conflict, "gid", gid)
		if _, err := a.runner.Captured(ctx, "groupmod", []string{"-g", strconv.Itoa(evictedID), conflict}, execx.CapturedOptions{}); err != nil {
			return fmt.Errorf("evicting group %s: %w", conflict, err)
		}
		if _, err := a.runner.Captured(ctx, "groupmod", []string{"-g", strconv.Itoa(gid), workspaceGroup}, execx.CapturedOptions{}); err != nil {
			return fmt.Errorf("setting workspace gid: %w", err)
		}
		return nil
	}
	return fmt.Errorf("groupmod -g %d %s failed: %s", gid, workspaceGroup, strings.TrimSpace(res.Stderr))
}

// changeUserID moves the workspace user to uid/gid, evicting any user that
// already owns the uid.
func (a *Agent) changeUserID(ctx context.Context, uid, gid int) error {
	args := []string{"-u", strconv.Itoa(uid), "-g", strconv.Itoa(gid), workspaceUser}
	res, err := a.runner.Captured(ctx, "usermod", args, execx.CapturedOptions{IgnoreFailure: true})
	if err == nil && res.Code == 0 {
		return nil
	}

	if conflict := a.lookupName(ctx, "passwd", uid); conflict != "" && conflict != workspaceUser {
		a.logger.Info("evicting conflicting user", "user", conflict, "uid", uid)
		if _, err := a.runner.Captured(ctx, "usermod", []string{"-u", strconv.Itoa(evictedID), conflict}, execx.CapturedOptions{}); err != nil {
			return fmt.Errorf("evicting user %s: %w", conflict, err)
		}
		if _, err := a.runner.Captured(ctx, "usermod", args, execx.CapturedOptions{}); err != nil {
			return fmt.Errorf("setting workspace uid: %w", err)
		}
		return nil
	}
	return fmt.Errorf("usermod -u %d %s failed: %s", uid, workspaceUser, strings.TrimSpace(res.Stderr))
}

// lookupName returns the name owning a numeric id in the given NSS
// database, or "" when unclaimed. getent exits non-zero when not found.
func (a *Agent) lookupName(ctx context.Context, database string, id int) string {
	res, err := a.runner.Captured(ctx, "getent", []string{database, strconv.Itoa(id)}, execx.CapturedOptions{IgnoreFailure: true})
	if err != nil || res.Code != 0 {
		return ""
	}
	// "name:x:id:..."
	return strings.SplitN(strings.TrimSpace(res.Stdout), ":", 2)[0]
}
