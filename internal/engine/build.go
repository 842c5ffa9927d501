package engine

import (
	"context"
	"time"

	"github.com/workspace-dev/workspace/internal/buildctx"
	"github.com/workspace-dev/workspace/internal/config"
	"github.com/workspace-dev/workspace/internal/docker"
)

// BuildSharedImage builds the shared workspace image unconditionally and
// records the build time. Used by the `build` command.
func (e *Engine) BuildSharedImage(ctx context.Context, noCache bool) error {
	contextDir, err := buildctx.Materialize(e.store.BaseDir())
	if err != nil {
		return err
	}

	e.reportProgress("Building shared image...")
	if err := e.docker.BuildImage(ctx, config.SharedImageTag, contextDir, docker.BuildOptions{NoCache: noCache}); err != nil {
		return err
	}
	return e.store.RecordSharedImageBuild(ctx, time.Now())
}

// ensureSharedImage builds the shared image when it is missing, stale
// (older than sharedImageMaxAge), or a rebuild was requested.
func (e *Engine) ensureSharedImage(ctx context.Context, rebuild, noCache bool) error {
	if !rebuild && !noCache && e.docker.ImageExists(ctx, config.SharedImageTag) {
		last, err := e.store.LastSharedImageBuild(ctx)
		if err != nil {
			return err
		}
		if !last.IsZero() && time.Since(last) < sharedImageMaxAge {
			return nil
		}
		e.reportProgress("Shared image is stale, rebuilding...")
	}
	return e.BuildSharedImage(ctx, noCache)
}
