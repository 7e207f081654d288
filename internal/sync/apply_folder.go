package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/synccache"
)

// applyFolderHunk performs one folder-phase hunk's side effect: a live
// backend call, a cache write, or both. dryRun skips every mutating call
// and cache write, leaving the hunk purely reported.
func applyFolderHunk(ctx context.Context, h FolderHunk, account string, local, remote caller, cache *synccache.Cache, dryRun bool) error {
	c := local
	if h.Side == model.SideRemote {
		c = remote
	}

	if dryRun {
		return nil
	}

	switch h.Kind {
	case FolderCreate:
		if err := createFolder(ctx, c, h.Folder); err != nil {
			return err
		}
		return cache.UpsertFolder(ctx, model.CachedFolder{Account: account, Side: h.Side, Name: h.Folder})
	case FolderDelete:
		if err := deleteFolder(ctx, c, h.Folder); err != nil {
			return err
		}
		return cache.DeleteFolder(ctx, account, h.Side, h.Folder)
	case FolderCache:
		return cache.UpsertFolder(ctx, model.CachedFolder{Account: account, Side: h.Side, Name: h.Folder})
	case FolderUncache:
		return cache.DeleteFolder(ctx, account, h.Side, h.Folder)
	default:
		return nil
	}
}
