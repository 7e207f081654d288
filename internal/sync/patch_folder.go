package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// caller is the subset of backend.Handler/backend.Pool the sync engine
// needs: dispatch a feature call against whichever context the backend
// exposes next. Both Handler (single-instance, filesystem backends) and
// Pool (round-robin, connection-oriented backends) satisfy it.
type caller interface {
	Call(name backend.FeatureName, fn func(any) error) error
}

func listFolders(ctx context.Context, c caller) ([]model.Folder, error) {
	var folders []model.Folder
	err := c.Call(backend.FeatureListFolders, func(impl any) error {
		f, ok := impl.(backend.ListFolders)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureListFolders))
		}
		var err error
		folders, err = f.ListFolders(ctx)
		return err
	})
	return folders, err
}

func createFolder(ctx context.Context, c caller, name string) error {
	return c.Call(backend.FeatureAddFolder, func(impl any) error {
		f, ok := impl.(backend.AddFolder)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureAddFolder))
		}
		return f.AddFolder(ctx, name)
	})
}

func deleteFolder(ctx context.Context, c caller, name string) error {
	return c.Call(backend.FeatureDeleteFolder, func(impl any) error {
		f, ok := impl.(backend.DeleteFolder)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureDeleteFolder))
		}
		return f.DeleteFolder(ctx, name)
	})
}

func expungeFolder(ctx context.Context, c caller, name string) error {
	return c.Call(backend.FeatureExpungeFolder, func(impl any) error {
		f, ok := impl.(backend.ExpungeFolder)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureExpungeFolder))
		}
		return f.ExpungeFolder(ctx, name)
	})
}

// buildFolderPatch diffs the four folder views (local live, local cache,
// remote live, remote cache) into a flat hunk list. Per side, a folder's
// own (cache, live) pair is classified against the other side's live
// presence: an unseen-elsewhere folder seeds a Create on the side missing
// it; a folder cached but no longer live on one side while still live on
// the other means that side deleted it, propagating as a Delete+Uncache
// pair; a folder present on neither live side but still cached on one is
// simply uncached.
func buildFolderPatch(localLive, remoteLive []model.Folder, localCache, remoteCache []model.CachedFolder, filter model.FolderFilter) []FolderHunk {
	localLiveSet := foldersByName(localLive)
	remoteLiveSet := foldersByName(remoteLive)
	localCacheSet := cachedByName(localCache)
	remoteCacheSet := cachedByName(remoteCache)

	names := make(map[string]struct{})
	for n := range localLiveSet {
		names[n] = struct{}{}
	}
	for n := range remoteLiveSet {
		names[n] = struct{}{}
	}
	for n := range localCacheSet {
		names[n] = struct{}{}
	}
	for n := range remoteCacheSet {
		names[n] = struct{}{}
	}

	var hunks []FolderHunk
	for name := range names {
		if !filter.Includes(name) {
			continue
		}
		_, lLive := localLiveSet[name]
		_, rLive := remoteLiveSet[name]
		_, lCache := localCacheSet[name]
		_, rCache := remoteCacheSet[name]

		hunks = append(hunks, classifyFolderSide(name, model.SideLocal, model.SideRemote, lCache, lLive, rLive)...)
		hunks = append(hunks, classifyFolderSide(name, model.SideRemote, model.SideLocal, rCache, rLive, lLive)...)
	}
	return hunks
}

func classifyFolderSide(name string, side, other model.Side, cache, live, otherLive bool) []FolderHunk {
	if live {
		if !cache {
			return []FolderHunk{{Kind: FolderCache, Side: side, Folder: name}}
		}
		return nil
	}
	if otherLive {
		if cache {
			// This side had it before and lost it while the other side
			// still has it live: this side deleted the folder.
			return []FolderHunk{
				{Kind: FolderDelete, Side: other, Folder: name},
				{Kind: FolderUncache, Side: side, Folder: name},
			}
		}
		return []FolderHunk{{Kind: FolderCreate, Side: side, Folder: name}}
	}
	if cache {
		return []FolderHunk{{Kind: FolderUncache, Side: side, Folder: name}}
	}
	return nil
}

func foldersByName(folders []model.Folder) map[string]model.Folder {
	out := make(map[string]model.Folder, len(folders))
	for _, f := range folders {
		out[f.Name] = f
	}
	return out
}

func cachedByName(folders []model.CachedFolder) map[string]model.CachedFolder {
	out := make(map[string]model.CachedFolder, len(folders))
	for _, f := range folders {
		out[f.Name] = f
	}
	return out
}

// filterFolderPermissions drops hunks the corresponding side's
// permissions disallow, grounded on the reference pool builder's
// apply_folder_permissions: Create/Cache hunks need the create
// permission, Delete/Uncache hunks need the delete permission.
func filterFolderPermissions(hunks []FolderHunk, localPerm, remotePerm model.SyncPermissions) []FolderHunk {
	out := make([]FolderHunk, 0, len(hunks))
	for _, h := range hunks {
		perm := localPerm
		if h.Side == model.SideRemote {
			perm = remotePerm
		}
		switch h.Kind {
		case FolderCreate, FolderCache:
			if perm.Create {
				out = append(out, h)
			}
		case FolderDelete, FolderUncache:
			if perm.Delete {
				out = append(out, h)
			}
		}
	}
	return out
}
