package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/search"
	"github.com/fenilsonani/mailcore/internal/synccache"
	"github.com/fenilsonani/mailcore/internal/synclock"
	"github.com/fenilsonani/mailcore/internal/syncevents"
)

// Config carries everything one sync run needs beyond the two live
// backends: the account's sync sub-configuration, each side's write
// permissions (grounded on the reference pool builder's per-side
// Create/Delete/Update resolution in sync/pool.rs), and the run's
// operating mode.
type Config struct {
	Account           model.AccountConfig
	LocalPermissions  model.SyncPermissions
	RemotePermissions model.SyncPermissions
	PoolSize          int
	DryRun            bool
	LockDir           string
}

// Engine drives one account's two-way synchronization between a local and
// a remote backend.
type Engine struct {
	cfg    Config
	local  caller
	remote caller
	cache  *synccache.Cache
	events syncevents.Sink
}

// NewEngine builds an Engine. local and remote are usually a
// *backend.Handler or *backend.Pool depending on the adapter's concurrency
// shape; cache persists L_cache/R_cache across runs; events may be nil, in
// which case progress is not reported.
func NewEngine(cfg Config, local, remote caller, cache *synccache.Cache, events syncevents.Sink) *Engine {
	if events == nil {
		events = syncevents.NewMultiSink()
	}
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return &Engine{cfg: cfg, local: local, remote: remote, cache: cache, events: events}
}

// Report summarizes one completed sync run.
type Report struct {
	Folders          []string
	FolderOutcomes   []outcome[FolderHunk]
	EnvelopeOutcomes []outcome[EnvelopeHunk]
}

// Run executes one full sync cycle: acquire the account's exclusive lock,
// build and apply the folder patch, build and apply the envelope patch
// for every surviving folder, then expunge both sides.
func (e *Engine) Run(ctx context.Context) (*Report, error) {
	lock, err := synclock.Acquire(e.cfg.LockDir, e.cfg.Account.Name)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	e.events.Emit(syncevents.Event{Kind: syncevents.KindBuildFolderPatch, Account: e.cfg.Account.Name})

	folderHunks, folders, err := e.buildAndFilterFolderPatch(ctx)
	if err != nil {
		return nil, err
	}

	folderBatches := batchFolderHunks(folderHunks)
	rawBatches := make([][]FolderHunk, len(folderBatches))
	for i, b := range folderBatches {
		rawBatches[i] = b.hunks
	}

	e.events.Emit(syncevents.Event{Kind: syncevents.KindApplyFolderPatches, Account: e.cfg.Account.Name, Count: len(folderHunks)})

	folderOutcomes := runPool(ctx, e.cfg.PoolSize, rawBatches, func(ctx context.Context, h FolderHunk) error {
		e.events.Emit(syncevents.Event{Kind: syncevents.KindApplyFolderHunk, Account: e.cfg.Account.Name, Folder: h.Folder, HunkDescription: h.String()})
		return applyFolderHunk(ctx, h, e.cfg.Account.Name, e.local, e.remote, e.cache, e.cfg.DryRun)
	})

	e.events.Emit(syncevents.Event{Kind: syncevents.KindBuildEnvelopePatch, Account: e.cfg.Account.Name, Folders: folders})

	var allEnvelopeHunks []EnvelopeHunk
	for _, folder := range folders {
		hunks, err := e.buildAndFilterEnvelopePatch(ctx, folder)
		if err != nil {
			return nil, err
		}
		e.events.Emit(syncevents.Event{Kind: syncevents.KindEnvelopePatchBuilt, Account: e.cfg.Account.Name, Folder: folder, Count: len(hunks)})
		allEnvelopeHunks = append(allEnvelopeHunks, hunks...)
	}

	envelopeBatches := batchEnvelopeHunks(allEnvelopeHunks)
	rawEnvelopeBatches := make([][]EnvelopeHunk, len(envelopeBatches))
	for i, b := range envelopeBatches {
		rawEnvelopeBatches[i] = b.hunks
	}

	e.events.Emit(syncevents.Event{Kind: syncevents.KindApplyEnvelopePatches, Account: e.cfg.Account.Name, Count: len(allEnvelopeHunks)})

	envelopeOutcomes := runPool(ctx, e.cfg.PoolSize, rawEnvelopeBatches, func(ctx context.Context, h EnvelopeHunk) error {
		e.events.Emit(syncevents.Event{Kind: syncevents.KindApplyEnvelopeHunk, Account: e.cfg.Account.Name, Folder: h.Folder, HunkDescription: h.String()})
		err := applyEnvelopeHunk(ctx, h, e.cfg.Account.Name, e.local, e.remote, e.cache, e.cfg.Account.MessageSync.MaxSize, e.cfg.DryRun)
		e.events.Emit(syncevents.Event{Kind: syncevents.KindApplyEnvelopeCachePatch, Account: e.cfg.Account.Name, Folder: h.Folder})
		return err
	})

	e.events.Emit(syncevents.Event{Kind: syncevents.KindExpungeFolders, Account: e.cfg.Account.Name, Folders: folders})
	if !e.cfg.DryRun {
		for _, folder := range folders {
			if err := expungeFolder(ctx, e.local, folder); err != nil && !mailerr.Is(err, mailerr.KindCapabilityMissing) {
				return nil, err
			}
			if err := expungeFolder(ctx, e.remote, folder); err != nil && !mailerr.Is(err, mailerr.KindCapabilityMissing) {
				return nil, err
			}
			e.events.Emit(syncevents.Event{Kind: syncevents.KindFolderExpunged, Account: e.cfg.Account.Name, Folder: folder})
		}
	}

	return &Report{
		Folders:          folders,
		FolderOutcomes:   folderOutcomes,
		EnvelopeOutcomes: envelopeOutcomes,
	}, nil
}

func (e *Engine) buildAndFilterFolderPatch(ctx context.Context) ([]FolderHunk, []string, error) {
	localLive, err := listFolders(ctx, e.local)
	if err != nil {
		return nil, nil, err
	}
	remoteLive, err := listFolders(ctx, e.remote)
	if err != nil {
		return nil, nil, err
	}
	localCache, err := e.cache.ListFolders(ctx, e.cfg.Account.Name, model.SideLocal)
	if err != nil {
		return nil, nil, err
	}
	remoteCache, err := e.cache.ListFolders(ctx, e.cfg.Account.Name, model.SideRemote)
	if err != nil {
		return nil, nil, err
	}

	filter := resolveFolderFilter(e.cfg.Account.FolderSync.Filter, e.cfg.Account.Aliases)
	hunks := buildFolderPatch(localLive, remoteLive, localCache, remoteCache, filter)
	hunks = filterFolderPermissions(hunks, e.cfg.LocalPermissions, e.cfg.RemotePermissions)

	folders := survivingFolders(localLive, remoteLive, filter)
	return hunks, folders, nil
}

func (e *Engine) buildAndFilterEnvelopePatch(ctx context.Context, folder string) ([]EnvelopeHunk, error) {
	var query *search.Query
	if q := e.cfg.Account.EnvelopeSync.Query; q != "" {
		parsed, err := search.Parse(q)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindParse, "parse envelope sync query", err)
		}
		query = parsed
	}

	localLive, err := listEnvelopes(ctx, e.local, folder, query)
	if err != nil {
		return nil, err
	}
	remoteLive, err := listEnvelopes(ctx, e.remote, folder, query)
	if err != nil {
		return nil, err
	}
	localCache, err := e.cache.ListEnvelopes(ctx, e.cfg.Account.Name, model.SideLocal, folder)
	if err != nil {
		return nil, err
	}
	remoteCache, err := e.cache.ListEnvelopes(ctx, e.cfg.Account.Name, model.SideRemote, folder)
	if err != nil {
		return nil, err
	}

	hunks := buildEnvelopePatch(folder, localLive, remoteLive, localCache, remoteCache, e.cfg.Account.FlagSync.Ignored)
	return filterEnvelopePermissions(hunks, e.cfg.LocalPermissions, e.cfg.RemotePermissions), nil
}

// survivingFolders is the union of folders live on either side after the
// filter is applied: the envelope phase only runs against folders that
// actually exist somewhere.
func survivingFolders(localLive, remoteLive []model.Folder, filter model.FolderFilter) []string {
	seen := make(map[string]struct{})
	var names []string
	add := func(n string) {
		if _, ok := seen[n]; ok {
			return
		}
		if !filter.Includes(n) {
			return
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	for _, f := range localLive {
		add(f.Name)
	}
	for _, f := range remoteLive {
		add(f.Name)
	}
	return names
}

func resolveFolderFilter(filter model.FolderFilter, aliases model.FolderAliases) model.FolderFilter {
	if filter.Mode == model.FolderFilterAll {
		return filter
	}
	resolved := make(map[string]struct{}, len(filter.Folders))
	for name := range filter.Folders {
		resolved[aliases.Resolve(name)] = struct{}{}
	}
	return model.FolderFilter{Mode: filter.Mode, Folders: resolved}
}
