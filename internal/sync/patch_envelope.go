package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/search"
)

func listEnvelopes(ctx context.Context, c caller, folder string, query *search.Query) ([]model.Envelope, error) {
	var envelopes []model.Envelope
	err := c.Call(backend.FeatureListEnvelopes, func(impl any) error {
		f, ok := impl.(backend.ListEnvelopes)
		if !ok {
			return mailerr.FeatureUnavailable(string(backend.FeatureListEnvelopes))
		}
		var err error
		envelopes, err = f.ListEnvelopes(ctx, folder, query)
		return err
	})
	return envelopes, err
}

// buildEnvelopePatch diffs one folder's four envelope views, keyed by the
// cross-side-stable MessageID, into a flat hunk list. Presence
// classification mirrors buildFolderPatch's per-side reasoning (a message
// live on both sides needs no structural hunk, only a flag merge; live on
// one side only seeds a copy or, if that side's cache shows it used to
// exist everywhere, a propagated delete; live on neither side but still
// cached drops the stale cache row) — see patch_folder.go.
func buildEnvelopePatch(folder string, localLive, remoteLive []model.Envelope, localCache, remoteCache []model.CachedEnvelope, ignoredFlags []string) []EnvelopeHunk {
	lLive := envelopesByMessageID(localLive)
	rLive := envelopesByMessageID(remoteLive)
	lCache := cachedEnvelopesByMessageID(localCache)
	rCache := cachedEnvelopesByMessageID(remoteCache)

	ids := make(map[string]struct{})
	for id := range lLive {
		ids[id] = struct{}{}
	}
	for id := range rLive {
		ids[id] = struct{}{}
	}
	for id := range lCache {
		ids[id] = struct{}{}
	}
	for id := range rCache {
		ids[id] = struct{}{}
	}

	var hunks []EnvelopeHunk
	for id := range ids {
		l, lOK := lLive[id]
		r, rOK := rLive[id]
		lc, lcOK := lCache[id]
		rc, rcOK := rCache[id]

		var lPtr, rPtr *model.Envelope
		var lcPtr, rcPtr *model.CachedEnvelope
		if lOK {
			lPtr = &l
		}
		if rOK {
			rPtr = &r
		}
		if lcOK {
			lcPtr = &lc
		}
		if rcOK {
			rcPtr = &rc
		}

		hunks = append(hunks, classifyEnvelopeSide(folder, id, model.SideLocal, model.SideRemote, lcPtr, lPtr, rPtr, rcPtr)...)
		hunks = append(hunks, classifyEnvelopeSide(folder, id, model.SideRemote, model.SideLocal, rcPtr, rPtr, lPtr, lcPtr)...)

		if lOK && rOK {
			hunks = append(hunks, flagHunks(folder, id, l, r, lcPtr, rcPtr, ignoredFlags)...)
		}
	}
	return hunks
}

func classifyEnvelopeSide(folder, messageID string, side, other model.Side, cache *model.CachedEnvelope, live, otherLive *model.Envelope, otherCache *model.CachedEnvelope) []EnvelopeHunk {
	if live != nil {
		if cache == nil {
			return []EnvelopeHunk{{Kind: EnvelopeGetThenCache, Side: side, Folder: folder, MessageID: messageID, NativeID: live.ID}}
		}
		return nil
	}
	if otherLive != nil {
		if cache != nil {
			return []EnvelopeHunk{
				{Kind: EnvelopeDelete, Side: other, Folder: folder, MessageID: messageID, NativeID: otherLive.ID},
				{Kind: EnvelopeUncache, Side: side, Folder: folder, MessageID: messageID},
			}
		}
		return []EnvelopeHunk{{
			Kind:               EnvelopeCopyThenCache,
			Side:               side,
			Folder:             folder,
			MessageID:          messageID,
			NativeID:           otherLive.ID,
			SourceSide:         other,
			MergedFlags:        otherLive.Flags.Clone(),
			RefreshSourceCache: otherCache == nil,
		}}
	}
	if cache != nil {
		return []EnvelopeHunk{{Kind: EnvelopeUncache, Side: side, Folder: folder, MessageID: messageID}}
	}
	return nil
}

func flagHunks(folder, messageID string, l, r model.Envelope, lCache, rCache *model.CachedEnvelope, ignored []string) []EnvelopeHunk {
	lCacheFlags := cachedFlags(lCache)
	rCacheFlags := cachedFlags(rCache)

	merged := stripFlags(MergeFlags(lCacheFlags, l.Flags, rCacheFlags, r.Flags), ignored)
	lFlags := stripFlags(l.Flags, ignored)
	rFlags := stripFlags(r.Flags, ignored)
	lCacheFlags = stripFlags(lCacheFlags, ignored)
	rCacheFlags = stripFlags(rCacheFlags, ignored)

	var hunks []EnvelopeHunk
	if !merged.Equal(lFlags) {
		hunks = append(hunks, EnvelopeHunk{Kind: EnvelopeUpdateFlags, Side: model.SideLocal, Folder: folder, MessageID: messageID, NativeID: l.ID, MergedFlags: merged})
	}
	if (lCache == nil && !merged.Equal(lFlags)) || (lCache != nil && !merged.Equal(lCacheFlags)) {
		hunks = append(hunks, EnvelopeHunk{Kind: EnvelopeUpdateCachedFlags, Side: model.SideLocal, Folder: folder, MessageID: messageID, NativeID: l.ID, MergedFlags: merged})
	}
	if !merged.Equal(rFlags) {
		hunks = append(hunks, EnvelopeHunk{Kind: EnvelopeUpdateFlags, Side: model.SideRemote, Folder: folder, MessageID: messageID, NativeID: r.ID, MergedFlags: merged})
	}
	if (rCache == nil && !merged.Equal(rFlags)) || (rCache != nil && !merged.Equal(rCacheFlags)) {
		hunks = append(hunks, EnvelopeHunk{Kind: EnvelopeUpdateCachedFlags, Side: model.SideRemote, Folder: folder, MessageID: messageID, NativeID: r.ID, MergedFlags: merged})
	}
	return hunks
}

func cachedFlags(c *model.CachedEnvelope) model.FlagSet {
	if c == nil {
		return nil
	}
	return c.Flags
}

func stripFlags(fs model.FlagSet, ignored []string) model.FlagSet {
	if len(ignored) == 0 {
		return fs
	}
	out := fs.Clone()
	for _, key := range ignored {
		delete(out, key)
	}
	return out
}

func envelopesByMessageID(envelopes []model.Envelope) map[string]model.Envelope {
	out := make(map[string]model.Envelope, len(envelopes))
	for _, e := range envelopes {
		out[e.MessageID] = e
	}
	return out
}

func cachedEnvelopesByMessageID(envelopes []model.CachedEnvelope) map[string]model.CachedEnvelope {
	out := make(map[string]model.CachedEnvelope, len(envelopes))
	for _, e := range envelopes {
		out[e.MessageID] = e
	}
	return out
}

// filterEnvelopePermissions drops hunks the corresponding side's
// permissions disallow, mirroring filterFolderPermissions: GetThenCache
// and CopyThenCache need create, UpdateFlags/UpdateCachedFlags need
// update, Uncache/Delete need delete.
func filterEnvelopePermissions(hunks []EnvelopeHunk, localPerm, remotePerm model.SyncPermissions) []EnvelopeHunk {
	out := make([]EnvelopeHunk, 0, len(hunks))
	for _, h := range hunks {
		perm := localPerm
		if h.Side == model.SideRemote {
			perm = remotePerm
		}
		switch h.Kind {
		case EnvelopeGetThenCache, EnvelopeCopyThenCache:
			if perm.Create {
				out = append(out, h)
			}
		case EnvelopeUpdateFlags, EnvelopeUpdateCachedFlags:
			if perm.Update {
				out = append(out, h)
			}
		case EnvelopeUncache, EnvelopeDelete:
			if perm.Delete {
				out = append(out, h)
			}
		}
	}
	return out
}
