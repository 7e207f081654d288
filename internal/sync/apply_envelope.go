package sync

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/synccache"
)

// applyEnvelopeHunk performs one envelope-phase hunk's side effect,
// mirroring the reference worker's per-hunk match in
// domain/envelope/sync/runner.rs: GetThenCache reads an envelope and
// caches it, CopyThenCache moves a message body across sides,
// UpdateFlags/UpdateCachedFlags push the merged flag set, Uncache/Delete
// remove a stale cache row or mark a message Deleted. maxMessageSize, if
// non-zero, makes a CopyThenCache hunk whose body is larger than
// MessageSyncConfig.MaxSize return a KindIO error instead of copying it;
// the message is then neither created nor cached on the target side.
func applyEnvelopeHunk(ctx context.Context, h EnvelopeHunk, account string, local, remote caller, cache *synccache.Cache, maxMessageSize int64, dryRun bool) error {
	sideCaller := func(s model.Side) caller {
		if s == model.SideRemote {
			return remote
		}
		return local
	}
	c := sideCaller(h.Side)

	if dryRun {
		return nil
	}

	switch h.Kind {
	case EnvelopeGetThenCache:
		env, err := getEnvelope(ctx, c, h.Folder, h.NativeID)
		if err != nil {
			return err
		}
		return cache.UpsertEnvelope(ctx, model.CachedEnvelope{
			Account: account, Side: h.Side, Folder: h.Folder,
			MessageID: h.MessageID, Flags: env.Flags, InternalID: env.ID,
		})
	case EnvelopeCopyThenCache:
		source := sideCaller(h.SourceSide)
		raw, err := peekMessage(ctx, source, h.Folder, h.NativeID)
		if err != nil {
			return err
		}
		if maxMessageSize > 0 && int64(len(raw)) > maxMessageSize {
			return mailerr.New(mailerr.KindIO, "message exceeds sync max size, skipping body copy")
		}

		newID, err := addMessage(ctx, c, h.Folder, raw, h.MergedFlags)
		if err != nil {
			return err
		}
		env, err := getEnvelope(ctx, c, h.Folder, newID)
		if err != nil {
			return err
		}
		if err := cache.UpsertEnvelope(ctx, model.CachedEnvelope{
			Account: account, Side: h.Side, Folder: h.Folder,
			MessageID: h.MessageID, Flags: env.Flags, InternalID: env.ID,
		}); err != nil {
			return err
		}

		if h.RefreshSourceCache {
			sourceEnv, err := getEnvelope(ctx, source, h.Folder, h.NativeID)
			if err != nil {
				return err
			}
			return cache.UpsertEnvelope(ctx, model.CachedEnvelope{
				Account: account, Side: h.SourceSide, Folder: h.Folder,
				MessageID: h.MessageID, Flags: sourceEnv.Flags, InternalID: sourceEnv.ID,
			})
		}
		return nil
	case EnvelopeUpdateFlags:
		return setFlags(ctx, c, h.Folder, h.NativeID, h.MergedFlags)
	case EnvelopeUpdateCachedFlags:
		return cache.UpsertEnvelope(ctx, model.CachedEnvelope{
			Account: account, Side: h.Side, Folder: h.Folder,
			MessageID: h.MessageID, Flags: h.MergedFlags, InternalID: h.NativeID,
		})
	case EnvelopeUncache:
		return cache.DeleteEnvelope(ctx, account, h.Side, h.Folder, h.MessageID)
	case EnvelopeDelete:
		return deleteMessage(ctx, c, h.Folder, h.NativeID)
	default:
		return nil
	}
}
