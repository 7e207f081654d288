package sync

import (
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestBuildEnvelopePatchNewMessageOnBothSidesCaches(t *testing.T) {
	localLive := []model.Envelope{{ID: "1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}
	remoteLive := []model.Envelope{{ID: "UID1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}

	hunks := buildEnvelopePatch("INBOX", localLive, remoteLive, nil, nil, nil)

	var sawLocalCache, sawRemoteCache bool
	for _, h := range hunks {
		if h.Kind == EnvelopeGetThenCache && h.Side == model.SideLocal {
			sawLocalCache = true
		}
		if h.Kind == EnvelopeGetThenCache && h.Side == model.SideRemote {
			sawRemoteCache = true
		}
		if h.Kind == EnvelopeUpdateFlags || h.Kind == EnvelopeUpdateCachedFlags {
			t.Errorf("identical flags on both sides should not produce a flag hunk, got %+v", h)
		}
	}
	if !sawLocalCache || !sawRemoteCache {
		t.Errorf("hunks = %+v, want get_then_cache on both sides", hunks)
	}
}

func TestBuildEnvelopePatchRemoteOnlyCopiesToLocal(t *testing.T) {
	remoteLive := []model.Envelope{{ID: "UID1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}
	hunks := buildEnvelopePatch("INBOX", nil, remoteLive, nil, nil, nil)

	var copyHunk *EnvelopeHunk
	for i, h := range hunks {
		if h.Kind == EnvelopeCopyThenCache {
			copyHunk = &hunks[i]
		}
	}
	if copyHunk == nil {
		t.Fatalf("hunks = %+v, want a copy_then_cache hunk", hunks)
	}
	if copyHunk.Side != model.SideLocal || copyHunk.SourceSide != model.SideRemote {
		t.Errorf("copyHunk = %+v, want local<-remote", copyHunk)
	}
	if !copyHunk.RefreshSourceCache {
		t.Errorf("copyHunk = %+v, want RefreshSourceCache since remote has no cache row", copyHunk)
	}
}

func TestBuildEnvelopePatchLocalDeletionPropagates(t *testing.T) {
	remoteLive := []model.Envelope{{ID: "UID1", MessageID: "<m1>"}}
	localCache := []model.CachedEnvelope{{Account: "a", Side: model.SideLocal, Folder: "INBOX", MessageID: "<m1>"}}
	hunks := buildEnvelopePatch("INBOX", nil, remoteLive, localCache, nil, nil)

	var sawDeleteRemote, sawUncacheLocal bool
	for _, h := range hunks {
		if h.Kind == EnvelopeDelete && h.Side == model.SideRemote {
			sawDeleteRemote = true
		}
		if h.Kind == EnvelopeUncache && h.Side == model.SideLocal {
			sawUncacheLocal = true
		}
	}
	if !sawDeleteRemote || !sawUncacheLocal {
		t.Errorf("hunks = %+v, want delete-remote + uncache-local", hunks)
	}
}

func TestBuildEnvelopePatchFlagDriftUpdatesRemoteOnly(t *testing.T) {
	localLive := []model.Envelope{{ID: "1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen, model.FlagFlagged)}}
	remoteLive := []model.Envelope{{ID: "UID1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}
	localCache := []model.CachedEnvelope{{Account: "a", Side: model.SideLocal, Folder: "INBOX", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}
	remoteCache := []model.CachedEnvelope{{Account: "a", Side: model.SideRemote, Folder: "INBOX", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagSeen)}}

	hunks := buildEnvelopePatch("INBOX", localLive, remoteLive, localCache, remoteCache, nil)

	var sawRemoteUpdate bool
	for _, h := range hunks {
		if h.Kind == EnvelopeUpdateFlags && h.Side == model.SideRemote {
			sawRemoteUpdate = true
			if !h.MergedFlags.Has(model.FlagFlagged) {
				t.Errorf("merged flags = %+v, want Flagged present (local-only addition)", h.MergedFlags.Slice())
			}
		}
		if h.Kind == EnvelopeUpdateFlags && h.Side == model.SideLocal {
			t.Errorf("local already has the merged flags, should not get an update hunk: %+v", h)
		}
	}
	if !sawRemoteUpdate {
		t.Errorf("hunks = %+v, want an update_flags hunk on remote", hunks)
	}
}

func TestBuildEnvelopePatchIgnoredFlagsNeverSync(t *testing.T) {
	localLive := []model.Envelope{{ID: "1", MessageID: "<m1>", Flags: model.NewFlagSet(model.FlagCustom("$MDNSent"))}}
	remoteLive := []model.Envelope{{ID: "UID1", MessageID: "<m1>", Flags: model.NewFlagSet()}}

	hunks := buildEnvelopePatch("INBOX", localLive, remoteLive, nil, nil, []string{"$MDNSent"})

	for _, h := range hunks {
		if h.Kind == EnvelopeUpdateFlags && h.MergedFlags.Has(model.FlagCustom("$MDNSent")) {
			t.Errorf("ignored flag leaked into merged set: %+v", h)
		}
	}
}

func TestFilterEnvelopePermissionsDropsDisallowed(t *testing.T) {
	hunks := []EnvelopeHunk{
		{Kind: EnvelopeDelete, Side: model.SideLocal, Folder: "INBOX", MessageID: "<m1>"},
		{Kind: EnvelopeUpdateFlags, Side: model.SideRemote, Folder: "INBOX", MessageID: "<m1>"},
	}
	readOnlyLocal := model.SyncPermissions{Create: true, Update: true} // no Delete
	out := filterEnvelopePermissions(hunks, readOnlyLocal, model.DefaultSyncPermissions())

	if len(out) != 1 || out[0].Kind != EnvelopeUpdateFlags {
		t.Errorf("out = %+v, want only the UpdateFlags hunk", out)
	}
}
