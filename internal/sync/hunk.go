package sync

import "github.com/fenilsonani/mailcore/internal/model"

// FolderHunkKind classifies one folder-phase change.
type FolderHunkKind int

const (
	// FolderCreate creates the folder on Side.
	FolderCreate FolderHunkKind = iota
	// FolderDelete removes the folder (and its contents) on Side.
	FolderDelete
	// FolderCache records the folder's presence in the local cache for
	// Side, without touching the live backend.
	FolderCache
	// FolderUncache removes the folder's cache row for Side.
	FolderUncache
)

func (k FolderHunkKind) String() string {
	switch k {
	case FolderCreate:
		return "create"
	case FolderDelete:
		return "delete"
	case FolderCache:
		return "cache"
	case FolderUncache:
		return "uncache"
	default:
		return "unknown"
	}
}

// FolderHunk is one unit of the folder-phase patch.
type FolderHunk struct {
	Kind   FolderHunkKind
	Side   model.Side
	Folder string
}

func (h FolderHunk) String() string {
	return h.Kind.String() + " " + h.Folder + " (" + h.Side.String() + ")"
}

// EnvelopeHunkKind classifies one envelope-phase change.
type EnvelopeHunkKind int

const (
	// EnvelopeGetThenCache fetches an envelope from Side and records it in
	// that side's cache, without mutating either live backend.
	EnvelopeGetThenCache EnvelopeHunkKind = iota
	// EnvelopeCopyThenCache copies the message body from SourceSide to
	// Side and caches the resulting envelope on Side.
	EnvelopeCopyThenCache
	// EnvelopeUpdateFlags pushes MergedFlags to the live backend on Side.
	EnvelopeUpdateFlags
	// EnvelopeUpdateCachedFlags records MergedFlags in Side's cache only.
	EnvelopeUpdateCachedFlags
	// EnvelopeUncache removes the envelope's cache row for Side.
	EnvelopeUncache
	// EnvelopeDelete marks the message Deleted on Side's live backend.
	EnvelopeDelete
)

func (k EnvelopeHunkKind) String() string {
	switch k {
	case EnvelopeGetThenCache:
		return "get_then_cache"
	case EnvelopeCopyThenCache:
		return "copy_then_cache"
	case EnvelopeUpdateFlags:
		return "update_flags"
	case EnvelopeUpdateCachedFlags:
		return "update_cached_flags"
	case EnvelopeUncache:
		return "uncache"
	case EnvelopeDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// EnvelopeHunk is one unit of the envelope-phase patch, scoped to a single
// folder and message-id.
type EnvelopeHunk struct {
	Kind   EnvelopeHunkKind
	Side   model.Side
	Folder string

	// MessageID is the stable cross-side key. NativeID is the side-local
	// handle (IMAP UID, maildir filename, notmuch id) used to address the
	// live backend; it is empty when the hunk only touches the cache.
	MessageID string
	NativeID  string

	// SourceSide is meaningful only for EnvelopeCopyThenCache.
	SourceSide model.Side

	// MergedFlags carries the result of MergeFlags for UpdateFlags and
	// UpdateCachedFlags hunks.
	MergedFlags model.FlagSet

	// RefreshSourceCache asks the worker to also re-cache the envelope on
	// SourceSide after copying (mirrors the reference worker's
	// refresh_source_cache flag).
	RefreshSourceCache bool
}

func (h EnvelopeHunk) String() string {
	return h.Kind.String() + " " + h.Folder + "/" + h.MessageID + " (" + h.Side.String() + ")"
}

// key groups hunks touching the same message for serialized batching:
// hunks for the same folder/message_id are never split across
// concurrent workers.
func (h EnvelopeHunk) key() string {
	return h.Folder + "\x00" + h.MessageID
}
