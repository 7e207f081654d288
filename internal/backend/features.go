package backend

import (
	"context"

	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/search"
)

// FeatureName identifies one capability trait a backend may or may not
// implement: one per verb.
type FeatureName string

const (
	FeatureListFolders    FeatureName = "list_folders"
	FeatureAddFolder      FeatureName = "add_folder"
	FeatureDeleteFolder   FeatureName = "delete_folder"
	FeatureExpungeFolder  FeatureName = "expunge_folder"
	FeatureGetEnvelope    FeatureName = "get_envelope"
	FeatureListEnvelopes  FeatureName = "list_envelopes"
	FeatureThreadEnvelopes FeatureName = "thread_envelopes"
	FeatureWatchEnvelopes FeatureName = "watch_envelopes"
	FeatureAddFlags       FeatureName = "add_flags"
	FeatureSetFlags       FeatureName = "set_flags"
	FeatureRemoveFlags    FeatureName = "remove_flags"
	FeatureAddMessage     FeatureName = "add_message"
	FeaturePeekMessages   FeatureName = "peek_messages"
	FeatureGetMessages    FeatureName = "get_messages"
	FeatureCopyMessages   FeatureName = "copy_messages"
	FeatureMoveMessages   FeatureName = "move_messages"
	FeatureDeleteMessages FeatureName = "delete_messages"
	FeatureRemoveMessages FeatureName = "remove_messages"
	FeatureSendMessage    FeatureName = "send_message"
	FeatureCheckUp        FeatureName = "check_up"
)

// ListFolders lists the folders a backend exposes.
type ListFolders interface {
	ListFolders(ctx context.Context) ([]model.Folder, error)
}

// AddFolder creates a folder.
type AddFolder interface {
	AddFolder(ctx context.Context, name string) error
}

// DeleteFolder removes a folder and its contents.
type DeleteFolder interface {
	DeleteFolder(ctx context.Context, name string) error
}

// ExpungeFolder permanently removes messages flagged Deleted.
type ExpungeFolder interface {
	ExpungeFolder(ctx context.Context, folder string) error
}

// GetEnvelope fetches one envelope by id.
type GetEnvelope interface {
	GetEnvelope(ctx context.Context, folder string, id model.ID) (model.Envelope, error)
}

// ListEnvelopes lists envelopes in a folder matching a query.
type ListEnvelopes interface {
	ListEnvelopes(ctx context.Context, folder string, query *search.Query) ([]model.Envelope, error)
}

// ThreadEnvelopes groups envelopes into threads, used by backends with
// native threading (IMAP's THREAD extension); absent elsewhere, in which
// case callers reconstruct threads from InReplyTo/References.
type ThreadEnvelopes interface {
	ThreadEnvelopes(ctx context.Context, folder string, query *search.Query) ([][]model.Envelope, error)
}

// WatchEnvelopes streams envelope changes (new/flag/removed) until ctx is
// canceled, e.g. via IMAP IDLE.
type WatchEnvelopes interface {
	WatchEnvelopes(ctx context.Context, folder string) (<-chan EnvelopeEvent, error)
}

// EnvelopeEvent is one change observed by WatchEnvelopes.
type EnvelopeEvent struct {
	Kind     EnvelopeEventKind
	Envelope model.Envelope
}

// EnvelopeEventKind classifies an EnvelopeEvent.
type EnvelopeEventKind int

const (
	EnvelopeAdded EnvelopeEventKind = iota
	EnvelopeFlagsChanged
	EnvelopeRemoved
)

// AddFlags adds flags to messages, leaving existing flags untouched.
type AddFlags interface {
	AddFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error
}

// SetFlags replaces a message's flag set entirely.
type SetFlags interface {
	SetFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error
}

// RemoveFlags removes flags from messages, leaving the rest untouched.
type RemoveFlags interface {
	RemoveFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error
}

// AddMessage appends a raw message to a folder with the given initial
// flags, returning the id it was stored under.
type AddMessage interface {
	AddMessage(ctx context.Context, folder string, raw []byte, flags model.FlagSet) (model.ID, error)
}

// PeekMessages reads message bytes without marking them Seen.
type PeekMessages interface {
	PeekMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error)
}

// GetMessages reads message bytes, implicitly marking them Seen per the
// backend's native read semantics.
type GetMessages interface {
	GetMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error)
}

// CopyMessages duplicates messages into another folder.
type CopyMessages interface {
	CopyMessages(ctx context.Context, from, to string, ids model.ID) error
}

// MoveMessages moves messages into another folder.
type MoveMessages interface {
	MoveMessages(ctx context.Context, from, to string, ids model.ID) error
}

// DeleteMessages marks messages Deleted (soft delete, reversible until an
// ExpungeFolder call).
type DeleteMessages interface {
	DeleteMessages(ctx context.Context, folder string, ids model.ID) error
}

// RemoveMessages deletes messages permanently, bypassing the Deleted-flag
// convention (hard delete).
type RemoveMessages interface {
	RemoveMessages(ctx context.Context, folder string, ids model.ID) error
}

// SendMessage transmits a raw message, e.g. via SMTP.
type SendMessage interface {
	SendMessage(ctx context.Context, raw []byte) error
}

// CheckUp verifies the backend is reachable and authenticated.
type CheckUp interface {
	CheckUp(ctx context.Context) error
}
