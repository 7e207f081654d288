// Package notmuch adapts github.com/zenhack/go.notmuch into the backend
// capability layer. A notmuch context wraps a database
// path plus the Maildir root it indexes: notmuch itself never stores
// message bytes, only tags over files a Maildir-compatible layout already
// holds, so message I/O delegates to internal/backend/maildir.
package notmuch

import (
	"context"
	"fmt"

	notmuchlib "github.com/zenhack/go.notmuch"

	"github.com/fenilsonani/mailcore/internal/backend"
	mddbackend "github.com/fenilsonani/mailcore/internal/backend/maildir"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/search"
)

// Context wraps a notmuch database path and delegates message storage to
// an inner Maildir context.
type Context struct {
	dbPath  string
	maildir *mddbackend.Context
}

var _ backend.Context = (*Context)(nil)

func (c *Context) Close() error { return nil }

func (c *Context) openRW() (*notmuchlib.DB, error) {
	db, err := notmuchlib.Open(c.dbPath, notmuchlib.DBReadWrite)
	if err != nil {
		db, err = notmuchlib.Create(c.dbPath)
	}
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "open notmuch db", err)
	}
	return db, nil
}

// Builder implements backend.ContextBuilder for Notmuch, composing an
// inner Maildir builder the way notmuch composes over a Maildir root.
type Builder struct {
	dbPath      string
	maildirRoot string
}

// NewBuilder constructs a Notmuch context builder over the database at
// dbPath indexing the Maildir hierarchy rooted at maildirRoot.
func NewBuilder(dbPath, maildirRoot string) *Builder {
	return &Builder{dbPath: dbPath, maildirRoot: maildirRoot}
}

func (b *Builder) Clone() backend.ContextBuilder {
	clone := *b
	return &clone
}

func (b *Builder) Build(ctx context.Context) (backend.Context, error) {
	db, err := notmuchlib.Open(b.dbPath, notmuchlib.DBReadWrite)
	if err != nil {
		db, err = notmuchlib.Create(b.dbPath)
	}
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "open notmuch db", err)
	}
	if db.NeedsUpgrade() {
		if err := db.Upgrade(); err != nil {
			_ = db.Close()
			return nil, mailerr.Wrap(mailerr.KindIO, "upgrade notmuch db", err)
		}
	}
	_ = db.Close()

	mdBuilder := mddbackend.NewBuilder(b.maildirRoot)
	mdCtx, err := mdBuilder.Build(ctx)
	if err != nil {
		return nil, err
	}
	return &Context{dbPath: b.dbPath, maildir: mdCtx.(*mddbackend.Context)}, nil
}

// Feature returns the Notmuch-native factory for name, falling back to
// the inner Maildir context's factory for everything notmuch itself has
// no opinion on (message bytes, folders), via backend.MapFeatureFrom.
func (b *Builder) Feature(name backend.FeatureName) backend.FeatureFactory {
	mdBuilder := mddbackend.NewBuilder(b.maildirRoot)

	switch name {
	case backend.FeatureListEnvelopes:
		return asFactory(func(c *Context) any { return (*listEnvelopesFeature)(c) })
	case backend.FeatureAddFlags, backend.FeatureSetFlags, backend.FeatureRemoveFlags:
		return asFactory(func(c *Context) any { return (*tagsFeature)(c) })
	case backend.FeatureCheckUp:
		return asFactory(func(c *Context) any { return (*checkUpFeature)(c) })
	case backend.FeatureListFolders, backend.FeatureAddFolder, backend.FeatureDeleteFolder,
		backend.FeatureAddMessage, backend.FeatureGetMessages, backend.FeaturePeekMessages,
		backend.FeatureCopyMessages, backend.FeatureMoveMessages, backend.FeatureRemoveMessages:
		return backend.MapFeatureFrom(mdBuilder, name, func(c backend.Context) (backend.Context, bool) {
			nc, ok := c.(*Context)
			if !ok || nc.maildir == nil {
				return nil, false
			}
			return nc.maildir, true
		})
	default:
		return nil
	}
}

func asFactory(wrap func(*Context) any) backend.FeatureFactory {
	return func(c backend.Context) (any, bool) {
		ctx, ok := c.(*Context)
		if !ok {
			return nil, false
		}
		return wrap(ctx), true
	}
}

type listEnvelopesFeature Context

// ListEnvelopes evaluates query natively via internal/search.ToNotmuch:
// notmuch's own query language matches this grammar's shape, so no
// in-memory fallback is needed here.
func (f *listEnvelopesFeature) ListEnvelopes(ctx context.Context, folder string, query *search.Query) ([]model.Envelope, error) {
	c := (*Context)(f)
	db, err := notmuchlib.Open(c.dbPath, notmuchlib.DBReadOnly)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "open notmuch db", err)
	}
	defer db.Close()

	queryStr := fmt.Sprintf("folder:%s", folder)
	if query != nil {
		queryStr += " and (" + search.ToNotmuch(query) + ")"
	}

	nq := db.NewQuery(queryStr)
	defer nq.Close()

	messages, err := nq.Messages()
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindProtocol, "notmuch query", err)
	}

	var envelopes []model.Envelope
	msg := &notmuchlib.Message{}
	for messages.Next(&msg) {
		envelopes = append(envelopes, envelopeOf(msg))
	}
	return envelopes, nil
}

func envelopeOf(msg *notmuchlib.Message) model.Envelope {
	env := model.Envelope{MessageID: msg.ID()}
	flags := model.NewFlagSet()
	unread := false
	tags := msg.Tags()
	defer tags.Close()
	tag := &notmuchlib.Tag{}
	for tags.Next(&tag) {
		switch tag.Value {
		case "unread":
			unread = true
		case "replied":
			flags.Add(model.FlagAnswered)
		case "flagged":
			flags.Add(model.FlagFlagged)
		case "draft":
			flags.Add(model.FlagDraft)
		case "deleted", "trashed":
			flags.Add(model.FlagDeleted)
		default:
			if tag.Value != "inbox" {
				flags.Add(model.FlagCustom(tag.Value))
			}
		}
	}
	if !unread {
		flags.Add(model.FlagSeen)
	}
	env.Flags = flags
	return env
}

type tagsFeature Context

func (f *tagsFeature) mutateEach(ids model.ID, mutate func(*notmuchlib.Message) error) error {
	c := (*Context)(f)
	db, err := c.openRW()
	if err != nil {
		return err
	}
	defer db.Close()

	for _, messageID := range ids.Values() {
		msg, err := db.FindMessage(messageID)
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "find message "+messageID, err)
		}
		if err := mutate(msg); err != nil {
			_ = msg.Close()
			return mailerr.Wrap(mailerr.KindIO, "update tags "+messageID, err)
		}
		_ = msg.Close()
	}
	return nil
}

func flagTag(f model.Flag) (string, bool) {
	switch f {
	case model.FlagSeen:
		return "unread", false // presence of "unread" means NOT seen; Add(Seen) removes it
	case model.FlagAnswered:
		return "replied", true
	case model.FlagFlagged:
		return "flagged", true
	case model.FlagDraft:
		return "draft", true
	case model.FlagDeleted:
		return "deleted", true
	default:
		return f.String(), true
	}
}

func (f *tagsFeature) AddFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.mutateEach(ids, func(msg *notmuchlib.Message) error {
		for _, fl := range flags.Slice() {
			tag, add := flagTag(fl)
			if add {
				if err := msg.AddTag(tag); err != nil {
					return err
				}
			} else {
				if err := msg.RemoveTag(tag); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (f *tagsFeature) RemoveFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.mutateEach(ids, func(msg *notmuchlib.Message) error {
		for _, fl := range flags.Slice() {
			tag, add := flagTag(fl)
			if add {
				if err := msg.RemoveTag(tag); err != nil {
					return err
				}
			} else {
				if err := msg.AddTag(tag); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

func (f *tagsFeature) SetFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.mutateEach(ids, func(msg *notmuchlib.Message) error {
		tags := msg.Tags()
		var current []string
		tag := &notmuchlib.Tag{}
		for tags.Next(&tag) {
			current = append(current, tag.Value)
		}
		_ = tags.Close()
		for _, existing := range current {
			if err := msg.RemoveTag(existing); err != nil {
				return err
			}
		}
		for _, fl := range flags.Slice() {
			tag, add := flagTag(fl)
			if add {
				if err := msg.AddTag(tag); err != nil {
					return err
				}
			}
		}
		if !flags.Has(model.FlagSeen) {
			if err := msg.AddTag("unread"); err != nil {
				return err
			}
		}
		return nil
	})
}

type checkUpFeature Context

func (f *checkUpFeature) CheckUp(ctx context.Context) error {
	c := (*Context)(f)
	db, err := notmuchlib.Open(c.dbPath, notmuchlib.DBReadOnly)
	if err != nil {
		return mailerr.Wrap(mailerr.KindIO, "notmuch checkup", err)
	}
	return db.Close()
}
