// Package maildir adapts github.com/emersion/go-maildir into the backend
// capability layer. Maildir has no server-side search and
// no native threading, so ListEnvelopes and ThreadEnvelopes are absent
// here; callers fall back to internal/search.ToMaildir and in-memory
// thread reconstruction from Envelope.InReplyTo/References.
package maildir

import (
	"context"
	"io"
	"os"
	"path/filepath"

	gomaildir "github.com/emersion/go-maildir"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
)

// Context wraps the root directory of a Maildir++ hierarchy, where each
// subdirectory under root is a folder.
type Context struct {
	root string
}

var _ backend.Context = (*Context)(nil)

// Close is a no-op: a Maildir context holds no live handle, only a path.
func (c *Context) Close() error { return nil }

func (c *Context) folderPath(folder string) string {
	if folder == "" || folder == "INBOX" {
		return c.root
	}
	return filepath.Join(c.root, folder)
}

func (c *Context) folderDir(folder string) (gomaildir.Dir, error) {
	path := c.folderPath(folder)
	dir := gomaildir.Dir(path)
	if _, err := os.Stat(filepath.Join(path, "cur")); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o700); err != nil {
			return "", mailerr.Wrap(mailerr.KindIO, "create maildir "+folder, err)
		}
		if err := dir.Init(); err != nil {
			return "", mailerr.Wrap(mailerr.KindIO, "init maildir "+folder, err)
		}
	}
	return dir, nil
}

// Builder implements backend.ContextBuilder for Maildir.
type Builder struct {
	root string
}

// NewBuilder constructs a Maildir context builder rooted at root.
func NewBuilder(root string) *Builder {
	return &Builder{root: root}
}

func (b *Builder) Clone() backend.ContextBuilder {
	clone := *b
	return &clone
}

func (b *Builder) Build(ctx context.Context) (backend.Context, error) {
	if err := os.MkdirAll(b.root, 0o700); err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "create maildir root", err)
	}
	return &Context{root: b.root}, nil
}

// Feature returns the Maildir-native factory for name, or nil. No
// ListEnvelopes/ThreadEnvelopes/WatchEnvelopes/SendMessage: Maildir has no
// server-side search, threading, change notification, or transmission.
func (b *Builder) Feature(name backend.FeatureName) backend.FeatureFactory {
	switch name {
	case backend.FeatureListFolders:
		return asFactory(func(c *Context) any { return (*listFoldersFeature)(c) })
	case backend.FeatureAddFolder:
		return asFactory(func(c *Context) any { return (*addFolderFeature)(c) })
	case backend.FeatureDeleteFolder:
		return asFactory(func(c *Context) any { return (*deleteFolderFeature)(c) })
	case backend.FeatureAddFlags, backend.FeatureSetFlags, backend.FeatureRemoveFlags:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
	case backend.FeatureAddMessage:
		return asFactory(func(c *Context) any { return (*addMessageFeature)(c) })
	case backend.FeatureGetMessages, backend.FeaturePeekMessages:
		return asFactory(func(c *Context) any { return (*messagesFeature)(c) })
	case backend.FeatureCopyMessages, backend.FeatureMoveMessages:
		return asFactory(func(c *Context) any { return (*copyMoveFeature)(c) })
	case backend.FeatureDeleteMessages:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
	case backend.FeatureRemoveMessages:
		return asFactory(func(c *Context) any { return (*removeMessagesFeature)(c) })
	case backend.FeatureCheckUp:
		return asFactory(func(c *Context) any { return (*checkUpFeature)(c) })
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

type listFoldersFeature Context

func (f *listFoldersFeature) ListFolders(ctx context.Context) ([]model.Folder, error) {
	c := (*Context)(f)
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindIO, "read maildir root", err)
	}
	folders := []model.Folder{{Name: "INBOX", Kind: model.KindInbox}}
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(c.root, e.Name(), "cur")); err != nil {
			continue
		}
		folders = append(folders, model.Folder{Name: e.Name(), Kind: model.ClassifyKind(e.Name(), nil)})
	}
	return folders, nil
}

type addFolderFeature Context

func (f *addFolderFeature) AddFolder(ctx context.Context, name string) error {
	c := (*Context)(f)
	_, err := c.folderDir(name)
	return err
}

type deleteFolderFeature Context

func (f *deleteFolderFeature) DeleteFolder(ctx context.Context, name string) error {
	c := (*Context)(f)
	if err := os.RemoveAll(c.folderPath(name)); err != nil {
		return mailerr.Wrap(mailerr.KindIO, "delete maildir folder "+name, err)
	}
	return nil
}

func mapToMaildirFlags(flags model.FlagSet) []gomaildir.Flag {
	out := make([]gomaildir.Flag, 0, len(flags))
	for _, fl := range flags.Slice() {
		switch fl {
		case model.FlagSeen:
			out = append(out, gomaildir.FlagSeen)
		case model.FlagAnswered:
			out = append(out, gomaildir.FlagReplied)
		case model.FlagFlagged:
			out = append(out, gomaildir.FlagFlagged)
		case model.FlagDeleted:
			out = append(out, gomaildir.FlagTrashed)
		case model.FlagDraft:
			out = append(out, gomaildir.FlagDraft)
		}
	}
	return out
}

func mapFromMaildirFlags(flags []gomaildir.Flag) model.FlagSet {
	set := model.NewFlagSet()
	for _, fl := range flags {
		switch fl {
		case gomaildir.FlagSeen:
			set.Add(model.FlagSeen)
		case gomaildir.FlagReplied:
			set.Add(model.FlagAnswered)
		case gomaildir.FlagFlagged:
			set.Add(model.FlagFlagged)
		case gomaildir.FlagTrashed:
			set.Add(model.FlagDeleted)
		case gomaildir.FlagDraft:
			set.Add(model.FlagDraft)
		}
	}
	return set
}

type flagsFeature Context

func (f *flagsFeature) forEach(folder string, ids model.ID, mutate func(gomaildir.Message) error) error {
	c := (*Context)(f)
	dir, err := c.folderDir(folder)
	if err != nil {
		return err
	}
	for _, key := range ids.Values() {
		msg, err := dir.MessageByKey(key)
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "lookup message "+key, err)
		}
		if err := mutate(msg); err != nil {
			return mailerr.Wrap(mailerr.KindIO, "update flags "+key, err)
		}
	}
	return nil
}

func (f *flagsFeature) AddFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.forEach(folder, ids, func(msg gomaildir.Message) error {
		current := mapFromMaildirFlags(msg.Flags())
		for _, fl := range flags.Slice() {
			current.Add(fl)
		}
		return msg.SetFlags(mapToMaildirFlags(current))
	})
}

func (f *flagsFeature) SetFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.forEach(folder, ids, func(msg gomaildir.Message) error {
		return msg.SetFlags(mapToMaildirFlags(flags))
	})
}

func (f *flagsFeature) RemoveFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.forEach(folder, ids, func(msg gomaildir.Message) error {
		current := mapFromMaildirFlags(msg.Flags())
		for _, fl := range flags.Slice() {
			current.Remove(fl)
		}
		return msg.SetFlags(mapToMaildirFlags(current))
	})
}

func (f *flagsFeature) DeleteMessages(ctx context.Context, folder string, ids model.ID) error {
	return f.AddFlags(ctx, folder, ids, model.NewFlagSet(model.FlagDeleted))
}

type addMessageFeature Context

func (f *addMessageFeature) AddMessage(ctx context.Context, folder string, raw []byte, flags model.FlagSet) (model.ID, error) {
	c := (*Context)(f)
	dir, err := c.folderDir(folder)
	if err != nil {
		return model.ID{}, err
	}
	delivery, err := gomaildir.NewDelivery(string(dir))
	if err != nil {
		return model.ID{}, mailerr.Wrap(mailerr.KindIO, "start delivery", err)
	}
	if _, err := delivery.Write(raw); err != nil {
		_ = delivery.Abort()
		return model.ID{}, mailerr.Wrap(mailerr.KindIO, "write message", err)
	}
	if err := delivery.Close(); err != nil {
		return model.ID{}, mailerr.Wrap(mailerr.KindIO, "commit delivery", err)
	}
	key := delivery.Key()
	if len(flags.Slice()) > 0 {
		if msg, lookupErr := dir.MessageByKey(key); lookupErr == nil {
			_ = msg.SetFlags(mapToMaildirFlags(flags))
		}
	}
	return model.SingleID(key), nil
}

type messagesFeature Context

func (f *messagesFeature) fetch(folder string, ids model.ID, markSeen bool) ([]model.Message, error) {
	c := (*Context)(f)
	dir, err := c.folderDir(folder)
	if err != nil {
		return nil, err
	}
	out := make([]model.Message, 0, ids.Len())
	for _, key := range ids.Values() {
		msg, err := dir.MessageByKey(key)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "lookup message "+key, err)
		}
		reader, err := msg.Open()
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "open message "+key, err)
		}
		raw, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindIO, "read message "+key, err)
		}
		out = append(out, model.Message{Raw: raw})
		if markSeen {
			current := mapFromMaildirFlags(msg.Flags())
			current.Add(model.FlagSeen)
			_ = msg.SetFlags(mapToMaildirFlags(current))
		}
	}
	return out, nil
}

func (f *messagesFeature) GetMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error) {
	return f.fetch(folder, ids, true)
}

func (f *messagesFeature) PeekMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error) {
	return f.fetch(folder, ids, false)
}

type copyMoveFeature Context

func (f *copyMoveFeature) CopyMessages(ctx context.Context, from, to string, ids model.ID) error {
	c := (*Context)(f)
	srcDir, err := c.folderDir(from)
	if err != nil {
		return err
	}
	dstDir, err := c.folderDir(to)
	if err != nil {
		return err
	}
	for _, key := range ids.Values() {
		msg, err := srcDir.MessageByKey(key)
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "lookup message "+key, err)
		}
		reader, err := msg.Open()
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "open message "+key, err)
		}
		raw, err := io.ReadAll(reader)
		_ = reader.Close()
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "read message "+key, err)
		}
		delivery, err := gomaildir.NewDelivery(string(dstDir))
		if err != nil {
			return mailerr.Wrap(mailerr.KindIO, "start copy delivery", err)
		}
		if _, err := delivery.Write(raw); err != nil {
			_ = delivery.Abort()
			return mailerr.Wrap(mailerr.KindIO, "write copy", err)
		}
		if err := delivery.Close(); err != nil {
			return mailerr.Wrap(mailerr.KindIO, "commit copy", err)
		}
	}
	return nil
}

func (f *copyMoveFeature) MoveMessages(ctx context.Context, from, to string, ids model.ID) error {
	if err := f.CopyMessages(ctx, from, to, ids); err != nil {
		return err
	}
	return (*removeMessagesFeature)(f).RemoveMessages(ctx, from, ids)
}

type removeMessagesFeature Context

func (f *removeMessagesFeature) RemoveMessages(ctx context.Context, folder string, ids model.ID) error {
	c := (*Context)(f)
	dir, err := c.folderDir(folder)
	if err != nil {
		return err
	}
	for _, key := range ids.Values() {
		msg, err := dir.MessageByKey(key)
		if err != nil {
			continue // already gone
		}
		if err := msg.Remove(); err != nil && !os.IsNotExist(err) {
			return mailerr.Wrap(mailerr.KindIO, "remove message "+key, err)
		}
	}
	return nil
}

type checkUpFeature Context

func (f *checkUpFeature) CheckUp(ctx context.Context) error {
	c := (*Context)(f)
	if _, err := os.Stat(c.root); err != nil {
		return mailerr.Wrap(mailerr.KindIO, "maildir root unreachable", err)
	}
	return nil
}
