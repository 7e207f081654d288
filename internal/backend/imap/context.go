// Package imap adapts github.com/emersion/go-imap/v2's imapclient into
// the backend capability layer: a Context wraps one live
// connection, and the feature implementations below translate capability
// calls into IMAP commands.
package imap

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/fenilsonani/mailcore/internal/backend"
	"github.com/fenilsonani/mailcore/internal/logging"
	"github.com/fenilsonani/mailcore/internal/mailerr"
	"github.com/fenilsonani/mailcore/internal/model"
	"github.com/fenilsonani/mailcore/internal/search"
)

// Config carries the connection settings a Builder needs to dial and
// authenticate against an IMAP server.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Insecure bool
}

// Context wraps one IMAP connection. It satisfies backend.Context and
// every feature interface the backend capability layer defines for IMAP.
type Context struct {
	client   *imapclient.Client
	account  string
	selected string
}

var _ backend.Context = (*Context)(nil)

// Close closes the underlying connection without sending LOGOUT.
func (c *Context) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Close()
}

// Builder implements backend.ContextBuilder for IMAP.
type Builder struct {
	cfg     Config
	account string
}

// NewBuilder constructs an IMAP context builder for account using cfg to
// dial and authenticate.
func NewBuilder(account string, cfg Config) *Builder {
	return &Builder{cfg: cfg, account: account}
}

func (b *Builder) Clone() backend.ContextBuilder {
	clone := *b
	return &clone
}

func (b *Builder) Build(ctx context.Context) (backend.Context, error) {
	addr := fmt.Sprintf("%s:%d", b.cfg.Host, b.cfg.Port)
	var client *imapclient.Client
	var err error
	if b.cfg.Insecure {
		client, err = imapclient.DialInsecure(addr, nil)
	} else {
		client, err = imapclient.DialTLS(addr, nil)
	}
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindTransport, "dial imap "+addr, err)
	}
	if err := client.Login(b.cfg.Username, b.cfg.Password).Wait(); err != nil {
		_ = client.Close()
		return nil, mailerr.Wrap(mailerr.KindAuthentication, "imap login", err)
	}
	logging.Default().IMAP().InfoContext(ctx, "imap context built", "account", b.account)
	return &Context{client: client, account: b.account}, nil
}

// Feature returns the IMAP-native factory for name, or nil for features
// this package doesn't implement (// supported").
func (b *Builder) Feature(name backend.FeatureName) backend.FeatureFactory {
	switch name {
	case backend.FeatureListFolders:
		return asFactory(func(c *Context) any { return (*listFoldersFeature)(c) })
	case backend.FeatureAddFolder:
		return asFactory(func(c *Context) any { return (*addFolderFeature)(c) })
	case backend.FeatureDeleteFolder:
		return asFactory(func(c *Context) any { return (*deleteFolderFeature)(c) })
	case backend.FeatureExpungeFolder:
		return asFactory(func(c *Context) any { return (*expungeFolderFeature)(c) })
	case backend.FeatureListEnvelopes:
		return asFactory(func(c *Context) any { return (*listEnvelopesFeature)(c) })
	case backend.FeatureAddFlags:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
	case backend.FeatureSetFlags:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
	case backend.FeatureRemoveFlags:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
	case backend.FeatureAddMessage:
		return asFactory(func(c *Context) any { return (*addMessageFeature)(c) })
	case backend.FeatureGetMessages:
		return asFactory(func(c *Context) any { return (*messagesFeature)(c) })
	case backend.FeaturePeekMessages:
		return asFactory(func(c *Context) any { return (*messagesFeature)(c) })
	case backend.FeatureCopyMessages:
		return asFactory(func(c *Context) any { return (*copyMoveFeature)(c) })
	case backend.FeatureMoveMessages:
		return asFactory(func(c *Context) any { return (*copyMoveFeature)(c) })
	case backend.FeatureDeleteMessages:
		return asFactory(func(c *Context) any { return (*flagsFeature)(c) })
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

func (c *Context) ensureSelected(folder string) error {
	if c.selected == folder {
		return nil
	}
	if _, err := c.client.Select(folder, nil).Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "select "+folder, err)
	}
	c.selected = folder
	return nil
}

type listFoldersFeature Context

func (f *listFoldersFeature) ListFolders(ctx context.Context) ([]model.Folder, error) {
	c := (*Context)(f)
	cmd := c.client.List("", "*", nil)
	mailboxes, err := cmd.Collect()
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindProtocol, "list folders", err)
	}
	folders := make([]model.Folder, 0, len(mailboxes))
	for _, mbox := range mailboxes {
		folders = append(folders, model.Folder{Name: mbox.Mailbox, Kind: model.ClassifyKind(mbox.Mailbox, nil)})
	}
	return folders, nil
}

type addFolderFeature Context

func (f *addFolderFeature) AddFolder(ctx context.Context, name string) error {
	c := (*Context)(f)
	if err := c.client.Create(name, nil).Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "create folder "+name, err)
	}
	return nil
}

type deleteFolderFeature Context

func (f *deleteFolderFeature) DeleteFolder(ctx context.Context, name string) error {
	c := (*Context)(f)
	if err := c.client.Delete(name).Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "delete folder "+name, err)
	}
	return nil
}

type expungeFolderFeature Context

func (f *expungeFolderFeature) ExpungeFolder(ctx context.Context, folder string) error {
	c := (*Context)(f)
	if err := c.ensureSelected(folder); err != nil {
		return err
	}
	if err := c.client.Expunge().Close(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "expunge "+folder, err)
	}
	return nil
}

type listEnvelopesFeature Context

func (f *listEnvelopesFeature) ListEnvelopes(ctx context.Context, folder string, query *search.Query) ([]model.Envelope, error) {
	c := (*Context)(f)
	if err := c.ensureSelected(folder); err != nil {
		return nil, err
	}

	var criteria *goimap.SearchCriteria
	if query != nil {
		criteria = search.ToIMAP(query)
	} else {
		criteria = &goimap.SearchCriteria{}
	}

	searchData, err := c.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, mailerr.Wrap(mailerr.KindProtocol, "search "+folder, err)
	}
	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		return nil, nil
	}

	uidSet := goimap.UIDSet{}
	for _, uid := range uids {
		uidSet.AddNum(uid)
	}

	fetchCmd := c.client.Fetch(uidSet, &goimap.FetchOptions{UID: true, Envelope: true, Flags: true})
	var envelopes []model.Envelope
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		env := parseEnvelope(msg)
		envelopes = append(envelopes, env)
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, mailerr.Wrap(mailerr.KindProtocol, "fetch envelopes "+folder, err)
	}
	return envelopes, nil
}

func parseEnvelope(msg *imapclient.FetchMessageData) model.Envelope {
	var env model.Envelope
	flags := model.NewFlagSet()
	for {
		item := msg.Next()
		if item == nil {
			break
		}
		switch data := item.(type) {
		case imapclient.FetchItemDataUID:
			env.ID = strconv.FormatUint(uint64(data.UID), 10)
		case imapclient.FetchItemDataFlags:
			for _, flag := range data.Flags {
				flags.Add(mapIMAPFlag(flag))
			}
		case imapclient.FetchItemDataEnvelope:
			if data.Envelope != nil {
				env.Subject = data.Envelope.Subject
				env.Date = data.Envelope.Date
				env.MessageID = data.Envelope.MessageID
				if len(data.Envelope.From) > 0 {
					env.From = toMailbox(data.Envelope.From[0])
				}
				for _, addr := range data.Envelope.To {
					env.To = append(env.To, toMailbox(addr))
				}
			}
		}
	}
	env.Flags = flags
	return env
}

func toMailbox(addr goimap.Address) model.Mailbox {
	return model.Mailbox{Name: addr.Name, Addr: addr.Addr()}
}

func mapIMAPFlag(f goimap.Flag) model.Flag {
	switch f {
	case goimap.FlagSeen:
		return model.FlagSeen
	case goimap.FlagAnswered:
		return model.FlagAnswered
	case goimap.FlagFlagged:
		return model.FlagFlagged
	case goimap.FlagDeleted:
		return model.FlagDeleted
	case goimap.FlagDraft:
		return model.FlagDraft
	default:
		return model.FlagCustom(strings.TrimPrefix(string(f), "\\"))
	}
}

func toIMAPFlag(f model.Flag) goimap.Flag {
	switch f {
	case model.FlagSeen:
		return goimap.FlagSeen
	case model.FlagAnswered:
		return goimap.FlagAnswered
	case model.FlagFlagged:
		return goimap.FlagFlagged
	case model.FlagDeleted:
		return goimap.FlagDeleted
	case model.FlagDraft:
		return goimap.FlagDraft
	default:
		return goimap.Flag("\\" + f.String())
	}
}

type flagsFeature Context

func (f *flagsFeature) uidSetOf(ids model.ID) (goimap.UIDSet, error) {
	set := goimap.UIDSet{}
	for _, v := range ids.Values() {
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return nil, mailerr.Wrap(mailerr.KindParse, "imap uid", err)
		}
		set.AddNum(goimap.UID(n))
	}
	return set, nil
}

func (f *flagsFeature) store(folder string, ids model.ID, flags model.FlagSet, op goimap.StoreFlagsOp) error {
	c := (*Context)(f)
	if err := c.ensureSelected(folder); err != nil {
		return err
	}
	set, err := f.uidSetOf(ids)
	if err != nil {
		return err
	}
	imapFlags := make([]goimap.Flag, 0, len(flags))
	for _, fl := range flags.Slice() {
		imapFlags = append(imapFlags, toIMAPFlag(fl))
	}
	storeCmd := c.client.Store(set, &goimap.StoreFlags{Op: op, Silent: true, Flags: imapFlags}, nil)
	if err := storeCmd.Close(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "store flags", err)
	}
	return nil
}

func (f *flagsFeature) AddFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.store(folder, ids, flags, goimap.StoreFlagsAdd)
}

func (f *flagsFeature) SetFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.store(folder, ids, flags, goimap.StoreFlagsSet)
}

func (f *flagsFeature) RemoveFlags(ctx context.Context, folder string, ids model.ID, flags model.FlagSet) error {
	return f.store(folder, ids, flags, goimap.StoreFlagsDel)
}

func (f *flagsFeature) DeleteMessages(ctx context.Context, folder string, ids model.ID) error {
	deleted := model.NewFlagSet(model.FlagDeleted)
	return f.store(folder, ids, deleted, goimap.StoreFlagsAdd)
}

type addMessageFeature Context

func (f *addMessageFeature) AddMessage(ctx context.Context, folder string, raw []byte, flags model.FlagSet) (model.ID, error) {
	c := (*Context)(f)
	imapFlags := make([]goimap.Flag, 0, len(flags))
	for _, fl := range flags.Slice() {
		imapFlags = append(imapFlags, toIMAPFlag(fl))
	}
	appendCmd := c.client.Append(folder, int64(len(raw)), &goimap.AppendOptions{Flags: imapFlags})
	if _, err := appendCmd.Write(raw); err != nil {
		_ = appendCmd.Close()
		return model.ID{}, mailerr.Wrap(mailerr.KindProtocol, "append message", err)
	}
	if err := appendCmd.Close(); err != nil {
		return model.ID{}, mailerr.Wrap(mailerr.KindProtocol, "append message", err)
	}
	data, err := appendCmd.Wait()
	if err != nil {
		return model.ID{}, mailerr.Wrap(mailerr.KindProtocol, "append message", err)
	}
	if data != nil && data.UID != 0 {
		return model.SingleID(strconv.FormatUint(uint64(data.UID), 10)), nil
	}
	return model.ID{}, nil
}

type messagesFeature Context

func (f *messagesFeature) fetchRaw(folder string, ids model.ID, peek bool) ([]model.Message, error) {
	c := (*Context)(f)
	if err := c.ensureSelected(folder); err != nil {
		return nil, err
	}
	ff := (*flagsFeature)(c)
	set, err := ff.uidSetOf(ids)
	if err != nil {
		return nil, err
	}
	bodySection := &goimap.FetchItemBodySection{Peek: peek}
	fetchCmd := c.client.Fetch(set, &goimap.FetchOptions{BodySection: []*goimap.FetchItemBodySection{bodySection}})
	var out []model.Message
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}
		for {
			item := msg.Next()
			if item == nil {
				break
			}
			if body, ok := item.(imapclient.FetchItemDataBodySection); ok {
				if body.Literal == nil {
					continue
				}
				raw, readErr := io.ReadAll(body.Literal)
				if readErr != nil {
					return nil, mailerr.Wrap(mailerr.KindIO, "read message body", readErr)
				}
				out = append(out, model.Message{Raw: raw})
			}
		}
	}
	if err := fetchCmd.Close(); err != nil {
		return nil, mailerr.Wrap(mailerr.KindProtocol, "fetch messages", err)
	}
	return out, nil
}

func (f *messagesFeature) GetMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error) {
	return f.fetchRaw(folder, ids, false)
}

func (f *messagesFeature) PeekMessages(ctx context.Context, folder string, ids model.ID) ([]model.Message, error) {
	return f.fetchRaw(folder, ids, true)
}

type copyMoveFeature Context

func (f *copyMoveFeature) CopyMessages(ctx context.Context, from, to string, ids model.ID) error {
	c := (*Context)(f)
	if err := c.ensureSelected(from); err != nil {
		return err
	}
	ff := (*flagsFeature)(c)
	set, err := ff.uidSetOf(ids)
	if err != nil {
		return err
	}
	if err := c.client.Copy(set, to).Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "copy messages", err)
	}
	return nil
}

func (f *copyMoveFeature) MoveMessages(ctx context.Context, from, to string, ids model.ID) error {
	c := (*Context)(f)
	if err := c.ensureSelected(from); err != nil {
		return err
	}
	ff := (*flagsFeature)(c)
	set, err := ff.uidSetOf(ids)
	if err != nil {
		return err
	}
	if _, err := c.client.Move(set, to).Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindProtocol, "move messages", err)
	}
	return nil
}

type checkUpFeature Context

func (f *checkUpFeature) CheckUp(ctx context.Context) error {
	c := (*Context)(f)
	if err := c.client.Noop().Wait(); err != nil {
		return mailerr.Wrap(mailerr.KindTransport, "imap checkup", err)
	}
	return nil
}
