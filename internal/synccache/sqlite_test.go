package synccache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestFolderRoundTrip(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	if err := c.UpsertFolder(ctx, model.CachedFolder{Account: "work", Side: model.SideLocal, Name: "INBOX"}); err != nil {
		t.Fatalf("UpsertFolder() error = %v", err)
	}
	if err := c.UpsertFolder(ctx, model.CachedFolder{Account: "work", Side: model.SideLocal, Name: "INBOX"}); err != nil {
		t.Fatalf("UpsertFolder() (repeat) error = %v", err)
	}

	folders, err := c.ListFolders(ctx, "work", model.SideLocal)
	if err != nil {
		t.Fatalf("ListFolders() error = %v", err)
	}
	if len(folders) != 1 || folders[0].Name != "INBOX" {
		t.Errorf("folders = %+v, want one INBOX row", folders)
	}

	if err := c.DeleteFolder(ctx, "work", model.SideLocal, "INBOX"); err != nil {
		t.Fatalf("DeleteFolder() error = %v", err)
	}
	folders, err = c.ListFolders(ctx, "work", model.SideLocal)
	if err != nil {
		t.Fatalf("ListFolders() after delete error = %v", err)
	}
	if len(folders) != 0 {
		t.Errorf("folders after delete = %+v, want none", folders)
	}
}

func TestEnvelopeRoundTripWithFlags(t *testing.T) {
	c := openTestCache(t)
	ctx := context.Background()

	flags := model.NewFlagSet(model.FlagSeen, model.FlagCustom("important"))
	env := model.CachedEnvelope{
		Account: "work", Side: model.SideRemote, Folder: "INBOX",
		MessageID: "<abc@example.com>", Flags: flags, InternalID: "42",
	}
	if err := c.UpsertEnvelope(ctx, env); err != nil {
		t.Fatalf("UpsertEnvelope() error = %v", err)
	}

	got, err := c.ListEnvelopes(ctx, "work", model.SideRemote, "INBOX")
	if err != nil {
		t.Fatalf("ListEnvelopes() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got = %+v, want one envelope", got)
	}
	if got[0].InternalID != "42" || !got[0].Flags.Has(model.FlagSeen) || !got[0].Flags.Has(model.FlagCustom("important")) {
		t.Errorf("got[0] = %+v, flags/internal id mismatch", got[0])
	}

	env.InternalID = "43"
	if err := c.UpsertEnvelope(ctx, env); err != nil {
		t.Fatalf("UpsertEnvelope() (update) error = %v", err)
	}
	got, err = c.ListEnvelopes(ctx, "work", model.SideRemote, "INBOX")
	if err != nil {
		t.Fatalf("ListEnvelopes() after update error = %v", err)
	}
	if len(got) != 1 || got[0].InternalID != "43" {
		t.Errorf("got = %+v, want updated internal id 43", got)
	}
}
