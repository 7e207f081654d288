package sync

import (
	"testing"

	"github.com/fenilsonani/mailcore/internal/model"
)

func TestBatchEnvelopeHunksGroupsByKey(t *testing.T) {
	hunks := []EnvelopeHunk{
		{Kind: EnvelopeGetThenCache, Side: model.SideLocal, Folder: "INBOX", MessageID: "<a>"},
		{Kind: EnvelopeUpdateFlags, Side: model.SideRemote, Folder: "INBOX", MessageID: "<a>"},
		{Kind: EnvelopeGetThenCache, Side: model.SideLocal, Folder: "INBOX", MessageID: "<b>"},
	}
	batches := batchEnvelopeHunks(hunks)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	for _, b := range batches {
		if len(b.hunks) == 2 && b.hunks[0].MessageID != "<a>" {
			t.Errorf("batch grouping mismatch: %+v", b.hunks)
		}
	}
}

func TestBatchEnvelopeHunksSortedByCostDescending(t *testing.T) {
	hunks := []EnvelopeHunk{
		{Kind: EnvelopeUpdateFlags, Folder: "INBOX", MessageID: "<cheap>"},
		{Kind: EnvelopeCopyThenCache, Folder: "INBOX", MessageID: "<expensive>"},
	}
	batches := batchEnvelopeHunks(hunks)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
	if batches[0].cost < batches[1].cost {
		t.Errorf("batches not sorted descending: %+v", batches)
	}
	if batches[0].hunks[0].MessageID != "<expensive>" {
		t.Errorf("expensive batch should sort first, got %+v", batches)
	}
}

func TestBatchFolderHunksGroupsByFolder(t *testing.T) {
	hunks := []FolderHunk{
		{Kind: FolderDelete, Side: model.SideRemote, Folder: "Archive"},
		{Kind: FolderUncache, Side: model.SideLocal, Folder: "Archive"},
		{Kind: FolderCreate, Side: model.SideLocal, Folder: "Spam"},
	}
	batches := batchFolderHunks(hunks)
	if len(batches) != 2 {
		t.Fatalf("got %d batches, want 2", len(batches))
	}
}
