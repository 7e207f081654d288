package sync

import "sort"

// Hunk costs approximate the work a worker spends applying one hunk
//: a flag-only push is free compared to moving
// bytes, a body copy costs one unit, and a folder-level operation (which
// may touch many messages at once) costs more than a single envelope
// hunk. These are an ordering heuristic for batch scheduling, not a
// resource accounting scheme.
const (
	costFlagOnly     = 0
	costMessageBody  = 1
	costFolderLevel  = 2
)

func envelopeHunkCost(h EnvelopeHunk) int {
	switch h.Kind {
	case EnvelopeUpdateFlags, EnvelopeUpdateCachedFlags:
		return costFlagOnly
	default:
		return costMessageBody
	}
}

// envelopeBatch groups every hunk sharing one (folder, message_id) key, so
// a worker pool never splits them across concurrent workers.
type envelopeBatch struct {
	hunks []EnvelopeHunk
	cost  int
}

// batchEnvelopeHunks groups hunks by message key and sorts the resulting
// batches by total cost descending, so workers pick up the heaviest work
// first and the pool drains evenly, grounded on the reference worker's
// mutex-shared Vec<Vec<Hunk>> queue in email/sync/worker.rs; runPool
// takes batches from the front of the slice.
func batchEnvelopeHunks(hunks []EnvelopeHunk) []envelopeBatch {
	byKey := make(map[string]*envelopeBatch)
	var order []string
	for _, h := range hunks {
		k := h.key()
		b, ok := byKey[k]
		if !ok {
			b = &envelopeBatch{}
			byKey[k] = b
			order = append(order, k)
		}
		b.hunks = append(b.hunks, h)
		b.cost += envelopeHunkCost(h)
	}

	batches := make([]envelopeBatch, 0, len(order))
	for _, k := range order {
		batches = append(batches, *byKey[k])
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].cost > batches[j].cost
	})
	return batches
}

// folderBatch groups every hunk touching one folder.
type folderBatch struct {
	hunks []FolderHunk
	cost  int
}

func batchFolderHunks(hunks []FolderHunk) []folderBatch {
	byFolder := make(map[string]*folderBatch)
	var order []string
	for _, h := range hunks {
		b, ok := byFolder[h.Folder]
		if !ok {
			b = &folderBatch{}
			byFolder[h.Folder] = b
			order = append(order, h.Folder)
		}
		b.hunks = append(b.hunks, h)
		b.cost += costFolderLevel
	}

	batches := make([]folderBatch, 0, len(order))
	for _, f := range order {
		batches = append(batches, *byFolder[f])
	}
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].cost > batches[j].cost
	})
	return batches
}
