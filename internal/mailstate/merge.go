package mailstate

import (
	"sort"

	"github.com/vdavid/mailview/internal/models"
)

// mergeResult is the outcome of merging a batch into a cached id list.
type mergeResult struct {
	ids []models.MessageID
	// added counts rows that were not in the list before the merge.
	added int
	// collapsed holds cached parents that absorbed a new reply.
	collapsed []models.MessageID
}

// mergeIDs merges incoming messages into a cached id list, newest first.
//
// Ids already cached move to the front instead of appearing twice. When
// collapseThreads is set, a reply whose parent is cached is represented by
// the parent's row, which moves to the reply's position. The result is
// truncated to limit.
func mergeIDs(incoming []models.Message, cached []models.MessageID, limit int, collapseThreads bool) mergeResult {
	var res mergeResult

	inBatch := make(map[models.MessageID]bool, len(incoming))
	for _, m := range incoming {
		inBatch[m.ID] = true
	}

	remaining := make([]models.MessageID, 0, len(cached))
	wasCached := make(map[models.MessageID]bool, len(cached))
	for _, id := range cached {
		wasCached[id] = true
		if !inBatch[id] {
			remaining = append(remaining, id)
		}
	}

	placed := make(map[models.MessageID]bool, len(incoming))
	front := make([]models.MessageID, 0, len(incoming))
	for _, m := range incoming {
		id := m.ID
		if collapseThreads && m.Parent != 0 && m.Parent != m.ID && wasCached[m.Parent] {
			if !placed[m.Parent] && !inBatch[m.Parent] {
				res.collapsed = append(res.collapsed, m.Parent)
			}
			remaining = removeID(remaining, m.Parent)
			id = m.Parent
		}
		if placed[id] {
			continue
		}
		placed[id] = true
		front = append(front, id)
		if !wasCached[id] {
			res.added++
		}
	}

	res.ids = append(front, remaining...)
	if limit > 0 && len(res.ids) > limit {
		res.ids = res.ids[:limit]
	}
	return res
}

// mergeTotal computes the folder total after a merge. An empty cache adopts
// the number of merged rows; otherwise the previous total grows by the rows
// the merge added.
func mergeTotal(previous FolderState, res mergeResult) int {
	if len(previous.IDs) == 0 {
		return len(res.ids)
	}
	return floorZero(previous.TotalCount + res.added)
}

// removeID returns ids without any occurrence of id. It reuses the backing array.
func removeID(ids []models.MessageID, id models.MessageID) []models.MessageID {
	out := ids[:0]
	for _, candidate := range ids {
		if candidate != id {
			out = append(out, candidate)
		}
	}
	return out
}

// removeIDs filters out every id in drop and reports how many were removed.
func removeIDs(ids []models.MessageID, drop map[models.MessageID]bool) ([]models.MessageID, int) {
	out := make([]models.MessageID, 0, len(ids))
	removed := 0
	for _, id := range ids {
		if drop[id] {
			removed++
			continue
		}
		out = append(out, id)
	}
	return out, removed
}

// sortByUpdated orders ids by their message's Updated time, newest first.
// Ids missing from the store are dropped. Ties keep their relative order.
func sortByUpdated(ids []models.MessageID, mails *EntityStore) []models.MessageID {
	type row struct {
		id      models.MessageID
		updated int64
	}
	rows := make([]row, 0, len(ids))
	for _, id := range ids {
		m, ok := mails.Get(id)
		if !ok {
			continue
		}
		var updated int64
		if !m.Updated.IsZero() {
			updated = m.Updated.UnixNano()
		}
		rows = append(rows, row{id: id, updated: updated})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].updated > rows[j].updated })

	out := make([]models.MessageID, len(rows))
	for i, r := range rows {
		out[i] = r.id
	}
	return out
}

func idSet(ids []models.MessageID) map[models.MessageID]bool {
	set := make(map[models.MessageID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
