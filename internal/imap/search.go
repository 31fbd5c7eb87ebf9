package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// searchUIDs returns the UIDs matching criteria in the selected mailbox, newest first.
func searchUIDs(c *client.Client, criteria *imap.SearchCriteria) ([]uint32, error) {
	uids, err := c.UidSearch(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	sort.Slice(uids, func(i, j int) bool { return uids[i] > uids[j] })
	return uids, nil
}

// uidsAfter returns the UIDs above lastUID in the selected mailbox, newest first.
// The range lastUID+1:* always matches the highest UID, so results are filtered.
func uidsAfter(c *client.Client, lastUID uint32) ([]uint32, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Uid = new(imap.SeqSet)
	criteria.Uid.AddRange(lastUID+1, 0)

	uids, err := searchUIDs(c, criteria)
	if err != nil {
		return nil, err
	}

	newer := uids[:0]
	for _, uid := range uids {
		if uid > lastUID {
			newer = append(newer, uid)
		}
	}
	return newer, nil
}

// pageBounds returns the [start, end) slice bounds of a 1-based page.
func pageBounds(total, page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return start, end
}
