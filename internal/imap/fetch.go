package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
)

// bodySection is the whole message, fetched without setting \Seen.
var bodySection = &imap.BodySectionName{Peek: true}

// FetchMessages fetches envelope, flags, dates and the full body of the given
// UIDs in the selected mailbox. The result is ordered newest UID first.
func FetchMessages(c *client.Client, uids []uint32) ([]*imap.Message, error) {
	items := []imap.FetchItem{
		imap.FetchEnvelope,
		imap.FetchFlags,
		imap.FetchUid,
		imap.FetchInternalDate,
		bodySection.FetchItem(),
	}
	return fetchItems(c, uids, items)
}

// fetchEnvelopes fetches only what threading needs.
func fetchEnvelopes(c *client.Client, uids []uint32) ([]*imap.Message, error) {
	return fetchItems(c, uids, []imap.FetchItem{imap.FetchEnvelope, imap.FetchUid})
}

func fetchItems(c *client.Client, uids []uint32, items []imap.FetchItem) ([]*imap.Message, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	if len(uids) == 0 {
		return []*imap.Message{}, nil
	}

	seqSet := new(imap.SeqSet)
	seqSet.AddNum(uids...)

	messages := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)

	go func() {
		done <- c.UidFetch(seqSet, items, messages)
	}()

	result := make([]*imap.Message, 0, len(uids))
	for msg := range messages {
		result = append(result, msg)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Uid > result[j].Uid })
	return result, nil
}
