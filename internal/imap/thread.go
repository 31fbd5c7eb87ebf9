package imap

import (
	"fmt"
	"sort"

	"github.com/emersion/go-imap"
	sortthread "github.com/emersion/go-imap-sortthread"
	"github.com/emersion/go-imap/client"
)

// threadCapability is the capability advertised by servers that thread by references.
const threadCapability = "THREAD=REFERENCES"

// threadGroup is one conversation in a mailbox.
type threadGroup struct {
	root    uint32
	replies []uint32
	newest  uint32
}

// RunThreadCommand runs the THREAD command and returns the thread structure.
// Uses the REFERENCES algorithm to build thread relationships.
func RunThreadCommand(c *client.Client, criteria *imap.SearchCriteria) ([]*sortthread.Thread, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}

	threadClient := sortthread.NewThreadClient(c)

	threads, err := threadClient.UidThread(sortthread.References, criteria)
	if err != nil {
		return nil, fmt.Errorf("THREAD command returned error: %w", err)
	}

	return threads, nil
}

// threadsFor groups the messages matching criteria into conversations,
// newest conversation first. Servers without THREAD support are threaded by
// the In-Reply-To headers of the matched messages.
func threadsFor(c *client.Client, criteria *imap.SearchCriteria, uids []uint32) ([]threadGroup, error) {
	supported, err := c.Support(threadCapability)
	if err != nil {
		return nil, fmt.Errorf("failed to check capabilities: %w", err)
	}

	var groups []threadGroup
	if supported {
		threads, err := RunThreadCommand(c, criteria)
		if err != nil {
			return nil, err
		}
		groups = groupsFromThreads(threads)
	} else {
		envelopes, err := fetchEnvelopes(c, uids)
		if err != nil {
			return nil, err
		}
		groups = groupsByInReplyTo(envelopes)
	}

	sort.SliceStable(groups, func(i, j int) bool { return groups[i].newest > groups[j].newest })
	return groups, nil
}

// groupsFromThreads flattens THREAD trees. A tree whose root is missing from
// the mailbox (id 0) is rooted at its oldest present message.
func groupsFromThreads(threads []*sortthread.Thread) []threadGroup {
	groups := make([]threadGroup, 0, len(threads))
	for _, thread := range threads {
		if thread == nil {
			continue
		}
		var members []uint32
		collectThread(thread, &members)
		if len(members) == 0 {
			continue
		}
		groups = append(groups, newThreadGroup(thread.Id, members))
	}
	return groups
}

func collectThread(thread *sortthread.Thread, members *[]uint32) {
	if thread.Id != 0 {
		*members = append(*members, thread.Id)
	}
	for _, child := range thread.Children {
		if child != nil {
			collectThread(child, members)
		}
	}
}

// groupsByInReplyTo threads messages by following In-Reply-To to the oldest
// ancestor present in the batch.
func groupsByInReplyTo(messages []*imap.Message) []threadGroup {
	byMessageID := make(map[string]uint32, len(messages))
	for _, msg := range messages {
		if msg.Envelope != nil && msg.Envelope.MessageId != "" {
			byMessageID[msg.Envelope.MessageId] = msg.Uid
		}
	}

	parentOf := make(map[uint32]uint32, len(messages))
	for _, msg := range messages {
		if msg.Envelope == nil || msg.Envelope.InReplyTo == "" {
			continue
		}
		if parent, ok := byMessageID[msg.Envelope.InReplyTo]; ok && parent != msg.Uid {
			parentOf[msg.Uid] = parent
		}
	}

	// A reply cycle is rooted at its lowest UID.
	rootOf := func(uid uint32) uint32 {
		seen := map[uint32]bool{uid: true}
		lowest := uid
		for {
			parent, ok := parentOf[uid]
			if !ok {
				return uid
			}
			if seen[parent] {
				return lowest
			}
			seen[parent] = true
			lowest = min(lowest, parent)
			uid = parent
		}
	}

	membersByRoot := make(map[uint32][]uint32)
	var roots []uint32
	for _, msg := range messages {
		root := rootOf(msg.Uid)
		if _, ok := membersByRoot[root]; !ok {
			roots = append(roots, root)
		}
		membersByRoot[root] = append(membersByRoot[root], msg.Uid)
	}

	groups := make([]threadGroup, 0, len(roots))
	for _, root := range roots {
		groups = append(groups, newThreadGroup(root, membersByRoot[root]))
	}
	return groups
}

func newThreadGroup(root uint32, members []uint32) threadGroup {
	sorted := append([]uint32(nil), members...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	if root == 0 {
		root = sorted[0]
	}

	group := threadGroup{root: root, newest: sorted[len(sorted)-1]}
	for _, uid := range sorted {
		if uid != root {
			group.replies = append(group.replies, uid)
		}
	}
	return group
}
