package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MessageID identifies a message across all folders.
type MessageID int64

// Folder names a partition of a user's mail.
type Folder string

const (
	FolderInbox     Folder = "inbox"
	FolderSent      Folder = "sent"
	FolderTrash     Folder = "trash"
	FolderDraft     Folder = "draft"
	FolderOutbox    Folder = "outbox"
	FolderSpam      Folder = "spam"
	FolderStarred   Folder = "starred"
	FolderUnread    Folder = "unread"
	FolderAllEmails Folder = "allmails"
)

// IsVirtual reports whether the folder is computed from flags rather than
// holding messages itself.
func (f Folder) IsVirtual() bool {
	return f == FolderStarred || f == FolderUnread || f == FolderAllEmails
}

// IsCustom reports whether the folder is user-defined.
func (f Folder) IsCustom() bool {
	switch f {
	case FolderInbox, FolderSent, FolderTrash, FolderDraft, FolderOutbox,
		FolderSpam, FolderStarred, FolderUnread, FolderAllEmails:
		return false
	}
	return f != ""
}

// EncryptionType describes how a message body is encrypted.
type EncryptionType string

const (
	EncryptionNone    EncryptionType = ""
	EncryptionPGPMIME EncryptionType = "PGP_MIME"
	EncryptionInline  EncryptionType = "PGP_INLINE"
)

// ChildrenFolderInfo counts a thread parent's children by trash membership.
type ChildrenFolderInfo struct {
	TrashChildrenCount    int `json:"trash_children_count"`
	NonTrashChildrenCount int `json:"non_trash_children_count"`
}

// EmailDisplay is a display name and address pair.
type EmailDisplay struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Attachment is a file attached to a message.
type Attachment struct {
	ID        int64  `json:"id,omitempty"`
	MessageID int64  `json:"message,omitempty"`
	Name      string `json:"name"`
	Document  string `json:"document,omitempty"`
	MimeType  string `json:"content_type,omitempty"`
	SizeBytes int64  `json:"size,omitempty"`
	IsInline  bool   `json:"is_inline"`
	ContentID string `json:"content_id,omitempty"`
}

// DisplayName returns the attachment name, falling back to the last path
// segment of its document URL.
func (a Attachment) DisplayName() string {
	if a.Name != "" {
		return a.Name
	}
	doc := a.Document
	if i := strings.IndexAny(doc, "?#"); i >= 0 {
		doc = doc[:i]
	}
	if i := strings.LastIndex(doc, "/"); i >= 0 {
		doc = doc[i+1:]
	}
	return doc
}

// Message is a mail item as held by the projection.
type Message struct {
	ID                 MessageID           `json:"id"`
	Folder             Folder              `json:"folder"`
	Parent             MessageID           `json:"parent,omitempty"`
	HasChildren        bool                `json:"has_children"`
	ChildrenCount      int                 `json:"children_count"`
	ChildrenFolderInfo *ChildrenFolderInfo `json:"children_folder_info,omitempty"`
	Read               bool                `json:"read"`
	Starred            bool                `json:"starred"`
	HasStarredChildren bool                `json:"has_starred_children"`
	Updated            time.Time           `json:"updated"`
	Subject            string              `json:"subject"`
	IsSubjectEncrypted bool                `json:"is_subject_encrypted"`
	EncryptionType     EncryptionType      `json:"encryption_type,omitempty"`
	Sender             string              `json:"sender"`
	ReceiverDisplay    []EmailDisplay      `json:"receiver_display"`
	Attachments        []Attachment        `json:"attachments,omitempty"`
	Content            string              `json:"content,omitempty"`
	IsUpdate           bool                `json:"is_update,omitempty"`

	// Filled by the projection only.
	ReceiverList string `json:"receiver_list,omitempty"`
	ThreadCount  int    `json:"thread_count,omitempty"`
}

// Clone returns a deep copy of the message.
func (m Message) Clone() Message {
	if m.ChildrenFolderInfo != nil {
		info := *m.ChildrenFolderInfo
		m.ChildrenFolderInfo = &info
	}
	if m.ReceiverDisplay != nil {
		m.ReceiverDisplay = append([]EmailDisplay(nil), m.ReceiverDisplay...)
	}
	if m.Attachments != nil {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	return m
}

// DecryptedContent is the plaintext of an encrypted message.
type DecryptedContent struct {
	ID              MessageID `json:"id"`
	Subject         string    `json:"subject"`
	Content         string    `json:"content"`
	ContentPlain    string    `json:"content_plain"`
	IncomingHeaders string    `json:"incoming_headers,omitempty"`
	InProgress      bool      `json:"in_progress"`
	DecryptError    bool      `json:"decrypt_error"`
}

// UnreadCounts maps a folder to its unread message count.
type UnreadCounts map[Folder]int

// Outbox counter keys reported alongside folders but never summed.
const (
	CounterOutboxDeadMan         Folder = "outbox_dead_man_counter"
	CounterOutboxDelayedDelivery Folder = "outbox_delayed_delivery_counter"
	CounterOutboxSelfDestruct    Folder = "outbox_self_destruct_counter"
)

// Total sums the counts of folders that contribute to the global unread badge.
func (c UnreadCounts) Total() int {
	total := 0
	for folder, count := range c {
		switch folder {
		case FolderSent, FolderTrash, FolderDraft, FolderOutbox, FolderSpam, FolderStarred,
			CounterOutboxDeadMan, CounterOutboxDelayedDelivery, CounterOutboxSelfDestruct:
			continue
		}
		total += count
	}
	return total
}

// ParseMessageIDs parses a comma-joined id list such as "5,4,3".
// Empty segments are skipped.
func ParseMessageIDs(s string) ([]MessageID, error) {
	var ids []MessageID
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid message id %q: %w", part, err)
		}
		ids = append(ids, MessageID(n))
	}
	return ids, nil
}

// JoinMessageIDs is the inverse of ParseMessageIDs.
func JoinMessageIDs(ids []MessageID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(int64(id), 10)
	}
	return strings.Join(parts, ",")
}
