package mailstate

import "github.com/vdavid/mailview/internal/models"

// Kind names an event variant on the wire.
type Kind string

const (
	KindFetch                  Kind = "fetch"
	KindMove                   Kind = "move"
	KindUndoMove               Kind = "undo_move"
	KindSetRead                Kind = "set_read"
	KindSetStarred             Kind = "set_starred"
	KindDelete                 Kind = "delete"
	KindDeleteForAll           Kind = "delete_for_all"
	KindEmptyFolder            Kind = "empty_folder"
	KindUpdateCurrentFolder    Kind = "update_current_folder"
	KindDecryptedContentUpdate Kind = "decrypted_content_update"
	KindSetAttachments         Kind = "set_attachments"
	KindSetCurrentFolder       Kind = "set_current_folder"
	KindUnreadCounts           Kind = "unread_counts"
	KindToggleConversationMode Kind = "toggle_conversation_mode"
	KindClearOnLogout          Kind = "clear_on_logout"
)

// Event is one input to the reconciliation engine. Each variant carries only
// the fields its operation needs.
type Event interface {
	Kind() Kind
}

// Fetch delivers a page of messages for a folder, either as the response to a
// request or as a server push.
type Fetch struct {
	Folder         models.Folder
	Messages       []models.Message
	TotalCount     int
	Limit          int
	Offset         int
	IsNotFirstPage bool
	FromSocket     bool
}

// Move reports messages moved from SourceFolder to Folder.
type Move struct {
	Folder       models.Folder
	SourceFolder models.Folder
	IDs          []models.MessageID
	// Messages are the moved records as the server returned them. Optional.
	Messages []models.Message
	// WithChildren nil means the default: moving a parent cascades to its children.
	WithChildren *bool
}

// UndoMove reverses a Move: the messages go back from Folder to SourceFolder.
type UndoMove struct {
	Folder       models.Folder
	SourceFolder models.Folder
	IDs          []models.MessageID
	Messages     []models.Message
}

// SetRead flips the read flag.
type SetRead struct {
	IDs  []models.MessageID
	Read bool
}

// SetStarred flips the starred flag, optionally on the thread's children too.
type SetStarred struct {
	IDs          []models.MessageID
	Starred      bool
	WithChildren bool
}

// Delete reports messages permanently deleted from Folder.
type Delete struct {
	Folder models.Folder
	IDs    []models.MessageID
	ForAll bool
}

// EmptyFolder reports that every message in Folder was deleted.
type EmptyFolder struct {
	Folder models.Folder
}

// UpdateCurrentFolder upserts a single message, typically a just-saved draft or sent reply.
type UpdateCurrentFolder struct {
	Message models.Message
}

// DecryptedContentUpdate fills the decrypted-content caches for one message.
type DecryptedContentUpdate struct {
	Content models.DecryptedContent
	// SubjectOnly records only the subject, as produced when decrypting a
	// whole folder listing.
	SubjectOnly bool
}

// SetAttachments records the attachments recovered from a PGP/MIME body.
type SetAttachments struct {
	ID          models.MessageID
	Attachments []models.Attachment
}

// SetCurrentFolder switches the folder the view projects.
type SetCurrentFolder struct {
	Folder models.Folder
}

// UnreadCountsUpdate replaces the unread summary, or merges into it when Merge is set.
type UnreadCountsUpdate struct {
	Counts models.UnreadCounts
	Merge  bool
}

// ToggleConversationMode switches thread collapsing on or off and wipes every folder cache.
type ToggleConversationMode struct {
	Enabled bool
}

// ClearOnLogout wipes all state.
type ClearOnLogout struct{}

func (Fetch) Kind() Kind                  { return KindFetch }
func (Move) Kind() Kind                   { return KindMove }
func (UndoMove) Kind() Kind               { return KindUndoMove }
func (SetRead) Kind() Kind                { return KindSetRead }
func (SetStarred) Kind() Kind             { return KindSetStarred }
func (EmptyFolder) Kind() Kind            { return KindEmptyFolder }
func (UpdateCurrentFolder) Kind() Kind    { return KindUpdateCurrentFolder }
func (DecryptedContentUpdate) Kind() Kind { return KindDecryptedContentUpdate }
func (SetAttachments) Kind() Kind         { return KindSetAttachments }
func (SetCurrentFolder) Kind() Kind       { return KindSetCurrentFolder }
func (UnreadCountsUpdate) Kind() Kind     { return KindUnreadCounts }
func (ToggleConversationMode) Kind() Kind { return KindToggleConversationMode }
func (ClearOnLogout) Kind() Kind          { return KindClearOnLogout }

func (d Delete) Kind() Kind {
	if d.ForAll {
		return KindDeleteForAll
	}
	return KindDelete
}
