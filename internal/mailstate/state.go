// Package mailstate keeps an in-memory projection of a user's mailbox:
// messages by id, per-folder cached pages, and the caches of decrypted
// content. Server responses and push notifications are applied as events;
// the projection for the active folder is derived on demand.
package mailstate

import "github.com/vdavid/mailview/internal/models"

// State is the whole projection. It is not safe for concurrent use; Store
// serializes access to it.
type State struct {
	Mails   *EntityStore
	Folders *FolderIndex

	CurrentFolder        models.Folder
	PageLimit            int
	ConversationViewMode bool
	Unread               models.UnreadCounts

	decryptedSubjects    map[models.MessageID]string
	decryptedContents    map[models.MessageID]models.DecryptedContent
	decryptedAttachments map[models.MessageID][]models.Attachment
}

// NewState returns an empty projection with the given page limit.
func NewState(pageLimit int, conversationViewMode bool) *State {
	if pageLimit <= 0 {
		pageLimit = models.DefaultPageLimit
	}
	s := &State{
		Mails:                NewEntityStore(),
		Folders:              NewFolderIndex(),
		PageLimit:            pageLimit,
		ConversationViewMode: conversationViewMode,
	}
	s.resetDecrypted()
	s.resetUnread()
	return s
}

func (s *State) resetDecrypted() {
	s.decryptedSubjects = make(map[models.MessageID]string)
	s.decryptedContents = make(map[models.MessageID]models.DecryptedContent)
	s.decryptedAttachments = make(map[models.MessageID][]models.Attachment)
}

func (s *State) resetUnread() {
	s.Unread = models.UnreadCounts{models.FolderInbox: 0}
}

// Apply reconciles one event into the state. It never fails: ids that the
// state does not know about are skipped, and unknown event types are ignored.
func (s *State) Apply(ev Event) {
	switch e := ev.(type) {
	case Fetch:
		s.applyFetch(e)
	case Move:
		s.applyMove(e)
	case UndoMove:
		s.applyUndoMove(e)
	case SetRead:
		s.applySetRead(e)
	case SetStarred:
		s.applySetStarred(e)
	case Delete:
		s.applyDelete(e)
	case EmptyFolder:
		s.applyEmptyFolder(e)
	case UpdateCurrentFolder:
		s.applyUpdateCurrentFolder(e)
	case DecryptedContentUpdate:
		s.applyDecryptedContent(e)
	case SetAttachments:
		s.applySetAttachments(e)
	case SetCurrentFolder:
		s.CurrentFolder = e.Folder
	case UnreadCountsUpdate:
		s.applyUnreadCounts(e)
	case ToggleConversationMode:
		s.applyToggleConversationMode(e)
	case ClearOnLogout:
		s.applyClearOnLogout()
	}
}

// DecryptedSubject returns the decrypted subject of a message, if known.
func (s *State) DecryptedSubject(id models.MessageID) (string, bool) {
	subject, ok := s.decryptedSubjects[id]
	return subject, ok
}

// DecryptedContent returns the decrypted body of a message, if known.
func (s *State) DecryptedContent(id models.MessageID) (models.DecryptedContent, bool) {
	content, ok := s.decryptedContents[id]
	return content, ok
}

// DecryptedAttachments returns the attachments recovered from a PGP/MIME body, if known.
func (s *State) DecryptedAttachments(id models.MessageID) ([]models.Attachment, bool) {
	attachments, ok := s.decryptedAttachments[id]
	if !ok {
		return nil, false
	}
	return append([]models.Attachment(nil), attachments...), true
}

func (s *State) limitOr(limit int) int {
	if limit > 0 {
		return limit
	}
	return s.PageLimit
}
