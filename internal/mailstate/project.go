package mailstate

import (
	"strings"

	"github.com/vdavid/mailview/internal/models"
)

// View is the display-ready listing of one folder.
type View struct {
	Folder     models.Folder    `json:"folder"`
	Messages   []models.Message `json:"mails"`
	TotalCount int              `json:"total_mail_count"`
	// Cached is false when the folder has never been fetched.
	Cached bool `json:"cached"`
	// Dirty means the listing is stale and should be refetched.
	Dirty bool `json:"is_dirty"`
}

// UnreadSummary is the per-folder unread counts plus the badge total.
type UnreadSummary struct {
	Counts models.UnreadCounts `json:"counts"`
	Total  int                 `json:"total_unread_count"`
}

// Project returns the display records of a folder in cached order. Ids with
// no stored message are skipped. The state is not modified.
func (s *State) Project(folder models.Folder) []models.Message {
	cached, ok := s.Folders.Get(folder)
	if !ok {
		return []models.Message{}
	}
	out := make([]models.Message, 0, len(cached.IDs))
	for _, id := range cached.IDs {
		m, ok := s.Mails.Get(id)
		if !ok {
			continue
		}
		out = append(out, s.display(m, folder))
	}
	return out
}

// ViewOf returns the view of any folder.
func (s *State) ViewOf(folder models.Folder) View {
	cached, ok := s.Folders.Get(folder)
	return View{
		Folder:     folder,
		Messages:   s.Project(folder),
		TotalCount: cached.TotalCount,
		Cached:     ok,
		Dirty:      cached.Dirty,
	}
}

// View returns the view of the active folder.
func (s *State) View() View {
	return s.ViewOf(s.CurrentFolder)
}

// UnreadSummary returns a copy of the unread counts with their total.
func (s *State) UnreadSummary() UnreadSummary {
	counts := make(models.UnreadCounts, len(s.Unread))
	for folder, n := range s.Unread {
		counts[folder] = n
	}
	return UnreadSummary{Counts: counts, Total: counts.Total()}
}

// display fills the derived fields of a stored message for a folder listing.
func (s *State) display(m models.Message, folder models.Folder) models.Message {
	names := make([]string, 0, len(m.ReceiverDisplay))
	for _, r := range m.ReceiverDisplay {
		names = append(names, r.Name)
	}
	m.ReceiverList = strings.Join(names, ", ")
	m.ThreadCount = threadCount(m, folder)

	if m.IsSubjectEncrypted {
		if subject, ok := s.decryptedSubjects[m.ID]; ok {
			m.Subject = subject
			m.IsSubjectEncrypted = false
		}
	}

	if decrypted := s.decryptedAttachments[m.ID]; m.EncryptionType == models.EncryptionPGPMIME && len(decrypted) > 0 {
		m.Attachments = append([]models.Attachment(nil), decrypted...)
	} else {
		for i := range m.Attachments {
			m.Attachments[i].Name = m.Attachments[i].DisplayName()
		}
	}
	return m
}

// threadCount counts the rows a thread shows in a folder listing. The trash
// view counts trashed children, every other view counts the rest, and the
// parent counts itself when it lives on the viewed side.
func threadCount(m models.Message, folder models.Folder) int {
	info := m.ChildrenFolderInfo
	if info == nil {
		return 0
	}
	viewingTrash := folder == models.FolderTrash
	inTrash := m.Folder == models.FolderTrash
	switch {
	case viewingTrash && inTrash:
		return info.TrashChildrenCount + 1
	case viewingTrash:
		return info.TrashChildrenCount
	case inTrash:
		return info.NonTrashChildrenCount
	default:
		return info.NonTrashChildrenCount + 1
	}
}
