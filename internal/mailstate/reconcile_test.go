package mailstate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vdavid/mailview/internal/models"
)

func folderState(t *testing.T, s *State, folder models.Folder) FolderState {
	t.Helper()
	f, ok := s.Folders.Get(folder)
	require.True(t, ok, "folder %s is not cached", folder)
	return f
}

func TestApplyFetch(t *testing.T) {
	t.Run("direct fetch replaces the cached page", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderInbox, 10, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))
		s.Folders.MarkDirty(models.FolderInbox)

		seed(s, models.FolderInbox, 12, msg(9, models.FolderInbox), msg(8, models.FolderInbox))

		f := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(9, 8), f.IDs)
		assert.Equal(t, 12, f.TotalCount)
		assert.False(t, f.Dirty)
	})

	t.Run("re-applying the same batch is idempotent", func(t *testing.T) {
		s := NewState(20, true)
		batch := []models.Message{msg(3, models.FolderSent), msg(2, models.FolderSent), msg(1, models.FolderSent)}
		seed(s, models.FolderSent, 3, batch...)
		first := folderState(t, s, models.FolderSent)
		seed(s, models.FolderSent, 3, batch...)

		assert.Equal(t, first, folderState(t, s, models.FolderSent))
	})

	t.Run("direct fetch truncates to the limit", func(t *testing.T) {
		s := NewState(2, true)
		seed(s, models.FolderInbox, 0, msg(3, models.FolderInbox), msg(2, models.FolderInbox), msg(1, models.FolderInbox))

		f := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(3, 2), f.IDs)
		assert.Equal(t, 2, f.TotalCount)
	})

	t.Run("push of a new message evicts the oldest", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderInbox, 10, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))

		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{msg(6, models.FolderInbox)}, FromSocket: true})

		f := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(6, 5, 4), f.IDs)
		assert.Equal(t, 11, f.TotalCount)
		assert.True(t, s.Mails.Has(3), "evicted ids stay in the entity store")
	})

	t.Run("pushed reply collapses onto its parent", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderInbox, 10, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))

		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{reply(7, 5, models.FolderInbox)}, FromSocket: true})

		f := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(5, 4, 3), f.IDs)
		assert.Equal(t, 10, f.TotalCount)

		parent, ok := s.Mails.Get(5)
		require.True(t, ok)
		assert.True(t, parent.HasChildren)
		assert.Equal(t, 1, parent.ChildrenCount)
		require.NotNil(t, parent.ChildrenFolderInfo)
		assert.Equal(t, 1, parent.ChildrenFolderInfo.NonTrashChildrenCount)
		assert.Equal(t, 2, s.Project(models.FolderInbox)[0].ThreadCount)
	})

	t.Run("the same reply pushed twice counts once", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderInbox, 10, msg(5, models.FolderInbox))
		push := Fetch{Folder: models.FolderInbox, Messages: []models.Message{reply(7, 5, models.FolderInbox)}, FromSocket: true}

		s.Apply(push)
		s.Apply(push)

		parent, _ := s.Mails.Get(5)
		assert.Equal(t, 1, parent.ChildrenCount)
	})

	t.Run("push into an uncached folder only fills the entity store", func(t *testing.T) {
		s := NewState(3, true)
		s.Apply(Fetch{Folder: models.FolderSent, Messages: []models.Message{msg(1, models.FolderSent)}, FromSocket: true})

		assert.False(t, s.Folders.Has(models.FolderSent))
		assert.True(t, s.Mails.Has(1))
	})

	t.Run("push leaves a later page alone", func(t *testing.T) {
		s := NewState(3, true)
		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{msg(2, models.FolderInbox)}, TotalCount: 30, IsNotFirstPage: true, Offset: 3})

		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{msg(9, models.FolderInbox)}, FromSocket: true})

		assert.Equal(t, ids(2), folderState(t, s, models.FolderInbox).IDs)
	})

	t.Run("push also feeds cached unread and all-mail folders", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderInbox, 1, msg(1, models.FolderInbox))
		seed(s, models.FolderUnread, 1, msg(1, models.FolderInbox))
		seed(s, models.FolderAllEmails, 1, msg(1, models.FolderInbox))

		read := msg(2, models.FolderInbox)
		read.Read = true
		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{msg(3, models.FolderInbox), read}, FromSocket: true})

		assert.Equal(t, ids(3, 1), folderState(t, s, models.FolderUnread).IDs)
		assert.Equal(t, ids(3, 2, 1), folderState(t, s, models.FolderAllEmails).IDs)
	})

	t.Run("unread pushes still feed all-mail", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderUnread, 1, msg(1, models.FolderInbox))
		seed(s, models.FolderAllEmails, 1, msg(1, models.FolderInbox))

		s.Apply(Fetch{Folder: models.FolderUnread, Messages: []models.Message{msg(5, models.FolderInbox)}, FromSocket: true})

		unread := folderState(t, s, models.FolderUnread)
		assert.Equal(t, ids(5, 1), unread.IDs)
		assert.Equal(t, 2, unread.TotalCount, "the unread listing is merged once, not again as a satellite")
		assert.Equal(t, ids(5, 1), folderState(t, s, models.FolderAllEmails).IDs)
	})

	t.Run("spam pushes stay out of the satellites", func(t *testing.T) {
		s := NewState(3, true)
		seed(s, models.FolderUnread, 1, msg(1, models.FolderInbox))
		seed(s, models.FolderAllEmails, 1, msg(1, models.FolderInbox))

		s.Apply(Fetch{Folder: models.FolderSpam, Messages: []models.Message{msg(4, models.FolderSpam)}, FromSocket: true})

		assert.Equal(t, ids(1), folderState(t, s, models.FolderUnread).IDs)
		assert.Equal(t, ids(1), folderState(t, s, models.FolderAllEmails).IDs)
	})

	t.Run("limit falls back to the page limit", func(t *testing.T) {
		s := NewState(2, true)
		seed(s, models.FolderInbox, 2, msg(2, models.FolderInbox), msg(1, models.FolderInbox))
		s.Apply(Fetch{Folder: models.FolderInbox, Messages: []models.Message{msg(3, models.FolderInbox)}, FromSocket: true, Limit: 0})

		assert.Equal(t, ids(3, 2), folderState(t, s, models.FolderInbox).IDs)
	})
}

func TestApplyMove(t *testing.T) {
	t.Run("moves rows between cached folders", func(t *testing.T) {
		s := NewState(20, true)
		s.CurrentFolder = models.FolderInbox
		seed(s, models.FolderInbox, 3, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))
		seed(s, models.FolderTrash, 1, msg(1, models.FolderTrash))
		seed(s, models.FolderSent, 1, msg(2, models.FolderSent))

		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(4)})

		inbox := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(5, 3), inbox.IDs)
		assert.Equal(t, 2, inbox.TotalCount)
		assert.False(t, inbox.Dirty)

		trash := folderState(t, s, models.FolderTrash)
		assert.Equal(t, ids(4, 1), trash.IDs)
		assert.Equal(t, 2, trash.TotalCount)

		sent := folderState(t, s, models.FolderSent)
		assert.True(t, sent.Dirty)
		assert.Equal(t, ids(2), sent.IDs)

		moved, _ := s.Mails.Get(4)
		assert.Equal(t, models.FolderTrash, moved.Folder)
	})

	t.Run("parent with children into trash and back", func(t *testing.T) {
		const n = 3
		s := NewState(20, true)
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = n
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: n}
		seed(s, models.FolderInbox, 1, parent)
		s.Mails.Upsert(reply(11, 10, models.FolderInbox), reply(12, 10, models.FolderInbox), reply(13, 10, models.FolderInbox))

		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(10)})

		got, _ := s.Mails.Get(10)
		assert.Equal(t, models.ChildrenFolderInfo{TrashChildrenCount: n}, *got.ChildrenFolderInfo)
		for _, child := range s.Mails.ChildrenOf(10) {
			assert.Equal(t, models.FolderTrash, child.Folder)
		}

		s.Apply(Move{Folder: models.FolderInbox, SourceFolder: models.FolderTrash, IDs: ids(10)})

		got, _ = s.Mails.Get(10)
		assert.Equal(t, models.ChildrenFolderInfo{NonTrashChildrenCount: n}, *got.ChildrenFolderInfo)
	})

	t.Run("cascaded children leave the listings they were in", func(t *testing.T) {
		s := NewState(20, false)
		s.CurrentFolder = models.FolderInbox
		parent := msg(5, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 2
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: 2}
		seed(s, models.FolderInbox, 3, reply(7, 5, models.FolderInbox), parent, msg(4, models.FolderInbox))
		seed(s, models.FolderSent, 1, reply(6, 5, models.FolderSent))

		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(5)})

		inbox := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(4), inbox.IDs)
		assert.Equal(t, 1, inbox.TotalCount)

		sent := folderState(t, s, models.FolderSent)
		assert.Empty(t, sent.IDs)
		assert.Equal(t, 0, sent.TotalCount)

		for _, folder := range []models.Folder{models.FolderInbox, models.FolderSent} {
			for _, m := range s.Project(folder) {
				assert.Equal(t, folder, m.Folder, "message %d listed in %s", m.ID, folder)
			}
		}
		for _, id := range ids(5, 6, 7) {
			m, ok := s.Mails.Get(id)
			require.True(t, ok)
			assert.Equal(t, models.FolderTrash, m.Folder)
		}
	})

	t.Run("without cascade the thread counts stay", func(t *testing.T) {
		s := NewState(20, true)
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 2
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: 2}
		seed(s, models.FolderInbox, 1, parent)

		noCascade := false
		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(10), WithChildren: &noCascade})

		got, _ := s.Mails.Get(10)
		assert.Equal(t, models.ChildrenFolderInfo{NonTrashChildrenCount: 2}, *got.ChildrenFolderInfo)
	})

	t.Run("trashing a child shifts its parent's counts", func(t *testing.T) {
		s := NewState(20, true)
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 2
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: 2}
		seed(s, models.FolderInbox, 1, parent)
		s.Mails.Upsert(reply(11, 10, models.FolderInbox))

		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(11)})

		got, _ := s.Mails.Get(10)
		assert.Equal(t, models.ChildrenFolderInfo{TrashChildrenCount: 1, NonTrashChildrenCount: 1}, *got.ChildrenFolderInfo)
	})

	t.Run("unknown ids are skipped", func(t *testing.T) {
		s := NewState(20, true)
		seed(s, models.FolderInbox, 1, msg(1, models.FolderInbox))

		s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(42)})

		inbox := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(1), inbox.IDs)
		assert.Equal(t, 1, inbox.TotalCount)
		assert.False(t, s.Mails.Has(42))
	})
}

func TestApplyUndoMove(t *testing.T) {
	s := NewState(20, true)
	seed(s, models.FolderInbox, 3, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))
	seed(s, models.FolderTrash, 0)

	s.Apply(Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(4)})
	s.Apply(UndoMove{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(4)})

	inbox := folderState(t, s, models.FolderInbox)
	assert.Equal(t, ids(5, 4, 3), inbox.IDs)
	assert.Equal(t, 3, inbox.TotalCount)
	assert.True(t, folderState(t, s, models.FolderTrash).Dirty)

	restored, _ := s.Mails.Get(4)
	assert.Equal(t, models.FolderInbox, restored.Folder)
}

func TestApplySetRead(t *testing.T) {
	setup := func(current models.Folder) *State {
		s := NewState(20, true)
		s.CurrentFolder = current
		seed(s, models.FolderUnread, 3, msg(5, models.FolderInbox), msg(4, models.FolderInbox), msg(3, models.FolderInbox))
		return s
	}

	t.Run("unread folder active drops read ids", func(t *testing.T) {
		s := setup(models.FolderUnread)
		s.Apply(SetRead{IDs: ids(3), Read: true})

		unread := folderState(t, s, models.FolderUnread)
		assert.Equal(t, ids(5, 4), unread.IDs)
		assert.Equal(t, 2, unread.TotalCount)
		m, _ := s.Mails.Get(3)
		assert.True(t, m.Read)
	})

	t.Run("other folder active marks unread dirty", func(t *testing.T) {
		s := setup(models.FolderInbox)
		s.Apply(SetRead{IDs: ids(3), Read: true})

		unread := folderState(t, s, models.FolderUnread)
		assert.Equal(t, ids(5, 4, 3), unread.IDs)
		assert.Equal(t, 3, unread.TotalCount)
		assert.True(t, unread.Dirty)
	})

	t.Run("marking unread keeps the list", func(t *testing.T) {
		s := setup(models.FolderUnread)
		s.Apply(SetRead{IDs: ids(3), Read: false})

		assert.Equal(t, ids(5, 4, 3), folderState(t, s, models.FolderUnread).IDs)
	})
}

func TestApplySetStarred(t *testing.T) {
	t.Run("unstarring in the starred folder removes rows", func(t *testing.T) {
		s := NewState(20, true)
		s.CurrentFolder = models.FolderStarred
		a, b := msg(2, models.FolderInbox), msg(1, models.FolderInbox)
		a.Starred, b.Starred = true, true
		seed(s, models.FolderStarred, 2, a, b)

		s.Apply(SetStarred{IDs: ids(2), Starred: false})

		starred := folderState(t, s, models.FolderStarred)
		assert.Equal(t, ids(1), starred.IDs)
		assert.Equal(t, 1, starred.TotalCount)
	})

	t.Run("starring elsewhere marks starred dirty and flags the parent", func(t *testing.T) {
		s := NewState(20, true)
		s.CurrentFolder = models.FolderInbox
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 1
		seed(s, models.FolderInbox, 1, parent)
		seed(s, models.FolderStarred, 0)
		s.Mails.Upsert(reply(11, 10, models.FolderInbox))

		s.Apply(SetStarred{IDs: ids(11), Starred: true})

		got, _ := s.Mails.Get(10)
		assert.True(t, got.HasStarredChildren)
		assert.True(t, folderState(t, s, models.FolderStarred).Dirty)

		s.Apply(SetStarred{IDs: ids(11), Starred: false})
		got, _ = s.Mails.Get(10)
		assert.False(t, got.HasStarredChildren)
	})

	t.Run("with children stars the whole thread", func(t *testing.T) {
		s := NewState(20, true)
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 2
		seed(s, models.FolderInbox, 1, parent)
		s.Mails.Upsert(reply(11, 10, models.FolderInbox), reply(12, 10, models.FolderInbox))

		s.Apply(SetStarred{IDs: ids(10), Starred: true, WithChildren: true})

		for _, child := range s.Mails.ChildrenOf(10) {
			assert.True(t, child.Starred)
		}
		got, _ := s.Mails.Get(10)
		assert.True(t, got.HasStarredChildren)
	})
}

func TestApplyDelete(t *testing.T) {
	t.Run("draft delete shrinks and dirties", func(t *testing.T) {
		s := NewState(20, true)
		seed(s, models.FolderDraft, 10, msg(5, models.FolderDraft), msg(4, models.FolderDraft), msg(3, models.FolderDraft))

		s.Apply(Delete{Folder: models.FolderDraft, IDs: ids(4)})

		draft := folderState(t, s, models.FolderDraft)
		assert.Equal(t, ids(5, 3), draft.IDs)
		assert.Equal(t, 9, draft.TotalCount)
		assert.True(t, draft.Dirty)
	})

	t.Run("delete dirties every cached disposal folder", func(t *testing.T) {
		s := NewState(20, true)
		seed(s, models.FolderTrash, 2, msg(2, models.FolderTrash), msg(1, models.FolderTrash))
		seed(s, models.FolderSpam, 1, msg(3, models.FolderSpam))

		s.Apply(Delete{Folder: models.FolderTrash, IDs: ids(1), ForAll: true})

		trash := folderState(t, s, models.FolderTrash)
		assert.Equal(t, ids(2), trash.IDs)
		assert.Equal(t, 1, trash.TotalCount)
		spam := folderState(t, s, models.FolderSpam)
		assert.Equal(t, 1, spam.TotalCount)
		assert.True(t, spam.Dirty)
		assert.False(t, s.Folders.Has(models.FolderDraft))
	})

	t.Run("deleted draft reply leaves its thread", func(t *testing.T) {
		s := NewState(20, true)
		parent := msg(10, models.FolderInbox)
		parent.HasChildren = true
		parent.ChildrenCount = 1
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: 1}
		seed(s, models.FolderInbox, 1, parent)
		seed(s, models.FolderDraft, 1, reply(11, 10, models.FolderDraft))

		s.Apply(Delete{Folder: models.FolderDraft, IDs: ids(11)})

		got, _ := s.Mails.Get(10)
		assert.False(t, got.HasChildren)
		assert.Equal(t, 0, got.ChildrenCount)
		assert.Equal(t, 0, got.ChildrenFolderInfo.NonTrashChildrenCount)
	})
}

func TestCountsNeverNegative(t *testing.T) {
	s := NewState(20, true)
	s.CurrentFolder = models.FolderUnread
	seed(s, models.FolderUnread, 0, msg(3, models.FolderInbox), msg(2, models.FolderInbox))
	s.Folders.Set(models.FolderDraft, FolderState{IDs: ids(3, 2), TotalCount: 1})
	s.Folders.Set(models.FolderInbox, FolderState{IDs: ids(3, 2), TotalCount: 0})

	events := []Event{
		SetRead{IDs: ids(2, 3), Read: true},
		Delete{Folder: models.FolderDraft, IDs: ids(2, 3)},
		Move{Folder: models.FolderTrash, SourceFolder: models.FolderInbox, IDs: ids(2, 3)},
		SetStarred{IDs: ids(2), Starred: false},
		Delete{Folder: models.FolderDraft, IDs: ids(2, 3)},
	}
	for _, ev := range events {
		s.Apply(ev)
		for _, folder := range s.Folders.Folders() {
			f, _ := s.Folders.Get(folder)
			assert.GreaterOrEqual(t, f.TotalCount, 0, "folder %s after %s", folder, ev.Kind())
		}
	}
}

func TestApplyEmptyFolder(t *testing.T) {
	s := NewState(20, true)
	seed(s, models.FolderSpam, 2, msg(2, models.FolderSpam), msg(1, models.FolderSpam))
	seed(s, models.FolderInbox, 1, msg(3, models.FolderInbox))

	s.Apply(EmptyFolder{Folder: models.FolderSpam})

	assert.False(t, s.Folders.Has(models.FolderSpam))
	assert.False(t, s.Mails.Has(1))
	assert.True(t, s.Mails.Has(3))
}

func TestApplyUpdateCurrentFolder(t *testing.T) {
	t.Run("new reply bumps the parent and collapses", func(t *testing.T) {
		s := NewState(20, true)
		seed(s, models.FolderInbox, 2, msg(5, models.FolderInbox), msg(4, models.FolderInbox))

		s.Apply(UpdateCurrentFolder{Message: reply(9, 4, models.FolderInbox)})

		inbox := folderState(t, s, models.FolderInbox)
		assert.Equal(t, ids(4, 5), inbox.IDs)
		assert.Equal(t, 2, inbox.TotalCount)
		parent, _ := s.Mails.Get(4)
		assert.Equal(t, 1, parent.ChildrenCount)
	})

	t.Run("an update does not count as a new child", func(t *testing.T) {
		s := NewState(20, true)
		seed(s, models.FolderInbox, 1, msg(4, models.FolderInbox))
		update := reply(9, 4, models.FolderInbox)
		update.IsUpdate = true

		s.Apply(UpdateCurrentFolder{Message: update})

		parent, _ := s.Mails.Get(4)
		assert.Equal(t, 0, parent.ChildrenCount)
	})
}

func TestDecryptedCaches(t *testing.T) {
	s := NewState(20, true)
	encrypted := msg(1, models.FolderInbox)
	encrypted.IsSubjectEncrypted = true
	encrypted.Subject = "Q2lwaGVy"
	encrypted.EncryptionType = models.EncryptionPGPMIME
	seed(s, models.FolderInbox, 1, encrypted)

	s.Apply(DecryptedContentUpdate{Content: models.DecryptedContent{ID: 1, Subject: "Hello"}, SubjectOnly: true})
	s.Apply(SetAttachments{ID: 1, Attachments: []models.Attachment{{Name: "plan.pdf"}}})

	view := s.Project(models.FolderInbox)
	require.Len(t, view, 1)
	assert.Equal(t, "Hello", view[0].Subject)
	assert.False(t, view[0].IsSubjectEncrypted)
	assert.Equal(t, "plan.pdf", view[0].Attachments[0].Name)

	s.Apply(DecryptedContentUpdate{Content: models.DecryptedContent{ID: 2, InProgress: true}})
	content, ok := s.DecryptedContent(2)
	require.True(t, ok)
	assert.True(t, content.InProgress)
	_, ok = s.DecryptedSubject(2)
	assert.False(t, ok)
}

func TestUnreadCounts(t *testing.T) {
	s := NewState(20, true)
	s.Apply(UnreadCountsUpdate{Counts: models.UnreadCounts{models.FolderInbox: 3, models.FolderSpam: 4}})
	s.Apply(UnreadCountsUpdate{Counts: models.UnreadCounts{"work": 2}, Merge: true})

	summary := s.UnreadSummary()
	assert.Equal(t, 5, summary.Total)
	assert.Equal(t, 4, summary.Counts[models.FolderSpam])

	s.Apply(UnreadCountsUpdate{Counts: models.UnreadCounts{models.FolderInbox: 1}})
	assert.Equal(t, 1, s.UnreadSummary().Total)
}

func TestResetEvents(t *testing.T) {
	build := func() *State {
		s := NewState(20, true)
		s.CurrentFolder = models.FolderInbox
		seed(s, models.FolderInbox, 1, msg(1, models.FolderInbox))
		s.Apply(UnreadCountsUpdate{Counts: models.UnreadCounts{models.FolderInbox: 1}})
		s.Apply(DecryptedContentUpdate{Content: models.DecryptedContent{ID: 1, Subject: "x"}, SubjectOnly: true})
		return s
	}

	t.Run("toggling conversation mode keeps decrypted subjects", func(t *testing.T) {
		s := build()
		s.Apply(ToggleConversationMode{Enabled: false})

		assert.False(t, s.ConversationViewMode)
		assert.Equal(t, 0, s.Mails.Len())
		assert.Empty(t, s.Folders.Folders())
		assert.Equal(t, models.UnreadCounts{models.FolderInbox: 0}, s.Unread)
		_, ok := s.DecryptedSubject(1)
		assert.True(t, ok)
	})

	t.Run("logout clears everything", func(t *testing.T) {
		s := build()
		s.Apply(ClearOnLogout{})

		assert.Equal(t, 0, s.Mails.Len())
		assert.Empty(t, s.Folders.Folders())
		assert.Equal(t, models.Folder(""), s.CurrentFolder)
		_, ok := s.DecryptedSubject(1)
		assert.False(t, ok)
	})
}
