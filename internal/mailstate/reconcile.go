package mailstate

import "github.com/vdavid/mailview/internal/models"

func (s *State) applyFetch(e Fetch) {
	limit := s.limitOr(e.Limit)

	if e.FromSocket {
		s.countNewChildren(e.Messages)
	}
	s.Mails.Upsert(e.Messages...)

	if !e.FromSocket {
		ids := uniqueIDs(e.Messages)
		if len(ids) > limit {
			ids = ids[:limit]
		}
		s.Folders.Set(e.Folder, FolderState{
			IDs:            ids,
			TotalCount:     max(e.TotalCount, len(ids)),
			IsNotFirstPage: e.IsNotFirstPage,
			Offset:         e.Offset,
		})
		return
	}

	// A push only touches folders that are already cached.
	if cached, ok := s.Folders.Get(e.Folder); ok {
		if !cached.IsNotFirstPage {
			res := mergeIDs(e.Messages, cached.IDs, limit, s.ConversationViewMode)
			cached.TotalCount = mergeTotal(cached, res)
			cached.IDs = res.ids
		}
		if e.TotalCount > 0 {
			cached.TotalCount = max(e.TotalCount, len(cached.IDs))
		}
		s.Folders.Set(e.Folder, cached)
	}

	if e.Folder != models.FolderUnread && e.Folder != models.FolderSpam {
		s.mergeInto(models.FolderUnread, unreadOnly(e.Messages), limit)
	}
	if e.Folder != models.FolderAllEmails && e.Folder != models.FolderSpam {
		s.mergeInto(models.FolderAllEmails, e.Messages, limit)
	}
}

// mergeInto merges a pushed batch into another cached folder's first page.
func (s *State) mergeInto(folder models.Folder, batch []models.Message, limit int) {
	if len(batch) == 0 {
		return
	}
	cached, ok := s.Folders.Get(folder)
	if !ok || cached.IsNotFirstPage {
		return
	}
	res := mergeIDs(batch, cached.IDs, limit, s.ConversationViewMode)
	cached.TotalCount = mergeTotal(cached, res)
	cached.IDs = res.ids
	s.Folders.Set(folder, cached)
}

// countNewChildren bumps the children counts of stored parents for replies
// the store has not seen yet. It must run before the batch is upserted.
func (s *State) countNewChildren(batch []models.Message) {
	inBatch := idSet(uniqueIDs(batch))
	seen := make(map[models.MessageID]bool, len(batch))
	for _, m := range batch {
		if m.Parent == 0 || m.Parent == m.ID || inBatch[m.Parent] || seen[m.ID] || s.Mails.Has(m.ID) {
			continue
		}
		seen[m.ID] = true
		s.Mails.Update(m.Parent, func(p *models.Message) { addChild(p, m.Folder) })
	}
}

func addChild(parent *models.Message, childFolder models.Folder) {
	parent.HasChildren = true
	parent.ChildrenCount++
	if parent.ChildrenFolderInfo == nil {
		parent.ChildrenFolderInfo = &models.ChildrenFolderInfo{}
	}
	if childFolder == models.FolderTrash {
		parent.ChildrenFolderInfo.TrashChildrenCount++
	} else {
		parent.ChildrenFolderInfo.NonTrashChildrenCount++
	}
}

// shiftChildToTrash moves one child of parentID between the trash and
// non-trash counts. Parents without folder info are left alone.
func (s *State) shiftChildToTrash(parentID models.MessageID, toTrash bool) {
	s.Mails.Update(parentID, func(p *models.Message) {
		info := p.ChildrenFolderInfo
		if info == nil {
			return
		}
		if toTrash {
			info.TrashChildrenCount++
			info.NonTrashChildrenCount = floorZero(info.NonTrashChildrenCount - 1)
		} else {
			info.NonTrashChildrenCount++
			info.TrashChildrenCount = floorZero(info.TrashChildrenCount - 1)
		}
	})
}

// setThreadSide puts every child of a parent on one side of the trash boundary.
func setThreadSide(m *models.Message, inTrash bool) {
	if inTrash {
		m.ChildrenFolderInfo = &models.ChildrenFolderInfo{TrashChildrenCount: m.ChildrenCount}
	} else {
		m.ChildrenFolderInfo = &models.ChildrenFolderInfo{NonTrashChildrenCount: m.ChildrenCount}
	}
}

func (s *State) applyMove(e Move) {
	moved := idSet(e.IDs)
	records := s.records(e.IDs)

	if e.SourceFolder != "" {
		if src, ok := s.Folders.Get(e.SourceFolder); ok {
			var removed int
			src.IDs, removed = removeIDs(src.IDs, moved)
			src.TotalCount = floorZero(src.TotalCount - removed)
			s.Folders.Set(e.SourceFolder, src)
		}
	}

	if dst, ok := s.Folders.Get(e.Folder); ok && e.Folder != e.SourceFolder {
		res := mergeIDs(records, dst.IDs, s.PageLimit, s.ConversationViewMode)
		dst.TotalCount = mergeTotal(dst, res)
		dst.IDs = sortByUpdated(res.ids, s.Mails)
		s.Folders.Set(e.Folder, dst)
	}

	for _, folder := range s.Folders.Folders() {
		if folder == e.SourceFolder || folder == e.Folder || folder == s.CurrentFolder {
			continue
		}
		s.Folders.MarkDirty(folder)
	}

	cascade := e.WithChildren == nil || *e.WithChildren
	intoTrash := e.Folder == models.FolderTrash && e.SourceFolder != models.FolderTrash
	outOfTrash := e.SourceFolder == models.FolderTrash && e.Folder != models.FolderTrash

	for _, m := range records {
		threadMoved := m.HasChildren && m.ChildrenCount > 0 && ((intoTrash && cascade) || outOfTrash)
		s.Mails.Update(m.ID, func(stored *models.Message) {
			stored.Folder = e.Folder
			if threadMoved {
				setThreadSide(stored, intoTrash)
			}
		})
		if threadMoved {
			for _, child := range s.Mails.ChildrenOf(m.ID) {
				if moved[child.ID] {
					continue
				}
				if child.Folder != e.Folder {
					s.unlist(child.Folder, child.ID)
				}
				s.Mails.Update(child.ID, func(c *models.Message) { c.Folder = e.Folder })
			}
		}
	}

	children := e.Messages
	if len(children) == 0 {
		children = records
	}
	for _, child := range children {
		if child.Parent == 0 || moved[child.Parent] {
			continue
		}
		switch {
		case intoTrash:
			s.shiftChildToTrash(child.Parent, true)
		case outOfTrash:
			s.shiftChildToTrash(child.Parent, false)
		}
	}
}

func (s *State) applyUndoMove(e UndoMove) {
	restored := idSet(e.IDs)

	records := make([]models.Message, 0, len(e.IDs))
	if len(e.Messages) > 0 {
		for _, m := range e.Messages {
			if len(restored) > 0 && !restored[m.ID] {
				continue
			}
			m = m.Clone()
			m.Folder = e.SourceFolder
			records = append(records, m)
		}
		s.Mails.Upsert(records...)
	} else {
		for _, id := range e.IDs {
			s.Mails.Update(id, func(m *models.Message) { m.Folder = e.SourceFolder })
		}
		records = s.records(e.IDs)
	}
	if len(restored) == 0 {
		restored = idSet(uniqueIDs(records))
	}

	if src, ok := s.Folders.Get(e.SourceFolder); ok {
		res := mergeIDs(records, src.IDs, s.PageLimit, s.ConversationViewMode)
		src.TotalCount = mergeTotal(src, res)
		src.IDs = sortByUpdated(res.ids, s.Mails)
		s.Folders.Set(e.SourceFolder, src)
	}
	if e.Folder != e.SourceFolder {
		s.Folders.MarkDirty(e.Folder)
	}

	backToTrash := e.SourceFolder == models.FolderTrash && e.Folder != models.FolderTrash
	outOfTrash := e.Folder == models.FolderTrash && e.SourceFolder != models.FolderTrash

	for _, m := range records {
		if m.HasChildren && m.ChildrenCount > 0 && (backToTrash || outOfTrash) {
			s.Mails.Update(m.ID, func(stored *models.Message) { setThreadSide(stored, backToTrash) })
		}
		if m.Parent == 0 || restored[m.Parent] {
			continue
		}
		switch {
		case backToTrash:
			s.shiftChildToTrash(m.Parent, true)
		case outOfTrash:
			s.shiftChildToTrash(m.Parent, false)
		}
	}
}

func (s *State) applySetRead(e SetRead) {
	for _, id := range e.IDs {
		s.Mails.Update(id, func(m *models.Message) { m.Read = e.Read })
	}

	if s.CurrentFolder != models.FolderUnread {
		s.Folders.MarkDirty(models.FolderUnread)
		return
	}
	unread, ok := s.Folders.Get(models.FolderUnread)
	if !ok || !e.Read {
		return
	}
	var removed int
	unread.IDs, removed = removeIDs(unread.IDs, idSet(e.IDs))
	unread.TotalCount = floorZero(unread.TotalCount - removed)
	s.Folders.Set(models.FolderUnread, unread)
}

func (s *State) applySetStarred(e SetStarred) {
	targets := idSet(e.IDs)
	for _, id := range e.IDs {
		s.Mails.Update(id, func(m *models.Message) { m.Starred = e.Starred })
		if e.WithChildren {
			for _, child := range s.Mails.ChildrenOf(id) {
				s.Mails.Update(child.ID, func(c *models.Message) { c.Starred = e.Starred })
			}
		}
	}

	// Recompute the thread flag on every touched parent.
	touched := make(map[models.MessageID]bool, len(e.IDs))
	for _, id := range e.IDs {
		touched[id] = true
		if m, ok := s.Mails.Get(id); ok && m.Parent != 0 {
			touched[m.Parent] = true
		}
	}
	for id := range touched {
		m, ok := s.Mails.Get(id)
		if !ok {
			continue
		}
		flag := s.threadHasStarred(m, targets[id], e)
		s.Mails.Update(id, func(stored *models.Message) { stored.HasStarredChildren = flag })
	}

	if s.CurrentFolder != models.FolderStarred {
		s.Folders.MarkDirty(models.FolderStarred)
		return
	}
	starred, ok := s.Folders.Get(models.FolderStarred)
	if !ok || e.Starred {
		return
	}
	kept := make([]models.MessageID, 0, len(starred.IDs))
	removed := 0
	for _, id := range starred.IDs {
		m, known := s.Mails.Get(id)
		if touched[id] && known && !m.Starred && !m.HasStarredChildren {
			removed++
			continue
		}
		kept = append(kept, id)
	}
	starred.IDs = kept
	starred.TotalCount = floorZero(starred.TotalCount - removed)
	s.Folders.Set(models.FolderStarred, starred)
}

// threadHasStarred decides a parent's has-starred-children flag after a star
// change. Stored children are authoritative; when none are stored the flag
// follows the operation.
func (s *State) threadHasStarred(m models.Message, targeted bool, e SetStarred) bool {
	children := s.Mails.ChildrenOf(m.ID)
	if len(children) == 0 {
		if !m.HasChildren {
			return m.Starred
		}
		if targeted {
			return e.Starred || !e.WithChildren
		}
		return m.HasStarredChildren
	}
	if m.Starred {
		return true
	}
	for _, child := range children {
		if child.Starred {
			return true
		}
	}
	return false
}

func (s *State) applyDelete(e Delete) {
	drop := idSet(e.IDs)
	for _, folder := range []models.Folder{models.FolderDraft, models.FolderTrash, models.FolderSpam} {
		cached, ok := s.Folders.Get(folder)
		if !ok {
			continue
		}
		var removed int
		cached.IDs, removed = removeIDs(cached.IDs, drop)
		cached.TotalCount = floorZero(cached.TotalCount - removed)
		cached.Dirty = true
		s.Folders.Set(folder, cached)
	}

	if e.Folder != models.FolderDraft {
		return
	}
	// A deleted draft reply no longer counts toward its thread.
	for _, id := range e.IDs {
		m, ok := s.Mails.Get(id)
		if !ok || m.Parent == 0 || drop[m.Parent] {
			continue
		}
		s.Mails.Update(m.Parent, func(p *models.Message) {
			p.ChildrenCount = floorZero(p.ChildrenCount - 1)
			p.HasChildren = p.ChildrenCount > 0
			if p.ChildrenFolderInfo != nil {
				p.ChildrenFolderInfo.NonTrashChildrenCount = floorZero(p.ChildrenFolderInfo.NonTrashChildrenCount - 1)
			}
		})
	}
}

func (s *State) applyEmptyFolder(e EmptyFolder) {
	s.Folders.Delete(e.Folder)
	s.Mails.DeleteWhere(func(m models.Message) bool { return m.Folder == e.Folder })
}

func (s *State) applyUpdateCurrentFolder(e UpdateCurrentFolder) {
	m := e.Message
	if m.Parent != 0 && m.Parent != m.ID && !m.IsUpdate && !s.Mails.Has(m.ID) {
		s.Mails.Update(m.Parent, func(p *models.Message) { addChild(p, m.Folder) })
	}
	s.Mails.Upsert(m)

	cached, ok := s.Folders.Get(m.Folder)
	if !ok || len(cached.IDs) == 0 {
		return
	}
	res := mergeIDs([]models.Message{m}, cached.IDs, s.PageLimit, s.ConversationViewMode)
	cached.TotalCount = mergeTotal(cached, res)
	cached.IDs = res.ids
	s.Folders.Set(m.Folder, cached)
}

func (s *State) applyDecryptedContent(e DecryptedContentUpdate) {
	c := e.Content
	if e.SubjectOnly {
		if !c.InProgress {
			s.decryptedSubjects[c.ID] = c.Subject
		}
		return
	}
	s.decryptedContents[c.ID] = c
	if !c.InProgress && !c.DecryptError && c.Subject != "" {
		s.decryptedSubjects[c.ID] = c.Subject
	}
}

func (s *State) applySetAttachments(e SetAttachments) {
	attachments := append([]models.Attachment(nil), e.Attachments...)
	s.decryptedAttachments[e.ID] = attachments
	s.Mails.Update(e.ID, func(m *models.Message) { m.Attachments = attachments })
}

func (s *State) applyUnreadCounts(e UnreadCountsUpdate) {
	if !e.Merge {
		s.Unread = make(models.UnreadCounts, len(e.Counts))
	}
	for folder, count := range e.Counts {
		s.Unread[folder] = count
	}
}

func (s *State) applyToggleConversationMode(e ToggleConversationMode) {
	s.ConversationViewMode = e.Enabled
	s.Mails.Clear()
	s.Folders.Clear()
	s.resetUnread()
}

func (s *State) applyClearOnLogout() {
	s.Mails.Clear()
	s.Folders.Clear()
	s.resetUnread()
	s.resetDecrypted()
	s.CurrentFolder = ""
}

// records returns the stored messages for ids, skipping unknown ones.
// unlist removes id from the cached listing of folder, counting it out of
// the folder total.
func (s *State) unlist(folder models.Folder, id models.MessageID) {
	f, ok := s.Folders.Get(folder)
	if !ok {
		return
	}
	var removed int
	f.IDs, removed = removeIDs(f.IDs, map[models.MessageID]bool{id: true})
	if removed == 0 {
		return
	}
	f.TotalCount = floorZero(f.TotalCount - removed)
	s.Folders.Set(folder, f)
}

func (s *State) records(ids []models.MessageID) []models.Message {
	out := make([]models.Message, 0, len(ids))
	for _, id := range ids {
		if m, ok := s.Mails.Get(id); ok {
			out = append(out, m)
		}
	}
	return out
}

func uniqueIDs(batch []models.Message) []models.MessageID {
	seen := make(map[models.MessageID]bool, len(batch))
	ids := make([]models.MessageID, 0, len(batch))
	for _, m := range batch {
		if seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		ids = append(ids, m.ID)
	}
	return ids
}

func unreadOnly(batch []models.Message) []models.Message {
	out := make([]models.Message, 0, len(batch))
	for _, m := range batch {
		if !m.Read {
			out = append(out, m)
		}
	}
	return out
}
