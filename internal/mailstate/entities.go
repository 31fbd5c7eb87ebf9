package mailstate

import (
	"sort"

	"github.com/vdavid/mailview/internal/models"
)

// EntityStore maps message ids to message records. It is the only
// authoritative copy of a message: records go in and come out as copies, and
// in-place changes happen through Update.
type EntityStore struct {
	mails map[models.MessageID]models.Message
}

// NewEntityStore returns an empty store.
func NewEntityStore() *EntityStore {
	return &EntityStore{mails: make(map[models.MessageID]models.Message)}
}

// Upsert stores each message by id, replacing any previous record wholesale.
func (s *EntityStore) Upsert(batch ...models.Message) {
	for _, m := range batch {
		s.mails[m.ID] = m.Clone()
	}
}

// Get returns a copy of the message with the given id.
func (s *EntityStore) Get(id models.MessageID) (models.Message, bool) {
	m, ok := s.mails[id]
	if !ok {
		return models.Message{}, false
	}
	return m.Clone(), true
}

// Has reports whether the store holds a message with the given id.
func (s *EntityStore) Has(id models.MessageID) bool {
	_, ok := s.mails[id]
	return ok
}

// Update applies fn to a copy of the stored message and stores the result.
// It returns false, without calling fn, when the id is unknown.
func (s *EntityStore) Update(id models.MessageID, fn func(m *models.Message)) bool {
	m, ok := s.mails[id]
	if !ok {
		return false
	}
	m = m.Clone()
	fn(&m)
	m.ID = id
	s.mails[id] = m
	return true
}

// Delete removes the given ids. Unknown ids are ignored.
func (s *EntityStore) Delete(ids ...models.MessageID) {
	for _, id := range ids {
		delete(s.mails, id)
	}
}

// DeleteWhere removes every message for which match returns true.
func (s *EntityStore) DeleteWhere(match func(m models.Message) bool) int {
	removed := 0
	for id, m := range s.mails {
		if match(m) {
			delete(s.mails, id)
			removed++
		}
	}
	return removed
}

// ChildrenOf returns copies of the stored messages whose parent is id, ordered by id.
func (s *EntityStore) ChildrenOf(id models.MessageID) []models.Message {
	var children []models.Message
	for _, m := range s.mails {
		if m.Parent == id && m.ID != id {
			children = append(children, m.Clone())
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children
}

// Len returns the number of stored messages.
func (s *EntityStore) Len() int {
	return len(s.mails)
}

// Clear drops every stored message.
func (s *EntityStore) Clear() {
	s.mails = make(map[models.MessageID]models.Message)
}
