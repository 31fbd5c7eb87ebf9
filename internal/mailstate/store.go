package mailstate

import (
	"sync"

	"github.com/google/uuid"
	"github.com/vdavid/mailview/internal/models"
)

// Update is what subscribers receive after each dispatched event.
type Update struct {
	Seq    uint64        `json:"seq"`
	Kind   Kind          `json:"kind"`
	View   View          `json:"view"`
	Unread UnreadSummary `json:"unread"`
}

// Store serializes all access to a State. Dispatch is the single entry point
// for mutation; events are applied strictly in the order Dispatch is called.
type Store struct {
	mu    sync.Mutex
	state *State
	seq   uint64

	// notifyMu serializes whole dispatches, apply plus notification, so
	// subscribers see updates in dispatch order. mu is held only while the
	// state changes; subscribers run without it and may read the store.
	notifyMu    sync.Mutex
	subsMu      sync.RWMutex
	subscribers map[uuid.UUID]func(Update)
}

// NewStore returns a store around an empty State.
func NewStore(pageLimit int, conversationViewMode bool) *Store {
	return &Store{
		state:       NewState(pageLimit, conversationViewMode),
		subscribers: make(map[uuid.UUID]func(Update)),
	}
}

// Dispatch applies one event and notifies subscribers with the resulting view.
func (s *Store) Dispatch(ev Event) Update {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	s.state.Apply(ev)
	s.seq++
	update := Update{
		Seq:    s.seq,
		Kind:   ev.Kind(),
		View:   s.state.View(),
		Unread: s.state.UnreadSummary(),
	}
	s.mu.Unlock()

	s.subsMu.RLock()
	subscribers := make([]func(Update), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subscribers = append(subscribers, fn)
	}
	s.subsMu.RUnlock()

	for _, fn := range subscribers {
		fn(update)
	}
	return update
}

// Subscribe registers fn to be called after every dispatched event. The
// returned function removes the subscription. fn may read the store but must
// not call Dispatch.
func (s *Store) Subscribe(fn func(Update)) (cancel func()) {
	id := uuid.New()
	s.subsMu.Lock()
	s.subscribers[id] = fn
	s.subsMu.Unlock()

	return func() {
		s.subsMu.Lock()
		delete(s.subscribers, id)
		s.subsMu.Unlock()
	}
}

// Read runs fn with the state locked. fn must not retain the state.
func (s *Store) Read(fn func(st *State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.state)
}

// View returns the active folder's view.
func (s *Store) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.View()
}

// ViewOf returns the view of folder without changing the active folder.
func (s *Store) ViewOf(folder models.Folder) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ViewOf(folder)
}

// UnreadSummary returns the unread counts.
func (s *Store) UnreadSummary() UnreadSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.UnreadSummary()
}

// FolderState returns a copy of a folder's cached state.
func (s *Store) FolderState(folder models.Folder) (FolderState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Folders.Get(folder)
}

// DirtyFolders returns the cached folders flagged for refetch.
func (s *Store) DirtyFolders() []models.Folder {
	s.mu.Lock()
	defer s.mu.Unlock()
	var dirty []models.Folder
	for _, folder := range s.state.Folders.Folders() {
		if f, _ := s.state.Folders.Get(folder); f.Dirty {
			dirty = append(dirty, folder)
		}
	}
	return dirty
}

// PageLimit returns the configured folder page size.
func (s *Store) PageLimit() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.PageLimit
}

// ConversationViewMode reports whether thread collapsing is on.
func (s *Store) ConversationViewMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.ConversationViewMode
}
