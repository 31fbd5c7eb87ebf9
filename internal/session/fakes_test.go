package session

import (
	"context"
	"errors"
	"sync"

	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

type fakeSettings struct {
	mu       sync.Mutex
	settings map[string]*models.UserSettings
	calls    int
	err      error
}

func (f *fakeSettings) GetUserSettings(_ context.Context, userID string) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	s, ok := f.settings[userID]
	if !ok {
		return nil, db.ErrUserSettingsNotFound
	}
	return s, nil
}

type fakeHub struct {
	mu     sync.Mutex
	active int
	sent   [][]byte
}

func (h *fakeHub) ActiveConnections(string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active
}

func (h *fakeHub) Send(_ string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sent = append(h.sent, payload)
}

func (h *fakeHub) messages() [][]byte {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([][]byte(nil), h.sent...)
}

// fakeIMAP records listener lifecycles and serves canned folder pages.
type fakeIMAP struct {
	mu       sync.Mutex
	started  chan string
	stopped  chan string
	pages    map[models.Folder][]models.Message
	requests []imap.FetchRequest
	failFor  models.Folder
}

func newFakeIMAP() *fakeIMAP {
	return &fakeIMAP{
		started: make(chan string, 4),
		stopped: make(chan string, 4),
		pages:   make(map[models.Folder][]models.Message),
	}
}

func (f *fakeIMAP) FetchFolder(_ context.Context, _ string, req imap.FetchRequest) (mailstate.Fetch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.Folder == f.failFor {
		return mailstate.Fetch{}, errors.New("server unavailable")
	}
	messages := f.pages[req.Folder]
	return mailstate.Fetch{Folder: req.Folder, Messages: messages, TotalCount: len(messages), Limit: req.Limit}, nil
}

func (f *fakeIMAP) ListFolders(context.Context, string) ([]models.Folder, error) {
	return nil, nil
}

func (f *fakeIMAP) StartIdleListener(ctx context.Context, userID string, _ imap.ConnectionCounter, _ imap.EventSink) {
	f.started <- userID
	<-ctx.Done()
	f.stopped <- userID
}

func (f *fakeIMAP) Close() {}

func (f *fakeIMAP) fetchedFolders() []models.Folder {
	f.mu.Lock()
	defer f.mu.Unlock()
	folders := make([]models.Folder, 0, len(f.requests))
	for _, r := range f.requests {
		folders = append(folders, r.Folder)
	}
	return folders
}
