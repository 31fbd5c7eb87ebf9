// Package session keeps one mail state Store per user and wires it to the
// collaborators that feed it: the IMAP source and listener, the decrypter,
// and the websocket hub that receives every update.
package session

import (
	"context"
	"log"

	"github.com/vdavid/mailview/internal/decrypt"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// Session is one user's projection.
type Session struct {
	UserID string
	Store  *mailstate.Store

	decrypter *decrypt.Decrypter
}

// NewSession wraps a store. decrypter may be nil, in which case encrypted
// messages are left as they arrive.
func NewSession(userID string, store *mailstate.Store, decrypter *decrypt.Decrypter) *Session {
	return &Session{UserID: userID, Store: store, decrypter: decrypter}
}

// Apply dispatches ev, then decrypts any encrypted messages it carried and
// dispatches the results. Decryption runs outside the store lock, so other
// events may interleave with the follow-ups.
func (s *Session) Apply(ctx context.Context, ev mailstate.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.Store.Dispatch(ev)

	if s.decrypter == nil {
		return nil
	}
	var encrypted []models.Message
	for _, m := range messagesOf(ev) {
		if decrypt.NeedsDecryption(m) {
			encrypted = append(encrypted, m)
		}
	}
	if len(encrypted) == 0 {
		return nil
	}

	followUps := s.decrypter.Messages(ctx, encrypted)
	for _, followUp := range followUps {
		s.Store.Dispatch(followUp)
	}
	log.Printf("Session: applied %d decryption results for user %s", len(followUps), s.UserID)
	return ctx.Err()
}

// ConversationViewMode reports whether the user's projection collapses threads.
func (s *Session) ConversationViewMode() bool {
	return s.Store.ConversationViewMode()
}

// messagesOf returns the message records an event carries.
func messagesOf(ev mailstate.Event) []models.Message {
	switch e := ev.(type) {
	case mailstate.Fetch:
		return e.Messages
	case mailstate.Move:
		return e.Messages
	case mailstate.UndoMove:
		return e.Messages
	case mailstate.UpdateCurrentFolder:
		return []models.Message{e.Message}
	}
	return nil
}
