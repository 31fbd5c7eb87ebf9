package mailstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vdavid/mailview/internal/models"
)

// ErrUnknownEvent is returned when an envelope names no known event kind.
var ErrUnknownEvent = errors.New("unknown event type")

// Envelope is the wire form of an event: {"type": "...", "payload": {...}}.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// idList accepts "5,4,3", [5,4,3] or 5 and always encodes as "5,4,3".
type idList []models.MessageID

func (l *idList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*l = nil
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		ids, err := models.ParseMessageIDs(s)
		if err != nil {
			return err
		}
		*l = ids
	case '[':
		var ids []models.MessageID
		if err := json.Unmarshal(b, &ids); err != nil {
			return err
		}
		*l = ids
	default:
		var id models.MessageID
		if err := json.Unmarshal(b, &id); err != nil {
			return err
		}
		*l = idList{id}
	}
	return nil
}

func (l idList) MarshalJSON() ([]byte, error) {
	return json.Marshal(models.JoinMessageIDs(l))
}

type fetchPayload struct {
	Folder         models.Folder    `json:"folder"`
	Mails          []models.Message `json:"mails"`
	TotalMailCount int              `json:"total_mail_count,omitempty"`
	Limit          int              `json:"limit,omitempty"`
	Offset         int              `json:"offset,omitempty"`
	IsNotFirstPage bool             `json:"is_not_first_page,omitempty"`
	IsFromSocket   bool             `json:"is_from_socket,omitempty"`
}

type movePayload struct {
	Folder       models.Folder    `json:"folder"`
	SourceFolder models.Folder    `json:"source_folder"`
	IDs          idList           `json:"ids"`
	Mails        []models.Message `json:"mails,omitempty"`
	WithChildren *bool            `json:"with_children,omitempty"`
}

type readPayload struct {
	IDs  idList `json:"ids"`
	Read bool   `json:"read"`
}

type starPayload struct {
	IDs          idList `json:"ids"`
	Starred      bool   `json:"starred"`
	WithChildren bool   `json:"with_children,omitempty"`
}

type deletePayload struct {
	Folder models.Folder `json:"folder"`
	IDs    idList        `json:"ids"`
}

type folderPayload struct {
	Folder models.Folder `json:"folder"`
}

type decryptedPayload struct {
	ID                      models.MessageID        `json:"id"`
	DecryptedContent        models.DecryptedContent `json:"decrypted_content"`
	IsPGPInProgress         bool                    `json:"is_pgp_in_progress,omitempty"`
	DecryptError            bool                    `json:"decrypt_error,omitempty"`
	IsDecryptingAllSubjects bool                    `json:"is_decrypting_all_subjects,omitempty"`
}

type attachmentsPayload struct {
	MessageID   models.MessageID    `json:"message_id"`
	Attachments []models.Attachment `json:"attachments"`
}

type unreadPayload struct {
	Counts            models.UnreadCounts `json:"counts"`
	UpdateUnreadCount bool                `json:"update_unread_count,omitempty"`
}

type togglePayload struct {
	Enabled bool `json:"enabled"`
}

// DecodeEvent parses an envelope into its event variant.
func DecodeEvent(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode event envelope: %w", err)
	}
	return env.Event()
}

// Event converts the envelope's payload into its event variant.
func (env Envelope) Event() (Event, error) {
	decode := func(v any) error {
		if len(env.Payload) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Payload, v); err != nil {
			return fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
		}
		return nil
	}

	switch env.Type {
	case KindFetch:
		var p fetchPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return Fetch{
			Folder:         p.Folder,
			Messages:       p.Mails,
			TotalCount:     p.TotalMailCount,
			Limit:          p.Limit,
			Offset:         p.Offset,
			IsNotFirstPage: p.IsNotFirstPage,
			FromSocket:     p.IsFromSocket,
		}, nil
	case KindMove:
		var p movePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return Move{Folder: p.Folder, SourceFolder: p.SourceFolder, IDs: p.IDs, Messages: p.Mails, WithChildren: p.WithChildren}, nil
	case KindUndoMove:
		var p movePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return UndoMove{Folder: p.Folder, SourceFolder: p.SourceFolder, IDs: p.IDs, Messages: p.Mails}, nil
	case KindSetRead:
		var p readPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return SetRead{IDs: p.IDs, Read: p.Read}, nil
	case KindSetStarred:
		var p starPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return SetStarred{IDs: p.IDs, Starred: p.Starred, WithChildren: p.WithChildren}, nil
	case KindDelete, KindDeleteForAll:
		var p deletePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return Delete{Folder: p.Folder, IDs: p.IDs, ForAll: env.Type == KindDeleteForAll}, nil
	case KindEmptyFolder:
		var p folderPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return EmptyFolder{Folder: p.Folder}, nil
	case KindUpdateCurrentFolder:
		var m models.Message
		if err := decode(&m); err != nil {
			return nil, err
		}
		return UpdateCurrentFolder{Message: m}, nil
	case KindDecryptedContentUpdate:
		var p decryptedPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		content := p.DecryptedContent
		content.ID = p.ID
		content.InProgress = p.IsPGPInProgress
		content.DecryptError = p.DecryptError
		return DecryptedContentUpdate{Content: content, SubjectOnly: p.IsDecryptingAllSubjects}, nil
	case KindSetAttachments:
		var p attachmentsPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return SetAttachments{ID: p.MessageID, Attachments: p.Attachments}, nil
	case KindSetCurrentFolder:
		var p folderPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return SetCurrentFolder{Folder: p.Folder}, nil
	case KindUnreadCounts:
		var p unreadPayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return UnreadCountsUpdate{Counts: p.Counts, Merge: p.UpdateUnreadCount}, nil
	case KindToggleConversationMode:
		var p togglePayload
		if err := decode(&p); err != nil {
			return nil, err
		}
		return ToggleConversationMode{Enabled: p.Enabled}, nil
	case KindClearOnLogout:
		return ClearOnLogout{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Type)
}

// EncodeEvent renders an event as an envelope.
func EncodeEvent(ev Event) ([]byte, error) {
	var payload any
	switch e := ev.(type) {
	case Fetch:
		payload = fetchPayload{
			Folder:         e.Folder,
			Mails:          e.Messages,
			TotalMailCount: e.TotalCount,
			Limit:          e.Limit,
			Offset:         e.Offset,
			IsNotFirstPage: e.IsNotFirstPage,
			IsFromSocket:   e.FromSocket,
		}
	case Move:
		payload = movePayload{Folder: e.Folder, SourceFolder: e.SourceFolder, IDs: e.IDs, Mails: e.Messages, WithChildren: e.WithChildren}
	case UndoMove:
		payload = movePayload{Folder: e.Folder, SourceFolder: e.SourceFolder, IDs: e.IDs, Mails: e.Messages}
	case SetRead:
		payload = readPayload{IDs: e.IDs, Read: e.Read}
	case SetStarred:
		payload = starPayload{IDs: e.IDs, Starred: e.Starred, WithChildren: e.WithChildren}
	case Delete:
		payload = deletePayload{Folder: e.Folder, IDs: e.IDs}
	case EmptyFolder:
		payload = folderPayload{Folder: e.Folder}
	case UpdateCurrentFolder:
		payload = e.Message
	case DecryptedContentUpdate:
		payload = decryptedPayload{
			ID:                      e.Content.ID,
			DecryptedContent:        e.Content,
			IsPGPInProgress:         e.Content.InProgress,
			DecryptError:            e.Content.DecryptError,
			IsDecryptingAllSubjects: e.SubjectOnly,
		}
	case SetAttachments:
		payload = attachmentsPayload{MessageID: e.ID, Attachments: e.Attachments}
	case SetCurrentFolder:
		payload = folderPayload{Folder: e.Folder}
	case UnreadCountsUpdate:
		payload = unreadPayload{Counts: e.Counts, UpdateUnreadCount: e.Merge}
	case ToggleConversationMode:
		payload = togglePayload{Enabled: e.Enabled}
	case ClearOnLogout:
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownEvent, ev)
	}

	env := Envelope{Type: ev.Kind()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s payload: %w", ev.Kind(), err)
		}
		env.Payload = raw
	}
	return json.Marshal(env)
}

// AsPush marks a fetch as arriving over a push channel. Other events are
// returned unchanged.
func AsPush(ev Event) Event {
	if f, ok := ev.(Fetch); ok {
		f.FromSocket = true
		return f
	}
	return ev
}
