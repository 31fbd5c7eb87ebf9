// Package decrypt recovers the plaintext of encrypted messages and reports it
// as mail state events. Encrypted subjects and bodies carry base64 AES-GCM
// ciphertext sealed with the server key; a PGP/MIME body decrypts to a whole
// MIME document, an inline body to plain text inside PGP armor.
package decrypt

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"log"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp/armor"
	"github.com/jhillyerd/enmime"
	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

const armorType = "PGP MESSAGE"

// Decrypter produces the follow-up events for encrypted messages.
type Decrypter struct {
	encryptor *crypto.Encryptor
}

// New creates a Decrypter over the server key.
func New(encryptor *crypto.Encryptor) *Decrypter {
	return &Decrypter{encryptor: encryptor}
}

// NeedsDecryption reports whether a message has an encrypted subject or body.
func NeedsDecryption(m models.Message) bool {
	return m.IsSubjectEncrypted || m.EncryptionType != models.EncryptionNone
}

// Messages returns the follow-up events for every encrypted message in the
// batch. It stops early when ctx is canceled.
func (d *Decrypter) Messages(ctx context.Context, messages []models.Message) []mailstate.Event {
	var events []mailstate.Event
	for _, m := range messages {
		if ctx.Err() != nil {
			break
		}
		events = append(events, d.Message(m)...)
	}
	return events
}

// Message returns the follow-up events for one message. Messages that are
// not encrypted yield none.
func (d *Decrypter) Message(m models.Message) []mailstate.Event {
	switch m.EncryptionType {
	case models.EncryptionPGPMIME:
		return d.pgpMIME(m)
	case models.EncryptionInline:
		return d.inline(m)
	}

	if !m.IsSubjectEncrypted {
		return nil
	}
	subject, err := d.encryptor.DecryptString(m.Subject)
	if err != nil {
		log.Printf("Decrypt: failed to decrypt subject of message %d: %v", m.ID, err)
		return nil
	}
	return []mailstate.Event{mailstate.DecryptedContentUpdate{
		Content:     models.DecryptedContent{ID: m.ID, Subject: subject},
		SubjectOnly: true,
	}}
}

func (d *Decrypter) pgpMIME(m models.Message) []mailstate.Event {
	plaintext, err := d.encryptor.DecryptString(m.Content)
	if err != nil {
		log.Printf("Decrypt: failed to decrypt PGP/MIME body of message %d: %v", m.ID, err)
		return failed(m.ID)
	}

	envelope, err := enmime.ReadEnvelope(strings.NewReader(plaintext))
	if err != nil {
		log.Printf("Decrypt: failed to parse decrypted body of message %d: %v", m.ID, err)
		return failed(m.ID)
	}

	content := envelope.HTML
	if content == "" {
		content = textToHTML(envelope.Text)
	}
	decrypted := models.DecryptedContent{
		ID:           m.ID,
		Subject:      envelope.GetHeader("Subject"),
		Content:      content,
		ContentPlain: envelope.Text,
	}
	if decrypted.Subject == "" {
		decrypted.Subject = d.subject(m)
	}

	events := []mailstate.Event{mailstate.DecryptedContentUpdate{Content: decrypted}}
	if attachments := attachmentsOf(envelope, m.ID); len(attachments) > 0 {
		events = append(events, mailstate.SetAttachments{ID: m.ID, Attachments: attachments})
	}
	return events
}

func (d *Decrypter) inline(m models.Message) []mailstate.Event {
	ciphertext, err := Dearmor(m.Content)
	if err != nil {
		log.Printf("Decrypt: message %d: %v", m.ID, err)
		return failed(m.ID)
	}

	text, err := d.encryptor.Decrypt(ciphertext)
	if err != nil {
		log.Printf("Decrypt: failed to decrypt inline body of message %d: %v", m.ID, err)
		return failed(m.ID)
	}

	return []mailstate.Event{mailstate.DecryptedContentUpdate{Content: models.DecryptedContent{
		ID:           m.ID,
		Subject:      d.subject(m),
		Content:      textToHTML(text),
		ContentPlain: text,
	}}}
}

// subject returns the plaintext subject, decrypting it when needed. A subject
// that fails to decrypt is left empty so the cache keeps the ciphertext out.
func (d *Decrypter) subject(m models.Message) string {
	if !m.IsSubjectEncrypted {
		return m.Subject
	}
	subject, err := d.encryptor.DecryptString(m.Subject)
	if err != nil {
		log.Printf("Decrypt: failed to decrypt subject of message %d: %v", m.ID, err)
		return ""
	}
	return subject
}

func failed(id models.MessageID) []mailstate.Event {
	return []mailstate.Event{mailstate.DecryptedContentUpdate{
		Content: models.DecryptedContent{ID: id, DecryptError: true},
	}}
}

// Armor wraps ciphertext in PGP message armor, checksum included.
func Armor(ciphertext []byte) (string, error) {
	var buf bytes.Buffer
	w, err := armor.Encode(&buf, armorType, nil)
	if err != nil {
		return "", fmt.Errorf("failed to start PGP armor: %w", err)
	}
	if _, err := w.Write(ciphertext); err != nil {
		return "", fmt.Errorf("failed to write PGP armor: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to close PGP armor: %w", err)
	}
	out := buf.String()
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return out, nil
}

// Dearmor decodes the first PGP message armor block in armored and returns
// its ciphertext. Text around the block and armor headers are ignored.
func Dearmor(armored string) ([]byte, error) {
	block, err := armor.Decode(strings.NewReader(armored))
	if err != nil {
		return nil, fmt.Errorf("no PGP armor found: %w", err)
	}
	if block.Type != armorType {
		return nil, fmt.Errorf("unexpected PGP armor type %q", block.Type)
	}

	ciphertext, err := io.ReadAll(block.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read PGP armor: %w", err)
	}
	if len(ciphertext) == 0 {
		return nil, fmt.Errorf("empty PGP armor")
	}
	return ciphertext, nil
}

func textToHTML(text string) string {
	return strings.ReplaceAll(html.EscapeString(text), "\n", "<br>")
}

func attachmentsOf(envelope *enmime.Envelope, id models.MessageID) []models.Attachment {
	parts := append(append([]*enmime.Part{}, envelope.Attachments...), envelope.Inlines...)
	attachments := make([]models.Attachment, 0, len(parts))
	for i, part := range parts {
		attachments = append(attachments, models.Attachment{
			MessageID: int64(id),
			Name:      part.FileName,
			MimeType:  part.ContentType,
			SizeBytes: int64(len(part.Content)),
			IsInline:  i >= len(envelope.Attachments) || part.ContentID != "",
			ContentID: part.ContentID,
		})
	}
	return attachments
}
