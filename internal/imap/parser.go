package imap

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"io"
	"math"
	"strings"
	"time"

	"github.com/emersion/go-imap"
	"github.com/jhillyerd/enmime"
	"github.com/vdavid/mailview/internal/models"
)

const (
	// EncryptedSubjectHeader marks a message whose Subject is ciphertext.
	EncryptedSubjectHeader = "X-Mailview-Subject-Encrypted"

	pgpArmorBegin = "-----BEGIN PGP MESSAGE-----"
)

// MessageIDFromHeader derives the stable id of a message from its Message-ID
// header. The same header always yields the same positive id.
func MessageIDFromHeader(header string) models.MessageID {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.Trim(strings.TrimSpace(header), "<>")))
	id := h.Sum64() & math.MaxInt64
	if id == 0 {
		id = 1
	}
	return models.MessageID(id)
}

// messageIDOf returns the stable id of an IMAP message. Messages without a
// Message-ID header are keyed by mailbox and UID.
func messageIDOf(imapMsg *imap.Message, mailbox string) models.MessageID {
	if imapMsg.Envelope != nil && imapMsg.Envelope.MessageId != "" {
		return MessageIDFromHeader(imapMsg.Envelope.MessageId)
	}
	return MessageIDFromHeader(fmt.Sprintf("%s/%d", mailbox, imapMsg.Uid))
}

// ParseMessage converts an IMAP message to our Message model.
// Threading fields are left for the caller.
func ParseMessage(imapMsg *imap.Message, mailbox string, folder models.Folder) (models.Message, error) {
	if imapMsg == nil {
		return models.Message{}, fmt.Errorf("imap message is nil")
	}

	msg := models.Message{
		ID:      messageIDOf(imapMsg, mailbox),
		Folder:  folder,
		Updated: imapMsg.InternalDate,
	}

	for _, flag := range imapMsg.Flags {
		switch flag {
		case imap.SeenFlag:
			msg.Read = true
		case imap.FlaggedFlag:
			msg.Starred = true
		}
	}

	if env := imapMsg.Envelope; env != nil {
		msg.Subject = env.Subject
		if len(env.From) > 0 {
			msg.Sender = formatAddress(env.From[0])
		}
		msg.ReceiverDisplay = displayList(env.To, env.Cc)
		if msg.Updated.IsZero() {
			msg.Updated = env.Date
		}
	}
	msg.Updated = msg.Updated.UTC().Truncate(time.Second)

	if body := imapMsg.GetBody(bodySection); body != nil {
		if err := parseBody(body, &msg); err != nil {
			return msg, fmt.Errorf("failed to parse body of UID %d: %w", imapMsg.Uid, err)
		}
	}

	return msg, nil
}

// parseBody parses the email body using enmime.
func parseBody(bodyReader io.Reader, msg *models.Message) error {
	raw, err := io.ReadAll(bodyReader)
	if err != nil {
		return fmt.Errorf("failed to read body: %w", err)
	}

	envelope, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to parse email body: %w", err)
	}

	if strings.EqualFold(envelope.GetHeader(EncryptedSubjectHeader), "true") {
		msg.IsSubjectEncrypted = true
	}

	if payload, ok := pgpMIMEPayload(envelope); ok {
		msg.EncryptionType = models.EncryptionPGPMIME
		msg.Content = payload
		return nil
	}

	if strings.HasPrefix(strings.TrimSpace(envelope.Text), pgpArmorBegin) {
		msg.EncryptionType = models.EncryptionInline
		msg.Content = strings.TrimSpace(envelope.Text)
		return nil
	}

	htmlBody := envelope.HTML
	if htmlBody == "" {
		htmlBody = strings.ReplaceAll(envelope.Text, "\n", "<br>")
	}
	msg.Content = htmlBody
	msg.Attachments = AttachmentsOf(envelope, msg.ID)

	return nil
}

// AttachmentsOf lists the attachments and inline parts of a parsed message.
func AttachmentsOf(envelope *enmime.Envelope, messageID models.MessageID) []models.Attachment {
	var attachments []models.Attachment
	add := func(part *enmime.Part, inline bool) {
		attachments = append(attachments, models.Attachment{
			MessageID: int64(messageID),
			Name:      part.FileName,
			MimeType:  part.ContentType,
			SizeBytes: int64(len(part.Content)),
			IsInline:  inline || part.ContentID != "",
			ContentID: part.ContentID,
		})
	}
	for _, part := range envelope.Attachments {
		add(part, false)
	}
	for _, part := range envelope.Inlines {
		add(part, true)
	}
	return attachments
}

// pgpMIMEPayload returns the encrypted part of a multipart/encrypted message.
func pgpMIMEPayload(envelope *enmime.Envelope) (string, bool) {
	if envelope.Root == nil || envelope.Root.ContentType != "multipart/encrypted" {
		return "", false
	}
	for part := envelope.Root.FirstChild; part != nil; part = part.NextSibling {
		if part.ContentType == "application/octet-stream" {
			return strings.TrimSpace(string(part.Content)), true
		}
	}
	return "", false
}

// formatAddress formats an IMAP address to a string.
func formatAddress(address *imap.Address) string {
	if address == nil {
		return ""
	}

	if address.MailboxName == "" && address.HostName == "" {
		return ""
	}

	if address.PersonalName != "" {
		return fmt.Sprintf("%s <%s@%s>", address.PersonalName, address.MailboxName, address.HostName)
	}

	return fmt.Sprintf("%s@%s", address.MailboxName, address.HostName)
}

// displayList flattens address lists into name/email pairs.
func displayList(lists ...[]*imap.Address) []models.EmailDisplay {
	var result []models.EmailDisplay
	for _, addresses := range lists {
		for _, address := range addresses {
			if address == nil || address.MailboxName == "" {
				continue
			}
			result = append(result, models.EmailDisplay{
				Name:  address.PersonalName,
				Email: address.MailboxName + "@" + address.HostName,
			})
		}
	}
	return result
}
