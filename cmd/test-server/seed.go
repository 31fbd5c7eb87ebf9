package main

import (
	"fmt"
	"time"

	"github.com/vdavid/mailview/internal/crypto"
	"github.com/vdavid/mailview/internal/decrypt"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/testutil"
)

// seedFolders are created next to INBOX, named as the IMAP service expects by default.
var seedFolders = []string{"Sent", "Drafts", "Trash", "Spam", "Archive"}

// seedMessages returns the fixture mailbox: a plain thread, a starred and an
// unread message, and one message per encryption scheme.
func seedMessages(encryptor *crypto.Encryptor, now time.Time) (map[string][]testutil.TestMessage, error) {
	secretSubject, err := encryptor.EncryptToString("Quarterly numbers")
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt subject: %w", err)
	}

	inlineCiphertext, err := encryptor.Encrypt("The vault code is 1234.\nDo not share it.")
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt inline body: %w", err)
	}
	inlineBody, err := decrypt.Armor(inlineCiphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to armor inline body: %w", err)
	}

	innerMIME := "Subject: Launch plan\r\n" +
		"MIME-Version: 1.0\r\n" +
		"Content-Type: multipart/mixed; boundary=\"inner\"\r\n\r\n" +
		"--inner\r\nContent-Type: text/html; charset=utf-8\r\n\r\n<p>We launch on Monday.</p>\r\n" +
		"--inner\r\nContent-Type: text/plain\r\nContent-Disposition: attachment; filename=\"checklist.txt\"\r\n\r\n1. Ship it\r\n" +
		"--inner--\r\n"
	sealedMIME, err := encryptor.EncryptToString(innerMIME)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt PGP/MIME body: %w", err)
	}

	return map[string][]testutil.TestMessage{
		"INBOX": {
			{
				MessageID: "<msg1@test>",
				Subject:   "Welcome to mailview",
				From:      "sender@example.com",
				To:        "test@example.com",
				SentAt:    now.Add(-5 * time.Hour),
				Seen:      true,
			},
			{
				MessageID: "<msg2@test>",
				Subject:   "Meeting Tomorrow",
				From:      "colleague@example.com",
				To:        "test@example.com",
				SentAt:    now.Add(-4 * time.Hour),
				Flagged:   true,
			},
			{
				MessageID: "<msg3@test>",
				InReplyTo: "<msg2@test>",
				Subject:   "Re: Meeting Tomorrow",
				From:      "boss@example.com",
				To:        "test@example.com",
				SentAt:    now.Add(-3 * time.Hour),
			},
			{
				MessageID: "<enc-subject@test>",
				Subject:   secretSubject,
				From:      "finance@example.com",
				To:        "test@example.com",
				SentAt:    now.Add(-2 * time.Hour),
				Headers:   []string{imap.EncryptedSubjectHeader + ": true"},
			},
			{
				MessageID: "<enc-inline@test>",
				Subject:   "Vault",
				From:      "security@example.com",
				To:        "test@example.com",
				SentAt:    now.Add(-1 * time.Hour),
				Body:      "Content-Type: text/plain; charset=utf-8\r\n\r\n" + inlineBody,
			},
			{
				MessageID: "<enc-mime@test>",
				Subject:   "...",
				From:      "product@example.com",
				To:        "test@example.com",
				SentAt:    now,
				Body: "MIME-Version: 1.0\r\n" +
					"Content-Type: multipart/encrypted; protocol=\"application/pgp-encrypted\"; boundary=\"enc\"\r\n\r\n" +
					"--enc\r\nContent-Type: application/pgp-encrypted\r\n\r\nVersion: 1\r\n" +
					"--enc\r\nContent-Type: application/octet-stream\r\n\r\n" + sealedMIME + "\r\n" +
					"--enc--\r\n",
			},
		},
		"Sent": {
			{
				MessageID: "<sent1@test>",
				Subject:   "Report",
				From:      "test@example.com",
				To:        "reports@example.com",
				SentAt:    now.Add(-6 * time.Hour),
				Seen:      true,
			},
		},
		"Spam": {
			{
				MessageID: "<spam1@test>",
				Subject:   "You won!",
				From:      "lottery@example.net",
				To:        "test@example.com",
				SentAt:    now.Add(-30 * time.Minute),
			},
		},
	}, nil
}

// seedIMAP creates the folders and appends the fixture messages.
func seedIMAP(server *testutil.TestIMAPServer, encryptor *crypto.Encryptor, now time.Time) (int, error) {
	for _, folder := range append([]string{"INBOX"}, seedFolders...) {
		if err := server.CreateFolder(folder); err != nil {
			return 0, err
		}
	}

	messages, err := seedMessages(encryptor, now)
	if err != nil {
		return 0, err
	}

	count := 0
	for folder, batch := range messages {
		for _, msg := range batch {
			if _, err := server.AppendMessage(folder, msg); err != nil {
				return count, fmt.Errorf("failed to add message %s: %w", msg.MessageID, err)
			}
			count++
		}
	}
	return count, nil
}
