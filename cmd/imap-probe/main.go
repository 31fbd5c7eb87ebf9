// Command imap-probe checks whether an IMAP account works with mailview: it
// logs in, reports the capabilities mailview uses, maps the mailboxes to
// folders and parses the newest INBOX messages the way the server would.
//
// Credentials come from IMAP_SERVER, IMAP_USER and IMAP_PASSWORD.
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/emersion/go-imap"
	"github.com/vdavid/mailview/internal/models"

	mailimap "github.com/vdavid/mailview/internal/imap"
)

// newestCount is how many INBOX messages are parsed.
const newestCount = 5

// probedCapabilities are the extensions mailview uses when available.
var probedCapabilities = []string{"THREAD=REFERENCES", "IDLE"}

type probeConfig struct {
	server   string
	user     string
	password string
	useTLS   bool
}

func main() {
	log.Println("Starting IMAP probe...")

	cfg, err := configFromEnv()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if err := probe(cfg, os.Stdout); err != nil {
		log.Fatalf("Probe failed: %v", err)
	}
}

func configFromEnv() (probeConfig, error) {
	cfg := probeConfig{
		server:   os.Getenv("IMAP_SERVER"),
		user:     os.Getenv("IMAP_USER"),
		password: os.Getenv("IMAP_PASSWORD"),
		useTLS:   os.Getenv("IMAP_INSECURE") != "true",
	}
	if cfg.server == "" || cfg.user == "" || cfg.password == "" {
		return probeConfig{}, errors.New("IMAP_SERVER, IMAP_USER, and IMAP_PASSWORD environment variables are required")
	}
	return cfg, nil
}

func probe(cfg probeConfig, out io.Writer) error {
	c, err := mailimap.ConnectToIMAP(cfg.server, cfg.useTLS)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Logout(); err != nil {
			log.Printf("Failed to log out: %v", err)
		}
	}()

	if err := mailimap.Login(c, cfg.user, cfg.password); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(out, "Logged in")

	for _, capability := range probedCapabilities {
		supported, err := c.Support(capability)
		if err != nil {
			return fmt.Errorf("failed to check capabilities: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Capability %s: %t\n", capability, supported)
	}

	mailboxes, err := mailimap.ListFolders(c)
	if err != nil {
		return err
	}
	settings := &models.UserSettings{}
	for _, mailbox := range mailboxes {
		_, _ = fmt.Fprintf(out, "Mailbox %q -> folder %s\n", mailbox, mailimap.FolderForMailbox(settings, mailbox))
	}

	status, err := c.Select("INBOX", true)
	if err != nil {
		return fmt.Errorf("failed to select INBOX: %w", err)
	}
	_, _ = fmt.Fprintf(out, "INBOX: %d messages\n", status.Messages)

	uids, err := c.UidSearch(imap.NewSearchCriteria())
	if err != nil {
		return fmt.Errorf("failed to search INBOX: %w", err)
	}
	if len(uids) > newestCount {
		uids = uids[len(uids)-newestCount:]
	}

	messages, err := mailimap.FetchMessages(c, uids)
	if err != nil {
		return err
	}
	for _, msg := range messages {
		parsed, err := mailimap.ParseMessage(msg, "INBOX", models.FolderInbox)
		if err != nil {
			_, _ = fmt.Fprintf(out, "UID %d: failed to parse: %v\n", msg.Uid, err)
			continue
		}
		encryption := string(parsed.EncryptionType)
		if encryption == "" {
			encryption = "none"
		}
		_, _ = fmt.Fprintf(out, "UID %d: id=%d read=%t starred=%t encryption=%s subject_encrypted=%t subject=%q\n",
			msg.Uid, parsed.ID, parsed.Read, parsed.Starred, encryption, parsed.IsSubjectEncrypted, parsed.Subject)
	}
	return nil
}
