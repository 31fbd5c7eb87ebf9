// Command replay feeds a recorded stream of mail state events through a fresh
// store and prints the resulting view. Each input line is one event envelope,
// as accepted by POST /api/v1/events. Blank lines and lines starting with '#'
// are skipped.
//
// Usage:
//
//	replay [-page-limit 20] [-conversation] [-folder inbox] [-every] [events.jsonl]
//
// With no file argument, events are read from stdin.
package main

import (
	"bufio"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
)

// maxLineBytes bounds one envelope; fetch events carry whole pages of messages.
const maxLineBytes = 16 << 20

// result is the final output of a replay.
type result struct {
	Events  int                     `json:"events"`
	Skipped int                     `json:"skipped"`
	View    mailstate.View          `json:"view"`
	Unread  mailstate.UnreadSummary `json:"unread"`
}

func main() {
	log.SetFlags(0)
	if err := run(os.Args[1:], os.Stdin, os.Stdout); err != nil {
		log.Fatalf("replay: %v", err)
	}
}

func run(args []string, stdin io.Reader, stdout io.Writer) error {
	flags := flag.NewFlagSet("replay", flag.ContinueOnError)
	pageLimit := flags.Int("page-limit", models.DefaultPageLimit, "folder page size")
	conversation := flags.Bool("conversation", false, "start in conversation view mode")
	folder := flags.String("folder", "", "folder to print at the end (default: the current folder)")
	every := flags.Bool("every", false, "print an update after every event")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pageLimit <= 0 {
		return fmt.Errorf("page limit must be positive, got %d", *pageLimit)
	}

	input := stdin
	if flags.NArg() > 1 {
		return errors.New("at most one input file")
	}
	if flags.NArg() == 1 {
		file, err := os.Open(flags.Arg(0))
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer func() { _ = file.Close() }()
		input = file
	}

	encoder := json.NewEncoder(stdout)
	store := mailstate.NewStore(*pageLimit, *conversation)

	var writeErr error
	if *every {
		cancel := store.Subscribe(func(update mailstate.Update) {
			if writeErr == nil {
				writeErr = encoder.Encode(update)
			}
		})
		defer cancel()
	}

	res, err := replay(input, store)
	if err != nil {
		return err
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write update: %w", writeErr)
	}

	if *folder != "" {
		res.View = store.ViewOf(models.Folder(*folder))
	} else {
		res.View = store.View()
	}
	res.Unread = store.UnreadSummary()

	if err := encoder.Encode(res); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// replay dispatches every envelope of input into store. Unknown event types
// are counted and skipped; malformed lines stop the replay.
func replay(input io.Reader, store *mailstate.Store) (result, error) {
	var res result

	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		ev, err := mailstate.DecodeEvent([]byte(line))
		if errors.Is(err, mailstate.ErrUnknownEvent) {
			log.Printf("replay: line %d: %v, skipping", lineNo, err)
			res.Skipped++
			continue
		}
		if err != nil {
			return res, fmt.Errorf("line %d: %w", lineNo, err)
		}

		store.Dispatch(ev)
		res.Events++
	}
	if err := scanner.Err(); err != nil {
		return res, fmt.Errorf("failed to read input: %w", err)
	}
	return res, nil
}
