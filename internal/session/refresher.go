package session

import (
	"context"
	"fmt"
	"log"

	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/mailstate"
	"github.com/vdavid/mailview/internal/models"
	"golang.org/x/sync/errgroup"
)

// FolderFetcher fetches folder pages. imap.Service implements it.
type FolderFetcher interface {
	FetchFolder(ctx context.Context, userID string, req imap.FetchRequest) (mailstate.Fetch, error)
}

// Refresher refetches folders whose cached listings are missing or stale.
type Refresher struct {
	fetcher     FolderFetcher
	concurrency int
}

// NewRefresher creates a Refresher that runs at most concurrency fetches per call.
func NewRefresher(fetcher FolderFetcher, concurrency int) *Refresher {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Refresher{fetcher: fetcher, concurrency: concurrency}
}

// Refresh refetches the first page of every dirty folder in the session. The
// fetches run concurrently; their results are applied one at a time through
// the store. It returns the first error after all fetches finish.
func (r *Refresher) Refresh(ctx context.Context, s *Session) error {
	folders := s.Store.DirtyFolders()
	if len(folders) == 0 {
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, folder := range folders {
		g.Go(func() error {
			return r.fetchAndApply(gctx, s, folder, 1, 0)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	log.Printf("Refresher: refreshed %d folders for user %s", len(folders), s.UserID)
	return nil
}

// EnsureFresh fetches a page of folder when the cached listing is missing,
// dirty, or not the first page. It reports whether it fetched.
func (r *Refresher) EnsureFresh(ctx context.Context, s *Session, folder models.Folder, page, limit int) (bool, error) {
	cached, ok := s.Store.FolderState(folder)
	if ok && !cached.Dirty && !cached.IsNotFirstPage && page <= 1 {
		return false, nil
	}

	if err := r.fetchAndApply(ctx, s, folder, page, limit); err != nil {
		return false, err
	}
	return true, nil
}

func (r *Refresher) fetchAndApply(ctx context.Context, s *Session, folder models.Folder, page, limit int) error {
	if limit <= 0 {
		limit = s.Store.PageLimit()
	}

	fetch, err := r.fetcher.FetchFolder(ctx, s.UserID, imap.FetchRequest{
		Folder:   folder,
		Page:     page,
		Limit:    limit,
		Threaded: s.ConversationViewMode(),
	})
	if err != nil {
		return fmt.Errorf("failed to fetch folder %s: %w", folder, err)
	}

	return s.Apply(ctx, fetch)
}
