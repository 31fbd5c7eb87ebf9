package api

import (
	"errors"
	"log"
	"net/http"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vdavid/mailview/internal/db"
	"github.com/vdavid/mailview/internal/imap"
	"github.com/vdavid/mailview/internal/models"
)

// FolderResponse is one entry of the folder list.
type FolderResponse struct {
	Name models.Folder `json:"name"`
	// Virtual folders are INBOX searches, not mailboxes.
	Virtual bool `json:"virtual"`
}

// virtualFolders are offered to every user whose INBOX is reachable.
var virtualFolders = []models.Folder{models.FolderUnread, models.FolderStarred, models.FolderAllEmails}

// FoldersHandler handles IMAP folder-related API requests.
type FoldersHandler struct {
	pool        *pgxpool.Pool
	imapService imap.IMAPService
}

// NewFoldersHandler creates a new FoldersHandler instance.
func NewFoldersHandler(pool *pgxpool.Pool, imapService imap.IMAPService) *FoldersHandler {
	return &FoldersHandler{
		pool:        pool,
		imapService: imapService,
	}
}

// GetFolders returns the user's folders: their mailboxes plus the virtual folders.
func (h *FoldersHandler) GetFolders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := GetUserIDFromContext(ctx, w, h.pool)
	if !ok {
		return
	}

	folders, err := h.imapService.ListFolders(ctx, userID)
	if err != nil {
		h.writeListError(w, err)
		return
	}

	WriteJSONResponse(w, folderResponses(folders))
}

func (h *FoldersHandler) writeListError(w http.ResponseWriter, err error) {
	log.Printf("FoldersHandler: Failed to list folders: %v", err)

	switch {
	case errors.Is(err, db.ErrUserSettingsNotFound):
		http.Error(w, "User settings not found", http.StatusNotFound)
	case errors.Is(err, imap.ErrIMAPNotConfigured):
		http.Error(w, "IMAP is not configured", http.StatusNotFound)
	case strings.Contains(err.Error(), "i/o timeout"):
		http.Error(w, "Connection to IMAP server timed out. Please double-check your server hostname in your Settings and try again.", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Failed to list folders", http.StatusInternalServerError)
	}
}

func folderResponses(folders []models.Folder) []FolderResponse {
	sortFoldersByRole(folders)

	out := make([]FolderResponse, 0, len(folders)+len(virtualFolders))
	for _, f := range folders {
		out = append(out, FolderResponse{Name: f})
	}
	if slices.Contains(folders, models.FolderInbox) {
		for _, f := range virtualFolders {
			out = append(out, FolderResponse{Name: f, Virtual: true})
		}
	}
	return out
}

// sortFoldersByRole sorts system folders first, then custom folders alphabetically.
// Priority order: inbox, sent, draft, spam, trash, outbox, custom.
func sortFoldersByRole(folders []models.Folder) {
	rolePriority := map[models.Folder]int{
		models.FolderInbox:  1,
		models.FolderSent:   2,
		models.FolderDraft:  3,
		models.FolderSpam:   4,
		models.FolderTrash:  5,
		models.FolderOutbox: 6,
	}
	priority := func(f models.Folder) int {
		if p, ok := rolePriority[f]; ok {
			return p
		}
		return 7
	}

	sort.SliceStable(folders, func(i, j int) bool {
		pi, pj := priority(folders[i]), priority(folders[j])
		if pi != pj {
			return pi < pj
		}
		return folders[i] < folders[j]
	})
}
