package mailstate

import (
	"sort"

	"github.com/vdavid/mailview/internal/models"
)

// FolderState is the cached first page (or current page) of a folder.
type FolderState struct {
	IDs            []models.MessageID `json:"mails"`
	TotalCount     int                `json:"total_mail_count"`
	IsNotFirstPage bool               `json:"is_not_first_page"`
	Offset         int                `json:"offset"`
	// Dirty marks the ids as stale: the folder must be refetched before display.
	Dirty bool `json:"is_dirty"`
}

func (f FolderState) clone() FolderState {
	f.IDs = append([]models.MessageID(nil), f.IDs...)
	return f
}

// Contains reports whether id is in the cached id list.
func (f FolderState) Contains(id models.MessageID) bool {
	for _, cached := range f.IDs {
		if cached == id {
			return true
		}
	}
	return false
}

// FolderIndex holds the per-folder cached id lists. It carries no merge policy.
type FolderIndex struct {
	folders map[models.Folder]FolderState
}

// NewFolderIndex returns an empty index.
func NewFolderIndex() *FolderIndex {
	return &FolderIndex{folders: make(map[models.Folder]FolderState)}
}

// Get returns a copy of the folder's state.
func (x *FolderIndex) Get(folder models.Folder) (FolderState, bool) {
	f, ok := x.folders[folder]
	if !ok {
		return FolderState{}, false
	}
	return f.clone(), true
}

// Has reports whether the folder is cached.
func (x *FolderIndex) Has(folder models.Folder) bool {
	_, ok := x.folders[folder]
	return ok
}

// Set replaces the folder's state.
func (x *FolderIndex) Set(folder models.Folder, state FolderState) {
	x.folders[folder] = state.clone()
}

// MarkDirty flags a cached folder as stale. It returns false if the folder is not cached.
func (x *FolderIndex) MarkDirty(folder models.Folder) bool {
	f, ok := x.folders[folder]
	if !ok {
		return false
	}
	f.Dirty = true
	x.folders[folder] = f
	return true
}

// Delete drops the folder from the index.
func (x *FolderIndex) Delete(folder models.Folder) {
	delete(x.folders, folder)
}

// Folders returns the cached folder names in lexical order.
func (x *FolderIndex) Folders() []models.Folder {
	names := make([]models.Folder, 0, len(x.folders))
	for name := range x.folders {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Clear drops every folder.
func (x *FolderIndex) Clear() {
	x.folders = make(map[models.Folder]FolderState)
}
