package mailstate

import (
	"time"

	"github.com/vdavid/mailview/internal/models"
)

var baseTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

// msg builds a message whose Updated time grows with its id.
func msg(id models.MessageID, folder models.Folder) models.Message {
	return models.Message{
		ID:      id,
		Folder:  folder,
		Subject: "subject",
		Updated: baseTime.Add(time.Duration(id) * time.Minute),
	}
}

func reply(id, parent models.MessageID, folder models.Folder) models.Message {
	m := msg(id, folder)
	m.Parent = parent
	return m
}

func ids(v ...models.MessageID) []models.MessageID { return v }

// seed caches a folder page the way a direct fetch would.
func seed(s *State, folder models.Folder, total int, batch ...models.Message) {
	s.Apply(Fetch{Folder: folder, Messages: batch, TotalCount: total})
}
