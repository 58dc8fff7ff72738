package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportRun - запись журнала запусков импорта. Error пуст для успешного запуска.
type ImportRun struct {
	ID         uuid.UUID  `json:"id"`
	FeedURL    string     `json:"feed_url"`
	Format     string     `json:"format"`
	ReportFile string     `json:"report_file"`
	Statistics Statistics `json:"statistics"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt time.Time  `json:"finished_at"`
}

// Succeeded сообщает, завершился ли запуск без ошибки.
func (r ImportRun) Succeeded() bool {
	return r.Error == ""
}

// ListingRecord - объявление в виде, пригодном для хранения.
type ListingRecord struct {
	Format      string
	ExternalID  string
	Fingerprint string
	Images      []string
	Payload     []byte
}

// StoredListing - сохраненное объявление.
type StoredListing struct {
	ID    uuid.UUID
	Views int
}
