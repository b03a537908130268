package office_hours_archiver

import (
	"time"
)

// UploadRecord is the persisted trace of one file landing in an archive item.
type UploadRecord struct {
	RunID      string    `json:"run_id"`
	Identifier string    `json:"identifier"`
	File       string    `json:"file"`
	Status     int       `json:"status"`
	Source     string    `json:"source"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Key orders records by item, then file, then run.
func (r *UploadRecord) Key() string {
	return r.Identifier + "/" + r.File + "/" + r.RunID
}

type Ledger interface {
	// ListUploads returns the recorded uploads for identifier, or all of them if identifier is empty.
	ListUploads(identifier string) ([]UploadRecord, error)
	RecordUpload(*UploadRecord) error
}

type NilLedger struct{}

func (l NilLedger) ListUploads(_ string) ([]UploadRecord, error) {
	return nil, nil
}

func (l NilLedger) RecordUpload(_ *UploadRecord) error {
	return nil
}
