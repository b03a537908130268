// Package ledger persists the upload history in a bbolt file.
package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	ohia "github.com/alanbriolat/office-hours-archiver"
)

var Buckets = struct {
	Metadata []byte
	Uploads  []byte
}{
	Metadata: []byte("__metadata__"),
	Uploads:  []byte("uploads"),
}

var MetadataKeys = struct {
	Version []byte
}{
	Version: []byte("version"),
}

const currentVersion = 1

type Ledger interface {
	Close() error

	ohia.Ledger
}

type ledger struct {
	*bbolt.DB
}

func New(path string) (_ Ledger, err error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bbolt.Tx) (err error) {
		// Ensure buckets exist
		var metadata *bbolt.Bucket
		if metadata, err = tx.CreateBucketIfNotExists(Buckets.Metadata); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(Buckets.Uploads); err != nil {
			return err
		}

		var version int
		if versionBytes := metadata.Get(MetadataKeys.Version); versionBytes == nil {
			version = 0
		} else if err = json.Unmarshal(versionBytes, &version); err != nil {
			return err
		}
		if version > currentVersion {
			return fmt.Errorf("ledger version %d is newer than supported version %d", version, currentVersion)
		}

		if versionBytes, err := json.Marshal(currentVersion); err != nil {
			return err
		} else if err = metadata.Put(MetadataKeys.Version, versionBytes); err != nil {
			return err
		}

		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &ledger{db}, nil
}

func (l ledger) ListUploads(identifier string) (uploads []ohia.UploadRecord, err error) {
	var prefix []byte
	if identifier != "" {
		prefix = []byte(identifier + "/")
	}
	err = l.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(Buckets.Uploads).Cursor()
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var record ohia.UploadRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return fmt.Errorf("upload %s: %w", k, err)
			}
			uploads = append(uploads, record)
		}
		return nil
	})
	if err != nil {
		return nil, err
	} else {
		return uploads, nil
	}
}

func (l ledger) RecordUpload(record *ohia.UploadRecord) error {
	if data, err := json.Marshal(record); err != nil {
		return err
	} else {
		return l.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(Buckets.Uploads).Put([]byte(record.Key()), data)
		})
	}
}
