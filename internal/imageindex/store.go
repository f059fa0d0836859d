package imageindex

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var bucketRecords = []byte("records")

// StoredRecord is what the incremental store keeps per image content.
type StoredRecord struct {
	Description string    `json:"d"`
	Embedding   []float32 `json:"v"`
}

// RecordStore keeps per-image records keyed by model id and content hash so
// a rebuild only describes images it has never seen.
type RecordStore interface {
	Get(modelID, contentHash string) (StoredRecord, bool, error)
	Put(modelID, contentHash string, rec StoredRecord) error
}

// BoltStore is a RecordStore backed by a bbolt file.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens (creating if needed) the record store at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("cannot create record store dir: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open record store %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create records bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func recordKey(modelID, contentHash string) []byte {
	return []byte(modelID + "\x00" + contentHash)
}

// Get returns the record for (modelID, contentHash) if present.
func (s *BoltStore) Get(modelID, contentHash string) (StoredRecord, bool, error) {
	var rec StoredRecord
	var found bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRecords).Get(recordKey(modelID, contentHash))
		if data == nil {
			return nil
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			return err
		}
		found = len(rec.Embedding) > 0
		return nil
	})
	return rec, found, err
}

// Put stores rec under (modelID, contentHash).
func (s *BoltStore) Put(modelID, contentHash string, rec StoredRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketRecords).Put(recordKey(modelID, contentHash), data)
	})
}

// Count returns the number of stored records.
func (s *BoltStore) Count() (int, error) {
	n := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket(bucketRecords).Stats().KeyN
		return nil
	})
	return n, err
}

// Close releases the underlying file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
