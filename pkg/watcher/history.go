package watcher

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

const (
	bucketProcessed = "processed"
	bucketFailed    = "failed"
)

// boltHistory implements History using bbolt.
type boltHistory struct {
	db *bolt.DB
}

// NewHistory opens (or creates) the processed-file history at dbPath.
func NewHistory(dbPath string) (History, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketProcessed)); err != nil {
			return fmt.Errorf("failed to create processed bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketFailed)); err != nil {
			return fmt.Errorf("failed to create failed bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &boltHistory{db: db}, nil
}

// IsProcessed checks whether a file hash has already been transcribed.
func (h *boltHistory) IsProcessed(fileHash string) (bool, error) {
	var exists bool
	err := h.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketProcessed))
		if bucket == nil {
			return nil
		}
		exists = bucket.Get([]byte(fileHash)) != nil
		return nil
	})
	return exists, err
}

// RecordProcessed records a successful transcription and clears any earlier
// failure for the same hash.
func (h *boltHistory) RecordProcessed(fileHash string, info *ProcessedInfo) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketProcessed))
		if bucket == nil {
			return fmt.Errorf("processed bucket not found")
		}

		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal processed info: %w", err)
		}
		if err := bucket.Put([]byte(fileHash), data); err != nil {
			return fmt.Errorf("failed to store processed info: %w", err)
		}

		if failed := tx.Bucket([]byte(bucketFailed)); failed != nil {
			_ = failed.Delete([]byte(fileHash))
		}
		return nil
	})
}

// RecordFailed records a failed attempt.
func (h *boltHistory) RecordFailed(fileHash string, info *FailedInfo) error {
	return h.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(bucketFailed))
		if bucket == nil {
			return fmt.Errorf("failed bucket not found")
		}

		data, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("failed to marshal failure info: %w", err)
		}
		return bucket.Put([]byte(fileHash), data)
	})
}

// Close closes the underlying database.
func (h *boltHistory) Close() error {
	return h.db.Close()
}
