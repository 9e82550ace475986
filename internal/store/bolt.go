package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"zigbee-coop-door/internal/device"
)

var (
	bucketSettings = []byte("settings")
	keyAttributes  = []byte("attributes")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketSettings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create settings bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// SaveAttributes persists the mutable attribute snapshot.
func (s *BoltStore) SaveAttributes(snap device.Snapshot) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data, err := json.Marshal(snap)
		if err != nil {
			return err
		}
		return b.Put(keyAttributes, data)
	})
}

// GetAttributes loads the persisted attribute snapshot. Returns ErrNotFound
// when nothing has been saved yet (first boot or after a factory reset).
func (s *BoltStore) GetAttributes() (device.Snapshot, error) {
	var snap device.Snapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketSettings)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketSettings)
		}
		data := b.Get(keyAttributes)
		if data == nil {
			return fmt.Errorf("attributes: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &snap)
	})
	if err != nil {
		return device.Snapshot{}, err
	}
	return snap, nil
}

// Wipe removes all persisted settings.
func (s *BoltStore) Wipe() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketSettings); err != nil {
			return fmt.Errorf("delete settings bucket: %w", err)
		}
		_, err := tx.CreateBucket(bucketSettings)
		return err
	})
}

// Close closes the underlying database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
