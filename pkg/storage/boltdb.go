package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/meshguard/meshguard/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	// Bucket names
	bucketNodes    = []byte("nodes")
	bucketGuardian = []byte("guardian")

	// Key for the single guardian status record
	keyGuardianStatus = []byte("status")
)

// ErrNotFound is returned when a record does not exist
type ErrNotFound struct {
	Kind string
	ID   string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.ID)
}

// BoltStore implements Store using BoltDB
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore creates a new BoltDB-backed store
func NewBoltStore(dataDir string) (*BoltStore, error) {
	dbPath := filepath.Join(dataDir, "meshguard.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketNodes, bucketGuardian} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})

	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

// Close closes the database
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Node operations
func (s *BoltStore) SaveNode(record *types.NodeRecord) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data, err := json.Marshal(record)
		if err != nil {
			return err
		}
		return b.Put([]byte(record.ID), data)
	})
}

func (s *BoltStore) GetNode(id string) (*types.NodeRecord, error) {
	var record types.NodeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		data := b.Get([]byte(id))
		if data == nil {
			return &ErrNotFound{Kind: "node", ID: id}
		}
		return json.Unmarshal(data, &record)
	})
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *BoltStore) ListNodes() ([]*types.NodeRecord, error) {
	var records []*types.NodeRecord
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.ForEach(func(k, v []byte) error {
			var record types.NodeRecord
			if err := json.Unmarshal(v, &record); err != nil {
				return err
			}
			records = append(records, &record)
			return nil
		})
	})
	return records, err
}

func (s *BoltStore) DeleteNode(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNodes)
		return b.Delete([]byte(id))
	})
}

// Guardian state operations
func (s *BoltStore) SaveGuardian(status *types.GuardianStatus) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGuardian)
		data, err := json.Marshal(status)
		if err != nil {
			return err
		}
		return b.Put(keyGuardianStatus, data)
	})
}

func (s *BoltStore) GetGuardian() (*types.GuardianStatus, error) {
	var status types.GuardianStatus
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketGuardian)
		data := b.Get(keyGuardianStatus)
		if data == nil {
			return &ErrNotFound{Kind: "guardian status", ID: "status"}
		}
		return json.Unmarshal(data, &status)
	})
	if err != nil {
		return nil, err
	}
	return &status, nil
}
