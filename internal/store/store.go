// Package store provides a thin bbolt wrapper for easctl's local data store.
//
// Design philosophy: the store is an intentional data accumulator, not a
// transparent HTTP cache. Progress and model listings are written explicitly
// via snapshot commands and read back later for comparison. No TTL, no
// auto-invalidation — you own your data.
//
// Buckets:
//
//	progress — point-in-time captures of work package progress
//	models   — OpenDSS model records from fetched listings
//	_meta    — internal: schema version, created_at
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/zepben/eas-go/eas"
)

// Current schema version. Bump when bucket layout or key format changes.
const schemaVersion = 1

// Bucket name constants.
var (
	bucketProgress = []byte("progress")
	bucketModels   = []byte("models")
	bucketInternal = []byte("_meta")
)

// AllBuckets lists every top-level bucket for stats and clear operations.
var AllBuckets = []string{"progress", "models"}

// Store wraps a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the bbolt database at path.
// Parent directories are created automatically.
// Runs schema migrations on every open.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening db %s: %w", path, err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migration: %w", err)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the filesystem path of the open database.
func (s *Store) Path() string {
	return s.db.Path()
}

// ─── Migrations ───────────────────────────────────────────────────────────────

// migrate ensures all buckets exist and schema is current.
func (s *Store) migrate() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		// Create all buckets if they don't exist.
		for _, name := range [][]byte{bucketProgress, bucketModels, bucketInternal} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}

		// Write schema version if not set.
		meta := tx.Bucket(bucketInternal)
		if meta.Get([]byte("schema_version")) == nil {
			if err := meta.Put([]byte("schema_version"), []byte(fmt.Sprintf("%d", schemaVersion))); err != nil {
				return err
			}
			if err := meta.Put([]byte("created_at"), []byte(time.Now().UTC().Format(time.RFC3339))); err != nil {
				return err
			}
		}
		return nil
	})
}

// ─── Progress snapshots ───────────────────────────────────────────────────────

// ProgressSnapshot is a point-in-time capture of server-wide work package
// progress. IDs are time-sortable, so bbolt's key order is capture order.
type ProgressSnapshot struct {
	ID       string                   `json:"id"`
	TakenAt  time.Time                `json:"taken_at"`
	Progress eas.WorkPackagesProgress `json:"progress"`
}

// NewProgressID generates a time-sortable snapshot ID.
// Format: YYYYMMDDHHmmss + 4 hex chars from the nanosecond clock.
func NewProgressID() string {
	now := time.Now().UTC()
	base := now.Format("20060102150405")
	nano := now.UnixNano() & 0xFFFF
	return fmt.Sprintf("%s%04x", base, nano)
}

// PutProgress saves a progress snapshot keyed by its ID.
func (s *Store) PutProgress(snap ProgressSnapshot) error {
	b, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encoding progress snapshot: %w", err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).Put([]byte(snap.ID), b)
	})
}

// GetProgress retrieves a snapshot by ID.
// Returns (snap, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetProgress(id string) (ProgressSnapshot, bool, error) {
	var snap ProgressSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketProgress).Get([]byte(id))
		if v == nil {
			return nil
		}
		return json.Unmarshal(v, &snap)
	})
	if err != nil {
		return snap, false, err
	}
	return snap, snap.ID != "", nil
}

// ListProgress returns all snapshots in capture order.
func (s *Store) ListProgress() ([]ProgressSnapshot, error) {
	var snaps []ProgressSnapshot
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).ForEach(func(k, v []byte) error {
			var snap ProgressSnapshot
			if err := json.Unmarshal(v, &snap); err != nil {
				return err
			}
			snaps = append(snaps, snap)
			return nil
		})
	})
	return snaps, err
}

// DeleteProgress removes a snapshot by ID.
func (s *Store) DeleteProgress(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketProgress).Delete([]byte(id))
	})
}

// ─── OpenDSS models ───────────────────────────────────────────────────────────

// StoredModel is the on-disk envelope for one OpenDSS model record.
type StoredModel struct {
	FetchedAt time.Time        `json:"fetched_at"`
	Model     eas.OpenDssModel `json:"model"`
}

// modelKey builds the bucket key for a model ID, zero-padded so numeric
// order matches bbolt's byte order.
func modelKey(id int) []byte {
	return []byte(fmt.Sprintf("%012d", id))
}

// PutModels upserts model records from a fetched listing, stamping FetchedAt.
func (s *Store) PutModels(models []eas.OpenDssModel) error {
	now := time.Now().UTC()
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketModels)
		for _, m := range models {
			data, err := json.Marshal(StoredModel{FetchedAt: now, Model: m})
			if err != nil {
				return fmt.Errorf("encoding model %d: %w", m.ID, err)
			}
			if err := b.Put(modelKey(m.ID), data); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetModel retrieves a stored model by ID.
// Returns (stored, true, nil) if found, (zero, false, nil) if not found.
func (s *Store) GetModel(id int) (StoredModel, bool, error) {
	var stored StoredModel
	var found bool
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketModels).Get(modelKey(id))
		if v == nil {
			return nil
		}
		found = true
		return json.Unmarshal(v, &stored)
	})
	if err != nil {
		return StoredModel{}, false, err
	}
	return stored, found, nil
}

// ListModels returns all stored models in ID order.
func (s *Store) ListModels() ([]StoredModel, error) {
	var models []StoredModel
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).ForEach(func(k, v []byte) error {
			var m StoredModel
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			models = append(models, m)
			return nil
		})
	})
	return models, err
}

// DeleteModel removes a stored model by ID.
func (s *Store) DeleteModel(id int) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketModels).Delete(modelKey(id))
	})
}

// ─── Stats & Maintenance ──────────────────────────────────────────────────────

// BucketStats holds row count and byte size for a single bucket.
type BucketStats struct {
	Name  string
	Count int
	Bytes int64
}

// Stats returns row counts and approximate sizes for all buckets.
func (s *Store) Stats() ([]BucketStats, error) {
	buckets := []struct {
		name string
		key  []byte
	}{
		{"progress", bucketProgress},
		{"models", bucketModels},
	}

	var stats []BucketStats
	err := s.db.View(func(tx *bolt.Tx) error {
		for _, bucket := range buckets {
			b := tx.Bucket(bucket.key)
			if b == nil {
				continue
			}
			var count int
			var bytes int64
			b.ForEach(func(k, v []byte) error {
				count++
				bytes += int64(len(k) + len(v))
				return nil
			})
			stats = append(stats, BucketStats{Name: bucket.name, Count: count, Bytes: bytes})
		}
		return nil
	})
	return stats, err
}

// SchemaVersion reads the stored schema version.
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketInternal).Get([]byte("schema_version"))
		if v == nil {
			return fmt.Errorf("schema version missing")
		}
		n, err := strconv.Atoi(string(v))
		if err != nil {
			return fmt.Errorf("parsing schema version: %w", err)
		}
		version = n
		return nil
	})
	return version, err
}

// ClearBucket deletes all entries in the named bucket.
func (s *Store) ClearBucket(name string) error {
	bname := []byte(name)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bname); err != nil {
			return fmt.Errorf("clearing bucket %s: %w", name, err)
		}
		_, err := tx.CreateBucket(bname)
		return err
	})
}

// ClearAll deletes all entries from every user-facing bucket.
func (s *Store) ClearAll() error {
	for _, name := range AllBuckets {
		if err := s.ClearBucket(name); err != nil {
			return err
		}
	}
	return nil
}
