// Package storage provides local persistence for the gait analysis
// pipeline. It uses BoltDB as the underlying engine to cache downloaded
// dataset files and to keep a history of evaluation runs.
package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

const (
	downloadsBucket = "downloads" // raw dataset payloads keyed by URL
	runsBucket      = "runs"      // evaluation run records keyed by run ID
)

// Store wraps a BoltDB database holding the download cache and the run
// history.
type Store struct {
	db *bbolt.DB
}

// Download is a cached dataset payload.
type Download struct {
	URL       string    `json:"url"`
	FetchedAt time.Time `json:"fetched_at"`
	Body      []byte    `json:"body"`
}

// Run is a persisted evaluation run record. Payload holds the same JSON
// document the reporter writes to results.json.
type Run struct {
	ID        string          `json:"id"`
	StartedAt time.Time       `json:"started_at"`
	Payload   json.RawMessage `json:"payload"`
}

// New opens (or creates) the database under dataDir and ensures both
// buckets exist.
func New(dataDir string) (*Store, error) {
	dbPath := filepath.Join(dataDir, "gaitlab.db")

	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(downloadsBucket)); err != nil {
			return fmt.Errorf("create downloads bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(runsBucket)); err != nil {
			return fmt.Errorf("create runs bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database connection gracefully.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// PutDownload caches a dataset payload keyed by its source URL.
func (s *Store) PutDownload(url string, body []byte) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(downloadsBucket))

		data, err := json.Marshal(Download{URL: url, FetchedAt: time.Now().UTC(), Body: body})
		if err != nil {
			return fmt.Errorf("marshal download: %w", err)
		}
		return b.Put([]byte(url), data)
	})
}

// GetDownload returns the cached payload for url, or ok=false if the URL
// has never been fetched.
func (s *Store) GetDownload(url string) (body []byte, ok bool, err error) {
	err = s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(downloadsBucket)).Get([]byte(url))
		if data == nil {
			return nil
		}
		var d Download
		if err := json.Unmarshal(data, &d); err != nil {
			return fmt.Errorf("unmarshal download: %w", err)
		}
		body = d.Body
		ok = true
		return nil
	})
	return body, ok, err
}

// PutRun appends an evaluation run record. The key embeds the start time
// so that a cursor scan returns runs in chronological order.
func (s *Store) PutRun(run Run) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runsBucket))

		data, err := json.Marshal(run)
		if err != nil {
			return fmt.Errorf("marshal run: %w", err)
		}

		key := fmt.Sprintf("%d_%s", run.StartedAt.UnixNano(), run.ID)
		return b.Put([]byte(key), data)
	})
}

// RecentRuns returns up to n run records, most recent first.
func (s *Store) RecentRuns(n int) ([]Run, error) {
	var runs []Run

	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(runsBucket)).Cursor()

		for k, v := c.Last(); k != nil && len(runs) < n; k, v = c.Prev() {
			var run Run
			if err := json.Unmarshal(v, &run); err != nil {
				continue // skip malformed records
			}
			runs = append(runs, run)
		}
		return nil
	})

	return runs, err
}
