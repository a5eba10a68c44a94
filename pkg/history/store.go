package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/arthur-debert/extman/pkg/errors"
	"github.com/arthur-debert/extman/pkg/logging"
	"go.etcd.io/bbolt"
)

const bucketSnapshots = "snapshots"

// Store persists entries keyed by ULID, so key order is chronological.
type Store struct {
	db *bbolt.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "cannot create history directory for %s", path)
	}
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "cannot open history database %s", path).
			WithDetail("path", path)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketSnapshots))
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, errors.ErrHistory, "cannot initialize history database")
	}
	logger := logging.GetLogger("history")
	logger.Debug().Str("path", path).Msg("History opened")
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record saves e.
func (s *Store) Record(e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, errors.ErrHistory, "cannot encode history entry")
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketSnapshots)).Put([]byte(e.ID), data)
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrHistory, "cannot record %s", e.ID)
	}
	logger := logging.GetLogger("history")
	logger.Debug().
		Str("id", e.ID).
		Str("operation", e.Operation).
		Msg("Snapshot recorded")
	return nil
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(limit int) ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(bucketSnapshots)).Cursor()
		for k, v := c.Last(); k != nil && (limit <= 0 || len(out) < limit); k, v = c.Prev() {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				logger := logging.GetLogger("history")
				logger.Warn().Str("id", string(k)).Err(err).Msg("Skipping unreadable snapshot")
				continue
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrHistory, "cannot list history")
	}
	return out, nil
}

// Get returns the entry with id.
func (s *Store) Get(id string) (*Entry, error) {
	var e *Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket([]byte(bucketSnapshots)).Get([]byte(id))
		if v == nil {
			return nil
		}
		e = &Entry{}
		return json.Unmarshal(v, e)
	})
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrHistory, "cannot read snapshot %s", id)
	}
	if e == nil {
		return nil, errors.Newf(errors.ErrNotFound, "no snapshot %s", id).WithDetail("id", id)
	}
	return e, nil
}

// Latest returns the newest entry, or nil when the history is empty.
func (s *Store) Latest() (*Entry, error) {
	entries, err := s.List(1)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

// Delete removes the entry with id.
func (s *Store) Delete(id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSnapshots))
		if b.Get([]byte(id)) == nil {
			return errors.Newf(errors.ErrNotFound, "no snapshot %s", id).WithDetail("id", id)
		}
		return b.Delete([]byte(id))
	})
	if err != nil {
		if errors.IsErrorCode(err, errors.ErrNotFound) {
			return err
		}
		return errors.Wrapf(err, errors.ErrHistory, "cannot delete snapshot %s", id)
	}
	return nil
}

// Count returns the number of entries.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(bucketSnapshots)).Stats().KeyN
		return nil
	})
	return n, err
}

// Prune keeps the newest keep entries and deletes the rest, returning how
// many were deleted.
func (s *Store) Prune(keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	var deleted int
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketSnapshots))
		var stale [][]byte
		kept := 0
		c := b.Cursor()
		for k, _ := c.Last(); k != nil; k, _ = c.Prev() {
			if kept < keep {
				kept++
				continue
			}
			stale = append(stale, append([]byte(nil), k...))
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrHistory, "cannot prune history")
	}
	if deleted > 0 {
		logger := logging.GetLogger("history")
		logger.Debug().Int("deleted", deleted).Int("kept", keep).Msg("History pruned")
	}
	return deleted, nil
}
