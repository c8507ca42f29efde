// Package hold stores outbound messages the scanner blocked, pending owner
// approval. The store is a single-file bbolt database owned by the gateway.
package hold

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/mailwarden/mailwarden/internal/email"
)

var bucketHeld = []byte("held")

// Entry is one held message with enough context for an owner to decide.
type Entry struct {
	ID         string    `json:"id"`
	ReceivedAt time.Time `json:"received_at"`
	From       string    `json:"from"`
	To         []string  `json:"to"`
	Subject    string    `json:"subject"`
	Summary    string    `json:"summary"`
	Raw        []byte    `json:"raw"`
}

// Store persists held messages. Safe for concurrent use; bbolt serializes
// writers internally.
type Store struct {
	db *bolt.DB
}

// Open opens (or creates) the hold database at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open hold store: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketHeld)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create hold bucket: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put stores a blocked message and returns its hold ID.
func (s *Store) Put(msg *email.Email, summary string) (string, error) {
	entry := Entry{
		ID:         uuid.NewString(),
		ReceivedAt: time.Now().UTC(),
		From:       msg.From,
		To:         msg.Recipients(),
		Subject:    msg.Subject,
		Summary:    summary,
		Raw:        msg.Raw,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return "", fmt.Errorf("failed to encode held message: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeld).Put([]byte(entry.ID), data)
	})
	if err != nil {
		return "", fmt.Errorf("failed to store held message: %w", err)
	}
	return entry.ID, nil
}

// Get returns the held message with the given ID.
func (s *Store) Get(id string) (*Entry, error) {
	var entry *Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketHeld).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("no held message with id %s", id)
		}
		entry = &Entry{}
		return json.Unmarshal(data, entry)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns all held messages, oldest first.
func (s *Store) List() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeld).ForEach(func(_, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ReceivedAt.Before(entries[j].ReceivedAt)
	})
	return entries, nil
}

// Delete removes a held message, whether approved or rejected.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketHeld).Delete([]byte(id))
	})
}
