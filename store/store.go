package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/UnExplainableFish52/reliant-learners-academy/models"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	CollectionMockTests   = "mockTests"
	CollectionSubmissions = "studentSubmissions"
)

var ErrNotFound = errors.New("record not found")

// Observer is called after a collection has been written.
type Observer func(key string)

// Store keeps whole collections as JSON documents keyed by collection name.
// Writers always replace the full document.
type Store struct {
	db *gorm.DB
	mu sync.Mutex

	obsMu     sync.RWMutex
	observers map[string]map[int]Observer
	nextObsID int
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, observers: map[string]map[int]Observer{}}
}

// Get returns the decoded collection, or def when it is absent or corrupt.
func Get[T any](ctx context.Context, s *Store, key string, def T) T {
	raw, ok, err := s.read(s.db.WithContext(ctx), key, false)
	if err != nil {
		log.Error().Err(err).Str("key", key).Msg("store read failed")
		return def
	}
	if !ok {
		return def
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("corrupt collection, using default")
		return def
	}
	return out
}

// Set serializes v under key and notifies observers of key.
func (s *Store) Set(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	s.mu.Lock()
	err = s.write(s.db.WithContext(ctx), key, raw)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// Update runs a read-modify-write of one collection atomically with respect
// to other writers in this process. Returning an error from fn aborts the
// write and no observer is notified.
func Update[T any](ctx context.Context, s *Store, key string, def T, fn func(T) (T, error)) error {
	s.mu.Lock()
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cur := def
		raw, ok, err := s.read(tx, key, true)
		if err != nil {
			return err
		}
		if ok {
			if err := json.Unmarshal(raw, &cur); err != nil {
				log.Warn().Err(err).Str("key", key).Msg("corrupt collection, rewriting from default")
				cur = def
			}
		}
		next, err := fn(cur)
		if err != nil {
			return err
		}
		out, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		return s.write(tx, key, out)
	})
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(key)
	return nil
}

// Subscribe registers fn for writes to key. The returned func removes it.
func (s *Store) Subscribe(key string, fn Observer) func() {
	s.obsMu.Lock()
	defer s.obsMu.Unlock()
	s.nextObsID++
	id := s.nextObsID
	if s.observers[key] == nil {
		s.observers[key] = map[int]Observer{}
	}
	s.observers[key][id] = fn
	return func() {
		s.obsMu.Lock()
		defer s.obsMu.Unlock()
		delete(s.observers[key], id)
	}
}

func (s *Store) notify(key string) {
	s.obsMu.RLock()
	fns := make([]Observer, 0, len(s.observers[key]))
	for _, fn := range s.observers[key] {
		fns = append(fns, fn)
	}
	s.obsMu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

func (s *Store) read(tx *gorm.DB, key string, forUpdate bool) ([]byte, bool, error) {
	var rec models.StorageRecord
	q := tx
	if forUpdate && tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	err := q.Where("collection_key = ?", key).Limit(1).Find(&rec).Error
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", key, err)
	}
	if rec.Key == "" {
		return nil, false, nil
	}
	return []byte(rec.Value), true, nil
}

func (s *Store) write(tx *gorm.DB, key string, raw []byte) error {
	rec := models.StorageRecord{Key: key, Value: string(raw), UpdatedAt: time.Now()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "collection_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	return nil
}
