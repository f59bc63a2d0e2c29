// Package store implements the controller's record stores: a directory of
// per-record XML files, written atomically (temp file + rename) and held in
// memory once loaded, with observers notified of every change. This is the
// authoritative persistence layer; internal/projection mirrors it into
// Postgres as a rebuildable query cache, not the other way around.
package store

import (
	"encoding/xml"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Record is anything a Store can hold: it must know its own id. Encoding
// to and from the file's XML is done by the store's Codec.
type Record interface {
	RecordID() string
}

// Observer is notified after a record is created, updated or removed.
// Implementations must not block; the store calls observers synchronously
// while not holding its lock.
type Observer interface {
	RecordChanged(id string, rec Record, removed bool)
}

// Codec converts between a Record and the XML wire struct persisted for it.
// T is the Record type; ToWire returns the wire struct (e.g.
// xmlcodec.ResourceXML) and FromWire decodes file bytes back into a T. The
// per-kind codecs are defined in instances.go.
type Codec[T Record] struct {
	ToWire   func(T) any
	FromWire func(data []byte) (T, error)
}

// Store[T] is a directory-backed, in-memory, observable collection of
// records of one kind, keyed by RecordID.
type Store[T Record] struct {
	dir    string
	logger *log.Entry
	codec  Codec[T]

	mu        sync.RWMutex
	byID      map[string]T
	observers []Observer
}

// New opens (creating if necessary) a store rooted at dir. It does not load
// existing records; call Load for that.
func New[T Record](dir string, codec Codec[T]) (*Store[T], error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: creating %s: %w", dir, err)
	}
	return &Store[T]{
		dir:    dir,
		codec:  codec,
		byID:   make(map[string]T),
		logger: log.WithField("component", "store").WithField("dir", filepath.Base(dir)),
	}, nil
}

// Load reads every *.xml file in the store's directory into memory.
func (s *Store[T]) Load() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("store: reading %s: %w", s.dir, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ent := range entries {
		if ent.IsDir() || filepath.Ext(ent.Name()) != ".xml" {
			continue
		}
		path := filepath.Join(s.dir, ent.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("store: reading %s: %w", path, err)
		}
		rec, err := s.codec.FromWire(data)
		if err != nil {
			return fmt.Errorf("store: decoding %s: %w", path, err)
		}
		s.byID[rec.RecordID()] = rec
	}
	s.logger.WithField("count", len(s.byID)).Info("loaded records")
	return nil
}

// Get returns the record with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	return rec, ok
}

// All returns every record, sorted by id for deterministic iteration.
func (s *Store[T]) All() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]T, len(ids))
	for i, id := range ids {
		out[i] = s.byID[id]
	}
	return out
}

// Put writes rec to disk (atomically) and into memory, then notifies
// observers. It overwrites any existing record with the same id.
func (s *Store[T]) Put(rec T) error {
	wire := s.codec.ToWire(rec)
	data, err := xml.MarshalIndent(wire, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encoding %s: %w", rec.RecordID(), err)
	}
	data = append([]byte(xml.Header), data...)
	if err := s.writeAtomic(rec.RecordID(), data); err != nil {
		return err
	}

	s.mu.Lock()
	s.byID[rec.RecordID()] = rec
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	for _, o := range observers {
		o.RecordChanged(rec.RecordID(), rec, false)
	}
	return nil
}

// Remove deletes the record's file and entry, notifying observers. No-op
// if the record does not exist.
func (s *Store[T]) Remove(id string) error {
	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return nil
	}
	delete(s.byID, id)
	observers := append([]Observer(nil), s.observers...)
	s.mu.Unlock()

	path := s.pathFor(id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("store: removing %s: %w", path, err)
	}
	for _, o := range observers {
		o.RecordChanged(id, rec, true)
	}
	return nil
}

// AddObserver registers o to be notified of future changes. Observers are
// not replayed against records already in the store; callers that need the
// current state should call All first.
func (s *Store[T]) AddObserver(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

func (s *Store[T]) pathFor(id string) string {
	return filepath.Join(s.dir, url.PathEscape(id)+".xml")
}

func (s *Store[T]) writeAtomic(id string, data []byte) error {
	path := s.pathFor(id)
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("store: creating temp file for %s: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("store: writing %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("store: syncing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: closing %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("store: renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
