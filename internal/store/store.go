package store

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/xelth-com/wotrack/internal/models"
)

// ChangeKind describes what happened to the collection
type ChangeKind string

const (
	ChangeCreated ChangeKind = "created"
	ChangeUpdated ChangeKind = "updated"
	ChangeDeleted ChangeKind = "deleted"
	ChangeMerged  ChangeKind = "merged"
)

// Change is delivered to listeners after a mutation has been persisted
type Change struct {
	Kind ChangeKind
	IDs  []string
}

// Listener is notified after every persisted mutation, outside the store lock
type Listener func(Change)

const cacheWriteTimeout = 3 * time.Second

// Store is the session's authoritative document collection.
// Every mutation is mirrored to the cache before it returns.
type Store struct {
	mu         sync.RWMutex
	cache      Cache
	docs       []*models.Document // createdAt descending
	index      map[string]*models.Document
	tombstones map[string]time.Time
	unsynced   map[string]uint64
	rev        uint64

	listenersMu sync.RWMutex
	listeners   []Listener
}

// New creates an empty store backed by cache
func New(cache Cache) *Store {
	return &Store{
		cache:      cache,
		index:      make(map[string]*models.Document),
		tombstones: make(map[string]time.Time),
		unsynced:   make(map[string]uint64),
	}
}

// Load replaces the in-memory collection with the cached snapshot
func (s *Store) Load(ctx context.Context) error {
	snap, err := s.cache.Read(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.setLocked(snap.Documents)
	s.tombstones = make(map[string]time.Time, len(snap.Tombstones))
	for id, at := range snap.Tombstones {
		s.tombstones[id] = at
	}
	s.unsynced = make(map[string]uint64, len(snap.Unsynced))
	s.rev = 0
	for id, rev := range snap.Unsynced {
		s.unsynced[id] = rev
		s.rev = max(s.rev, rev)
	}
	s.mu.Unlock()

	log.Printf("💾 Store: loaded %d documents (%d pending deletes, %d unsynced) from local cache",
		len(snap.Documents), len(snap.Tombstones), len(snap.Unsynced))
	return nil
}

// Subscribe registers a change listener
func (s *Store) Subscribe(l Listener) {
	s.listenersMu.Lock()
	s.listeners = append(s.listeners, l)
	s.listenersMu.Unlock()
}

// Get returns a copy of the document with id
func (s *Store) Get(id string) (models.Document, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.index[id]
	if !ok {
		return models.Document{}, false
	}
	return doc.Clone(), true
}

// Has reports whether id is in the collection
func (s *Store) Has(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.index[id]
	return ok
}

// List returns copies of all documents, newest first
func (s *Store) List() []models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Clone()
	}
	return out
}

// Len returns the number of documents
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Insert adds doc unless its id already exists. Re-registering a deleted
// id drops its tombstone so the next save recreates it remotely.
func (s *Store) Insert(doc models.Document) bool {
	s.mu.Lock()
	if _, exists := s.index[doc.ID]; exists {
		s.mu.Unlock()
		return false
	}

	d := doc.Clone()
	s.docs = append(s.docs, &d)
	s.index[d.ID] = &d
	delete(s.tombstones, d.ID)
	s.markUnsyncedLocked(d.ID)
	s.sortLocked()
	s.persistLocked()
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeCreated, IDs: []string{doc.ID}})
	return true
}

// Mutate applies fn to the document in place. fn reports whether it changed
// anything; only then is the collection persisted and listeners notified.
func (s *Store) Mutate(id string, fn func(doc *models.Document) bool) (models.Document, bool) {
	s.mu.Lock()
	doc, ok := s.index[id]
	if !ok {
		s.mu.Unlock()
		return models.Document{}, false
	}

	changed := fn(doc)
	out := doc.Clone()
	if changed {
		s.markUnsyncedLocked(id)
		s.persistLocked()
	}
	s.mu.Unlock()

	if changed {
		s.notify(Change{Kind: ChangeUpdated, IDs: []string{id}})
	}
	return out, true
}

// Remove deletes ids locally and records tombstones, persisting before it
// returns. It returns the ids that were present.
func (s *Store) Remove(ids ...string) []string {
	now := time.Now().UTC()

	s.mu.Lock()
	removed := make([]string, 0, len(ids))
	drop := make(map[string]bool, len(ids))
	for _, id := range ids {
		s.tombstones[id] = now
		delete(s.unsynced, id)
		if _, ok := s.index[id]; ok {
			drop[id] = true
			removed = append(removed, id)
			delete(s.index, id)
		}
	}
	if len(drop) > 0 {
		kept := s.docs[:0]
		for _, d := range s.docs {
			if !drop[d.ID] {
				kept = append(kept, d)
			}
		}
		for i := len(kept); i < len(s.docs); i++ {
			s.docs[i] = nil
		}
		s.docs = kept
	}
	s.persistLocked()
	s.mu.Unlock()

	if len(removed) > 0 {
		s.notify(Change{Kind: ChangeDeleted, IDs: removed})
	}
	return removed
}

// Tombstones returns a copy of the pending-delete set
func (s *Store) Tombstones() map[string]time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]time.Time, len(s.tombstones))
	for id, at := range s.tombstones {
		out[id] = at
	}
	return out
}

// ClearTombstones forgets ids once the remote no longer returns them
func (s *Store) ClearTombstones(ids ...string) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	for _, id := range ids {
		delete(s.tombstones, id)
	}
	s.persistLocked()
	s.mu.Unlock()
}

// Unsynced returns a copy of the ids with local writes not yet saved
// remotely, mapped to the revision of their latest write
func (s *Store) Unsynced() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]uint64, len(s.unsynced))
	for id, rev := range s.unsynced {
		out[id] = rev
	}
	return out
}

// MarkSynced clears the unsynced marks in marks whose revision is still
// current. A write made after marks was taken keeps its id unsynced.
func (s *Store) MarkSynced(marks map[string]uint64) {
	if len(marks) == 0 {
		return
	}
	s.mu.Lock()
	cleared := 0
	for id, rev := range marks {
		if cur, ok := s.unsynced[id]; ok && cur == rev {
			delete(s.unsynced, id)
			cleared++
		}
	}
	if cleared > 0 {
		s.persistLocked()
	}
	s.mu.Unlock()
}

func (s *Store) markUnsyncedLocked(id string) {
	s.rev++
	s.unsynced[id] = s.rev
}

// MergeState is the bookkeeping a MergeFunc decides against
type MergeState struct {
	Tombstones map[string]time.Time
	Unsynced   map[string]uint64
}

// MergeFunc computes a new collection from the current one
type MergeFunc func(local []models.Document, state MergeState) []models.Document

// Merge replaces the collection with the result of fn, computed under the
// store lock against the current state, and persists it.
func (s *Store) Merge(fn MergeFunc) []models.Document {
	s.mu.Lock()
	local := make([]models.Document, len(s.docs))
	for i, d := range s.docs {
		local[i] = d.Clone()
	}
	state := MergeState{
		Tombstones: make(map[string]time.Time, len(s.tombstones)),
		Unsynced:   make(map[string]uint64, len(s.unsynced)),
	}
	for id, at := range s.tombstones {
		state.Tombstones[id] = at
	}
	for id, rev := range s.unsynced {
		state.Unsynced[id] = rev
	}

	merged := fn(local, state)
	s.setLocked(merged)
	s.persistLocked()

	out := make([]models.Document, len(s.docs))
	for i, d := range s.docs {
		out[i] = d.Clone()
	}
	s.mu.Unlock()

	s.notify(Change{Kind: ChangeMerged})
	return out
}

// Persist writes the current collection to the cache
func (s *Store) Persist() {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.persistLocked()
}

// persistLocked writes a full snapshot. Cache failures are logged and
// swallowed: the in-memory collection stays authoritative.
func (s *Store) persistLocked() {
	snap := Snapshot{
		Documents:  make([]models.Document, len(s.docs)),
		Tombstones: s.tombstones,
		Unsynced:   s.unsynced,
	}
	for i, d := range s.docs {
		snap.Documents[i] = *d
	}

	ctx, cancel := context.WithTimeout(context.Background(), cacheWriteTimeout)
	defer cancel()
	if err := s.cache.Write(ctx, snap); err != nil {
		log.Printf("⚠️ Store: local cache write failed, continuing in memory: %v", err)
	}
}

func (s *Store) setLocked(docs []models.Document) {
	s.docs = make([]*models.Document, 0, len(docs))
	s.index = make(map[string]*models.Document, len(docs))
	for _, doc := range docs {
		if _, dup := s.index[doc.ID]; dup {
			continue
		}
		d := doc.Clone()
		s.docs = append(s.docs, &d)
		s.index[d.ID] = &d
	}
	s.sortLocked()
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.docs, func(i, j int) bool {
		return s.docs[i].CreatedAt.After(s.docs[j].CreatedAt)
	})
}

func (s *Store) notify(c Change) {
	s.listenersMu.RLock()
	ls := make([]Listener, len(s.listeners))
	copy(ls, s.listeners)
	s.listenersMu.RUnlock()

	for _, l := range ls {
		l(c)
	}
}
