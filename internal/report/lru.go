package report

import (
	"container/list"
	"sync"
)

// LRUStore keeps the most recent transcripts in memory and writes every
// transcript through to a backing Store, which serves cache misses.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // of *RunRecord, most recent at front
	items map[string]*list.Element
}

// NewLRUStore returns a store caching up to cap transcripts in front of
// back. A cap below 1 is treated as 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	return &LRUStore{
		cap:   max(cap, 1),
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element),
	}
}

// Save caches rec and writes it through to the backing store.
func (s *LRUStore) Save(rec *RunRecord) error {
	if err := validID(rec.ID); err != nil {
		return err
	}
	s.remember(rec)
	return s.back.Save(rec)
}

// Load returns the cached transcript for runID, falling back to the
// backing store. Hits become most recent.
func (s *LRUStore) Load(runID string) (*RunRecord, error) {
	s.mu.Lock()
	if el, ok := s.items[runID]; ok {
		s.order.MoveToFront(el)
		rec := el.Value.(*RunRecord)
		s.mu.Unlock()
		return rec, nil
	}
	s.mu.Unlock()

	rec, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.remember(rec)
	return rec, nil
}

// Recent returns up to n cached transcripts, most recent first.
func (s *LRUStore) Recent(n int) []*RunRecord {
	if n <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*RunRecord, 0, min(n, s.order.Len()))
	for el := s.order.Front(); el != nil && len(out) < n; el = el.Next() {
		out = append(out, el.Value.(*RunRecord))
	}
	return out
}

func (s *LRUStore) remember(rec *RunRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if el, ok := s.items[rec.ID]; ok {
		el.Value = rec
		s.order.MoveToFront(el)
		return
	}
	s.items[rec.ID] = s.order.PushFront(rec)
	for s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*RunRecord).ID)
	}
}
