package scans

import (
	"sort"
	"sync"

	domain "github.com/bryanwahyu/autovuln/internal/domain/scans"
)

type entry struct {
	scan domain.Scan
	done chan struct{}
}

// registry is the in-memory store of every scan started by this process.
// Semua akses lewat satu mutex; reads return deep copies.
type registry struct {
	mu      sync.Mutex
	entries map[domain.ScanID]*entry
}

func newRegistry() *registry {
	return &registry{entries: make(map[domain.ScanID]*entry)}
}

func (r *registry) add(s domain.Scan) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &entry{scan: s.Clone(), done: make(chan struct{})}
	r.entries[s.ID] = e
	return e
}

// update applies fn under the lock so several fields change together.
func (r *registry) update(id domain.ScanID, fn func(*domain.Scan) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.ErrNotFound
	}
	return fn(&e.scan)
}

func (r *registry) get(id domain.ScanID) (domain.Scan, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return domain.Scan{}, false
	}
	return e.scan.Clone(), true
}

func (r *registry) done(id domain.ScanID) (<-chan struct{}, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	return e.done, true
}

// list returns copies, newest first.
func (r *registry) list() []domain.Scan {
	r.mu.Lock()
	out := make([]domain.Scan, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e.scan.Clone())
	}
	r.mu.Unlock()
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(ss []domain.Scan) {
	sort.SliceStable(ss, func(i, j int) bool {
		if ss[i].CreatedAt.Equal(ss[j].CreatedAt) {
			return ss[i].ID > ss[j].ID
		}
		return ss[i].CreatedAt.After(ss[j].CreatedAt)
	})
}
