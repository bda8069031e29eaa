package dataset

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// Info summarizes one held dataset for listings and guidance messages.
type Info struct {
	Type     Type      `json:"type"`
	Label    string    `json:"label"`
	Name     string    `json:"name"`
	Rows     int       `json:"rows"`
	Columns  int       `json:"columns"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Store holds the active datasets, one per type. A single writer mutates it
// during import; queries take read locks and work on the snapshot they get.
type Store struct {
	mu       sync.RWMutex
	sets     map[Type]*Dataset
	loadedAt map[Type]time.Time
}

func NewStore() *Store {
	return &Store{
		sets:     make(map[Type]*Dataset),
		loadedAt: make(map[Type]time.Time),
	}
}

// Get returns the dataset for a type, or nil when none is loaded.
func (s *Store) Get(t Type) *Dataset {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sets[t]
}

// Has reports whether a non-empty dataset of the type is loaded.
func (s *Store) Has(t Type) bool {
	return s.Get(t).Len() > 0
}

// Put replaces the dataset for its type.
func (s *Store) Put(ds *Dataset) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sets[ds.Type] = ds
	s.loadedAt[ds.Type] = time.Now()
}

// Merge appends incoming rows to any existing dataset of the same type and
// deduplicates. When dedupKey names a column present in both tables the key
// value decides identity (later imports win); otherwise whole-row equality
// is used. Returns the number of duplicate rows dropped.
func (s *Store) Merge(incoming *Dataset, dedupKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.sets[incoming.Type]
	if existing == nil || len(existing.Rows) == 0 {
		before := len(incoming.Rows)
		if dedupKey != "" && incoming.HasColumn(dedupKey) {
			incoming.Rows = dedupeByKey(incoming, dedupKey)
		} else {
			incoming.Rows = dedupeExact(incoming.Rows)
		}
		s.sets[incoming.Type] = incoming
		s.loadedAt[incoming.Type] = time.Now()
		return before - len(incoming.Rows)
	}

	merged := existing
	if !sameColumns(existing.Columns, incoming.Columns) {
		// Schemas diverged: the fresh import wins outright rather than
		// producing a ragged table.
		s.sets[incoming.Type] = incoming
		s.loadedAt[incoming.Type] = time.Now()
		return 0
	}

	merged.Rows = append(merged.Rows, incoming.Rows...)
	before := len(merged.Rows)

	if dedupKey != "" && merged.HasColumn(dedupKey) {
		merged.Rows = dedupeByKey(merged, dedupKey)
	} else {
		merged.Rows = dedupeExact(merged.Rows)
	}

	s.loadedAt[incoming.Type] = time.Now()
	return before - len(merged.Rows)
}

// Remove drops the dataset for a type.
func (s *Store) Remove(t Type) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, t)
	delete(s.loadedAt, t)
}

// List describes every loaded dataset, ordered by type.
func (s *Store) List() []Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]Info, 0, len(s.sets))
	for t, ds := range s.sets {
		infos = append(infos, Info{
			Type:     t,
			Label:    t.Label(),
			Name:     ds.Name,
			Rows:     len(ds.Rows),
			Columns:  len(ds.Columns),
			LoadedAt: s.loadedAt[t],
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Type < infos[j].Type })
	return infos
}

// TotalRows sums row counts across every dataset.
func (s *Store) TotalRows() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, ds := range s.sets {
		total += len(ds.Rows)
	}
	return total
}

// dedupeByKey keeps the last occurrence of each key value. Rows with a
// missing key are kept unconditionally.
func dedupeByKey(ds *Dataset, key string) []Row {
	idx := ds.ColumnIndex(key)
	lastSeen := make(map[string]int)
	for i, r := range ds.Rows {
		if idx >= len(r) || r[idx].IsMissing() {
			continue
		}
		lastSeen[r[idx].Display()] = i
	}

	out := ds.Rows[:0]
	for i, r := range ds.Rows {
		if idx < len(r) && !r[idx].IsMissing() {
			if lastSeen[r[idx].Display()] != i {
				continue
			}
		}
		out = append(out, r)
	}
	return out
}

// dedupeExact drops rows whose rendered cells match an earlier row exactly.
func dedupeExact(rows []Row) []Row {
	seen := make(map[string]bool, len(rows))
	out := rows[:0]
	for _, r := range rows {
		key := fingerprint(r)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, r)
	}
	return out
}

func fingerprint(r Row) string {
	var b strings.Builder
	for _, v := range r {
		b.WriteString(v.Display())
		b.WriteByte('\x1f')
	}
	return b.String()
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
