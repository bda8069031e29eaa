package schema

import (
	"sync"

	"datapulse/internal/dataset"
)

// Mapping records which physical column serves each logical field for one
// dataset.
type Mapping map[Field]string

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for f, c := range m {
		out[f] = c
	}
	return out
}

// Resolve finds the physical column backing a logical field. Resolution
// order, first hit wins:
//
//  1. An explicit mapping entry, as long as the column still exists. User
//     overrides are trusted even when they look wrong.
//  2. Exact match of the normalized column name against the field's synonym
//     list for the dataset's type.
//  3. Regex fallback patterns over normalized column names.
//
// For numeric fields a candidate from steps 2 and 3 must additionally hold
// at least one numerically coercible cell, otherwise the next candidate is
// tried. Returns ("", false) when nothing qualifies; callers degrade to a
// guidance message, never an error path.
func Resolve(ds *dataset.Dataset, mapping Mapping, field Field) (string, bool) {
	if ds == nil {
		return "", false
	}

	if col, ok := mapping[field]; ok && ds.HasColumn(col) {
		return col, true
	}

	normalized := make([]string, len(ds.Columns))
	for i, c := range ds.Columns {
		normalized[i] = normalizeName(c)
	}

	if synonyms, ok := columnSynonyms[ds.Type][field]; ok {
		for _, syn := range synonyms {
			for i, n := range normalized {
				if n == syn && passesNumericGate(ds, ds.Columns[i], field) {
					return ds.Columns[i], true
				}
			}
		}
	}

	for _, re := range columnPatterns[field] {
		for i, n := range normalized {
			if re.MatchString(n) && passesNumericGate(ds, ds.Columns[i], field) {
				return ds.Columns[i], true
			}
		}
	}

	return "", false
}

// passesNumericGate rejects name-matched candidates for numeric fields when
// the column contains no coercible numbers at all.
func passesNumericGate(ds *dataset.Dataset, column string, field Field) bool {
	if !numericFields[field] {
		return true
	}
	idx := ds.ColumnIndex(column)
	if idx < 0 {
		return false
	}
	for _, row := range ds.Rows {
		if idx >= len(row) {
			continue
		}
		if _, ok := row[idx].AsNumber(); ok {
			return true
		}
	}
	return len(ds.Rows) == 0
}

// AutoMap resolves every field known for the dataset's type and returns the
// successful detections. Intended to run once at import so later queries
// reuse the stored result.
func AutoMap(ds *dataset.Dataset) Mapping {
	m := make(Mapping)
	for _, f := range FieldsFor(ds.Type) {
		if col, ok := Resolve(ds, nil, f); ok {
			m[f] = col
		}
	}
	return m
}

// MappingStore keeps the field-to-column mapping per dataset type. Explicit
// user overrides always win over stored auto-detections.
type MappingStore struct {
	mu        sync.RWMutex
	auto      map[dataset.Type]Mapping
	overrides map[dataset.Type]Mapping
}

func NewMappingStore() *MappingStore {
	return &MappingStore{
		auto:      make(map[dataset.Type]Mapping),
		overrides: make(map[dataset.Type]Mapping),
	}
}

// Get returns the effective mapping for a type, overrides layered on top of
// auto-detections.
func (s *MappingStore) Get(t dataset.Type) Mapping {
	s.mu.RLock()
	defer s.mu.RUnlock()

	merged := make(Mapping)
	for f, c := range s.auto[t] {
		merged[f] = c
	}
	for f, c := range s.overrides[t] {
		merged[f] = c
	}
	return merged
}

// PutAuto replaces the stored auto-detected mapping for a type.
func (s *MappingStore) PutAuto(t dataset.Type, m Mapping) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auto[t] = m.Clone()
}

// SetOverride pins a field to a column for a type. An empty column clears
// the override.
func (s *MappingStore) SetOverride(t dataset.Type, field Field, column string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.overrides[t] == nil {
		s.overrides[t] = make(Mapping)
	}
	if column == "" {
		delete(s.overrides[t], field)
		return
	}
	s.overrides[t][field] = column
}
