package types

import "sort"

// Named is implemented by every entity; the name is its identity.
type Named interface {
	comparable
	Name() string
}

// Set is a collection of entities keyed by name. Inserting an entity whose
// name is already present replaces the stored one. The zero value is an
// empty set ready to use. Set is not safe for concurrent use.
type Set[T Named] struct {
	items map[string]T
}

// NewSet builds a set from items; later duplicates win.
func NewSet[T Named](items ...T) *Set[T] {
	s := &Set[T]{items: make(map[string]T, len(items))}
	for _, item := range items {
		s.Insert(item)
	}
	return s
}

// Insert adds item, replacing any entity with the same name.
func (s *Set[T]) Insert(item T) {
	var zero T
	if item == zero {
		return
	}
	if s.items == nil {
		s.items = make(map[string]T)
	}
	s.items[item.Name()] = item
}

// Remove deletes the entity named name and returns it.
func (s *Set[T]) Remove(name string) (T, bool) {
	item, ok := s.items[name]
	if ok {
		delete(s.items, name)
	}
	return item, ok
}

// Get returns the entity named name.
func (s *Set[T]) Get(name string) (T, bool) {
	item, ok := s.items[name]
	return item, ok
}

// Contains reports whether an entity named name is present.
func (s *Set[T]) Contains(name string) bool {
	_, ok := s.items[name]
	return ok
}

// Len returns the number of entities.
func (s *Set[T]) Len() int { return len(s.items) }

// Clear removes every entity.
func (s *Set[T]) Clear() { s.items = nil }

// Items returns the entities sorted by name.
func (s *Set[T]) Items() []T {
	out := make([]T, 0, len(s.items))
	for _, item := range s.items {
		out = append(out, item)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Names returns the entity names in sorted order.
func (s *Set[T]) Names() []string {
	names := make([]string, 0, len(s.items))
	for name := range s.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Replace swaps the contents for items.
func (s *Set[T]) Replace(items []T) {
	s.items = make(map[string]T, len(items))
	for _, item := range items {
		s.Insert(item)
	}
}

// Subtract returns the entities of s whose names do not appear in others,
// sorted by name.
func (s *Set[T]) Subtract(others []T) []T {
	exclude := make(map[string]struct{}, len(others))
	for _, other := range others {
		exclude[other.Name()] = struct{}{}
	}
	var out []T
	for _, item := range s.Items() {
		if _, skip := exclude[item.Name()]; !skip {
			out = append(out, item)
		}
	}
	return out
}
