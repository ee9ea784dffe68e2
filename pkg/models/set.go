package models

import "sort"

// Set is a string set keyed by url or content hash
type Set map[string]struct{}

// NewSet creates a set holding values
func NewSet(values ...string) Set {
	s := make(Set, len(values))
	for _, v := range values {
		s.Add(v)
	}
	return s
}

// Has reports membership
func (s Set) Has(v string) bool {
	_, ok := s[v]
	return ok
}

// Add inserts v and reports whether it was new
func (s Set) Add(v string) bool {
	if s.Has(v) {
		return false
	}
	s[v] = struct{}{}
	return true
}

// Len returns the number of members
func (s Set) Len() int {
	return len(s)
}

// Clone returns an independent copy
func (s Set) Clone() Set {
	c := make(Set, len(s))
	for v := range s {
		c[v] = struct{}{}
	}
	return c
}

// Values returns the members in sorted order
func (s Set) Values() []string {
	values := make([]string, 0, len(s))
	for v := range s {
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}
