// Package selection tracks which vendors are chosen for each service type.
//
// A Map is treated as an immutable value: every operation returns a new Map
// and leaves its argument untouched. The canonical shape holds ordered,
// de-duplicated vendor ids per service type and never keeps an empty entry.
package selection

import "slices"

// Map associates a service type with the vendor ids selected for it.
type Map map[string][]string

// Set is a set of vendor ids.
type Set map[string]struct{}

// NewSet builds a Set from ids.
func NewSet(ids ...string) Set {
	s := make(Set, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s Set) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Normalize returns the canonical form of m: blank ids and duplicates are
// removed and empty entries dropped.
func Normalize(m Map) Map {
	out := make(Map, len(m))
	for serviceType, ids := range m {
		if serviceType == "" {
			continue
		}
		seen := make(map[string]struct{}, len(ids))
		var kept []string
		for _, id := range ids {
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			out[serviceType] = kept
		}
	}
	return out
}

// Clone returns a deep copy of m.
func Clone(m Map) Map {
	out := make(Map, len(m))
	for serviceType, ids := range m {
		out[serviceType] = slices.Clone(ids)
	}
	return out
}

// Equal reports whether a and b select the same ids for the same service
// types. Order within a service type is ignored; a nil map equals an empty one.
func Equal(a, b Map) bool {
	if len(a) != len(b) {
		return false
	}
	for serviceType, ids := range a {
		other, ok := b[serviceType]
		if !ok || !slices.Equal(sorted(ids), sorted(other)) {
			return false
		}
	}
	return true
}

func sorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}

// IsSelected reports whether vendorID is selected under serviceType.
func IsSelected(m Map, serviceType, vendorID string) bool {
	return slices.Contains(m[serviceType], vendorID)
}

// Select adds vendorID to serviceType. Selecting an already selected vendor
// or passing a blank argument returns an unchanged copy.
func Select(m Map, serviceType, vendorID string) Map {
	out := Clone(m)
	if serviceType == "" || vendorID == "" || slices.Contains(out[serviceType], vendorID) {
		return out
	}
	out[serviceType] = append(out[serviceType], vendorID)
	return out
}

// Unselect removes vendorID from serviceType and drops the entry once it
// is empty.
func Unselect(m Map, serviceType, vendorID string) Map {
	out := Clone(m)
	ids, ok := out[serviceType]
	if !ok || vendorID == "" {
		return out
	}
	ids = slices.DeleteFunc(ids, func(id string) bool { return id == vendorID })
	if len(ids) == 0 {
		delete(out, serviceType)
		return out
	}
	out[serviceType] = ids
	return out
}

// Toggle selects vendorID if it is not selected under serviceType and
// unselects it otherwise. m is expected in Normalize form: toggling twice
// returns the input only when it holds no duplicates or empty entries.
func Toggle(m Map, serviceType, vendorID string) Map {
	if IsSelected(m, serviceType, vendorID) {
		return Unselect(m, serviceType, vendorID)
	}
	return Select(m, serviceType, vendorID)
}

// UnselectAll removes every selection for serviceType.
func UnselectAll(m Map, serviceType string) Map {
	out := Clone(m)
	delete(out, serviceType)
	return out
}

// Valid returns the selections whose ids are in validIDs. It is the read-side
// filter; the result is meant for computing totals, not for persisting.
func Valid(m Map, validIDs Set) Map {
	out, _ := CleanupOrphans(m, validIDs)
	return out
}

// CleanupOrphans removes every id missing from validIDs, drops entries left
// empty and reports how many ids were removed. Applying it twice yields the
// same map as applying it once.
func CleanupOrphans(m Map, validIDs Set) (Map, int) {
	out := make(Map, len(m))
	removed := 0
	for serviceType, ids := range m {
		var kept []string
		for _, id := range ids {
			if !validIDs.Has(id) {
				removed++
				continue
			}
			kept = append(kept, id)
		}
		if len(kept) > 0 {
			out[serviceType] = kept
		}
	}
	return out, removed
}

// IDs returns every selected vendor id once, in service type order.
func IDs(m Map) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, serviceType := range ServiceTypes(m) {
		for _, id := range m[serviceType] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// ServiceTypes returns the keys of m in sorted order.
func ServiceTypes(m Map) []string {
	keys := make([]string, 0, len(m))
	for serviceType := range m {
		keys = append(keys, serviceType)
	}
	slices.Sort(keys)
	return keys
}
