// Package ordered provides the insertion-ordered string map that list and
// command personalization is computed over. Talon lists and command sets are
// order-sensitive, so a plain map will not do.
package ordered

// Map is a key→value mapping that remembers insertion order of first
// appearance. Setting an existing key updates the value in place without
// moving it; renaming a key keeps its position. The zero value is usable.
type Map struct {
	keys  []string
	vals  []string
	index map[string]int
}

// New returns an empty Map.
func New() *Map {
	return &Map{index: make(map[string]int)}
}

// Set inserts key at the end, or overwrites its value in place when it
// already exists.
func (m *Map) Set(key, value string) {
	if m.index == nil {
		m.index = make(map[string]int)
	}
	if i, ok := m.index[key]; ok {
		m.vals[i] = value
		return
	}
	m.keys = append(m.keys, key)
	m.vals = append(m.vals, value)
	m.index[key] = len(m.keys) - 1
}

// Get returns the value for key.
func (m *Map) Get(key string) (string, bool) {
	if m.index == nil {
		return "", false
	}
	i, ok := m.index[key]
	if !ok {
		return "", false
	}
	return m.vals[i], true
}

// Has reports whether key is present.
func (m *Map) Has(key string) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	i, ok := m.index[key]
	if !ok {
		return false
	}
	m.keys = append(m.keys[:i], m.keys[i+1:]...)
	m.vals = append(m.vals[:i], m.vals[i+1:]...)
	delete(m.index, key)
	for j := i; j < len(m.keys); j++ {
		m.index[m.keys[j]] = j
	}
	return true
}

// Rename changes old's key to new, preserving its value and position. It
// reports false when old is absent. Renaming onto an existing key replaces
// that key's binding as well, keeping old's slot.
func (m *Map) Rename(old, new string) bool {
	i, ok := m.index[old]
	if !ok {
		return false
	}
	if old == new {
		return true
	}
	if j, exists := m.index[new]; exists && j != i {
		// The target name is already taken; drop that entry first so the
		// renamed key keeps old's position.
		m.Delete(new)
		i = m.index[old]
	}
	m.keys[i] = new
	delete(m.index, old)
	m.index[new] = i
	return true
}

// Len returns the number of entries.
func (m *Map) Len() int { return len(m.keys) }

// Keys returns the keys in order. The slice is shared; callers must not
// mutate it.
func (m *Map) Keys() []string { return m.keys }

// Each calls fn for every entry in order.
func (m *Map) Each(fn func(key, value string)) {
	for i, k := range m.keys {
		fn(k, m.vals[i])
	}
}

// Clone returns an independent copy.
func (m *Map) Clone() *Map {
	out := New()
	m.Each(func(k, v string) { out.Set(k, v) })
	return out
}

// Pairs returns the entries as a [][2]string in order, for tests and diffs.
func (m *Map) Pairs() [][2]string {
	out := make([][2]string, 0, len(m.keys))
	m.Each(func(k, v string) { out = append(out, [2]string{k, v}) })
	return out
}
