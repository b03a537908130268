package generic

// OrderedMap is a map which remembers the order in which keys were first set. Overwriting an existing key keeps its
// original position. The zero value is an empty map ready to use.
type OrderedMap[K comparable, V any] struct {
	keys   []K
	values map[K]V
}

// Set stores value under key, appending key to the order if it is new.
func (m *OrderedMap[K, V]) Set(key K, value V) {
	if m.values == nil {
		m.values = make(map[K]V)
	}
	if _, found := m.values[key]; !found {
		m.keys = append(m.keys, key)
	}
	m.values[key] = value
}

// Get returns the value stored under key, and whether it was present.
func (m OrderedMap[K, V]) Get(key K) (V, bool) {
	value, found := m.values[key]
	return value, found
}

// Len returns the number of keys.
func (m OrderedMap[K, V]) Len() int {
	return len(m.keys)
}

// Keys returns a copy of the keys in order.
func (m OrderedMap[K, V]) Keys() []K {
	keys := make([]K, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Each calls f for every entry in order.
func (m OrderedMap[K, V]) Each(f func(key K, value V)) {
	for _, key := range m.keys {
		f(key, m.values[key])
	}
}

// Clone returns a copy that shares no storage with m.
func (m OrderedMap[K, V]) Clone() OrderedMap[K, V] {
	res := OrderedMap[K, V]{
		keys:   make([]K, len(m.keys)),
		values: make(map[K]V, len(m.values)),
	}
	copy(res.keys, m.keys)
	for k, v := range m.values {
		res.values[k] = v
	}
	return res
}

// Merge returns a new map with the entries of m followed by those of other, where other wins on key collision. Neither
// m nor other is modified.
func (m OrderedMap[K, V]) Merge(other OrderedMap[K, V]) OrderedMap[K, V] {
	res := m.Clone()
	other.Each(res.Set)
	return res
}
