package sweep

// Entry is a single key/value pair in a [Document].
type Entry struct {
	Key   string
	Value Value
}

// Document is an ordered mapping from configuration keys to [Value]s.
// Key order is the order of the source document; it affects nothing observable
// in the expansion besides iteration order. A Document is immutable once
// handed to an [Engine].
type Document struct {
	index   map[string]int
	entries []Entry
}

// NewDocument creates a [Document] from the given entries, in order.
// Later duplicate keys overwrite earlier ones in place.
func NewDocument(entries ...Entry) *Document {
	d := &Document{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		d.Set(e.Key, e.Value)
	}

	return d
}

// Set adds or replaces the value for a key. A new key is appended at the end;
// an existing key keeps its position.
func (d *Document) Set(key string, v Value) {
	if i, ok := d.index[key]; ok {
		d.entries[i].Value = v

		return
	}

	d.index[key] = len(d.entries)
	d.entries = append(d.entries, Entry{Key: key, Value: v})
}

// SetDefault sets the value for a key only if the key is absent.
func (d *Document) SetDefault(key string, v Value) {
	if _, ok := d.index[key]; !ok {
		d.Set(key, v)
	}
}

// Get returns the value for a key.
func (d *Document) Get(key string) (Value, bool) {
	i, ok := d.index[key]
	if !ok {
		return Value{}, false
	}

	return d.entries[i].Value, true
}

// Has reports whether the key is present.
func (d *Document) Has(key string) bool {
	_, ok := d.index[key]

	return ok
}

// Entries returns the entries in document order. The returned slice is shared;
// callers must not mutate it.
func (d *Document) Entries() []Entry {
	return d.entries
}

// Keys returns the keys in document order.
func (d *Document) Keys() []string {
	keys := make([]string, len(d.entries))
	for i, e := range d.entries {
		keys[i] = e.Key
	}

	return keys
}

// Len returns the number of keys.
func (d *Document) Len() int {
	return len(d.entries)
}
