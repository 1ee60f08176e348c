package grammar

// RawRecord is the grammar-level output unit: an insertion-ordered
// mapping of grammar-defined field names to string values. One
// section commonly yields many records (one per interface, ACL entry,
// route). Type names the record shape within its grammar — a single
// command such as "show running-config" emits heterogeneous records
// and the normalizer selects its mapping table by Type.
type RawRecord struct {
	Type   string
	keys   []string
	values map[string]string
}

// NewRawRecord creates an empty record of the given type.
func NewRawRecord(recordType string) RawRecord {
	return RawRecord{Type: recordType, values: make(map[string]string)}
}

// Set stores a field value, preserving first-insertion order for
// iteration. Setting an existing key overwrites in place.
func (r *RawRecord) Set(key, value string) {
	if r.values == nil {
		r.values = make(map[string]string)
	}
	if _, ok := r.values[key]; !ok {
		r.keys = append(r.keys, key)
	}
	r.values[key] = value
}

// Append appends to an existing field value using the given
// separator, or sets it if absent. Used for continuation lines.
func (r *RawRecord) Append(key, value, sep string) {
	if existing, ok := r.values[key]; ok && existing != "" {
		r.values[key] = existing + sep + value
		return
	}
	r.Set(key, value)
}

// Get returns a field value and whether it was present.
func (r RawRecord) Get(key string) (string, bool) {
	v, ok := r.values[key]
	return v, ok
}

// Keys returns the field names in insertion order.
func (r RawRecord) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r RawRecord) Len() int { return len(r.keys) }
