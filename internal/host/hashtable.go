package host

import (
	"fmt"
	"strconv"
)

// Hashtable element kinds.
const (
	KindString  = "string"
	KindInteger = "integer"
	KindPointer = "pointer"
)

// Hashtable is the host's key/value map. Keys are strings; values are of
// the declared value kind. Iteration follows insertion order.
type Hashtable struct {
	keyKind   string
	valueKind string
	keys      []string
	values    map[string]any
}

// NewHashtable allocates a hashtable. It returns nil when the element kinds
// are not supported (keys must be strings).
func NewHashtable(size int, keyKind, valueKind string) *Hashtable {
	if keyKind != KindString {
		return nil
	}
	switch valueKind {
	case KindString, KindInteger, KindPointer:
	default:
		return nil
	}
	if size < 0 {
		size = 0
	}
	return &Hashtable{
		keyKind:   keyKind,
		valueKind: valueKind,
		keys:      make([]string, 0, size),
		values:    make(map[string]any, size),
	}
}

// KeyKind returns the declared key kind.
func (h *Hashtable) KeyKind() string { return h.keyKind }

// ValueKind returns the declared value kind.
func (h *Hashtable) ValueKind() string { return h.valueKind }

// Set inserts or replaces the value for key. Replacing keeps the original
// position.
func (h *Hashtable) Set(key string, value any) {
	if _, exists := h.values[key]; !exists {
		h.keys = append(h.keys, key)
	}
	h.values[key] = value
}

// Get returns the value for key.
func (h *Hashtable) Get(key string) (any, bool) {
	v, ok := h.values[key]
	return v, ok
}

// GetString returns the value for key rendered as text.
func (h *Hashtable) GetString(key string) (string, bool) {
	v, ok := h.values[key]
	if !ok {
		return "", false
	}
	return valueString(v), true
}

// Remove deletes key.
func (h *Hashtable) Remove(key string) {
	if _, exists := h.values[key]; !exists {
		return
	}
	delete(h.values, key)
	for i, k := range h.keys {
		if k == key {
			h.keys = append(h.keys[:i], h.keys[i+1:]...)
			return
		}
	}
}

// Len returns the number of entries.
func (h *Hashtable) Len() int {
	return len(h.keys)
}

// Keys returns the keys in insertion order.
func (h *Hashtable) Keys() []string {
	return append([]string(nil), h.keys...)
}

// Map calls fn for every entry in insertion order.
func (h *Hashtable) Map(fn func(key string, value any)) {
	for _, k := range h.Keys() {
		fn(k, h.values[k])
	}
}

// MapString calls fn for every entry with the value rendered as text.
func (h *Hashtable) MapString(fn func(key, value string)) {
	h.Map(func(key string, value any) {
		fn(key, valueString(value))
	})
}

func valueString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%p", val)
	}
}
