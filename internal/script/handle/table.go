package handle

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// Empty is the token for a nil reference.
const Empty = ""

const tokenLen = 2 + 3*8

// Table maps live native references to tokens.
type Table struct {
	mu    sync.RWMutex
	epoch uint32
	slots []slot
	free  []uint32
	index map[any]uint32
}

type slot struct {
	ref  any
	gen  uint32
	live bool
}

// Option configures a Table.
type Option func(*Table)

// WithEpoch fixes the table epoch instead of deriving it from a random UUID.
func WithEpoch(epoch uint32) Option {
	return func(t *Table) {
		if epoch != 0 {
			t.epoch = epoch
		}
	}
}

// NewTable creates an empty handle table with a fresh epoch.
func NewTable(opts ...Option) *Table {
	t := &Table{
		slots: make([]slot, 0, 64),
		free:  make([]uint32, 0, 16),
		index: make(map[any]uint32),
	}
	for _, opt := range opts {
		opt(t)
	}
	for t.epoch == 0 {
		id := uuid.New()
		t.epoch = binary.BigEndian.Uint32(id[:4])
	}
	return t
}

// Epoch returns the table epoch embedded in every token.
func (t *Table) Epoch() uint32 {
	return t.epoch
}

// Encode returns the token for ref, allocating a slot on first use.
// The same live reference always yields the same token. Nil references and
// values that cannot be used as map keys encode to Empty.
func (t *Table) Encode(ref any) string {
	if isNil(ref) || !reflect.TypeOf(ref).Comparable() {
		return Empty
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if idx, ok := t.index[ref]; ok {
		return t.format(idx, t.slots[idx-1].gen)
	}

	var idx uint32
	if n := len(t.free); n > 0 {
		idx = t.free[n-1]
		t.free = t.free[:n-1]
		s := &t.slots[idx-1]
		s.ref = ref
		s.live = true
	} else {
		t.slots = append(t.slots, slot{ref: ref, gen: 1, live: true})
		idx = uint32(len(t.slots))
	}
	t.index[ref] = idx
	return t.format(idx, t.slots[idx-1].gen)
}

// Decode returns the live reference named by token, or nil.
func (t *Table) Decode(token string) any {
	epoch, idx, gen, ok := parse(token)
	if !ok || epoch != t.epoch || idx == 0 {
		return nil
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	if int(idx) > len(t.slots) {
		return nil
	}
	s := t.slots[idx-1]
	if !s.live || s.gen != gen {
		return nil
	}
	return s.ref
}

// Release invalidates every token issued for ref. It reports whether ref
// was known to the table.
func (t *Table) Release(ref any) bool {
	if isNil(ref) || !reflect.TypeOf(ref).Comparable() {
		return false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	idx, ok := t.index[ref]
	if !ok {
		return false
	}
	delete(t.index, ref)

	s := &t.slots[idx-1]
	s.ref = nil
	s.live = false
	s.gen++
	if s.gen == 0 {
		s.gen = 1
	}
	t.free = append(t.free, idx)
	return true
}

// Len returns the number of live references.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.index)
}

// As decodes token and asserts the reference to T.
// A token for a reference of another type yields the zero value and false.
func As[T any](t *Table, token string) (T, bool) {
	var zero T
	ref := t.Decode(token)
	if ref == nil {
		return zero, false
	}
	v, ok := ref.(T)
	if !ok {
		return zero, false
	}
	return v, true
}

func (t *Table) format(idx, gen uint32) string {
	return fmt.Sprintf("0x%08x%08x%08x", t.epoch, idx, gen)
}

func parse(token string) (epoch, idx, gen uint32, ok bool) {
	if len(token) != tokenLen || token[0] != '0' || token[1] != 'x' {
		return 0, 0, 0, false
	}
	var parts [3]uint32
	for i := range parts {
		start := 2 + i*8
		v, err := strconv.ParseUint(token[start:start+8], 16, 32)
		if err != nil {
			return 0, 0, 0, false
		}
		parts[i] = uint32(v)
	}
	return parts[0], parts[1], parts[2], true
}

func isNil(ref any) bool {
	if ref == nil {
		return true
	}
	rv := reflect.ValueOf(ref)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
