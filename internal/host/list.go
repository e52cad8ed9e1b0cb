package host

import (
	"golang.org/x/text/cases"
)

// Insert positions for List.Add.
const (
	WhereSort      = "sort"
	WhereBeginning = "beginning"
	WhereEnd       = "end"
)

var fold = cases.Fold()

// List is an ordered list of strings, each carrying optional user data.
type List struct {
	items []*ListItem
}

// ListItem is one element of a List.
type ListItem struct {
	Data     string
	UserData any

	list *List
}

// NewList creates an empty list.
func NewList() *List {
	return &List{}
}

// Add inserts data at where (sort, beginning or end) and returns the new
// item. Sorted insertion compares case-folded text. An unknown position is
// treated as end.
func (l *List) Add(data, where string, userData any) *ListItem {
	item := &ListItem{Data: data, UserData: userData, list: l}

	pos := len(l.items)
	switch where {
	case WhereBeginning:
		pos = 0
	case WhereSort:
		key := fold.String(data)
		for i, it := range l.items {
			if key < fold.String(it.Data) {
				pos = i
				break
			}
		}
	}

	l.items = append(l.items, nil)
	copy(l.items[pos+1:], l.items[pos:])
	l.items[pos] = item
	return item
}

// Search returns the first item whose data equals data.
func (l *List) Search(data string) *ListItem {
	if i := l.SearchPos(data); i >= 0 {
		return l.items[i]
	}
	return nil
}

// SearchPos returns the position of the first item whose data equals data,
// or -1.
func (l *List) SearchPos(data string) int {
	for i, it := range l.items {
		if it.Data == data {
			return i
		}
	}
	return -1
}

// CaseSearch is Search ignoring case.
func (l *List) CaseSearch(data string) *ListItem {
	if i := l.CaseSearchPos(data); i >= 0 {
		return l.items[i]
	}
	return nil
}

// CaseSearchPos is SearchPos ignoring case.
func (l *List) CaseSearchPos(data string) int {
	key := fold.String(data)
	for i, it := range l.items {
		if fold.String(it.Data) == key {
			return i
		}
	}
	return -1
}

// Get returns the item at position, or nil.
func (l *List) Get(position int) *ListItem {
	if position < 0 || position >= len(l.items) {
		return nil
	}
	return l.items[position]
}

// Size returns the number of items.
func (l *List) Size() int {
	return len(l.items)
}

// Strings returns the data of every item in order.
func (l *List) Strings() []string {
	out := make([]string, len(l.items))
	for i, it := range l.items {
		out[i] = it.Data
	}
	return out
}

// Remove deletes item from the list. It reports whether item was found.
func (l *List) Remove(item *ListItem) bool {
	for i, it := range l.items {
		if it == item {
			l.items = append(l.items[:i], l.items[i+1:]...)
			item.list = nil
			return true
		}
	}
	return false
}

// RemoveAll deletes every item and returns the removed items.
func (l *List) RemoveAll() []*ListItem {
	removed := l.items
	for _, it := range removed {
		it.list = nil
	}
	l.items = nil
	return removed
}

// Field implements Fielder for expression evaluation.
func (l *List) Field(name string) (string, bool) {
	if name == "size" {
		return itoa(len(l.items)), true
	}
	return "", false
}

// Set replaces the item data.
func (it *ListItem) Set(value string) {
	it.Data = value
}

// Next returns the following item, or nil.
func (it *ListItem) Next() *ListItem {
	return it.sibling(1)
}

// Prev returns the preceding item, or nil.
func (it *ListItem) Prev() *ListItem {
	return it.sibling(-1)
}

// String returns the item data.
func (it *ListItem) String() string {
	return it.Data
}

// Field implements Fielder for expression evaluation.
func (it *ListItem) Field(name string) (string, bool) {
	if name == "data" {
		return it.Data, true
	}
	return "", false
}

func (it *ListItem) sibling(delta int) *ListItem {
	if it.list == nil {
		return nil
	}
	for i, other := range it.list.items {
		if other == it {
			return it.list.Get(i + delta)
		}
	}
	return nil
}
