package api

import (
	"github.com/dshills/scriptbridge/internal/host"
)

// ListModule exposes the host ordered-list ADT. Lists and items cross the
// boundary as handle tokens.
type ListModule struct{}

// Name returns the module name.
func (ListModule) Name() string { return "list" }

// Bindings returns the module operations.
func (m ListModule) Bindings() []Binding {
	return []Binding{
		{Name: "list_new", Result: ResultHandle, Fn: m.newList},
		{Name: "list_add", Params: []Kind{ArgHandle, ArgString, ArgString, ArgHandle}, Result: ResultHandle, Fn: m.add},
		{Name: "list_search", Params: []Kind{ArgHandle, ArgString}, Result: ResultHandle, Fn: m.search},
		{Name: "list_search_pos", Params: []Kind{ArgHandle, ArgString}, Result: ResultInt, Empty: intp(-1), Fn: m.searchPos},
		{Name: "list_casesearch", Params: []Kind{ArgHandle, ArgString}, Result: ResultHandle, Fn: m.caseSearch},
		{Name: "list_casesearch_pos", Params: []Kind{ArgHandle, ArgString}, Result: ResultInt, Empty: intp(-1), Fn: m.caseSearchPos},
		{Name: "list_get", Params: []Kind{ArgHandle, ArgInt}, Result: ResultHandle, Fn: m.get},
		{Name: "list_set", Params: []Kind{ArgHandle, ArgString}, Result: ResultInt, Fn: m.set},
		{Name: "list_next", Params: []Kind{ArgHandle}, Result: ResultHandle, Fn: m.next},
		{Name: "list_prev", Params: []Kind{ArgHandle}, Result: ResultHandle, Fn: m.prev},
		{Name: "list_string", Params: []Kind{ArgHandle}, Result: ResultString, Fn: m.itemString},
		{Name: "list_size", Params: []Kind{ArgHandle}, Result: ResultInt, Fn: m.size},
		{Name: "list_remove", Params: []Kind{ArgHandle, ArgHandle}, Result: ResultInt, Fn: m.remove},
		{Name: "list_remove_all", Params: []Kind{ArgHandle}, Result: ResultInt, Fn: m.removeAll},
		{Name: "list_free", Params: []Kind{ArgHandle}, Result: ResultInt, Fn: m.free},
	}
}

// The helpers below return nil results for stale or foreign handles so
// the dispatcher answers with the sentinel.

func (ListModule) newList(c *Call) any {
	l := host.NewList()
	c.Env.Session.Track(l)
	return l
}

// list_add(list, data, where, user_data) -> item
func (ListModule) add(c *Call) any {
	l, ok := c.Handle(0).(*host.List)
	if !ok {
		return nil
	}
	return l.Add(c.String(1), c.String(2), c.Handle(3))
}

func (ListModule) search(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		if item := l.Search(c.String(1)); item != nil {
			return item
		}
	}
	return nil
}

func (ListModule) searchPos(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		return l.SearchPos(c.String(1))
	}
	return -1
}

func (ListModule) caseSearch(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		if item := l.CaseSearch(c.String(1)); item != nil {
			return item
		}
	}
	return nil
}

func (ListModule) caseSearchPos(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		return l.CaseSearchPos(c.String(1))
	}
	return -1
}

func (ListModule) get(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		if item := l.Get(c.Int(1)); item != nil {
			return item
		}
	}
	return nil
}

func (ListModule) set(c *Call) any {
	item, ok := c.Handle(0).(*host.ListItem)
	if !ok {
		return ReturnError
	}
	item.Set(c.String(1))
	return ReturnOK
}

func (ListModule) next(c *Call) any {
	if item, ok := c.Handle(0).(*host.ListItem); ok {
		if next := item.Next(); next != nil {
			return next
		}
	}
	return nil
}

func (ListModule) prev(c *Call) any {
	if item, ok := c.Handle(0).(*host.ListItem); ok {
		if prev := item.Prev(); prev != nil {
			return prev
		}
	}
	return nil
}

func (ListModule) itemString(c *Call) any {
	if item, ok := c.Handle(0).(*host.ListItem); ok {
		return item.String()
	}
	return ""
}

func (ListModule) size(c *Call) any {
	if l, ok := c.Handle(0).(*host.List); ok {
		return l.Size()
	}
	return 0
}

// list_remove(list, item) -> int
func (ListModule) remove(c *Call) any {
	l, ok := c.Handle(0).(*host.List)
	item, isItem := c.Handle(1).(*host.ListItem)
	if !ok || !isItem || !l.Remove(item) {
		return ReturnError
	}
	c.Env.Handles.Release(item)
	return ReturnOK
}

func (ListModule) removeAll(c *Call) any {
	l, ok := c.Handle(0).(*host.List)
	if !ok {
		return ReturnError
	}
	for _, item := range l.RemoveAll() {
		c.Env.Handles.Release(item)
	}
	return ReturnOK
}

func (ListModule) free(c *Call) any {
	l, ok := c.Handle(0).(*host.List)
	if !ok {
		return ReturnError
	}
	c.Env.Session.Untrack(l)
	Release(c.Env.Host, c.Env.Handles, l)
	return ReturnOK
}
