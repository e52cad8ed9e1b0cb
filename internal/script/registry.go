package script

import (
	"sync"

	"github.com/dshills/scriptbridge/internal/host"
)

// Registry holds the committed scripts in load order plus the current
// script reference.
type Registry struct {
	mu      sync.RWMutex
	scripts []*Script
	current *Script
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends s. It returns false if a script with the same name exists.
func (r *Registry) Add(s *Script) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexLocked(s.Name) >= 0 {
		return false
	}
	r.scripts = append(r.scripts, s)
	return true
}

// Remove removes the script named name and returns it. When it was the
// current script, current moves to the previous script, else the next one,
// else nil.
func (r *Registry) Remove(name string) (*Script, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexLocked(name)
	if idx < 0 {
		return nil, false
	}
	s := r.scripts[idx]
	if r.current == s {
		switch {
		case idx > 0:
			r.current = r.scripts[idx-1]
		case idx+1 < len(r.scripts):
			r.current = r.scripts[idx+1]
		default:
			r.current = nil
		}
	}
	r.scripts = append(r.scripts[:idx], r.scripts[idx+1:]...)
	return s, true
}

// Get returns the script named name.
func (r *Registry) Get(name string) (*Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if idx := r.indexLocked(name); idx >= 0 {
		return r.scripts[idx], true
	}
	return nil, false
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Scripts returns the scripts in load order.
func (r *Registry) Scripts() []*Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Script, len(r.scripts))
	copy(out, r.scripts)
	return out
}

// Names returns the script names in load order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, len(r.scripts))
	for i, s := range r.scripts {
		names[i] = s.Name
	}
	return names
}

// First returns the oldest script, or nil.
func (r *Registry) First() *Script {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.scripts) == 0 {
		return nil
	}
	return r.scripts[0]
}

// Len returns the number of scripts.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.scripts)
}

// Current returns the current script, or nil.
func (r *Registry) Current() *Script {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent makes s current. A script that is not registered clears the
// reference.
func (r *Registry) SetCurrent(s *Script) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s != nil && r.indexLocked(s.Name) < 0 {
		s = nil
	}
	r.current = s
}

// Infolist returns the records of the scripts whose name matches mask
// (case-insensitive, "*" wildcards). An empty mask matches everything.
func (r *Registry) Infolist(mask string) []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.scripts))
	for _, s := range r.scripts {
		if mask != "" && !host.StringMatch(s.Name, mask, false) {
			continue
		}
		infos = append(infos, s.Info())
	}
	return infos
}

func (r *Registry) indexLocked(name string) int {
	for i, s := range r.scripts {
		if s.Name == name {
			return i
		}
	}
	return -1
}

// ByFilename returns the script loaded from filename.
func (r *Registry) ByFilename(filename string) (*Script, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.scripts {
		if s.Filename == filename {
			return s, true
		}
	}
	return nil, false
}
