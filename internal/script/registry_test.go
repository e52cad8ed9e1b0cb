package script

import (
	"testing"
)

func TestRegistryOrderAndCurrent(t *testing.T) {
	r := NewRegistry()
	a, b, c := &Script{Name: "a", Filename: "/a.lua"}, &Script{Name: "b"}, &Script{Name: "c"}

	for _, s := range []*Script{a, b, c} {
		if !r.Add(s) {
			t.Fatalf("Add(%s) = false", s.Name)
		}
	}
	if r.Add(&Script{Name: "b"}) {
		t.Error("duplicate name should be rejected")
	}
	if r.Len() != 3 || r.First() != a {
		t.Errorf("Len() = %d, First() = %v", r.Len(), r.First())
	}

	r.SetCurrent(b)
	if _, ok := r.Remove("b"); !ok {
		t.Fatal("Remove(b) = false")
	}
	if r.Current() != a {
		t.Errorf("current = %v, want a", r.Current())
	}

	r.SetCurrent(a)
	r.Remove("a")
	if r.Current() != c {
		t.Errorf("current = %v, want c", r.Current())
	}

	r.Remove("c")
	if r.Current() != nil || r.Len() != 0 {
		t.Error("registry should be empty with no current")
	}
	if _, ok := r.Remove("c"); ok {
		t.Error("Remove of a missing script should fail")
	}
}

func TestRegistrySetCurrentUnknown(t *testing.T) {
	r := NewRegistry()
	r.Add(&Script{Name: "a"})
	r.SetCurrent(&Script{Name: "ghost"})
	if r.Current() != nil {
		t.Error("unknown script should not become current")
	}
}

func TestRegistryLookups(t *testing.T) {
	r := NewRegistry()
	r.Add(&Script{Name: "Alpha", Filename: "/x/alpha.lua"})
	r.Add(&Script{Name: "beta", Filename: "/x/beta.lua"})

	if s, ok := r.ByFilename("/x/beta.lua"); !ok || s.Name != "beta" {
		t.Errorf("ByFilename() = %v, %v", s, ok)
	}
	if _, ok := r.ByFilename("/x/gamma.lua"); ok {
		t.Error("ByFilename() should miss")
	}
	if got := r.Infolist("alpha"); len(got) != 1 || got[0].Filename != "/x/alpha.lua" {
		t.Errorf("Infolist(alpha) = %+v", got)
	}
	if got := r.Infolist("*a"); len(got) != 2 {
		t.Errorf("Infolist(*a) = %+v", got)
	}
	if got := r.Names(); len(got) != 2 || got[0] != "Alpha" {
		t.Errorf("Names() = %v", got)
	}
}

func TestScriptResources(t *testing.T) {
	s := &Script{}
	x, y := new(int), new(int)
	s.track(x)
	s.track(y)
	s.track(x)
	if len(s.Resources()) != 2 {
		t.Fatalf("Resources() = %d, want 2", len(s.Resources()))
	}
	s.untrack(x)
	if got := s.Resources(); len(got) != 1 || got[0] != y {
		t.Errorf("Resources() = %v", got)
	}
}
