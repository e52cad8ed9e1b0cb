package lua

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

// Sandbox restricts what script code can reach in its state.
type Sandbox struct {
	L *lua.LState

	print   func(string)
	modules map[string]bool
}

// NewSandbox creates a sandbox for L. print receives the output of the Lua
// print function; nil discards it.
func NewSandbox(L *lua.LState, print func(string)) *Sandbox {
	return &Sandbox{
		L:     L,
		print: print,
		modules: map[string]bool{
			lua.TabLibName:       true,
			lua.StringLibName:    true,
			lua.MathLibName:      true,
			lua.CoroutineLibName: true,
		},
	}
}

// Install applies the restrictions.
func (s *Sandbox) Install() {
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "module"} {
		s.L.SetGlobal(name, lua.LNil)
	}
	s.installPrint()
	s.installRequire()
}

// Allowed reports whether require may return the named module.
func (s *Sandbox) Allowed(module string) bool {
	return s.modules[module]
}

func (s *Sandbox) installPrint() {
	s.L.SetGlobal("print", s.L.NewFunction(func(L *lua.LState) int {
		n := L.GetTop()
		parts := make([]string, n)
		for i := 1; i <= n; i++ {
			parts[i-1] = L.ToStringMeta(L.Get(i)).String()
		}
		if s.print != nil {
			s.print(strings.Join(parts, "\t"))
		}
		return 0
	}))
}

// installRequire replaces require with a lookup of already opened built-in
// modules. Nothing is ever loaded from disk.
func (s *Sandbox) installRequire() {
	s.L.SetGlobal("require", s.L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		if !s.modules[name] {
			L.RaiseError("module %q is not available", name)
			return 0
		}
		L.Push(L.GetGlobal(name))
		return 1
	}))
}
