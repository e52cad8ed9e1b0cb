package lua

import (
	"testing"

	glua "github.com/yuin/gopher-lua"
)

func TestSandboxRemovesLoaders(t *testing.T) {
	state := newTestState(t)
	for _, name := range []string{"dofile", "loadfile", "load", "loadstring"} {
		if state.GetGlobal(name) != glua.LNil {
			t.Errorf("%s should be removed", name)
		}
	}
}

func TestSandboxRequire(t *testing.T) {
	state := newTestState(t)

	if err := state.L.DoString(`s = require("string")`); err != nil {
		t.Fatalf("require(string) error = %v", err)
	}
	if state.GetGlobal("s") != state.GetGlobal("string") {
		t.Error("require(string) did not return the string library")
	}
	if err := state.L.DoString(`require("io")`); err == nil {
		t.Error("require(io) should fail")
	}
	if !state.Sandbox().Allowed("math") || state.Sandbox().Allowed("os") {
		t.Error("Allowed() returned unexpected results")
	}
}

func TestSandboxPrint(t *testing.T) {
	var lines []string
	state := newTestState(t, WithPrint(func(s string) { lines = append(lines, s) }))

	if err := state.L.DoString(`print("a", 1, true)`); err != nil {
		t.Fatalf("DoString() error = %v", err)
	}
	if len(lines) != 1 || lines[0] != "a\t1\ttrue" {
		t.Errorf("print output = %q", lines)
	}
}
