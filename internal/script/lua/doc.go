// Package lua hosts script code on the gopher-lua runtime.
//
// An Interpreter owns one isolated Lua state (its namespace) and at most one
// compiled source chunk. The chunk runs once; afterwards the interpreter only
// serves callbacks the script handed to the host.
//
//	interp, err := lua.NewInterpreter("hello.lua")
//	if err != nil {
//	    return err
//	}
//	defer interp.Close()
//
//	interp.Bind("host", funcs)
//	if err := interp.Compile(src); err != nil {
//	    return err // wraps ErrSyntax
//	}
//	if err := interp.Run(ctx); err != nil {
//	    return err // wraps ErrRuntime or ErrExecutionTimeout
//	}
//
// # Sandbox
//
// The io, os, debug and package loaders are not opened. dofile, loadfile,
// load and loadstring are removed, require only resolves the built-in
// string, table and math modules, and print is routed to the host message
// sink.
//
// # Marshaling
//
// marshal.go converts between host values and Lua values: host hashtables
// to and from Lua tables, string lists to and from Lua arrays, and the
// coercions (text, truncated integer, boolean) used to decode arguments of
// bound operations.
//
// A State is not goroutine-safe. Every call must come from the control
// thread that owns the script registry.
package lua
