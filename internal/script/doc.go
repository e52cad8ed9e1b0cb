// Package script implements the script registry and the lifecycle
// controller that loads, registers and unloads Lua scripts.
//
// A load goes through a fixed sequence of phases: the source is located,
// an interpreter is created, the API catalog is bound into its namespace,
// the source is compiled and executed once. The script becomes live only if
// it called host.register exactly once with a free name during that run;
// any other outcome rolls the attempt back and leaves the registry as it
// was.
//
// The controller is not safe for concurrent use. All work is expected to go
// through one goroutine, typically a ControlThread.
package script
