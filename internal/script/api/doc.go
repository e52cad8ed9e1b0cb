// Package api is the catalog of host operations bound into a script
// namespace.
//
// Every operation is declared as a Binding (name, argument kinds, result
// kind) and installed through one dispatch wrapper. The wrapper rejects
// calls made before the script registered itself (except register),
// rejects calls with the wrong number of arguments, decodes arguments,
// runs the operation and encodes its result. A rejected call returns the
// sentinel of its result kind ("" for strings and handles, 0 or a
// per-operation override for integers, false, or an empty table) and
// leaves a diagnostic in the host message sink.
//
// Host objects (lists, config files, sections, options) cross the
// boundary as handle tokens. Callbacks are captured when they are handed
// over, either as a function value or as the name of a global function.
package api
