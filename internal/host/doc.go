// Package host provides the host-application services that bound script
// operations forward to.
//
// The bridge treats these as external collaborators: a message sink for
// diagnostics, a signal hub for lifecycle notifications, an ordered-list
// ADT, configuration file/section/option objects, string helpers, charset
// conversion, a message catalog and directory helpers. Everything here is
// plain Go with no knowledge of the scripting runtime; the script/api
// package is responsible for marshaling values in and out.
package host
