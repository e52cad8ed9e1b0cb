// Package config provides the configuration of the script bridge.
//
// Configuration is layered, lowest precedence first:
//
//   - built-in defaults (Default)
//   - the TOML configuration file (<home>/scriptbridge.toml unless set)
//   - environment variables prefixed with SCRIPTBRIDGE_
//   - command line flags, applied by the caller on the returned Config
//
// Environment variable names map to configuration paths by lower-casing
// them and taking the first underscore-separated word as the section:
// SCRIPTBRIDGE_SCRIPTS_MAX_SCRIPTS sets scripts.max_scripts.
//
// Example configuration file:
//
//	home = "~/.scriptbridge"
//
//	[plugin]
//	name = "lua"
//	language = "fr_FR"
//
//	[scripts]
//	paths = ["~/scripts"]
//	autoload = true
//	watch = true
//	max_scripts = 64
//	execution_timeout = "5s"
//
//	[logging]
//	level = "debug"
//	format = "console"
package config
