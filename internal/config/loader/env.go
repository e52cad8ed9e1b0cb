package loader

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
//
// SCRIPTBRIDGE_SCRIPTS_MAX_SCRIPTS maps to the path scripts.max_scripts:
// the first word after the prefix is the section, the rest is the key.
// Top-level keys map directly (SCRIPTBRIDGE_HOME is home).
type EnvLoader struct {
	prefix string
	// known holds a template of the configuration. Values are converted
	// to the type found at the same path; variables with no
	// counterpart are ignored. A nil template accepts everything.
	known map[string]any
}

// NewEnvLoader creates an environment loader. prefix includes the trailing
// underscore.
func NewEnvLoader(prefix string, known map[string]any) *EnvLoader {
	return &EnvLoader{prefix: prefix, known: known}
}

// Load reads the prefixed environment variables.
// Empty values are treated as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}

		path, template, found := l.resolve(strings.TrimPrefix(name, l.prefix))
		if !found {
			continue
		}
		v, ok := convert(value, template)
		if !ok {
			continue
		}
		setByPath(config, path, v)
	}

	return config, nil
}

// resolve finds the configuration path of an environment variable name.
func (l *EnvLoader) resolve(name string) (path []string, template any, ok bool) {
	name = strings.ToLower(name)
	if l.known == nil {
		section, key, found := strings.Cut(name, "_")
		if !found {
			return []string{name}, nil, true
		}
		return []string{section, key}, nil, true
	}

	if v, exists := l.known[name]; exists {
		if _, isMap := v.(map[string]any); !isMap {
			return []string{name}, v, true
		}
	}
	section, key, found := strings.Cut(name, "_")
	if !found {
		return nil, nil, false
	}
	sub, isMap := l.known[section].(map[string]any)
	if !isMap {
		return nil, nil, false
	}
	v, exists := sub[key]
	if !exists {
		return nil, nil, false
	}
	return []string{section, key}, v, true
}

// convert parses s into the type of template. A nil template guesses.
func convert(s string, template any) (any, bool) {
	switch template.(type) {
	case nil:
		return guess(s), true
	case bool:
		b, ok := parseBool(s)
		return b, ok
	case int64:
		i, err := strconv.ParseInt(s, 10, 64)
		return i, err == nil
	case float64:
		f, err := strconv.ParseFloat(s, 64)
		return f, err == nil
	case []any:
		var items []any
		for _, item := range filepath.SplitList(s) {
			if item != "" {
				items = append(items, item)
			}
		}
		if items == nil {
			items = []any{}
		}
		return items, true
	default:
		return s, true
	}
}

func parseBool(s string) (bool, bool) {
	switch strings.ToLower(s) {
	case "true", "yes", "on", "1":
		return true, true
	case "false", "no", "off", "0", "":
		return false, true
	}
	return false, false
}

func guess(s string) any {
	if s == "" {
		return s
	}
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	return s
}

// setByPath sets a value in a nested map.
func setByPath(data map[string]any, path []string, value any) {
	current := data
	for _, part := range path[:len(path)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[path[len(path)-1]] = value
}
