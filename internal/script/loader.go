package script

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Ext is the script file extension.
const Ext = ".lua"

// Loader locates and reads script sources.
type Loader struct {
	// Search paths (checked in order)
	paths []string
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the script search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new script loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultSearchPaths returns the search paths below a host home:
// <home>/lua and <home>/lua/autoload.
func DefaultSearchPaths(home string) []string {
	if home == "" {
		return nil
	}
	return []string{
		filepath.Join(home, "lua"),
		filepath.Join(home, "lua", "autoload"),
	}
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Resolve returns the path of the script name. Names containing a path
// separator are used as given; bare names are looked up in the search
// paths, with and without the extension, before the working directory.
func (l *Loader) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: empty name", ErrNotFound)
	}
	name = expandHome(name)

	var candidates []string
	if filepath.IsAbs(name) || strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		candidates = append(candidates, name)
	} else {
		for _, dir := range l.paths {
			candidates = append(candidates, filepath.Join(dir, name))
			if filepath.Ext(name) != Ext {
				candidates = append(candidates, filepath.Join(dir, name+Ext))
			}
		}
		candidates = append(candidates, name)
	}

	for _, path := range candidates {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
			return path, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Read resolves name and returns its path and full source.
func (l *Loader) Read(name string) (path, src string, err error) {
	path, err = l.Resolve(name)
	if err != nil {
		return "", "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return path, string(data), nil
}

// Discover returns the script files directly inside dir, sorted by name.
// A missing directory yields no files.
func (l *Loader) Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(expandHome(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // Not an error if path doesn't exist
		}
		return nil, err
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != Ext {
			continue
		}
		files = append(files, filepath.Join(expandHome(dir), entry.Name()))
	}
	sort.Strings(files)
	return files, nil
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
