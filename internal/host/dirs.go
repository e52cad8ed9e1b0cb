package host

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Dirs creates directories on behalf of scripts. Relative paths given to
// MkdirHome are resolved against Home.
type Dirs struct {
	Home string
}

// MkdirHome creates a directory below the home directory.
func (d Dirs) MkdirHome(dir string, mode int) bool {
	if dir == "" {
		return false
	}
	return d.Mkdir(filepath.Join(d.Home, dir), mode)
}

// Mkdir creates a single directory. An existing directory counts as
// success.
func (d Dirs) Mkdir(dir string, mode int) bool {
	if dir == "" {
		return false
	}
	dir = d.expand(dir)
	err := os.Mkdir(dir, fs.FileMode(mode)&fs.ModePerm)
	if err == nil {
		return true
	}
	if errors.Is(err, fs.ErrExist) {
		return isDir(dir)
	}
	return false
}

// MkdirParents creates a directory and any missing parents.
func (d Dirs) MkdirParents(dir string, mode int) bool {
	if dir == "" {
		return false
	}
	dir = d.expand(dir)
	if err := os.MkdirAll(dir, fs.FileMode(mode)&fs.ModePerm); err != nil {
		return false
	}
	return true
}

// expand replaces a leading "~" with the home directory.
func (d Dirs) expand(dir string) string {
	if dir == "~" {
		return d.Home
	}
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		return filepath.Join(d.Home, rest)
	}
	return dir
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
