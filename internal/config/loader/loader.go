// Package loader reads the layers of the bridge configuration into generic
// maps keyed by TOML path segments. The config package merges the layers
// with DeepMerge and decodes the result into its typed form.
package loader

import "os"

// Source is one configuration layer. A layer with nothing to contribute
// returns nil, nil.
type Source interface {
	Load() (map[string]any, error)
}

// ReadFileFS reads whole files.
type ReadFileFS interface {
	ReadFile(path string) ([]byte, error)
}

type osFS struct{}

func (osFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// DefaultFS returns the operating system file system.
func DefaultFS() ReadFileFS {
	return osFS{}
}

var (
	_ Source = (*TOMLLoader)(nil)
	_ Source = (*EnvLoader)(nil)
)
