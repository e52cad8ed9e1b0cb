package script

import (
	"time"

	"github.com/google/uuid"

	"github.com/dshills/scriptbridge/internal/script/api"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Script is a registered, live script.
type Script struct {
	Name         string
	Author       string
	Version      string
	License      string
	Description  string
	ShutdownFunc string
	Charset      string

	// Filename is the resolved source path.
	Filename string

	// LoadedAt is the commit time.
	LoadedAt time.Time

	// AttemptID identifies the load attempt that produced the script.
	AttemptID uuid.UUID

	interp    *slua.Interpreter
	env       *api.Env
	resources []any
}

// Interpreter returns the interpreter owned by the script.
func (s *Script) Interpreter() *slua.Interpreter {
	return s.interp
}

// Resources returns the host resources the script created and still owns.
func (s *Script) Resources() []any {
	out := make([]any, len(s.resources))
	copy(out, s.resources)
	return out
}

// Info returns the introspection record of the script.
func (s *Script) Info() Info {
	return Info{
		Name:        s.Name,
		Author:      s.Author,
		Version:     s.Version,
		License:     s.License,
		Description: s.Description,
		Charset:     s.Charset,
		Filename:    s.Filename,
		LoadedAt:    s.LoadedAt,
	}
}

func (s *Script) track(ref any) {
	for _, r := range s.resources {
		if r == ref {
			return
		}
	}
	s.resources = append(s.resources, ref)
}

func (s *Script) untrack(ref any) {
	for i, r := range s.resources {
		if r == ref {
			s.resources = append(s.resources[:i], s.resources[i+1:]...)
			return
		}
	}
}

// Info is the introspection record of a script.
type Info struct {
	Name        string    `yaml:"name"`
	Author      string    `yaml:"author"`
	Version     string    `yaml:"version"`
	License     string    `yaml:"license"`
	Description string    `yaml:"description"`
	Charset     string    `yaml:"charset,omitempty"`
	Filename    string    `yaml:"filename"`
	LoadedAt    time.Time `yaml:"loaded_at"`
}
