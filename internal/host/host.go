package host

import (
	"path/filepath"

	"go.uber.org/zap"
)

// Options configures a Host.
type Options struct {
	// Name is the plugin name reported to scripts and used as the message
	// prefix.
	Name string
	// Home is the host home directory.
	Home string
	// Language selects translations ("" keeps untranslated text).
	Language string
	// Logger receives every message line.
	Logger *zap.Logger
	// SignalBuffer enables asynchronous signal delivery when positive.
	SignalBuffer int
}

// Host bundles the services a script plugin talks to.
type Host struct {
	name string
	home string

	Messages *Messages
	Signals  *Signals
	Configs  *Configs
	Catalog  *Catalog
	Dirs     Dirs
}

// New creates a host.
func New(opts Options) *Host {
	if opts.Name == "" {
		opts.Name = "lua"
	}
	var sigOpts []SignalOption
	if opts.SignalBuffer > 0 {
		sigOpts = append(sigOpts, WithAsync(opts.SignalBuffer))
	}
	return &Host{
		name:     opts.Name,
		home:     opts.Home,
		Messages: NewMessages(opts.Logger, opts.Name),
		Signals:  NewSignals(sigOpts...),
		Configs:  NewConfigs(opts.Home),
		Catalog:  NewCatalog(opts.Language),
		Dirs:     Dirs{Home: opts.Home},
	}
}

// Name returns the plugin name.
func (h *Host) Name() string { return h.name }

// Home returns the host home directory.
func (h *Host) Home() string { return h.home }

// Path joins elem below the home directory.
func (h *Host) Path(elem ...string) string {
	return filepath.Join(append([]string{h.home}, elem...)...)
}

// Close stops signal delivery.
func (h *Host) Close() {
	h.Signals.Close()
}
