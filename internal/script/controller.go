package script

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scriptbridge/internal/host"
	"github.com/dshills/scriptbridge/internal/script/api"
	"github.com/dshills/scriptbridge/internal/script/handle"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Signals sent by the controller. The payload is the script filename.
const (
	SignalLoaded   = "lua_script_loaded"
	SignalUnloaded = "lua_script_unloaded"

	// SignalDebugDump asks the controller to dump the registry to the
	// message sink. An empty payload or the plugin name selects it.
	SignalDebugDump = "debug_dump"
)

// Controller loads, registers and unloads scripts.
type Controller struct {
	host     *host.Host
	handles  *handle.Table
	catalog  *api.Registry
	loader   *Loader
	registry *Registry
	validate *validator.Validate

	maxScripts       int
	executionTimeout time.Duration
	debug            int
	autoloadDir      string
	stateOpts        []slua.StateOption

	inflight *attempt
	dumpHook *host.Hook
}

// Option configures a Controller.
type Option func(*Controller)

// WithLoader sets the source loader.
func WithLoader(l *Loader) Option {
	return func(c *Controller) {
		c.loader = l
	}
}

// WithSearchPaths sets the loader search paths.
func WithSearchPaths(paths ...string) Option {
	return func(c *Controller) {
		c.loader = NewLoader(WithPaths(paths...))
	}
}

// WithMaxScripts bounds the number of live scripts. Zero means no limit.
func WithMaxScripts(n int) Option {
	return func(c *Controller) {
		c.maxScripts = n
	}
}

// WithExecutionTimeout bounds top-level execution of a script. Zero
// disables the deadline.
func WithExecutionTimeout(d time.Duration) Option {
	return func(c *Controller) {
		c.executionTimeout = d
	}
}

// WithDebug sets the debug level. At 2 or more informational lines are
// printed even for quiet loads.
func WithDebug(level int) Option {
	return func(c *Controller) {
		c.debug = level
	}
}

// WithAutoloadDir sets the directory scanned by Autoload.
func WithAutoloadDir(dir string) Option {
	return func(c *Controller) {
		c.autoloadDir = dir
	}
}

// WithCatalog replaces the API catalog bound into every interpreter.
func WithCatalog(reg *api.Registry) Option {
	return func(c *Controller) {
		c.catalog = reg
	}
}

// WithHandles sets the handle table shared by all scripts.
func WithHandles(t *handle.Table) Option {
	return func(c *Controller) {
		c.handles = t
	}
}

// WithStateOptions adds options applied to every interpreter.
func WithStateOptions(opts ...slua.StateOption) Option {
	return func(c *Controller) {
		c.stateOpts = append(c.stateOpts, opts...)
	}
}

// New creates a controller for h.
func New(h *host.Host, opts ...Option) (*Controller, error) {
	c := &Controller{
		host:     h,
		registry: NewRegistry(),
		validate: validator.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.handles == nil {
		c.handles = handle.NewTable()
	}
	if c.loader == nil {
		c.loader = NewLoader(WithPaths(DefaultSearchPaths(h.Home())...))
	}
	if c.catalog == nil {
		reg, err := api.DefaultRegistry()
		if err != nil {
			return nil, err
		}
		c.catalog = reg
	}
	if _, err := c.catalog.Bindings(); err != nil {
		return nil, err
	}

	c.dumpHook = h.Signals.Hook(SignalDebugDump, func(sig host.Signal) {
		if sig.Data == "" || sig.Data == h.Name() {
			c.dumpToMessages()
		}
	})
	return c, nil
}

// Host returns the host the controller serves.
func (c *Controller) Host() *host.Host {
	return c.host
}

// Handles returns the handle table.
func (c *Controller) Handles() *handle.Table {
	return c.handles
}

// Loader returns the source loader.
func (c *Controller) Loader() *Loader {
	return c.loader
}

// Registry returns the script registry.
func (c *Controller) Registry() *Registry {
	return c.registry
}

// Scripts returns the live scripts in load order.
func (c *Controller) Scripts() []*Script {
	return c.registry.Scripts()
}

// Get returns the live script named name.
func (c *Controller) Get(name string) (*Script, bool) {
	return c.registry.Get(name)
}

// Current returns the current script, or nil.
func (c *Controller) Current() *Script {
	return c.registry.Current()
}

// Busy reports whether a load attempt is in flight.
func (c *Controller) Busy() bool {
	return c.inflight != nil
}

// Load locates, compiles and runs the script at path. The script is live
// when Load returns nil; on any error the attempt was rolled back.
// quiet suppresses the informational lines unless the debug level is 2
// or more.
func (c *Controller) Load(ctx context.Context, path string, quiet bool) (*Script, error) {
	if c.inflight != nil {
		return nil, ErrBusy
	}
	a := &attempt{id: uuid.New(), path: path, quiet: quiet, phase: PhaseIdle}
	c.inflight = a
	defer func() { c.inflight = nil }()

	filename, src, err := c.loader.Read(path)
	if err != nil {
		c.host.Messages.Error(fmt.Sprintf("script %q not found", path),
			zap.String("path", path),
			zap.NamedError("kind", ErrNotFound),
		)
		return nil, c.fail(a, PhaseLoadFailed, ErrNotFound, err)
	}
	a.filename = filename
	a.phase = PhaseSourceLocated

	if c.verbose(quiet) {
		c.host.Messages.Printf("loading script %q", filename)
	}

	a.script = &Script{Filename: filename, AttemptID: a.id}
	sess := &session{ctrl: c, script: a.script, attempt: a}

	interp, err := c.newInterpreter(filename, sess)
	if err != nil {
		c.host.Messages.Error("unable to create new sub-interpreter",
			zap.String("path", filename),
			zap.NamedError("kind", ErrResourceExhausted),
			zap.Error(err),
		)
		return nil, c.fail(a, PhaseLoadFailed, ErrResourceExhausted, err)
	}
	a.script.interp = interp
	a.phase = PhaseInterpreterCreated

	env := api.NewEnv(c.host, c.handles, interp, sess)
	if err := env.Bind(c.catalog); err != nil {
		c.rollback(a)
		return nil, c.fail(a, PhaseLoadFailed, ErrResourceExhausted, err)
	}
	a.script.env = env
	a.phase = PhaseAPIBound

	if err := interp.Compile(src); err != nil {
		c.host.Messages.Error(fmt.Sprintf("unable to load file %q", filename),
			zap.String("path", filename),
			zap.NamedError("kind", ErrCompile),
			zap.Error(err),
		)
		c.rollback(a)
		return nil, c.fail(a, PhaseLoadFailed, ErrCompile, err)
	}

	a.phase = PhaseExecuting
	runCtx := ctx
	if c.executionTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, c.executionTimeout)
		defer cancel()
	}
	if err := interp.Run(runCtx); err != nil {
		c.host.Messages.Error(fmt.Sprintf("unable to execute file %q", filename),
			zap.String("path", filename),
			zap.NamedError("kind", ErrRuntimeFault),
			zap.Error(err),
		)
		c.rollback(a)
		return nil, c.fail(a, PhaseExecutionFailed, ErrRuntimeFault, err)
	}

	if a.rejected != nil {
		c.rollback(a)
		return nil, c.fail(a, PhaseRegistrationMissing, ErrAlreadyRegistered, a.rejected)
	}
	if !a.registered {
		c.host.Messages.Error(fmt.Sprintf("function \"register\" not found (or failed) in file %q", filename),
			zap.String("path", filename),
			zap.NamedError("kind", ErrRegistrationMissing),
		)
		c.rollback(a)
		return nil, c.fail(a, PhaseRegistrationMissing, ErrRegistrationMissing, nil)
	}
	a.phase = PhaseRegistrationConfirmed

	sc := a.script
	sc.LoadedAt = time.Now()
	if !c.registry.Add(sc) {
		c.rollback(a)
		return nil, c.fail(a, PhaseRegistrationMissing, ErrAlreadyRegistered, nil)
	}
	sess.attempt = nil
	c.registry.SetCurrent(sc)
	a.phase = PhaseCommitted

	c.host.Signals.Send(SignalLoaded, sc.Filename)
	return sc, nil
}

// Unload runs the shutdown function of the script named name, removes it
// from the registry and releases everything it owns.
func (c *Controller) Unload(name string, quiet bool) error {
	if c.inflight != nil {
		return ErrBusy
	}
	sc, ok := c.registry.Get(name)
	if !ok {
		c.host.Messages.Error(fmt.Sprintf("script %q not loaded", name),
			zap.String("script", name),
			zap.NamedError("kind", ErrScriptNotLoaded),
		)
		return fmt.Errorf("%w: %s", ErrScriptNotLoaded, name)
	}
	c.unload(sc, quiet)
	return nil
}

func (c *Controller) unload(sc *Script, quiet bool) {
	if c.verbose(quiet) {
		c.host.Messages.Printf("unloading script %q", sc.Name)
	}

	if sc.ShutdownFunc != "" && sc.env != nil {
		leave := sc.env.Session.Enter()
		if _, err := sc.interp.CallGlobal(sc.ShutdownFunc); err != nil {
			c.host.Messages.Error(fmt.Sprintf("error in function %q (script: %s): %v", sc.ShutdownFunc, sc.Name, err),
				zap.String("script", sc.Name),
				zap.String("function", sc.ShutdownFunc),
			)
		}
		leave()
	}

	c.registry.Remove(sc.Name)
	c.release(sc)
	c.host.Signals.Send(SignalUnloaded, sc.Filename)
}

// UnloadAll unloads every script, oldest first.
func (c *Controller) UnloadAll() error {
	if c.inflight != nil {
		return ErrBusy
	}
	for sc := c.registry.First(); sc != nil; sc = c.registry.First() {
		c.unload(sc, false)
	}
	return nil
}

// Reload unloads the script named name and loads its file again.
func (c *Controller) Reload(ctx context.Context, name string, quiet bool) (*Script, error) {
	if c.inflight != nil {
		return nil, ErrBusy
	}
	sc, ok := c.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrScriptNotLoaded, name)
	}
	filename := sc.Filename
	if err := c.Unload(name, quiet); err != nil {
		return nil, err
	}
	return c.Load(ctx, filename, quiet)
}

// Autoload loads every script in the autoload directory in name order.
// Failures are reported and joined; the other scripts still load.
func (c *Controller) Autoload(ctx context.Context) error {
	if c.autoloadDir == "" {
		return nil
	}
	files, err := c.loader.Discover(c.autoloadDir)
	if err != nil {
		return fmt.Errorf("autoload %s: %w", c.autoloadDir, err)
	}

	var errs []error
	for _, file := range files {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if _, err := c.Load(ctx, file, true); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to autoload %d scripts: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

// AutoloadDir returns the autoload directory.
func (c *Controller) AutoloadDir() string {
	return c.autoloadDir
}

// Infolist returns the records of the scripts matching mask.
func (c *Controller) Infolist(mask string) []Info {
	return c.registry.Infolist(mask)
}

// Completion returns the script names for command completion.
func (c *Controller) Completion() []string {
	return c.registry.Names()
}

type dump struct {
	Plugin  string `yaml:"plugin"`
	Current string `yaml:"current,omitempty"`
	Scripts []Info `yaml:"scripts"`
}

// Dump writes the registry as YAML.
func (c *Controller) Dump(w io.Writer) error {
	d := dump{
		Plugin:  c.host.Name(),
		Scripts: c.registry.Infolist(""),
	}
	if cur := c.registry.Current(); cur != nil {
		d.Current = cur.Name
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return err
	}
	return enc.Close()
}

func (c *Controller) dumpToMessages() {
	var buf bytes.Buffer
	if err := c.Dump(&buf); err != nil {
		c.host.Messages.Error("dump failed", zap.Error(err))
		return
	}
	c.host.Messages.Info("script registry dump", zap.String("dump", buf.String()))
}

// Shutdown unloads every script and stops listening for dump requests.
func (c *Controller) Shutdown() error {
	err := c.UnloadAll()
	if c.dumpHook != nil {
		c.dumpHook.Unhook()
		c.dumpHook = nil
	}
	return err
}

func (c *Controller) newInterpreter(filename string, sess *session) (*slua.Interpreter, error) {
	if c.maxScripts > 0 && c.registry.Len() >= c.maxScripts {
		return nil, fmt.Errorf("limit of %d scripts reached", c.maxScripts)
	}
	opts := append([]slua.StateOption{
		slua.WithPrint(func(line string) {
			name := sess.Name()
			if name == "" {
				name = filename
			}
			c.host.Messages.Info(line, zap.String("script", name))
		}),
	}, c.stateOpts...)
	return slua.NewInterpreter(filename, opts...)
}

// rollback discards everything the attempt created.
func (c *Controller) rollback(a *attempt) {
	if a.script != nil {
		c.release(a.script)
	}
	a.phase = PhaseRolledBack
}

// release frees the resources a script owns, newest first, and closes its
// interpreter.
func (c *Controller) release(sc *Script) {
	for i := len(sc.resources) - 1; i >= 0; i-- {
		api.Release(c.host, c.handles, sc.resources[i])
	}
	sc.resources = nil
	if sc.interp != nil {
		_ = sc.interp.Close()
	}
}

func (c *Controller) fail(a *attempt, phase Phase, kind, err error) error {
	path := a.filename
	if path == "" {
		path = a.path
	}
	var name string
	if a.script != nil {
		name = a.script.Name
	}
	return &LoadError{Path: path, Name: name, Phase: phase, Kind: kind, Err: err}
}

func (c *Controller) verbose(quiet bool) bool {
	return c.debug >= 2 || !quiet
}

// SyncFile brings the registry in line with the file at path: a file that
// no longer exists is unloaded, a loaded file is reloaded and a new file is
// loaded quietly.
func (c *Controller) SyncFile(ctx context.Context, path string) error {
	if c.inflight != nil {
		return ErrBusy
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	sc, loaded := c.registry.ByFilename(path)
	if _, err := os.Stat(path); err != nil {
		if loaded {
			return c.Unload(sc.Name, true)
		}
		return nil
	}
	if loaded {
		_, err := c.Reload(ctx, sc.Name, true)
		return err
	}
	_, err := c.Load(ctx, path, true)
	return err
}
