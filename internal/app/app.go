// Package app wires the configuration, the host services and the script
// controller into a running bridge and drives its command loop.
package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/dshills/scriptbridge/internal/config"
	"github.com/dshills/scriptbridge/internal/host"
	"github.com/dshills/scriptbridge/internal/script"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Prompt is printed before each command when input comes from a terminal.
const Prompt = "> "

// Application owns every component of a running bridge.
type Application struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *zap.Logger
	ownLog bool

	host    *host.Host
	ctrl    *script.Controller
	control *script.ControlThread
	watcher *script.Watcher

	running   atomic.Bool
	started   bool
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once

	opts Options
}

// Options configures the application.
type Options struct {
	// ConfigPath is the path to the configuration file. Empty selects
	// <home>/scriptbridge.toml.
	ConfigPath string

	// LogLevel overrides the configured log level.
	LogLevel string

	// Debug overrides the configured debug level when positive.
	Debug int

	// Quiet loads the startup scripts without informational lines.
	Quiet bool

	// Scripts are loaded after autoload.
	Scripts []string

	// Logger replaces the logger built from the configuration.
	Logger *zap.Logger

	// Config replaces the configuration file and environment.
	Config *config.Config
}

// New creates an Application with the given options.
func New(opts Options) (*Application, error) {
	app := &Application{
		opts: opts,
		done: make(chan struct{}),
	}

	if err := app.bootstrap(); err != nil {
		return nil, err
	}
	return app, nil
}

// bootstrap initializes all components in dependency order.
func (app *Application) bootstrap() error {
	// 1. Configuration
	cfg := app.opts.Config
	if cfg == nil {
		var loadOpts []config.LoadOption
		if app.opts.ConfigPath != "" {
			loadOpts = append(loadOpts, config.WithFile(app.opts.ConfigPath))
		}
		var err error
		cfg, err = config.Load(loadOpts...)
		if err != nil {
			return &InitError{Component: "config", Err: err}
		}
	}
	if app.opts.LogLevel != "" {
		cfg.Logging.Level = app.opts.LogLevel
	}
	if app.opts.Debug > 0 {
		cfg.Scripts.Debug = app.opts.Debug
	}
	if app.opts.Quiet {
		cfg.Scripts.Quiet = true
	}
	if err := cfg.Validate(); err != nil {
		return &InitError{Component: "config", Err: err}
	}
	app.cfg = cfg

	// 2. Logger
	app.logger = app.opts.Logger
	if app.logger == nil {
		logger, err := NewLogger(cfg.Logging, nil)
		if err != nil {
			return &InitError{Component: "logger", Err: err}
		}
		app.logger = logger
		app.ownLog = true
	}

	// 3. Host services
	app.host = host.New(host.Options{
		Name:         cfg.Plugin.Name,
		Home:         cfg.Home,
		Language:     cfg.Plugin.Language,
		Logger:       app.logger,
		SignalBuffer: cfg.Scripts.SignalBuffer,
	})
	if !app.host.Dirs.MkdirParents(cfg.Home, 0o755) {
		app.host.Close()
		return &InitError{Component: "home", Err: fmt.Errorf("cannot create %q", cfg.Home)}
	}

	for _, path := range cfg.I18n.Catalogs {
		if err := app.host.Catalog.LoadFile(path); err != nil {
			// A broken catalog leaves messages untranslated.
			app.logger.Warn("translation catalog not loaded",
				zap.String("path", path), zap.Error(err))
		}
	}

	// 4. Script controller
	ctrl, err := script.New(app.host,
		script.WithSearchPaths(cfg.SearchPaths()...),
		script.WithAutoloadDir(cfg.AutoloadDir()),
		script.WithMaxScripts(cfg.Scripts.MaxScripts),
		script.WithExecutionTimeout(cfg.Scripts.ExecutionTimeout.Std()),
		script.WithDebug(cfg.Scripts.Debug),
		script.WithStateOptions(
			slua.WithCallStackSize(cfg.Scripts.CallStackSize),
			slua.WithRegistryMaxSize(cfg.Scripts.RegistryMaxSize),
		),
	)
	if err != nil {
		app.host.Close()
		return &InitError{Component: "script controller", Err: err}
	}
	app.ctrl = ctrl

	// 5. Control thread
	app.control = script.NewControlThread(ctrl, 0)

	return nil
}

// Run starts the control thread, loads the startup scripts and executes
// command lines read from in until in is exhausted, a line reads "quit" or
// "exit", ctx is cancelled or Shutdown is called. Command output goes to out.
func (app *Application) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	app.mu.Lock()
	if app.started {
		app.mu.Unlock()
		return ErrAlreadyRunning
	}
	app.started = true
	ctx, cancel := context.WithCancel(ctx)
	app.cancel = cancel
	app.mu.Unlock()
	defer cancel()

	app.running.Store(true)
	defer app.running.Store(false)
	defer close(app.done)

	// The control thread outlives ctx so that shutdown work can still run.
	controlCtx, stopControl := context.WithCancel(context.Background())
	controlDone := make(chan struct{})
	go func() {
		defer close(controlDone)
		app.control.Run(controlCtx)
	}()
	defer func() {
		app.stop()
		stopControl()
		<-controlDone
		app.close()
	}()

	app.startup(ctx)

	if in == nil {
		<-ctx.Done()
		return nil
	}

	cmds := script.NewCommands(app.ctrl, out)
	prompt := func() {}
	if isTerminal(in) {
		prompt = func() { fmt.Fprint(out, Prompt) }
	}
	prompt()

	lines := make(chan string)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		if err := sc.Err(); err != nil {
			app.logger.Warn("command input failed", zap.Error(err))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			err := app.exec(ctx, cmds, line, out)
			if errors.Is(err, ErrQuit) {
				return nil
			}
			if err != nil {
				return err
			}
			prompt()
		}
	}
}

// exec runs one command line on the control thread.
func (app *Application) exec(ctx context.Context, cmds *script.Commands, line string, out io.Writer) error {
	switch strings.TrimPrefix(strings.TrimSpace(line), host.CommandChars) {
	case "quit", "exit":
		return ErrQuit
	}

	rc := script.RCOK
	err := app.control.Execute(ctx, func(*script.Controller) error {
		rc = cmds.Exec(ctx, line)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	if rc != script.RCOK {
		fmt.Fprintf(out, "rc=%d\n", rc)
	}
	return nil
}

// startup autoloads, loads the requested scripts and starts the watcher.
// Failures are reported and never abort the application.
func (app *Application) startup(ctx context.Context) {
	if app.cfg.Scripts.Autoload {
		err := app.control.Execute(ctx, func(c *script.Controller) error {
			return c.Autoload(ctx)
		})
		if err != nil {
			app.logger.Warn("autoload incomplete", zap.Error(err))
		}
	}

	for _, path := range app.opts.Scripts {
		path := path
		err := app.control.Execute(ctx, func(c *script.Controller) error {
			_, err := c.Load(ctx, path, app.cfg.Scripts.Quiet)
			return err
		})
		if err != nil {
			app.logger.Debug("startup script not loaded",
				zap.String("path", path), zap.Error(err))
		}
	}

	if app.cfg.Scripts.Watch {
		dir := app.cfg.AutoloadDir()
		if !app.host.Dirs.MkdirParents(dir, 0o755) {
			app.logger.Warn("autoload directory not created", zap.String("dir", dir))
			return
		}
		w, err := script.NewWatcher(dir, app.control, 0)
		if err != nil {
			app.logger.Warn("autoload watcher not started",
				zap.String("dir", dir), zap.Error(err))
			return
		}
		app.mu.Lock()
		app.watcher = w
		app.mu.Unlock()
	}
}

// stop closes the watcher and unloads every script on the control thread.
func (app *Application) stop() {
	app.mu.Lock()
	w := app.watcher
	app.watcher = nil
	app.mu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			app.logger.Warn("closing autoload watcher", zap.Error(err))
		}
	}

	err := app.control.Execute(context.Background(), func(c *script.Controller) error {
		return c.Shutdown()
	})
	if err != nil {
		app.logger.Warn("script shutdown", zap.Error(err))
	}
	app.control.Close()
}

// close releases the host and flushes the logger.
func (app *Application) close() {
	app.closeOnce.Do(func() {
		app.host.Close()
		if app.ownLog {
			_ = app.logger.Sync()
		}
	})
}

// Shutdown stops a running application and waits for it to finish. An
// application that was never run is released directly.
func (app *Application) Shutdown() {
	app.mu.Lock()
	if !app.started {
		app.started = true
		app.mu.Unlock()
		if err := app.ctrl.Shutdown(); err != nil {
			app.logger.Warn("script shutdown", zap.Error(err))
		}
		app.control.Close()
		app.close()
		close(app.done)
		return
	}
	cancel := app.cancel
	app.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	<-app.done
}

// Done is closed once the application has stopped.
func (app *Application) Done() <-chan struct{} {
	return app.done
}

// IsRunning returns true while Run is executing.
func (app *Application) IsRunning() bool {
	return app.running.Load()
}

// Config returns the effective configuration.
func (app *Application) Config() *config.Config {
	return app.cfg
}

// Host returns the host services.
func (app *Application) Host() *host.Host {
	return app.host
}

// Controller returns the script controller. Use Control to call it from
// another goroutine.
func (app *Application) Controller() *script.Controller {
	return app.ctrl
}

// Control returns the control thread serializing controller work.
func (app *Application) Control() *script.ControlThread {
	return app.control
}

// Logger returns the application logger.
func (app *Application) Logger() *zap.Logger {
	return app.logger
}
