package api

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/dshills/scriptbridge/internal/host"
	"github.com/dshills/scriptbridge/internal/script/handle"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// Namespace is the global table the catalog is installed into.
const Namespace = "host"

// Env connects one interpreter namespace to the host services, the handle
// table and the session of the script it belongs to.
type Env struct {
	Host    *host.Host
	Handles *handle.Table
	Interp  *slua.Interpreter
	Session Session
}

// NewEnv creates an environment for interp.
func NewEnv(h *host.Host, handles *handle.Table, interp *slua.Interpreter, session Session) *Env {
	return &Env{
		Host:    h,
		Handles: handles,
		Interp:  interp,
		Session: session,
	}
}

// Bind installs every binding of reg into the interpreter namespace, plus
// the plugin handle as host.plugin.
func (e *Env) Bind(reg *Registry) error {
	bindings, err := reg.Bindings()
	if err != nil {
		return err
	}

	funcs := make(map[string]lua.LGFunction, len(bindings))
	for _, b := range bindings {
		funcs[b.Name] = e.wrap(b)
	}

	mod := e.Interp.Bind(Namespace, funcs)
	if mod == nil {
		return slua.ErrStateClosed
	}
	mod.RawSetString("plugin", e.Token(e.Host))
	return nil
}

// Token encodes a host reference as a Lua handle token.
func (e *Env) Token(ref any) lua.LString {
	return lua.LString(e.Handles.Encode(ref))
}

// scriptName returns the session name for diagnostics.
func (e *Env) scriptName() string {
	if name := e.Session.Name(); name != "" {
		return name
	}
	return "-"
}

func (e *Env) guardFailed(function string, kind error) {
	var msg string
	switch kind {
	case ErrNotInitialized:
		msg = fmt.Sprintf("unable to call function %q, script is not initialized (script: %s)", function, e.scriptName())
	default:
		msg = fmt.Sprintf("wrong arguments for function %q (script: %s)", function, e.scriptName())
	}
	e.Host.Messages.Error(msg,
		zap.String("script", e.scriptName()),
		zap.String("function", function),
		zap.NamedError("kind", kind),
	)
}

// Release forgets a host resource owned by a script: its handles are
// invalidated and, for config files, the file is freed. Lists release
// their items too.
func Release(h *host.Host, handles *handle.Table, ref any) {
	switch r := ref.(type) {
	case *host.List:
		for _, item := range r.RemoveAll() {
			handles.Release(item)
		}
	case *host.ConfigFile:
		var owned []any
		for _, s := range r.Sections() {
			for _, o := range s.Options() {
				owned = append(owned, o)
			}
			owned = append(owned, s)
		}
		h.Configs.Free(r)
		for _, ref := range owned {
			handles.Release(ref)
		}
	}
	handles.Release(ref)
}
