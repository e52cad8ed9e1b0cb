package api

// DirsModule creates directories for scripts.
type DirsModule struct{}

// Name returns the module name.
func (DirsModule) Name() string { return "dirs" }

// Bindings returns the module operations.
func (m DirsModule) Bindings() []Binding {
	return []Binding{
		{Name: "mkdir_home", Params: []Kind{ArgString, ArgInt}, Result: ResultBool, Fn: m.mkdirHome},
		{Name: "mkdir", Params: []Kind{ArgString, ArgInt}, Result: ResultBool, Fn: m.mkdir},
		{Name: "mkdir_parents", Params: []Kind{ArgString, ArgInt}, Result: ResultBool, Fn: m.mkdirParents},
	}
}

func (DirsModule) mkdirHome(c *Call) any {
	return c.Env.Host.Dirs.MkdirHome(c.String(0), c.Int(1))
}

func (DirsModule) mkdir(c *Call) any {
	return c.Env.Host.Dirs.Mkdir(c.String(0), c.Int(1))
}

func (DirsModule) mkdirParents(c *Call) any {
	return c.Env.Host.Dirs.MkdirParents(c.String(0), c.Int(1))
}
