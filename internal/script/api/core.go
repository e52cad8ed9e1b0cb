package api

import (
	"github.com/dshills/scriptbridge/internal/host"
)

// CoreModule provides registration, plugin info, charsets and message
// translation.
type CoreModule struct{}

// Name returns the module name.
func (CoreModule) Name() string { return "core" }

// Bindings returns the module operations.
func (m CoreModule) Bindings() []Binding {
	return []Binding{
		{
			Name:     "register",
			Params:   []Kind{ArgString, ArgString, ArgString, ArgString, ArgString, ArgString, ArgString},
			Result:   ResultBool,
			SkipInit: true,
			Fn:       m.register,
		},
		{Name: "plugin_get_name", Params: []Kind{ArgHandle}, Result: ResultString, Fn: m.pluginGetName},
		{Name: "charset_set", Params: []Kind{ArgString}, Result: ResultInt, Fn: m.charsetSet},
		{Name: "iconv_to_internal", Params: []Kind{ArgString, ArgString}, Result: ResultString, Fn: m.iconvToInternal},
		{Name: "iconv_from_internal", Params: []Kind{ArgString, ArgString}, Result: ResultString, Fn: m.iconvFromInternal},
		{Name: "gettext", Params: []Kind{ArgString}, Result: ResultString, Fn: m.gettext},
		{Name: "ngettext", Params: []Kind{ArgString, ArgString, ArgInt}, Result: ResultString, Fn: m.ngettext},
	}
}

// register(name, author, version, license, description, shutdown_func, charset) -> bool
func (CoreModule) register(c *Call) any {
	return c.Env.Session.Register(Registration{
		Name:         c.String(0),
		Author:       c.String(1),
		Version:      c.String(2),
		License:      c.String(3),
		Description:  c.String(4),
		ShutdownFunc: c.String(5),
		Charset:      c.String(6),
	})
}

// plugin_get_name(plugin) -> string
// An unknown or empty plugin handle names the core.
func (CoreModule) pluginGetName(c *Call) any {
	if h, ok := c.Handle(0).(*host.Host); ok {
		return h.Name()
	}
	return "core"
}

// charset_set(charset) -> int
func (CoreModule) charsetSet(c *Call) any {
	c.Env.Session.SetCharset(c.String(0))
	return ReturnOK
}

// iconv_to_internal(charset, string) -> string
func (CoreModule) iconvToInternal(c *Call) any {
	return host.ToInternal(c.String(0), c.String(1))
}

// iconv_from_internal(charset, string) -> string
func (CoreModule) iconvFromInternal(c *Call) any {
	return host.FromInternal(c.String(0), c.String(1))
}

func (CoreModule) gettext(c *Call) any {
	return c.Env.Host.Catalog.Gettext(c.String(0))
}

func (CoreModule) ngettext(c *Call) any {
	return c.Env.Host.Catalog.Ngettext(c.String(0), c.String(1), c.Int(2))
}
