package api

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/scriptbridge/internal/host"
)

// ConfigModule exposes host config files, sections and options. Every
// callback argument is paired with a data string passed back as the first
// callback argument.
type ConfigModule struct{}

// Name returns the module name.
func (ConfigModule) Name() string { return "config" }

// Bindings returns the module operations.
func (m ConfigModule) Bindings() []Binding {
	s, i, h, cb := ArgString, ArgInt, ArgHandle, ArgCallback
	return []Binding{
		{Name: "config_new", Params: []Kind{s, cb, s}, Result: ResultHandle, Fn: m.newFile},
		{
			Name: "config_new_section",
			Params: []Kind{
				h, s, i, i,
				cb, s, cb, s, cb, s, cb, s, cb, s,
			},
			Result: ResultHandle,
			Fn:     m.newSection,
		},
		{Name: "config_search_section", Params: []Kind{h, s}, Result: ResultHandle, Fn: m.searchSection},
		{
			Name: "config_new_option",
			Params: []Kind{
				h, h, s, s, s, s, i, i, s, s, i,
				cb, s, cb, s, cb, s,
			},
			Result: ResultHandle,
			Fn:     m.newOption,
		},
		{Name: "config_search_option", Params: []Kind{h, h, s}, Result: ResultHandle, Fn: m.searchOption},
		{Name: "config_string_to_boolean", Params: []Kind{s}, Result: ResultInt, Fn: m.stringToBoolean},
		{Name: "config_option_set", Params: []Kind{h, s, i}, Result: ResultInt, Fn: m.optionSet},
		{Name: "config_string", Params: []Kind{h}, Result: ResultString, Fn: m.optionString},
		{Name: "config_integer", Params: []Kind{h}, Result: ResultInt, Fn: m.optionInteger},
		{Name: "config_boolean", Params: []Kind{h}, Result: ResultInt, Fn: m.optionBoolean},
		{Name: "config_read", Params: []Kind{h}, Result: ResultInt, Empty: intp(-1), Fn: m.read},
		{Name: "config_write", Params: []Kind{h}, Result: ResultInt, Empty: intp(-1), Fn: m.write},
		{Name: "config_reload", Params: []Kind{h}, Result: ResultInt, Empty: intp(-1), Fn: m.reload},
		{Name: "config_free", Params: []Kind{h}, Result: ResultInt, Fn: m.free},
	}
}

// config_new(name, callback_reload, data) -> config_file
func (ConfigModule) newFile(c *Call) any {
	var reload host.ReloadFunc
	if cb, data := c.Callback(1), lua.LString(c.String(2)); cb != nil {
		reload = func(f *host.ConfigFile) int {
			return cb.Int(host.ConfigReadMemoryError, data, c.Env.Token(f))
		}
	}

	f := c.Env.Host.Configs.NewFile(c.String(0), reload)
	if f == nil {
		return nil
	}
	c.Env.Session.Track(f)
	return f
}

// config_new_section(config_file, name, user_can_add_options,
// user_can_delete_options, callback_read, data, callback_write, data,
// callback_write_default, data, callback_create_option, data,
// callback_delete_option, data) -> section
func (ConfigModule) newSection(c *Call) any {
	f, ok := c.Handle(0).(*host.ConfigFile)
	if !ok {
		return nil
	}
	e := c.Env
	spec := host.SectionSpec{
		Name:                 c.String(1),
		UserCanAddOptions:    c.Int(2) != 0,
		UserCanDeleteOptions: c.Int(3) != 0,
	}

	if cb, data := c.Callback(4), lua.LString(c.String(5)); cb != nil {
		spec.Read = func(f *host.ConfigFile, s *host.ConfigSection, option, value string) int {
			return cb.Int(host.ConfigReadMemoryError, data, e.Token(f), e.Token(s), lua.LString(option), lua.LString(value))
		}
	}
	if cb, data := c.Callback(6), lua.LString(c.String(7)); cb != nil {
		spec.Write = func(f *host.ConfigFile, s *host.ConfigSection) int {
			return cb.Int(host.ConfigWriteError, data, e.Token(f), lua.LString(s.Name))
		}
	}
	if cb, data := c.Callback(8), lua.LString(c.String(9)); cb != nil {
		spec.WriteDefault = func(f *host.ConfigFile, s *host.ConfigSection) int {
			return cb.Int(host.ConfigWriteError, data, e.Token(f), lua.LString(s.Name))
		}
	}
	if cb, data := c.Callback(10), lua.LString(c.String(11)); cb != nil {
		spec.CreateOption = func(f *host.ConfigFile, s *host.ConfigSection, option, value string) int {
			return cb.Int(host.OptionSetError, data, e.Token(f), e.Token(s), lua.LString(option), lua.LString(value))
		}
	}
	if cb, data := c.Callback(12), lua.LString(c.String(13)); cb != nil {
		spec.DeleteOption = func(f *host.ConfigFile, s *host.ConfigSection, o *host.ConfigOption) int {
			return cb.Int(host.OptionSetError, data, e.Token(f), e.Token(s), e.Token(o))
		}
	}

	if s := f.NewSection(spec); s != nil {
		return s
	}
	return nil
}

func (ConfigModule) searchSection(c *Call) any {
	if f, ok := c.Handle(0).(*host.ConfigFile); ok {
		if s := f.SearchSection(c.String(1)); s != nil {
			return s
		}
	}
	return nil
}

// config_new_option(config_file, section, name, type, description,
// string_values, min, max, default_value, value, null_value_allowed,
// callback_check_value, data, callback_change, data, callback_delete,
// data) -> option
func (ConfigModule) newOption(c *Call) any {
	if _, ok := c.Handle(0).(*host.ConfigFile); !ok {
		return nil
	}
	section, ok := c.Handle(1).(*host.ConfigSection)
	if !ok {
		return nil
	}
	typ, ok := host.ParseOptionType(c.String(3))
	if !ok {
		return nil
	}
	e := c.Env

	spec := host.OptionSpec{
		Name:             c.String(2),
		Type:             typ,
		Description:      c.String(4),
		Min:              c.Int(6),
		Max:              c.Int(7),
		Default:          c.String(8),
		Value:            c.String(9),
		NullValueAllowed: c.Int(10) != 0,
	}
	if values := c.String(5); values != "" {
		spec.StringValues = strings.Split(values, "|")
	}

	if cb, data := c.Callback(11), lua.LString(c.String(12)); cb != nil {
		spec.CheckValue = func(o *host.ConfigOption, value string) bool {
			return cb.Int(0, data, e.Token(o), lua.LString(value)) != 0
		}
	}
	if cb, data := c.Callback(13), lua.LString(c.String(14)); cb != nil {
		spec.Change = func(o *host.ConfigOption) {
			_, _ = cb.Call(data, e.Token(o))
		}
	}
	if cb, data := c.Callback(15), lua.LString(c.String(16)); cb != nil {
		spec.Delete = func(o *host.ConfigOption) {
			_, _ = cb.Call(data, e.Token(o))
		}
	}

	if o := section.NewOption(spec); o != nil {
		return o
	}
	return nil
}

// config_search_option(config_file, section, name) -> option
// An empty section searches every section of the file.
func (ConfigModule) searchOption(c *Call) any {
	f, ok := c.Handle(0).(*host.ConfigFile)
	if !ok {
		return nil
	}
	section, _ := c.Handle(1).(*host.ConfigSection)
	if o := f.SearchOption(section, c.String(2)); o != nil {
		return o
	}
	return nil
}

func (ConfigModule) stringToBoolean(c *Call) any {
	return host.StringToBoolean(c.String(0))
}

// config_option_set(option, value, run_callback) -> rc
func (ConfigModule) optionSet(c *Call) any {
	o, ok := c.Handle(0).(*host.ConfigOption)
	if !ok {
		return host.OptionSetOptionNotFound
	}
	return o.Set(c.String(1), c.Int(2) != 0)
}

func (ConfigModule) optionString(c *Call) any {
	if o, ok := c.Handle(0).(*host.ConfigOption); ok {
		return o.String()
	}
	return ""
}

func (ConfigModule) optionInteger(c *Call) any {
	if o, ok := c.Handle(0).(*host.ConfigOption); ok {
		return o.Integer()
	}
	return 0
}

func (ConfigModule) optionBoolean(c *Call) any {
	if o, ok := c.Handle(0).(*host.ConfigOption); ok {
		return o.Boolean()
	}
	return false
}

func (ConfigModule) read(c *Call) any {
	if f, ok := c.Handle(0).(*host.ConfigFile); ok {
		return f.Read()
	}
	return -1
}

func (ConfigModule) write(c *Call) any {
	if f, ok := c.Handle(0).(*host.ConfigFile); ok {
		return f.Write()
	}
	return -1
}

func (ConfigModule) reload(c *Call) any {
	if f, ok := c.Handle(0).(*host.ConfigFile); ok {
		return f.Reload()
	}
	return -1
}

// config_free(config_file) -> int
func (ConfigModule) free(c *Call) any {
	f, ok := c.Handle(0).(*host.ConfigFile)
	if !ok {
		return ReturnError
	}
	c.Env.Session.Untrack(f)
	Release(c.Env.Host, c.Env.Handles, f)
	return ReturnOK
}
