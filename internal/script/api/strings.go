package api

import (
	"github.com/dshills/scriptbridge/internal/host"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

// StringsModule exposes the host string helpers.
type StringsModule struct{}

// Name returns the module name.
func (StringsModule) Name() string { return "strings" }

// Bindings returns the module operations.
func (m StringsModule) Bindings() []Binding {
	return []Binding{
		{Name: "string_match", Params: []Kind{ArgString, ArgString, ArgBool}, Result: ResultInt, Fn: m.match},
		{Name: "string_has_highlight", Params: []Kind{ArgString, ArgString}, Result: ResultInt, Fn: m.hasHighlight},
		{Name: "string_has_highlight_regex", Params: []Kind{ArgString, ArgString}, Result: ResultInt, Fn: m.hasHighlightRegex},
		{Name: "string_mask_to_regex", Params: []Kind{ArgString}, Result: ResultString, Fn: m.maskToRegex},
		{Name: "string_remove_color", Params: []Kind{ArgString, ArgString}, Result: ResultString, Fn: m.removeColor},
		{Name: "string_is_command_char", Params: []Kind{ArgString}, Result: ResultInt, Fn: m.isCommandChar},
		{Name: "string_input_for_buffer", Params: []Kind{ArgString}, Result: ResultString, Fn: m.inputForBuffer},
		{Name: "string_eval_expression", Params: []Kind{ArgString, ArgTable, ArgTable}, Result: ResultString, Fn: m.evalExpression},
		{Name: "string_split", Params: []Kind{ArgString, ArgString}, Result: ResultTable, Fn: m.split},
		{Name: "string_build_with_split_string", Params: []Kind{ArgTable, ArgString}, Result: ResultString, Fn: m.buildWithSplitString},
	}
}

func (StringsModule) match(c *Call) any {
	return host.StringMatch(c.String(0), c.String(1), c.Bool(2))
}

func (StringsModule) hasHighlight(c *Call) any {
	return host.HasHighlight(c.String(0), c.String(1))
}

func (StringsModule) hasHighlightRegex(c *Call) any {
	return host.HasHighlightRegex(c.String(0), c.String(1))
}

func (StringsModule) maskToRegex(c *Call) any {
	return host.MaskToRegex(c.String(0))
}

func (StringsModule) removeColor(c *Call) any {
	return host.RemoveColor(c.String(0), c.String(1))
}

func (StringsModule) isCommandChar(c *Call) any {
	return host.IsCommandChar(c.String(0))
}

func (StringsModule) inputForBuffer(c *Call) any {
	return host.InputForBuffer(c.String(0))
}

// string_eval_expression(expr, pointers, extra_vars) -> string
// pointers maps names to handle tokens, extra_vars maps names to strings.
func (StringsModule) evalExpression(c *Call) any {
	pointers := slua.MapToNative(c.Table(1), 16, host.KindString, host.KindPointer, c.Env.Handles.Decode)
	extraVars := slua.MapToNative(c.Table(2), 16, host.KindString, host.KindString, nil)
	return host.EvalExpression(c.String(0), pointers, extraVars)
}

// string_split(string, separators) -> {items}
func (StringsModule) split(c *Call) any {
	return slua.ListFromNative(c.L, host.Split(c.String(0), c.String(1)))
}

// string_build_with_split_string({items}, separator) -> string
func (StringsModule) buildWithSplitString(c *Call) any {
	return host.BuildWithSplitString(slua.ListToNative(c.Table(0)), c.String(1))
}
