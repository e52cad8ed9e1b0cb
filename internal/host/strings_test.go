package host

import (
	"slices"
	"testing"
)

func TestStringMatch(t *testing.T) {
	tests := []struct {
		str, mask     string
		caseSensitive bool
		want          bool
	}{
		{"abcdef", "abc*", true, true},
		{"abcdef", "*def", true, true},
		{"abcdef", "*cd*", true, true},
		{"abcdef", "ABC*", false, true},
		{"abcdef", "ABC*", true, false},
		{"abc", "abc", true, true},
		{"abc", "*", true, true},
		{"abc", "a*c*x", true, false},
		{"a", "a*a", true, false},
		{"lua_script_loaded", "lua_script_*", true, true},
	}

	for _, tt := range tests {
		if got := StringMatch(tt.str, tt.mask, tt.caseSensitive); got != tt.want {
			t.Errorf("StringMatch(%q, %q, %v) = %v, want %v", tt.str, tt.mask, tt.caseSensitive, got, tt.want)
		}
	}
}

func TestHasHighlight(t *testing.T) {
	tests := []struct {
		str, words string
		want       bool
	}{
		{"hello FlashCode, how are you", "flashcode", true},
		{"flashcodes here", "flashcode", false},
		{"flashcodes here", "flashcode*", true},
		{"superflashcode", "*flashcode", true},
		{"nothing", "alice,bob", false},
		{"hi bob", "alice, bob", true},
		{"", "bob", false},
	}

	for _, tt := range tests {
		if got := HasHighlight(tt.str, tt.words); got != tt.want {
			t.Errorf("HasHighlight(%q, %q) = %v, want %v", tt.str, tt.words, got, tt.want)
		}
	}
}

func TestHasHighlightRegex(t *testing.T) {
	if !HasHighlightRegex("test FlashCode", "flash[a-z]+") {
		t.Error("HasHighlightRegex() should match case-insensitively")
	}
	if HasHighlightRegex("test", "([") {
		t.Error("HasHighlightRegex() with invalid regex should be false")
	}
}

func TestMaskToRegex(t *testing.T) {
	tests := map[string]string{
		"test*mask": "^test.*mask$",
		"a.b":       `^a\.b$`,
		"*":         "^.*$",
	}
	for mask, want := range tests {
		if got := MaskToRegex(mask); got != want {
			t.Errorf("MaskToRegex(%q) = %q, want %q", mask, got, want)
		}
	}
}

func TestRemoveColor(t *testing.T) {
	tests := []struct {
		str, replacement, want string
	}{
		{"\x1b[1;31mred\x1b[0m", "", "red"},
		{"\x1901test\x1c", "", "test"},
		{"\x1cx", "?", "?x"},
		{"plain", "", "plain"},
	}
	for _, tt := range tests {
		if got := RemoveColor(tt.str, tt.replacement); got != tt.want {
			t.Errorf("RemoveColor(%q, %q) = %q, want %q", tt.str, tt.replacement, got, tt.want)
		}
	}
}

func TestIsCommandChar(t *testing.T) {
	if !IsCommandChar("/test") {
		t.Error("IsCommandChar(\"/test\") = false")
	}
	if IsCommandChar("test") || IsCommandChar("") {
		t.Error("IsCommandChar() should be false for text")
	}
}

func TestInputForBuffer(t *testing.T) {
	tests := map[string]string{
		"hello":             "hello",
		"/cmd arg":          "",
		"//text":            "/text",
		"/tmp/file is here": "/tmp/file is here",
	}
	for in, want := range tests {
		if got := InputForBuffer(in); got != want {
			t.Errorf("InputForBuffer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestEvalExpression(t *testing.T) {
	t.Setenv("SCRIPTBRIDGE_EVAL_TEST", "from-env")

	extra := NewHashtable(4, KindString, KindString)
	extra.Set("name", "bob")

	list := NewList()
	list.Add("a", WhereEnd, nil)
	list.Add("b", WhereEnd, nil)
	pointers := NewHashtable(4, KindString, KindPointer)
	pointers.Set("mylist", list)

	tests := map[string]string{
		"hi ${name}":                    "hi bob",
		"${env:SCRIPTBRIDGE_EVAL_TEST}": "from-env",
		"size=${mylist.size}":           "size=2",
		"[${unknown}]":                  "[]",
		"${mylist.nope}":                "",
	}
	for expr, want := range tests {
		if got := EvalExpression(expr, pointers, extra); got != want {
			t.Errorf("EvalExpression(%q) = %q, want %q", expr, got, want)
		}
	}

	if got := EvalExpression("x${name}", nil, nil); got != "x" {
		t.Errorf("EvalExpression() with nil tables = %q, want %q", got, "x")
	}
}

func TestSplit(t *testing.T) {
	if got := Split("a,b,,c", ","); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Split() = %q", got)
	}
	if got := Split("a b;c", " ;"); !slices.Equal(got, []string{"a", "b", "c"}) {
		t.Errorf("Split() = %q", got)
	}
	if got := BuildWithSplitString([]string{"a", "b"}, "-"); got != "a-b" {
		t.Errorf("BuildWithSplitString() = %q, want %q", got, "a-b")
	}
}
