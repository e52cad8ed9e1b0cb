package host

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CommandChars are the characters that start a command in input text.
const CommandChars = "/"

// StringMatch reports whether str matches mask. The mask may start and/or
// end with "*" to match any prefix or suffix; "*" inside the mask also
// matches any run of characters.
func StringMatch(str, mask string, caseSensitive bool) bool {
	if !caseSensitive {
		str = fold.String(str)
		mask = fold.String(mask)
	}
	return globMatch(str, mask)
}

func globMatch(str, mask string) bool {
	parts := strings.Split(mask, "*")
	if len(parts) == 1 {
		return str == mask
	}

	if !strings.HasPrefix(str, parts[0]) {
		return false
	}
	str = str[len(parts[0]):]

	last := parts[len(parts)-1]
	for _, part := range parts[1 : len(parts)-1] {
		i := strings.Index(str, part)
		if i < 0 {
			return false
		}
		str = str[i+len(part):]
	}
	return strings.HasSuffix(str, last)
}

// HasHighlight reports whether str contains one of the comma separated
// highlight words as a whole word, ignoring case. A word may start or end
// with "*" to allow a partial match on that side.
func HasHighlight(str, highlightWords string) bool {
	if str == "" || highlightWords == "" {
		return false
	}
	text := fold.String(str)

	for _, word := range strings.Split(highlightWords, ",") {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		matchPrefix := strings.HasPrefix(word, "*")
		matchSuffix := strings.HasSuffix(word, "*")
		word = fold.String(strings.Trim(word, "*"))
		if word == "" {
			continue
		}

		for offset := 0; offset < len(text); {
			i := strings.Index(text[offset:], word)
			if i < 0 {
				break
			}
			start := offset + i
			end := start + len(word)
			if (matchPrefix || wordBoundaryBefore(text, start)) &&
				(matchSuffix || wordBoundaryAfter(text, end)) {
				return true
			}
			offset = start + 1
		}
	}
	return false
}

func wordBoundaryBefore(s string, i int) bool {
	if i == 0 {
		return true
	}
	r, _ := utf8.DecodeLastRuneInString(s[:i])
	return !isWordRune(r)
}

func wordBoundaryAfter(s string, i int) bool {
	if i >= len(s) {
		return true
	}
	r, _ := utf8.DecodeRuneInString(s[i:])
	return !isWordRune(r)
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-'
}

// HasHighlightRegex reports whether str matches the case-insensitive
// regular expression. An invalid expression never matches.
func HasHighlightRegex(str, expr string) bool {
	if str == "" || expr == "" {
		return false
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return false
	}
	return re.MatchString(str)
}

// MaskToRegex converts a mask with "*" wildcards into an anchored regular
// expression.
func MaskToRegex(mask string) string {
	var b strings.Builder
	b.WriteByte('^')
	for i, part := range strings.Split(mask, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	b.WriteByte('$')
	return b.String()
}

var colorCodes = regexp.MustCompile(
	"\x1b\\[[0-9;?]*[A-Za-z]" + // ANSI CSI
		"|\x19(?:[FB*]?[0-9]{2}|[FB*]?@[0-9]{5}|b[A-Za-z_-]|E|\x1c)?" + // color
		"|[\x1a\x1b][\x01-\x7f]" + // set/remove attribute
		"|\x1c", // reset
)

// RemoveColor strips color and attribute codes from str. Each code is
// replaced by replacement, which may be empty.
func RemoveColor(str, replacement string) string {
	return colorCodes.ReplaceAllLiteralString(str, replacement)
}

// IsCommandChar reports whether str starts with a command character.
func IsCommandChar(str string) bool {
	r, _ := utf8.DecodeRuneInString(str)
	return r != utf8.RuneError && strings.ContainsRune(CommandChars, r)
}

// InputForBuffer returns the text to send to a buffer for the given input,
// or "" when the input is a command. A doubled command character escapes
// the command ("//text" sends "/text"). A first word containing another
// command character, such as a path, is sent as text.
func InputForBuffer(str string) string {
	if !IsCommandChar(str) {
		return str
	}
	_, size := utf8.DecodeRuneInString(str)
	rest := str[size:]
	if IsCommandChar(rest) {
		return rest
	}

	word := rest
	if i := strings.IndexAny(word, " \t"); i >= 0 {
		word = word[:i]
	}
	if strings.ContainsAny(word, CommandChars) {
		return str
	}
	return ""
}

// Fielder is implemented by host objects that expose named fields to
// expression evaluation.
type Fielder interface {
	Field(name string) (string, bool)
}

var exprVar = regexp.MustCompile(`\$\{([^}]*)\}`)

// EvalExpression replaces "${...}" references in expr. A reference is
// resolved, in order, as an environment variable ("env:NAME"), an extra
// variable, or a field of a pointer ("name.field", where pointers maps name
// to a Fielder). Unknown references expand to "". Either table may be nil.
func EvalExpression(expr string, pointers, extraVars *Hashtable) string {
	return exprVar.ReplaceAllStringFunc(expr, func(m string) string {
		name := m[2 : len(m)-1]

		if env, ok := strings.CutPrefix(name, "env:"); ok {
			return os.Getenv(env)
		}
		if extraVars != nil {
			if v, ok := extraVars.GetString(name); ok {
				return v
			}
		}
		if pointers != nil {
			if ptr, field, ok := strings.Cut(name, "."); ok {
				if ref, found := pointers.Get(ptr); found {
					if f, isFielder := ref.(Fielder); isFielder {
						if v, ok := f.Field(field); ok {
							return v
						}
					}
				}
			}
		}
		return ""
	})
}

// Split splits str on any of the separator characters, dropping empty
// items.
func Split(str, separators string) []string {
	if separators == "" {
		if str == "" {
			return nil
		}
		return []string{str}
	}
	return strings.FieldsFunc(str, func(r rune) bool {
		return strings.ContainsRune(separators, r)
	})
}

// BuildWithSplitString joins items with separator.
func BuildWithSplitString(items []string, separator string) string {
	return strings.Join(items, separator)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
