package host

import (
	"fmt"
	"os"
	"sync"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
)

var pluralForms = map[string]plural.Form{
	"zero":  plural.Zero,
	"one":   plural.One,
	"two":   plural.Two,
	"few":   plural.Few,
	"many":  plural.Many,
	"other": plural.Other,
}

type translation struct {
	text  string
	forms map[plural.Form]string
}

// Catalog holds message translations and resolves them for the active
// language.
type Catalog struct {
	mu sync.RWMutex

	requested string
	active    language.Tag
	matched   bool

	tags     []language.Tag
	messages map[language.Tag]map[string]translation
}

// NewCatalog creates an empty catalog with lang as the requested language.
func NewCatalog(lang string) *Catalog {
	c := &Catalog{
		messages: make(map[language.Tag]map[string]translation),
	}
	c.SetLanguage(lang)
	return c
}

// SetLanguage selects the requested language (a BCP 47 tag or a POSIX
// locale such as "fr_FR.UTF-8").
func (c *Catalog) SetLanguage(lang string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = lang
	c.rematch()
}

// Language returns the catalog language selected for the request, or
// language.Und when no catalog matches.
func (c *Catalog) Language() language.Tag {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.matched {
		return language.Und
	}
	return c.active
}

// Add registers a translation of msgid for lang.
func (c *Catalog) Add(lang, msgid, text string) error {
	return c.add(lang, msgid, translation{text: text})
}

// AddPlural registers the plural forms of msgid for lang. Form names are
// the CLDR categories: zero, one, two, few, many, other.
func (c *Catalog) AddPlural(lang, msgid string, forms map[string]string) error {
	tr := translation{forms: make(map[plural.Form]string, len(forms))}
	for name, text := range forms {
		form, ok := pluralForms[name]
		if !ok {
			return fmt.Errorf("unknown plural form %q for %q", name, msgid)
		}
		tr.forms[form] = text
	}
	return c.add(lang, msgid, tr)
}

func (c *Catalog) add(lang, msgid string, tr translation) error {
	tag, err := language.Parse(lang)
	if err != nil {
		return fmt.Errorf("parse language %q: %w", lang, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msgs, ok := c.messages[tag]
	if !ok {
		msgs = make(map[string]translation)
		c.messages[tag] = msgs
		c.tags = append(c.tags, tag)
		c.rematch()
	}
	msgs[msgid] = tr
	return nil
}

// LoadFile reads translations from a TOML file with one table per
// language. A string value is a plain translation; a table value holds
// plural forms.
//
//	[fr]
//	"hello" = "bonjour"
//	"%d file" = { one = "%d fichier", other = "%d fichiers" }
func (c *Catalog) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read catalog: %w", err)
	}

	var raw map[string]map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse catalog %s: %w", path, err)
	}

	for lang, entries := range raw {
		for msgid, value := range entries {
			switch v := value.(type) {
			case string:
				err = c.Add(lang, msgid, v)
			case map[string]any:
				forms := make(map[string]string, len(v))
				for form, text := range v {
					forms[form] = fmt.Sprint(text)
				}
				err = c.AddPlural(lang, msgid, forms)
			default:
				err = fmt.Errorf("invalid translation for %q in [%s]", msgid, lang)
			}
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// Gettext returns the translation of msgid, or msgid itself.
func (c *Catalog) Gettext(msgid string) string {
	tr, ok := c.lookup(msgid)
	if !ok {
		return msgid
	}
	if tr.text != "" {
		return tr.text
	}
	if s, ok := tr.forms[plural.Other]; ok {
		return s
	}
	return msgid
}

// Ngettext returns the translation of single or plural for count, using
// the plural rules of the active language.
func (c *Catalog) Ngettext(single, pluralText string, count int) string {
	tr, ok := c.lookup(single)
	if !ok || tr.forms == nil {
		if count == 1 {
			return single
		}
		return pluralText
	}

	n := count
	if n < 0 {
		n = -n
	}
	form := plural.Cardinal.MatchPlural(c.Language(), n, 0, 0, 0, 0)
	if s, ok := tr.forms[form]; ok {
		return s
	}
	if s, ok := tr.forms[plural.Other]; ok {
		return s
	}
	if count == 1 {
		return single
	}
	return pluralText
}

func (c *Catalog) lookup(msgid string) (translation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.matched {
		return translation{}, false
	}
	tr, ok := c.messages[c.active][msgid]
	return tr, ok
}

// rematch must be called with mu held.
func (c *Catalog) rematch() {
	c.matched = false
	if len(c.tags) == 0 || c.requested == "" {
		return
	}
	req, err := language.Parse(posixToBCP47(c.requested))
	if err != nil {
		return
	}
	_, idx, conf := language.NewMatcher(c.tags).Match(req)
	if conf == language.No {
		return
	}
	c.active = c.tags[idx]
	c.matched = true
}

// posixToBCP47 turns "fr_FR.UTF-8@euro" into "fr-FR".
func posixToBCP47(lang string) string {
	out := []byte(lang)
	for i, b := range out {
		switch b {
		case '.', '@':
			return string(out[:i])
		case '_':
			out[i] = '-'
		}
	}
	return string(out)
}
