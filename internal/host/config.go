package host

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// Return codes of config read operations.
const (
	ConfigReadOK           = 0
	ConfigReadMemoryError  = -1
	ConfigReadFileNotFound = -2
)

// Return codes of config write operations.
const (
	ConfigWriteOK          = 0
	ConfigWriteError       = -1
	ConfigWriteMemoryError = -2
)

// Return codes of option set operations.
const (
	OptionSetOKChanged      = 2
	OptionSetOKSameValue    = 1
	OptionSetError          = 0
	OptionSetOptionNotFound = -1
)

// OptionType is the value type of a config option.
type OptionType int

const (
	OptionBoolean OptionType = iota
	OptionInteger
	OptionString
	OptionColor
	OptionEnum
)

var optionTypeNames = []string{"boolean", "integer", "string", "color", "enum"}

// String returns the type name.
func (t OptionType) String() string {
	if int(t) < len(optionTypeNames) {
		return optionTypeNames[t]
	}
	return "unknown"
}

// ParseOptionType converts a type name into an OptionType.
func ParseOptionType(name string) (OptionType, bool) {
	i := slices.Index(optionTypeNames, strings.ToLower(name))
	if i < 0 {
		return 0, false
	}
	return OptionType(i), true
}

// Callbacks invoked by config objects. Each may be nil.
type (
	ReloadFunc       func(file *ConfigFile) int
	SectionReadFunc  func(file *ConfigFile, section *ConfigSection, option, value string) int
	SectionWriteFunc func(file *ConfigFile, section *ConfigSection) int
	CreateOptionFunc func(file *ConfigFile, section *ConfigSection, option, value string) int
	DeleteOptionFunc func(file *ConfigFile, section *ConfigSection, option *ConfigOption) int
	CheckValueFunc   func(option *ConfigOption, value string) bool
	OptionFunc       func(option *ConfigOption)
)

// StringToBoolean converts text to a boolean. "on", "yes", "y", "true",
// "t" and "1" are true, case-insensitively; everything else is false.
func StringToBoolean(text string) bool {
	switch strings.ToLower(text) {
	case "on", "yes", "y", "true", "t", "1":
		return true
	}
	return false
}

// Configs owns every config file of the host.
type Configs struct {
	mu    sync.Mutex
	dir   string
	files []*ConfigFile
}

// NewConfigs creates a config registry persisting files in dir.
func NewConfigs(dir string) *Configs {
	return &Configs{dir: dir}
}

// NewFile creates a config file. It returns nil when a file with the same
// name already exists.
func (c *Configs) NewFile(name string, reload ReloadFunc) *ConfigFile {
	if name == "" {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if f.Name == name {
			return nil
		}
	}
	f := &ConfigFile{
		Name:     name,
		Filename: name + ".conf",
		reload:   reload,
		configs:  c,
	}
	c.files = append(c.files, f)
	return f
}

// Search returns the config file with the given name.
func (c *Configs) Search(name string) *ConfigFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range c.files {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Files returns the config files in creation order.
func (c *Configs) Files() []*ConfigFile {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.files)
}

// SearchOption finds an option by its full name "file.section.option".
func (c *Configs) SearchOption(fullName string) *ConfigOption {
	fileName, rest, ok := strings.Cut(fullName, ".")
	if !ok {
		return nil
	}
	sectionName, optionName, ok := strings.Cut(rest, ".")
	if !ok {
		return nil
	}
	file := c.Search(fileName)
	if file == nil {
		return nil
	}
	section := file.SearchSection(sectionName)
	if section == nil {
		return nil
	}
	return section.SearchOption(optionName)
}

// SetOption sets an option by its full name and returns an OptionSet code.
func (c *Configs) SetOption(fullName, value string) int {
	option := c.SearchOption(fullName)
	if option == nil {
		return OptionSetOptionNotFound
	}
	return option.Set(value, true)
}

// Free removes file from the registry, running the delete callbacks of
// its options.
func (c *Configs) Free(file *ConfigFile) {
	if file == nil {
		return
	}
	c.mu.Lock()
	c.files = slices.DeleteFunc(c.files, func(f *ConfigFile) bool { return f == file })
	c.mu.Unlock()

	for _, s := range file.sections {
		s.free()
	}
	file.sections = nil
	file.configs = nil
}

func (c *Configs) path(file *ConfigFile) string {
	return filepath.Join(c.dir, file.Filename)
}

// ConfigFile is a named group of sections persisted to <dir>/<name>.conf.
type ConfigFile struct {
	Name     string
	Filename string

	reload   ReloadFunc
	sections []*ConfigSection
	configs  *Configs
}

// SectionSpec describes a new section.
type SectionSpec struct {
	Name                 string
	UserCanAddOptions    bool
	UserCanDeleteOptions bool
	Read                 SectionReadFunc
	Write                SectionWriteFunc
	WriteDefault         SectionWriteFunc
	CreateOption         CreateOptionFunc
	DeleteOption         DeleteOptionFunc
}

// NewSection adds a section. It returns nil when the name is empty or
// already used in this file.
func (f *ConfigFile) NewSection(spec SectionSpec) *ConfigSection {
	if spec.Name == "" || f.SearchSection(spec.Name) != nil {
		return nil
	}
	s := &ConfigSection{SectionSpec: spec, file: f}
	f.sections = append(f.sections, s)
	return s
}

// SearchSection returns the section with the given name.
func (f *ConfigFile) SearchSection(name string) *ConfigSection {
	for _, s := range f.sections {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// Sections returns the sections in creation order.
func (f *ConfigFile) Sections() []*ConfigSection {
	return slices.Clone(f.sections)
}

// SearchOption finds an option in section, or in every section of the
// file when section is nil.
func (f *ConfigFile) SearchOption(section *ConfigSection, name string) *ConfigOption {
	if section != nil {
		return section.SearchOption(name)
	}
	for _, s := range f.sections {
		if o := s.SearchOption(name); o != nil {
			return o
		}
	}
	return nil
}

// Path returns the file location on disk.
func (f *ConfigFile) Path() string {
	if f.configs == nil {
		return f.Filename
	}
	return f.configs.path(f)
}

// Field implements Fielder.
func (f *ConfigFile) Field(name string) (string, bool) {
	switch name {
	case "name":
		return f.Name, true
	case "filename":
		return f.Filename, true
	}
	return "", false
}

// Write saves the current values and returns a ConfigWrite code.
func (f *ConfigFile) Write() int {
	return f.write(false)
}

// WriteDefault saves the default values and returns a ConfigWrite code.
func (f *ConfigFile) WriteDefault() int {
	return f.write(true)
}

func (f *ConfigFile) write(defaults bool) int {
	doc := make(map[string]map[string]any, len(f.sections))
	for _, s := range f.sections {
		fn := s.Write
		if defaults {
			fn = s.WriteDefault
		}
		if fn != nil {
			if rc := fn(f, s); rc != ConfigWriteOK {
				return rc
			}
		}

		values := make(map[string]any, len(s.options))
		for _, o := range s.options {
			v := o.value
			if defaults {
				v = o.defaultValue
			}
			if v != nil {
				values[o.Name] = *v
			}
		}
		doc[s.Name] = values
	}

	data, err := toml.Marshal(doc)
	if err != nil {
		return ConfigWriteMemoryError
	}
	path := f.Path()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ConfigWriteError
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return ConfigWriteError
	}
	return ConfigWriteOK
}

// Read loads values from disk and returns a ConfigRead code. A missing
// file is created with default values.
func (f *ConfigFile) Read() int {
	data, err := os.ReadFile(f.Path())
	if errors.Is(err, fs.ErrNotExist) {
		if f.WriteDefault() == ConfigWriteOK {
			return ConfigReadOK
		}
		return ConfigReadFileNotFound
	}
	if err != nil {
		return ConfigReadFileNotFound
	}

	var doc map[string]map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return ConfigReadMemoryError
	}

	for _, s := range f.sections {
		values, ok := doc[s.Name]
		if !ok {
			continue
		}
		names := make([]string, 0, len(values))
		for name := range values {
			names = append(names, name)
		}
		slices.Sort(names)

		for _, name := range names {
			s.readValue(name, fmt.Sprint(values[name]))
		}
	}
	return ConfigReadOK
}

// Reload runs the reload callback, or resets every option and reads the
// file again.
func (f *ConfigFile) Reload() int {
	if f.reload != nil {
		return f.reload(f)
	}
	for _, s := range f.sections {
		for _, o := range s.options {
			o.Reset(true)
		}
	}
	return f.Read()
}

// ConfigSection groups options inside a config file.
type ConfigSection struct {
	SectionSpec

	file    *ConfigFile
	options []*ConfigOption
}

// File returns the owning config file.
func (s *ConfigSection) File() *ConfigFile { return s.file }

// Options returns the options in creation order.
func (s *ConfigSection) Options() []*ConfigOption {
	return slices.Clone(s.options)
}

// SearchOption returns the option with the given name.
func (s *ConfigSection) SearchOption(name string) *ConfigOption {
	for _, o := range s.options {
		if o.Name == name {
			return o
		}
	}
	return nil
}

// Field implements Fielder.
func (s *ConfigSection) Field(name string) (string, bool) {
	if name == "name" {
		return s.Name, true
	}
	return "", false
}

func (s *ConfigSection) readValue(name, value string) {
	if o := s.SearchOption(name); o != nil {
		o.Set(value, true)
		return
	}
	switch {
	case s.Read != nil:
		s.Read(s.file, s, name, value)
	case s.UserCanAddOptions && s.CreateOption != nil:
		s.CreateOption(s.file, s, name, value)
	}
}

func (s *ConfigSection) free() {
	for _, o := range s.options {
		if o.Delete != nil {
			o.Delete(o)
		}
	}
	s.options = nil
}

// OptionSpec describes a new option. Values are given as text; for
// non-string types an empty value means null.
type OptionSpec struct {
	Name             string
	Type             OptionType
	Description      string
	StringValues     []string
	Min, Max         int
	Default          string
	Value            string
	NullValueAllowed bool
	CheckValue       CheckValueFunc
	Change           OptionFunc
	Delete           OptionFunc
}

// ConfigOption is a typed value inside a section.
type ConfigOption struct {
	OptionSpec

	section      *ConfigSection
	defaultValue *string
	value        *string
}

// NewOption adds an option. It returns nil when the name is taken or the
// default or initial value is invalid for the type.
func (s *ConfigSection) NewOption(spec OptionSpec) *ConfigOption {
	if spec.Name == "" || s.SearchOption(spec.Name) != nil {
		return nil
	}
	if spec.Type == OptionEnum && len(spec.StringValues) == 0 {
		return nil
	}
	if spec.Type == OptionBoolean {
		spec.Min, spec.Max = 0, 1
	}

	o := &ConfigOption{OptionSpec: spec, section: s}

	def, ok := o.normalize(spec.Default)
	if !ok {
		return nil
	}
	val, ok := o.normalize(spec.Value)
	if !ok {
		return nil
	}
	o.defaultValue, o.value = def, val

	s.options = append(s.options, o)
	return o
}

// Section returns the owning section.
func (o *ConfigOption) Section() *ConfigSection { return o.section }

// FullName returns "file.section.option".
func (o *ConfigOption) FullName() string {
	if o.section == nil || o.section.file == nil {
		return o.Name
	}
	return o.section.file.Name + "." + o.section.Name + "." + o.Name
}

// IsNull reports whether the option has no value.
func (o *ConfigOption) IsNull() bool { return o.value == nil }

// Set changes the value and returns an OptionSet code. The check callback
// may veto the value; the change callback runs when runCallback is set
// and the value changed.
func (o *ConfigOption) Set(value string, runCallback bool) int {
	v, ok := o.normalize(value)
	if !ok {
		return OptionSetError
	}
	if o.CheckValue != nil && !o.CheckValue(o, value) {
		return OptionSetError
	}
	return o.assign(v, runCallback)
}

// SetNull clears the value if null is allowed.
func (o *ConfigOption) SetNull(runCallback bool) int {
	if !o.NullValueAllowed {
		return OptionSetError
	}
	return o.assign(nil, runCallback)
}

// Reset restores the default value.
func (o *ConfigOption) Reset(runCallback bool) int {
	return o.assign(o.defaultValue, runCallback)
}

func (o *ConfigOption) assign(v *string, runCallback bool) int {
	if equalValue(o.value, v) {
		return OptionSetOKSameValue
	}
	o.value = v
	if runCallback && o.Change != nil {
		o.Change(o)
	}
	return OptionSetOKChanged
}

// String returns the value as text; null is "".
func (o *ConfigOption) String() string {
	if o.value == nil {
		return ""
	}
	return *o.value
}

// Integer returns the numeric value: the integer itself, 1 or 0 for
// booleans, and the index for enums.
func (o *ConfigOption) Integer() int {
	if o.value == nil {
		return 0
	}
	switch o.Type {
	case OptionInteger:
		n, _ := strconv.Atoi(*o.value)
		return n
	case OptionBoolean:
		if *o.value == "on" {
			return 1
		}
	case OptionEnum:
		return slices.Index(o.StringValues, *o.value)
	}
	return 0
}

// Boolean returns the boolean value; non-boolean options are false.
func (o *ConfigOption) Boolean() bool {
	return o.Type == OptionBoolean && o.value != nil && *o.value == "on"
}

// Field implements Fielder.
func (o *ConfigOption) Field(name string) (string, bool) {
	switch name {
	case "name":
		return o.Name, true
	case "type":
		return o.Type.String(), true
	case "value":
		return o.String(), true
	case "default_value":
		if o.defaultValue == nil {
			return "", true
		}
		return *o.defaultValue, true
	case "description":
		return o.Description, true
	}
	return "", false
}

// normalize validates text for the option type and returns the canonical
// stored value. nil means null.
func (o *ConfigOption) normalize(text string) (*string, bool) {
	if text == "" && o.Type != OptionString {
		if o.NullValueAllowed {
			return nil, true
		}
		return nil, false
	}

	switch o.Type {
	case OptionBoolean:
		switch strings.ToLower(text) {
		case "on", "yes", "y", "true", "t", "1":
			text = "on"
		case "off", "no", "n", "false", "f", "0":
			text = "off"
		case "toggle":
			if o.Boolean() {
				text = "off"
			} else {
				text = "on"
			}
		default:
			return nil, false
		}
	case OptionInteger:
		n, err := strconv.Atoi(text)
		if err != nil {
			return nil, false
		}
		if o.Min != 0 || o.Max != 0 {
			if n < o.Min || n > o.Max {
				return nil, false
			}
		}
		text = strconv.Itoa(n)
	case OptionEnum:
		if !slices.Contains(o.StringValues, text) {
			return nil, false
		}
	case OptionString:
		if o.Max > 0 && len([]rune(text)) > o.Max {
			return nil, false
		}
	}
	return &text, true
}

func equalValue(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
