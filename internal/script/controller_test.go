package script

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"github.com/dshills/scriptbridge/internal/host"
	"github.com/dshills/scriptbridge/internal/script/api"
	slua "github.com/dshills/scriptbridge/internal/script/lua"
)

type fixture struct {
	ctrl *Controller
	host *host.Host
	dir  string
	logs *observer.ObservedLogs

	mu      sync.Mutex
	signals []host.Signal
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	home := t.TempDir()
	h := host.New(host.Options{Name: "lua", Home: home, Logger: zap.New(core)})
	t.Cleanup(h.Close)

	dir := filepath.Join(home, "lua")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll() error = %v", err)
	}

	ctrl, err := New(h, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = ctrl.Shutdown() })

	f := &fixture{ctrl: ctrl, host: h, dir: dir, logs: logs}
	h.Signals.Hook("lua_script_*", func(sig host.Signal) {
		f.mu.Lock()
		f.signals = append(f.signals, sig)
		f.mu.Unlock()
	})
	return f
}

func (f *fixture) write(t *testing.T, name, src string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}

func (f *fixture) received() []host.Signal {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]host.Signal, len(f.signals))
	copy(out, f.signals)
	return out
}

func (f *fixture) logged(level zapcore.Level, substr string) bool {
	for _, e := range f.logs.All() {
		if e.Level == level && strings.Contains(e.Message, substr) {
			return true
		}
	}
	return false
}

func registerSrc(name string) string {
	return `host.register("` + name + `", "alice", "1.0", "GPL3", "test script", "", "")` + "\n"
}

func TestLoadCommitsRegisteredScript(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "foo.lua", registerSrc("foo"))

	sc, err := f.ctrl.Load(context.Background(), "foo.lua", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if sc.Name != "foo" || sc.Author != "alice" || sc.Version != "1.0" || sc.License != "GPL3" {
		t.Errorf("script = %+v", sc.Info())
	}
	if sc.Filename != path {
		t.Errorf("Filename = %q, want %q", sc.Filename, path)
	}
	if sc.LoadedAt.IsZero() {
		t.Error("LoadedAt not set")
	}
	if f.ctrl.Current() != sc {
		t.Error("loaded script should be current")
	}
	if got := f.ctrl.Completion(); len(got) != 1 || got[0] != "foo" {
		t.Errorf("Completion() = %v", got)
	}

	sigs := f.received()
	if len(sigs) != 1 || sigs[0].Name != SignalLoaded || sigs[0].Data != path {
		t.Errorf("signals = %+v", sigs)
	}
	if !f.logged(zapcore.InfoLevel, `loading script "`+path+`"`) {
		t.Error("expected loading line")
	}
	if !f.logged(zapcore.InfoLevel, `registered script "foo", version 1.0 (test script)`) {
		t.Error("expected registered line")
	}
}

func TestDuplicateNameThenUnload(t *testing.T) {
	f := newFixture(t)
	pathA := f.write(t, "a.lua", registerSrc("foo"))
	f.write(t, "b.lua", registerSrc("foo"))

	if _, err := f.ctrl.Load(context.Background(), "a.lua", false); err != nil {
		t.Fatalf("Load(a) error = %v", err)
	}

	_, err := f.ctrl.Load(context.Background(), "b.lua", false)
	if !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("Load(b) error = %v, want ErrAlreadyRegistered", err)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Phase != PhaseRegistrationMissing {
		t.Errorf("error = %#v", err)
	}
	if got := f.ctrl.Registry().Names(); len(got) != 1 || got[0] != "foo" {
		t.Fatalf("registry = %v, want [foo]", got)
	}
	if sc, _ := f.ctrl.Get("foo"); sc.Filename != pathA {
		t.Error("registry entry must stay the first script")
	}
	if !f.logged(zapcore.ErrorLevel, `unable to register script "foo" (another script already exists with this name)`) {
		t.Error("expected collision diagnostic")
	}

	if err := f.ctrl.Unload("foo", false); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if f.ctrl.Registry().Len() != 0 {
		t.Errorf("registry = %v, want empty", f.ctrl.Registry().Names())
	}

	sigs := f.received()
	last := sigs[len(sigs)-1]
	if last.Name != SignalUnloaded || last.Data != pathA {
		t.Errorf("last signal = %+v", last)
	}
	if f.ctrl.Current() != nil {
		t.Error("current should be nil after the last unload")
	}
}

func TestCollisionRejectsLaterRegistrations(t *testing.T) {
	f := newFixture(t)
	f.write(t, "a.lua", registerSrc("foo"))
	f.write(t, "b.lua", `
local first = host.register("foo", "", "1", "", "", "", "")
local second = host.register("other", "", "1", "", "", "", "")
print("first=" .. tostring(first) .. " second=" .. tostring(second))
print("name=[" .. host.plugin_get_name(host.plugin) .. "]")
`)

	if _, err := f.ctrl.Load(context.Background(), "a.lua", true); err != nil {
		t.Fatalf("Load(a) error = %v", err)
	}
	if _, err := f.ctrl.Load(context.Background(), "b.lua", true); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("Load(b) error = %v", err)
	}
	if !f.logged(zapcore.InfoLevel, "first=false second=false") {
		t.Error("both registrations should be refused")
	}
	if !f.logged(zapcore.InfoLevel, "name=[]") {
		t.Error("calls after a refused registration should not be initialized")
	}
	if f.ctrl.Registry().Has("other") {
		t.Error("other must not be registered")
	}
}

func TestSecondRegistrationIsIgnored(t *testing.T) {
	f := newFixture(t)
	f.write(t, "twice.lua", `
first = host.register("once", "", "1", "", "", "", "")
second = host.register("twice", "", "1", "", "", "", "")
after = true
`)

	sc, err := f.ctrl.Load(context.Background(), "twice.lua", false)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if sc.Name != "once" {
		t.Errorf("Name = %q, want once", sc.Name)
	}

	L := sc.Interpreter()
	if L.GetGlobal("first") != glua.LTrue || L.GetGlobal("second") != glua.LFalse {
		t.Errorf("first = %v, second = %v", L.GetGlobal("first"), L.GetGlobal("second"))
	}
	if L.GetGlobal("after") != glua.LTrue {
		t.Error("execution should continue after the ignored registration")
	}
	if !f.logged(zapcore.ErrorLevel, `script "once" already registered (register ignored)`) {
		t.Error("expected register ignored diagnostic")
	}
	if f.ctrl.Registry().Has("twice") {
		t.Error("twice must not be registered")
	}
}

func TestMissingRegistration(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "bare.lua", `x = 1`)

	_, err := f.ctrl.Load(context.Background(), "bare.lua", false)
	if !errors.Is(err, ErrRegistrationMissing) {
		t.Fatalf("Load() error = %v, want ErrRegistrationMissing", err)
	}
	if f.ctrl.Registry().Len() != 0 {
		t.Error("registry should be empty")
	}
	if !f.logged(zapcore.ErrorLevel, `function "register" not found (or failed) in file "`+path+`"`) {
		t.Error("expected missing registration diagnostic")
	}
	if len(f.received()) != 0 {
		t.Error("no signal expected for a failed load")
	}
}

func TestInvalidRegistration(t *testing.T) {
	f := newFixture(t)
	f.write(t, "invalid.lua", `ok = host.register("", "", "", "", "", "", "")`)

	_, err := f.ctrl.Load(context.Background(), "invalid.lua", false)
	if !errors.Is(err, ErrRegistrationMissing) {
		t.Fatalf("Load() error = %v", err)
	}
	if !f.logged(zapcore.ErrorLevel, "invalid registration") {
		t.Error("expected invalid registration diagnostic")
	}
}

func TestRuntimeFaultRollsBackRegisteredScript(t *testing.T) {
	f := newFixture(t)
	f.write(t, "fault.lua", registerSrc("fault")+`
local cfg = host.config_new("faultcfg", "", "")
error("boom")
`)

	_, err := f.ctrl.Load(context.Background(), "fault.lua", false)
	if !errors.Is(err, ErrRuntimeFault) {
		t.Fatalf("Load() error = %v, want ErrRuntimeFault", err)
	}
	if !errors.Is(err, slua.ErrRuntime) {
		t.Errorf("cause should be kept: %v", err)
	}
	if f.ctrl.Registry().Has("fault") {
		t.Error("faulted script must not be registered")
	}
	if f.host.Configs.Search("faultcfg") != nil {
		t.Error("resources of the attempt should be released")
	}
	if !f.logged(zapcore.ErrorLevel, "unable to execute file") {
		t.Error("expected execution diagnostic")
	}
}

func TestCompileErrorRunsNothing(t *testing.T) {
	f := newFixture(t)
	f.write(t, "syntax.lua", registerSrc("syntax")+`if then`)

	_, err := f.ctrl.Load(context.Background(), "syntax.lua", false)
	if !errors.Is(err, ErrCompile) || !errors.Is(err, slua.ErrSyntax) {
		t.Fatalf("Load() error = %v", err)
	}
	var loadErr *LoadError
	if !errors.As(err, &loadErr) || loadErr.Phase != PhaseLoadFailed || loadErr.Name != "" {
		t.Errorf("error = %#v", err)
	}
	if f.ctrl.Registry().Len() != 0 {
		t.Error("registry should be empty")
	}
}

func TestLoadNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.ctrl.Load(context.Background(), "nope.lua", false)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Load() error = %v, want ErrNotFound", err)
	}
	if !f.logged(zapcore.ErrorLevel, `script "nope.lua" not found`) {
		t.Error("expected not found diagnostic")
	}
	if f.ctrl.Busy() {
		t.Error("controller should be idle after a failed load")
	}
}

func TestMaxScripts(t *testing.T) {
	f := newFixture(t, WithMaxScripts(1))
	f.write(t, "one.lua", registerSrc("one"))
	f.write(t, "two.lua", registerSrc("two"))

	if _, err := f.ctrl.Load(context.Background(), "one.lua", true); err != nil {
		t.Fatalf("Load(one) error = %v", err)
	}
	if _, err := f.ctrl.Load(context.Background(), "two.lua", true); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("Load(two) error = %v, want ErrResourceExhausted", err)
	}
	if !f.logged(zapcore.ErrorLevel, "unable to create new sub-interpreter") {
		t.Error("expected interpreter diagnostic")
	}
}

func TestExecutionTimeout(t *testing.T) {
	f := newFixture(t, WithExecutionTimeout(50 * time.Millisecond))
	f.write(t, "loop.lua", registerSrc("loop")+`while true do end`)

	_, err := f.ctrl.Load(context.Background(), "loop.lua", true)
	if !errors.Is(err, ErrRuntimeFault) || !errors.Is(err, slua.ErrExecutionTimeout) {
		t.Fatalf("Load() error = %v", err)
	}
}

func TestQuietLoad(t *testing.T) {
	f := newFixture(t)
	f.write(t, "quiet.lua", registerSrc("quiet"))

	if _, err := f.ctrl.Load(context.Background(), "quiet.lua", true); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if f.logged(zapcore.InfoLevel, "loading script") || f.logged(zapcore.InfoLevel, "registered script") {
		t.Error("quiet load should not print informational lines")
	}
	if err := f.ctrl.Unload("quiet", true); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if f.logged(zapcore.InfoLevel, "unloading script") {
		t.Error("quiet unload should not print informational lines")
	}
}

func TestQuietLoadWithDebug(t *testing.T) {
	f := newFixture(t, WithDebug(2))
	f.write(t, "quiet.lua", registerSrc("quiet"))

	if _, err := f.ctrl.Load(context.Background(), "quiet.lua", true); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !f.logged(zapcore.InfoLevel, "loading script") {
		t.Error("debug level 2 should print informational lines")
	}
}

func TestCurrentMovesOnUnload(t *testing.T) {
	f := newFixture(t)
	for _, name := range []string{"a", "b", "c"} {
		f.write(t, name+".lua", registerSrc(name))
		if _, err := f.ctrl.Load(context.Background(), name+".lua", true); err != nil {
			t.Fatalf("Load(%s) error = %v", name, err)
		}
	}

	if f.ctrl.Current().Name != "c" {
		t.Fatalf("current = %s, want c", f.ctrl.Current().Name)
	}
	if err := f.ctrl.Unload("c", true); err != nil {
		t.Fatal(err)
	}
	if f.ctrl.Current().Name != "b" {
		t.Errorf("current = %s, want previous b", f.ctrl.Current().Name)
	}

	a, _ := f.ctrl.Get("a")
	f.ctrl.Registry().SetCurrent(a)
	if err := f.ctrl.Unload("a", true); err != nil {
		t.Fatal(err)
	}
	if f.ctrl.Current().Name != "b" {
		t.Errorf("current = %s, want next b", f.ctrl.Current().Name)
	}

	if err := f.ctrl.Unload("a", true); !errors.Is(err, ErrScriptNotLoaded) {
		t.Errorf("Unload(a) again error = %v", err)
	}
}

func TestUnloadRunsShutdownFunction(t *testing.T) {
	f := newFixture(t)
	f.write(t, "bye.lua", `
host.register("bye", "", "1", "", "", "on_shutdown", "")
function on_shutdown()
  host.mkdir_home("bye-dir", 493)
end
`)

	if _, err := f.ctrl.Load(context.Background(), "bye.lua", true); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := f.ctrl.Unload("bye", true); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if info, err := os.Stat(f.host.Path("bye-dir")); err != nil || !info.IsDir() {
		t.Errorf("shutdown function did not run: %v", err)
	}
}

func TestUnloadReleasesResources(t *testing.T) {
	f := newFixture(t)
	f.write(t, "res.lua", registerSrc("res")+`
list = host.list_new()
host.list_add(list, "x", "end", "")
cfg = host.config_new("rescfg", "", "")
`)

	sc, err := f.ctrl.Load(context.Background(), "res.lua", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(sc.Resources()) != 2 {
		t.Fatalf("Resources() = %d, want 2", len(sc.Resources()))
	}
	listToken := sc.Interpreter().GetGlobal("list").String()
	if f.ctrl.Handles().Decode(listToken) == nil {
		t.Fatal("list token should decode while loaded")
	}

	if err := f.ctrl.Unload("res", true); err != nil {
		t.Fatalf("Unload() error = %v", err)
	}
	if f.ctrl.Handles().Decode(listToken) != nil {
		t.Error("list token should be stale after unload")
	}
	if f.host.Configs.Search("rescfg") != nil {
		t.Error("config file should be freed")
	}
	if !sc.Interpreter().IsClosed() {
		t.Error("interpreter should be closed")
	}
}

func TestMkdirBeforeAndAfterRegistration(t *testing.T) {
	f := newFixture(t)
	f.write(t, "mk.lua", `
before = host.mkdir_home("early", 493)
host.register("mk", "", "1", "", "", "", "")
after = host.mkdir_home("late", 493)
nested = host.mkdir_parents("~/" .. host.plugin_get_name(host.plugin) .. "/x/y", 493)
`)

	sc, err := f.ctrl.Load(context.Background(), "mk.lua", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	L := sc.Interpreter()
	if L.GetGlobal("before") != glua.LFalse {
		t.Error("mkdir before registration should fail")
	}
	if _, err := os.Stat(f.host.Path("early")); !os.IsNotExist(err) {
		t.Error("no directory should be created before registration")
	}
	if L.GetGlobal("after") != glua.LTrue {
		t.Error("mkdir after registration should succeed")
	}
	if info, err := os.Stat(f.host.Path("late")); err != nil || !info.IsDir() {
		t.Errorf("late directory missing: %v", err)
	}
	if L.GetGlobal("nested") != glua.LTrue {
		t.Error("mkdir_parents should succeed")
	}
	if !f.logged(zapcore.ErrorLevel, `unable to call function "mkdir_home", script is not initialized (script: -)`) {
		t.Error("expected not initialized diagnostic")
	}
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "re.lua", registerSrc("re")+`version = 1`)

	first, err := f.ctrl.Load(context.Background(), "re.lua", true)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := os.WriteFile(path, []byte(registerSrc("re")+`version = 2`), 0o644); err != nil {
		t.Fatal(err)
	}

	second, err := f.ctrl.Reload(context.Background(), "re", true)
	if err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if second.AttemptID == first.AttemptID {
		t.Error("reload should create a new attempt")
	}
	if v := second.Interpreter().GetGlobal("version"); v.String() != "2" {
		t.Errorf("version = %v, want 2", v)
	}
	if f.ctrl.Registry().Len() != 1 {
		t.Errorf("registry = %v", f.ctrl.Registry().Names())
	}
	if _, err := f.ctrl.Reload(context.Background(), "missing", true); !errors.Is(err, ErrScriptNotLoaded) {
		t.Errorf("Reload(missing) error = %v", err)
	}
}

func TestUnloadAllInLoadOrder(t *testing.T) {
	f := newFixture(t)
	var paths []string
	for _, name := range []string{"one", "two", "three"} {
		paths = append(paths, f.write(t, name+".lua", registerSrc(name)))
		if _, err := f.ctrl.Load(context.Background(), name+".lua", true); err != nil {
			t.Fatal(err)
		}
	}

	if err := f.ctrl.UnloadAll(); err != nil {
		t.Fatalf("UnloadAll() error = %v", err)
	}
	if f.ctrl.Registry().Len() != 0 {
		t.Error("registry should be empty")
	}

	var unloaded []string
	for _, sig := range f.received() {
		if sig.Name == SignalUnloaded {
			unloaded = append(unloaded, sig.Data)
		}
	}
	if strings.Join(unloaded, ",") != strings.Join(paths, ",") {
		t.Errorf("unload order = %v, want %v", unloaded, paths)
	}
}

func TestAutoload(t *testing.T) {
	auto := t.TempDir()
	f := newFixture(t, WithAutoloadDir(auto))
	for name, src := range map[string]string{
		"a.lua":     registerSrc("a"),
		"b.lua":     `x = 1`,
		"c.lua":     registerSrc("c"),
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(auto, name), []byte(src), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	err := f.ctrl.Autoload(context.Background())
	if !errors.Is(err, ErrRegistrationMissing) {
		t.Fatalf("Autoload() error = %v", err)
	}
	if got := strings.Join(f.ctrl.Registry().Names(), ","); got != "a,c" {
		t.Errorf("registry = %s, want a,c", got)
	}
}

func TestSyncFile(t *testing.T) {
	f := newFixture(t)
	path := f.write(t, "sync.lua", registerSrc("sync"))

	if err := f.ctrl.SyncFile(context.Background(), path); err != nil {
		t.Fatalf("SyncFile(new) error = %v", err)
	}
	first, ok := f.ctrl.Get("sync")
	if !ok {
		t.Fatal("sync should be loaded")
	}

	if err := f.ctrl.SyncFile(context.Background(), path); err != nil {
		t.Fatalf("SyncFile(changed) error = %v", err)
	}
	second, _ := f.ctrl.Get("sync")
	if second == first {
		t.Error("changed file should be reloaded")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := f.ctrl.SyncFile(context.Background(), path); err != nil {
		t.Fatalf("SyncFile(removed) error = %v", err)
	}
	if f.ctrl.Registry().Has("sync") {
		t.Error("removed file should be unloaded")
	}
}

func TestInfolistAndDump(t *testing.T) {
	f := newFixture(t)
	f.write(t, "alpha.lua", registerSrc("alpha"))
	f.write(t, "beta.lua", registerSrc("beta"))
	for _, name := range []string{"alpha.lua", "beta.lua"} {
		if _, err := f.ctrl.Load(context.Background(), name, true); err != nil {
			t.Fatal(err)
		}
	}

	if got := f.ctrl.Infolist("AL*"); len(got) != 1 || got[0].Name != "alpha" {
		t.Errorf("Infolist(AL*) = %+v", got)
	}
	if got := f.ctrl.Infolist(""); len(got) != 2 {
		t.Errorf("Infolist() = %d records", len(got))
	}

	var buf bytes.Buffer
	if err := f.ctrl.Dump(&buf); err != nil {
		t.Fatalf("Dump() error = %v", err)
	}
	var out struct {
		Plugin  string `yaml:"plugin"`
		Current string `yaml:"current"`
		Scripts []Info `yaml:"scripts"`
	}
	if err := yaml.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if out.Plugin != "lua" || out.Current != "beta" || len(out.Scripts) != 2 || out.Scripts[0].Name != "alpha" {
		t.Errorf("dump = %+v", out)
	}
}

func TestDebugDumpSignal(t *testing.T) {
	f := newFixture(t)
	f.write(t, "d.lua", registerSrc("d"))
	if _, err := f.ctrl.Load(context.Background(), "d.lua", true); err != nil {
		t.Fatal(err)
	}

	f.host.Signals.Send(SignalDebugDump, "other")
	if f.logged(zapcore.InfoLevel, "script registry dump") {
		t.Error("dump for another plugin should be ignored")
	}
	f.host.Signals.Send(SignalDebugDump, "lua")
	if !f.logged(zapcore.InfoLevel, "script registry dump") {
		t.Error("expected registry dump")
	}
}

func TestPrintIsRoutedToMessages(t *testing.T) {
	f := newFixture(t)
	f.write(t, "p.lua", registerSrc("p")+`print("hello", 42)`)

	if _, err := f.ctrl.Load(context.Background(), "p.lua", true); err != nil {
		t.Fatal(err)
	}
	entries := f.logs.FilterMessage("lua: hello\t42").All()
	if len(entries) != 1 {
		t.Fatalf("print entries = %d", len(entries))
	}
	if entries[0].ContextMap()["script"] != "p" {
		t.Errorf("script field = %v", entries[0].ContextMap()["script"])
	}
}

func TestCallbackMakesScriptCurrent(t *testing.T) {
	f := newFixture(t)
	f.write(t, "first.lua", registerSrc("first")+`
function on_change(data, option)
  seen = data
  return 0
end
cfg = host.config_new("cbcfg", "", "")
sec = host.config_new_section(cfg, "look", 0, 0, "", "", "", "", "", "", "", "", "", "")
opt = host.config_new_option(cfg, sec, "color", "string", "", "", 0, 0, "red", "red", 0, "", "", "on_change", "payload", "", "")
`)
	f.write(t, "second.lua", registerSrc("second"))
	for _, name := range []string{"first.lua", "second.lua"} {
		if _, err := f.ctrl.Load(context.Background(), name, true); err != nil {
			t.Fatal(err)
		}
	}

	first, _ := f.ctrl.Get("first")
	if f.host.Configs.SetOption("cbcfg.look.color", "blue") != host.OptionSetOKChanged {
		t.Fatal("SetOption() failed")
	}
	if cur := f.ctrl.Current(); cur == nil || cur.Name != "second" {
		t.Errorf("current after callback = %v, want second", cur)
	}
	if v := first.Interpreter().GetGlobal("seen"); v.String() != "payload" {
		t.Errorf("seen = %v, want payload", v)
	}
}

type reenterModule struct {
	ctrl **Controller
	err  *error
}

func (reenterModule) Name() string { return "reenter" }

func (m reenterModule) Bindings() []api.Binding {
	return []api.Binding{{
		Name:   "reenter",
		Result: api.ResultBool,
		Fn: func(c *api.Call) any {
			_, *m.err = (*m.ctrl).Load(context.Background(), "other.lua", true)
			return false
		},
	}}
}

func TestLoadWhileBusy(t *testing.T) {
	var ctrl *Controller
	var reenterErr error

	catalog := api.NewRegistry()
	if err := catalog.Register(api.CoreModule{}); err != nil {
		t.Fatal(err)
	}
	if err := catalog.Register(reenterModule{ctrl: &ctrl, err: &reenterErr}); err != nil {
		t.Fatal(err)
	}

	f := newFixture(t, WithCatalog(catalog))
	ctrl = f.ctrl
	f.write(t, "busy.lua", registerSrc("busy")+`host.reenter()`)
	f.write(t, "other.lua", registerSrc("other"))

	if _, err := f.ctrl.Load(context.Background(), "busy.lua", true); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !errors.Is(reenterErr, ErrBusy) {
		t.Errorf("nested Load() error = %v, want ErrBusy", reenterErr)
	}
	if f.ctrl.Registry().Has("other") {
		t.Error("nested load must not register")
	}
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{PhaseIdle, "idle"},
		{PhaseAPIBound, "api-bound"},
		{PhaseExecuting, "executing"},
		{PhaseCommitted, "committed"},
		{PhaseRolledBack, "rolled-back"},
		{Phase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
	if !PhaseCommitted.IsTerminal() || PhaseExecuting.IsTerminal() {
		t.Error("IsTerminal() mismatch")
	}
}

func TestLoadErrorUnwrap(t *testing.T) {
	cause := errors.New("disk on fire")
	err := &LoadError{Path: "/x.lua", Phase: PhaseLoadFailed, Kind: ErrNotFound, Err: cause}
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, cause) {
		t.Error("LoadError should unwrap to kind and cause")
	}
	if !strings.Contains(err.Error(), "/x.lua") || !strings.Contains(err.Error(), "load-failed") {
		t.Errorf("Error() = %q", err.Error())
	}
}
