package script

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dshills/scriptbridge/internal/host"
)

// Command return codes.
const (
	RCOK    = 0
	RCError = -1
)

// CommandHandler runs one command. args excludes the command name; rest is
// the raw text after the command name.
type CommandHandler func(ctx context.Context, args []string, rest string) int

// Command describes one command of the command surface.
type Command struct {
	Name        string
	Usage       string
	Description string
	Handler     CommandHandler
}

// Commands is the command surface of the controller. Its methods must run
// on the control goroutine.
type Commands struct {
	ctrl     *Controller
	out      io.Writer
	commands map[string]Command
}

// NewCommands creates the command surface writing its output to out.
func NewCommands(ctrl *Controller, out io.Writer) *Commands {
	c := &Commands{
		ctrl:     ctrl,
		out:      out,
		commands: make(map[string]Command),
	}
	c.add(Command{Name: "list", Usage: "list [mask]", Description: "list loaded scripts", Handler: c.list})
	c.add(Command{Name: "listfull", Usage: "listfull [mask]", Description: "list loaded scripts (verbose)", Handler: c.listFull})
	c.add(Command{Name: "load", Usage: "load [-q] <path>", Description: "load a script", Handler: c.load})
	c.add(Command{Name: "unload", Usage: "unload [name]", Description: "unload a script (all scripts without name)", Handler: c.unload})
	c.add(Command{Name: "reload", Usage: "reload <name>", Description: "reload a script", Handler: c.reload})
	c.add(Command{Name: "autoload", Usage: "autoload", Description: "load the scripts of the autoload directory", Handler: c.autoload})
	c.add(Command{Name: "dump", Usage: "dump", Description: "dump the script registry", Handler: c.dump})
	c.add(Command{Name: "set", Usage: "set <file.section.option> <value>", Description: "set a script config option", Handler: c.set})
	c.add(Command{Name: "help", Usage: "help", Description: "show this help", Handler: c.help})
	return c
}

func (c *Commands) add(cmd Command) {
	c.commands[cmd.Name] = cmd
}

// Names returns the command names, sorted.
func (c *Commands) Names() []string {
	names := make([]string, 0, len(c.commands))
	for name := range c.commands {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exec parses and runs line. An empty line lists the scripts.
func (c *Commands) Exec(ctx context.Context, line string) int {
	line = strings.TrimSpace(line)
	line = strings.TrimPrefix(line, host.CommandChars)
	if line == "" {
		return c.list(ctx, nil, "")
	}

	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	cmd, ok := c.commands[strings.ToLower(name)]
	if !ok {
		fmt.Fprintf(c.out, "unknown command %q (try \"help\")\n", name)
		return RCError
	}
	return cmd.Handler(ctx, strings.Fields(rest), rest)
}

func (c *Commands) list(_ context.Context, args []string, _ string) int {
	c.printList(mask(args), false)
	return RCOK
}

func (c *Commands) listFull(_ context.Context, args []string, _ string) int {
	c.printList(mask(args), true)
	return RCOK
}

func mask(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func (c *Commands) printList(mask string, full bool) {
	infos := c.ctrl.Infolist(mask)
	fmt.Fprintf(c.out, "%s scripts loaded:\n", c.ctrl.host.Name())
	if len(infos) == 0 {
		fmt.Fprintln(c.out, "  (none)")
		return
	}
	for _, info := range infos {
		fmt.Fprintf(c.out, "  %s v%s - %s\n", info.Name, info.Version, info.Description)
		if full {
			fmt.Fprintf(c.out, "    file: %s\n", info.Filename)
			fmt.Fprintf(c.out, "    written by \"%s\", license: %s\n", info.Author, info.License)
		}
	}
}

func (c *Commands) load(ctx context.Context, args []string, rest string) int {
	quiet := false
	if len(args) > 0 && args[0] == "-q" {
		quiet = true
		rest = strings.TrimSpace(strings.TrimPrefix(rest, "-q"))
	}
	if rest == "" {
		fmt.Fprintln(c.out, "usage: load [-q] <path>")
		return RCError
	}
	if _, err := c.ctrl.Load(ctx, rest, quiet); err != nil {
		return RCError
	}
	return RCOK
}

func (c *Commands) unload(_ context.Context, _ []string, rest string) int {
	if rest == "" {
		if err := c.ctrl.UnloadAll(); err != nil {
			return RCError
		}
		return RCOK
	}
	if err := c.ctrl.Unload(rest, false); err != nil {
		return RCError
	}
	return RCOK
}

func (c *Commands) reload(ctx context.Context, _ []string, rest string) int {
	if rest == "" {
		fmt.Fprintln(c.out, "usage: reload <name>")
		return RCError
	}
	if _, err := c.ctrl.Reload(ctx, rest, false); err != nil {
		fmt.Fprintln(c.out, err)
		return RCError
	}
	return RCOK
}

func (c *Commands) autoload(ctx context.Context, _ []string, _ string) int {
	if err := c.ctrl.Autoload(ctx); err != nil {
		return RCError
	}
	return RCOK
}

func (c *Commands) dump(_ context.Context, _ []string, _ string) int {
	if err := c.ctrl.Dump(c.out); err != nil {
		fmt.Fprintln(c.out, err)
		return RCError
	}
	return RCOK
}

func (c *Commands) set(_ context.Context, args []string, rest string) int {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "usage: set <file.section.option> <value>")
		return RCError
	}
	value := strings.TrimSpace(strings.TrimPrefix(rest, args[0]))
	switch rc := c.ctrl.host.Configs.SetOption(args[0], value); rc {
	case host.OptionSetOKChanged:
		fmt.Fprintf(c.out, "option %s changed\n", args[0])
	case host.OptionSetOKSameValue:
		fmt.Fprintf(c.out, "option %s unchanged\n", args[0])
	case host.OptionSetOptionNotFound:
		fmt.Fprintf(c.out, "option %s not found\n", args[0])
		return RCError
	default:
		fmt.Fprintf(c.out, "invalid value for option %s\n", args[0])
		return RCError
	}
	return RCOK
}

func (c *Commands) help(_ context.Context, _ []string, _ string) int {
	for _, name := range c.Names() {
		cmd := c.commands[name]
		fmt.Fprintf(c.out, "  %-36s %s\n", cmd.Usage, cmd.Description)
	}
	return RCOK
}
