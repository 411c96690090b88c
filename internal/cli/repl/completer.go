package repl

import (
	"sort"
	"strings"
)

var builtins = []string{"exit", "quit", "history"}

// Completer knows the available commands and suggests matches.
type Completer struct {
	commands []string
	roots    map[string]struct{}
}

// NewCompleter creates a completer over commands such as "note list".
// REPL builtins are always included.
func NewCompleter(commands []string) *Completer {
	c := &Completer{roots: make(map[string]struct{})}
	for _, cmd := range append(append([]string(nil), commands...), builtins...) {
		c.commands = append(c.commands, cmd)
		c.roots[strings.Fields(cmd)[0]] = struct{}{}
	}
	sort.Strings(c.commands)
	return c
}

// Known reports whether name is a top-level command.
func (c *Completer) Known(name string) bool {
	_, ok := c.roots[name]
	return ok
}

// Complete returns the commands starting with prefix.
func (c *Completer) Complete(prefix string) []string {
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
