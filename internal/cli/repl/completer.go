package repl

import (
	"sort"
	"strings"
)

// builtins are handled by the REPL itself.
var builtins = []string{"exit", "history", "quit"}

// Completer suggests command paths for a typed prefix.
type Completer struct {
	commands []string
}

// NewCompleter creates a Completer over the builtins plus the given
// command paths, e.g. "appointment list".
func NewCompleter(commands ...string) *Completer {
	seen := make(map[string]bool, len(commands)+len(builtins))
	all := make([]string, 0, len(commands)+len(builtins))
	for _, cmd := range append(append([]string{}, builtins...), commands...) {
		cmd = strings.Join(strings.Fields(cmd), " ")
		if cmd == "" || seen[cmd] {
			continue
		}
		seen[cmd] = true
		all = append(all, cmd)
	}
	sort.Strings(all)
	return &Completer{commands: all}
}

// Complete returns the command paths starting with prefix, in order.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.Join(strings.Fields(prefix), " ")
	var out []string
	for _, cmd := range c.commands {
		if strings.HasPrefix(cmd, prefix) {
			out = append(out, cmd)
		}
	}
	return out
}
