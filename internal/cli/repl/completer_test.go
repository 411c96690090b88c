package repl

import (
	"reflect"
	"testing"
)

func TestCompleter(t *testing.T) {
	c := NewCompleter([]string{"note list", "note get", "login", "logout"})

	if got := c.Complete("log"); !reflect.DeepEqual(got, []string{"login", "logout"}) {
		t.Errorf("Complete(log) = %v", got)
	}
	if got := c.Complete("note "); !reflect.DeepEqual(got, []string{"note get", "note list"}) {
		t.Errorf("Complete(note ) = %v", got)
	}
	if got := c.Complete("zzz"); got != nil {
		t.Errorf("Complete(zzz) = %v, want nil", got)
	}

	for _, name := range []string{"note", "login", "exit", "history"} {
		if !c.Known(name) {
			t.Errorf("Known(%q) = false", name)
		}
	}
	if c.Known("list") {
		t.Error("subcommands are not top-level commands")
	}
}
