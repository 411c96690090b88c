package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestHistory_AddSkipsRepeatsAndPasswords(t *testing.T) {
	h := NewHistory("")
	h.Add("note list")
	h.Add("note list")
	h.Add("login --email a@example.com --password hunter2")
	h.Add("whoami")

	want := []string{"note list", "whoami"}
	if got := h.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("Entries() = %v, want %v", got, want)
	}
	if h.Get(0) != "whoami" || h.Get(1) != "note list" || h.Get(2) != "" {
		t.Error("Get() should index from the most recent entry")
	}
}

func TestHistory_MaxSize(t *testing.T) {
	h := NewHistory("")
	h.maxSize = 3
	for _, cmd := range []string{"a", "b", "c", "d"} {
		h.Add(cmd)
	}
	if got := h.Entries(); !reflect.DeepEqual(got, []string{"b", "c", "d"}) {
		t.Errorf("Entries() = %v", got)
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history")
	h := NewHistory(path)
	h.Add("note list")
	h.Add("whoami")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Mode().Perm() != 0o600 {
		t.Errorf("history mode = %v, want 0600", fi.Mode().Perm())
	}

	loaded := NewHistory(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got := loaded.Entries(); !reflect.DeepEqual(got, []string{"note list", "whoami"}) {
		t.Errorf("loaded = %v", got)
	}
}

func TestHistory_LoadMissingFile(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "missing"))
	if err := h.Load(); err != nil {
		t.Errorf("Load() error = %v", err)
	}
	if err := NewHistory("").Save(); err != nil {
		t.Errorf("Save() without file error = %v", err)
	}
}
