package command

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yndnr/notekeep-go/internal/client/apitest"
	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// harness runs the CLI against a fake API with a badger session kept in
// a temp dir, so state carries over between runs like separate processes.
type harness struct {
	t          *testing.T
	srv        *apitest.Server
	alice      domain.Identity
	stateDir   string
	configPath string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	srv := apitest.New(t)
	dir := t.TempDir()
	return &harness{
		t:          t,
		srv:        srv,
		alice:      srv.AddUser("Alice", "alice@example.com", "secret1"),
		stateDir:   filepath.Join(dir, "state"),
		configPath: filepath.Join(dir, "cli.yaml"),
	}
}

type result struct {
	stdout string
	stderr string
	err    error
}

// run executes one CLI invocation with stdin as input.
func (h *harness) run(stdin string, args ...string) result {
	h.t.Helper()
	app := App()
	var stdout, stderr bytes.Buffer
	app.Writer = &stdout
	app.ErrWriter = &stderr
	app.Reader = strings.NewReader(stdin)

	full := []string{
		"notekeep",
		"--config", h.configPath,
		"--api", h.srv.URL(),
		"--refresh-url", h.srv.RefreshURL(),
		"--state-dir", h.stateDir,
	}
	err := app.RunContext(context.Background(), append(full, args...))
	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// mustRun fails the test when the invocation errors.
func (h *harness) mustRun(stdin string, args ...string) result {
	h.t.Helper()
	r := h.run(stdin, args...)
	if r.err != nil {
		h.t.Fatalf("%v: error = %v\nstderr: %s", args, r.err, r.stderr)
	}
	return r
}

func (h *harness) login() {
	h.t.Helper()
	h.mustRun("", "login", "--email", "alice@example.com", "--password", "secret1")
}

func decodeJSON(t *testing.T, s string, v any) {
	t.Helper()
	if err := json.Unmarshal([]byte(s), v); err != nil {
		t.Fatalf("decode %q: %v", s, err)
	}
}
