package shutdown

import (
	"context"
	"errors"
	"slices"
	"syscall"
	"testing"
	"time"

	"github.com/yndnr/notekeep-go/internal/telemetry/logger"
)

func TestHandler_ReverseOrder(t *testing.T) {
	h := NewHandler(time.Second)
	h.SetLogger(logger.Nop())

	var order []string
	for _, name := range []string{"kv", "watcher", "history"} {
		name := name
		h.OnClose(name, func() error {
			order = append(order, name)
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	want := []string{"history", "watcher", "kv"}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	select {
	case <-h.Done():
	default:
		t.Error("Done() should be closed after Shutdown")
	}
}

func TestHandler_JoinsErrorsAndRunsAll(t *testing.T) {
	h := NewHandler(time.Second)
	h.SetLogger(logger.Nop())

	errKV := errors.New("kv close failed")
	ran := 0
	h.OnClose("kv", func() error { ran++; return errKV })
	h.OnClose("ok", func() error { ran++; return nil })

	err := h.Shutdown()
	if !errors.Is(err, errKV) {
		t.Errorf("Shutdown() error = %v, want %v", err, errKV)
	}
	if ran != 2 {
		t.Errorf("ran %d hooks, want 2", ran)
	}
}

func TestHandler_RunsOnce(t *testing.T) {
	h := NewHandler(time.Second)
	calls := 0
	h.OnClose("count", func() error { calls++; return nil })

	_ = h.Shutdown()
	_ = h.Shutdown()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestHandler_HookContextHasDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown("deadline", func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context should carry the shutdown timeout")
		}
		return nil
	})
	_ = h.Shutdown()
}

func TestWithSignals(t *testing.T) {
	ctx, cancel := WithSignals(context.Background())
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("Kill() error = %v", err)
	}
	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled by SIGTERM")
	}
}
