package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yndnr/notekeep-go/internal/storage"
)

func TestKV_SetGetDelete(t *testing.T) {
	kv := New()
	ctx := context.Background()

	if err := kv.Set(ctx, storage.KeyToken, []byte("T1")); err != nil {
		t.Fatal(err)
	}
	got, err := kv.Get(ctx, storage.KeyToken)
	if err != nil || string(got) != "T1" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	// Returned slices must not alias internal state.
	got[0] = 'X'
	again, _ := kv.Get(ctx, storage.KeyToken)
	if string(again) != "T1" {
		t.Errorf("internal value mutated through returned slice: %q", again)
	}

	if err := kv.Delete(ctx, storage.KeyToken); err != nil {
		t.Fatal(err)
	}
	if _, err := kv.Get(ctx, storage.KeyToken); !errors.Is(err, storage.ErrKeyNotFound) {
		t.Errorf("Get after delete = %v, want ErrKeyNotFound", err)
	}
}

func TestKV_ApplyRejectsUnknownOpWithoutPartialWrite(t *testing.T) {
	kv := New()
	err := kv.Apply(context.Background(), []storage.Op{
		storage.SetOp("a", []byte("1")),
		{Kind: storage.OpKind(99), Key: "b"},
	})
	if err == nil {
		t.Fatal("expected error for unknown op")
	}
	if kv.Len() != 0 {
		t.Errorf("batch partially applied: %d keys", kv.Len())
	}
}

func TestKV_FailNextWrite(t *testing.T) {
	kv := New()
	boom := errors.New("disk full")
	kv.FailNextWrite(boom)

	if err := kv.Set(context.Background(), "k", []byte("v")); !errors.Is(err, boom) {
		t.Fatalf("Set() = %v, want %v", err, boom)
	}
	if err := kv.Set(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("failure should only apply once, got %v", err)
	}
}

func TestKV_Closed(t *testing.T) {
	kv := New()
	kv.Close()
	if _, err := kv.Get(context.Background(), "k"); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Get after close = %v", err)
	}
	if err := kv.Set(context.Background(), "k", nil); !errors.Is(err, storage.ErrClosed) {
		t.Errorf("Set after close = %v", err)
	}
}

func TestKV_Concurrent(t *testing.T) {
	kv := New()
	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = kv.Apply(ctx, []storage.Op{storage.SetOp("a", []byte("1")), storage.SetOp("b", []byte("1"))})
		}()
		go func() {
			defer wg.Done()
			_, _ = kv.Get(ctx, "a")
		}()
	}
	wg.Wait()
	if kv.Len() != 2 {
		t.Errorf("Len() = %d, want 2", kv.Len())
	}
}
