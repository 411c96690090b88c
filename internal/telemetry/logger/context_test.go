package logger

import (
	"context"
	"testing"
)

func TestWithLogger_FromContext(t *testing.T) {
	l, buf := newJSON(t, "info")
	defer SetLevel("warn")

	ctx := WithLogger(context.Background(), l)
	FromContext(ctx).Info("from context")

	if buf.Len() == 0 {
		t.Error("logger from context should produce output")
	}
	if FromContext(context.Background()) == nil {
		t.Error("FromContext should fall back to the default logger")
	}
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("RequestIDFromContext() = %q, want empty", got)
	}

	ctx = WithRequestID(ctx, "01J9Z3K6Q0ABCDEF")
	if got := RequestIDFromContext(ctx); got != "01J9Z3K6Q0ABCDEF" {
		t.Errorf("RequestIDFromContext() = %q", got)
	}
}

func TestL_AttachesRequestID(t *testing.T) {
	l, buf := newJSON(t, "info")
	defer SetLevel("warn")

	ctx := WithRequestID(WithLogger(context.Background(), l), "req-1")
	L(ctx).Info("dispatch")
	if got := decode(t, buf)["request_id"]; got != "req-1" {
		t.Errorf("request_id = %v, want req-1", got)
	}

	buf.Reset()
	L(WithLogger(context.Background(), l)).Info("dispatch")
	if _, ok := decode(t, buf)["request_id"]; ok {
		t.Error("request_id should be absent without a request ID")
	}
}

func TestContextKeyCollision(t *testing.T) {
	ctx := context.WithValue(context.Background(), "notekeep.request_id", "plain-string-key")
	if got := RequestIDFromContext(ctx); got != "" {
		t.Errorf("plain string key should not collide, got %q", got)
	}
}
