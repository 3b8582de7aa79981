package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLocalExecRunsWork(t *testing.T) {
	l := NewLocal()
	ran := false
	err := l.Exec(context.Background(), "t1", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil || !ran {
		t.Fatalf("expected work to run, err=%v ran=%v", err, ran)
	}
}

func TestLocalExecPropagatesError(t *testing.T) {
	l := NewLocal()
	want := errors.New("decode failed")
	if err := l.Exec(context.Background(), "t1", func(context.Context) error { return want }); err != want {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestLocalCancelInFlight(t *testing.T) {
	l := NewLocal()
	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- l.Exec(context.Background(), "t1", func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()
	<-started
	if !l.Cancel("t1") {
		t.Fatalf("expected cancel to find in-flight task")
	}
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("cancel did not unblock the task")
	}
}

func TestLocalCancelUnknownID(t *testing.T) {
	l := NewLocal()
	if l.Cancel("nope") {
		t.Fatalf("expected false for unknown id")
	}
}
