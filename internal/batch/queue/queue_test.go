package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/kata/internal/domain/model"
)

func job(id string) Job {
	return Job{
		ID:          id,
		Dataset:     model.NewDataset("/data", "swing_"+id),
		RuleSetPath: "/rules/baseball_v2.json",
		Plugin:      "auto",
	}
}

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	if !q.Enqueue(ctx, job("a")) {
		t.Error("expected enqueue to succeed")
	}
	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	jobs := q.Dequeue(ctx)
	got := <-jobs
	if got.ID != "a" {
		t.Errorf("expected job a, got %v", got.ID)
	}
	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, job("b")) {
		t.Error("expected enqueue to succeed")
	}
	if q.Enqueue(ctx, job("c")) {
		t.Error("expected enqueue to fail when full")
	}
}

func TestInMemoryQueue_Close(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, job("a")) {
		t.Error("expected enqueue to succeed")
	}
	if err := q.Close(); err != nil {
		t.Errorf("close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}
	if q.Enqueue(ctx, job("b")) {
		t.Error("expected enqueue to fail after close")
	}
	// double close is a no-op
	if err := q.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	// queued jobs drain, then the channel closes
	jobs := q.Dequeue(ctx)
	got, ok := <-jobs
	if !ok || got.ID != "a" {
		t.Errorf("expected queued job a, got %v (ok=%v)", got.ID, ok)
	}
	select {
	case _, ok := <-jobs:
		if ok {
			t.Error("expected dequeue channel to close")
		}
	case <-time.After(time.Second):
		t.Error("dequeue channel did not close")
	}
}

func TestInMemoryQueue_ConcurrentEnqueue(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(100))
	ctx := context.Background()

	done := make(chan bool, 10)
	for i := 0; i < 10; i++ {
		go func(i int) {
			done <- q.Enqueue(ctx, job(fmt.Sprintf("j%d", i)))
		}(i)
	}
	for i := 0; i < 10; i++ {
		if !<-done {
			t.Error("expected concurrent enqueue to succeed")
		}
	}
	if l := q.Len(ctx); l != 10 {
		t.Errorf("expected length 10, got %d", l)
	}
}
