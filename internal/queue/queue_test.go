package queue

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryPublishConsume(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q := NewInMemory(4)
	want := ExportJob{ClassName: "CS101", Day: "2025-07-01"}
	if err := q.Publish(ctx, want); err != nil {
		t.Fatalf("publish: %v", err)
	}

	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}

	select {
	case got := <-jobs:
		if got != want {
			t.Fatalf("got %+v, want %+v", got, want)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for job")
	}
}

func TestInMemoryPublishRespectsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	if err := q.Publish(ctx, ExportJob{ClassName: "a"}); err != nil {
		t.Fatal(err)
	}
	cancel()
	// Queue is full and the context is done; publish must not block.
	if err := q.Publish(ctx, ExportJob{ClassName: "b"}); err == nil {
		t.Fatal("want context error on full queue")
	}
}

func TestConsumeClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	q := NewInMemory(1)
	jobs, err := q.Consume(ctx)
	if err != nil {
		t.Fatal(err)
	}
	cancel()
	select {
	case _, ok := <-jobs:
		if ok {
			t.Fatal("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after cancel")
	}
}
