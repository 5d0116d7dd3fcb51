package tasks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	dto "github.com/prometheus/client_model/go"

	"github.com/sagarguwalani8079/covermeup-wa-automation/internal/metrics"
)

func TestQueueRunsAllJobs(t *testing.T) {
	q := NewQueue(16, time.Second, nil, nil)
	q.Start(4)

	var n int32
	for i := 0; i < 10; i++ {
		if !q.Submit(Job{Kind: "test", Run: func(context.Context) { atomic.AddInt32(&n, 1) }}) {
			t.Fatal("submit rejected")
		}
	}
	if err := q.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if got := atomic.LoadInt32(&n); got != 10 {
		t.Fatalf("expected 10 jobs run, got %d", got)
	}
}

func TestQueueDropsWhenFull(t *testing.T) {
	m := metrics.NewRegistry()
	q := NewQueue(1, time.Second, nil, m)
	block := make(chan struct{})
	var started sync.WaitGroup
	started.Add(1)
	q.Start(1)

	q.Submit(Job{Kind: "slow", Run: func(context.Context) { started.Done(); <-block }})
	started.Wait()
	if !q.Submit(Job{Kind: "buffered", Run: func(context.Context) {}}) {
		t.Fatal("buffer slot should be free")
	}
	if q.Submit(Job{Kind: "overflow", Run: func(context.Context) {}}) {
		t.Fatal("expected overflow to be dropped")
	}
	close(block)
	_ = q.Close(context.Background())

	var pb dto.Metric
	if err := m.QueueDropped.Write(&pb); err != nil {
		t.Fatal(err)
	}
	if got := pb.GetCounter().GetValue(); got != 1 {
		t.Fatalf("expected 1 dropped, got %v", got)
	}
	if q.Submit(Job{Kind: "late", Run: func(context.Context) {}}) {
		t.Fatal("submit after close should fail")
	}
}

func TestQueueJobTimeoutAndPanic(t *testing.T) {
	q := NewQueue(4, 20*time.Millisecond, nil, nil)
	q.Start(1)
	done := make(chan error, 1)
	q.Submit(Job{Kind: "panic", Run: func(context.Context) { panic("boom") }})
	q.Submit(Job{Kind: "wait", Run: func(ctx context.Context) {
		<-ctx.Done()
		done <- ctx.Err()
	}})
	select {
	case err := <-done:
		if err != context.DeadlineExceeded {
			t.Fatalf("expected deadline, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("job context never expired")
	}
	_ = q.Close(context.Background())
}
