package saltmap

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestRunParallelCallsEveryIndex(t *testing.T) {
	const n = 50
	var seen [n]int32
	err := runParallel(n, 4, func(i int) error {
		atomic.AddInt32(&seen[i], 1)
		return nil
	})
	if err != nil {
		t.Fatalf("runParallel: %v", err)
	}
	for i, v := range seen {
		if v != 1 {
			t.Fatalf("index %d called %d times, want 1", i, v)
		}
	}
}

func TestRunParallelSequentialFallback(t *testing.T) {
	const n = minChunksForParallel - 1
	var count int32
	err := runParallel(n, 4, func(i int) error {
		atomic.AddInt32(&count, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("runParallel: %v", err)
	}
	if int(count) != n {
		t.Fatalf("count = %d, want %d", count, n)
	}
}

func TestRunParallelPropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	err := runParallel(10, 4, func(i int) error {
		if i == 5 {
			return wantErr
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestRunParallelRecoversPanic(t *testing.T) {
	err := runParallel(10, 4, func(i int) error {
		if i == 3 {
			panic("unexpected")
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected a panic to surface as an error")
	}
}

func TestRunParallelZero(t *testing.T) {
	if err := runParallel(0, 4, func(i int) error {
		t.Fatal("work should never be called for n=0")
		return nil
	}); err != nil {
		t.Fatalf("runParallel: %v", err)
	}
}
