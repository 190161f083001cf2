package schedule

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtFiresInOrder(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var mu sync.Mutex
	var got []string
	record := func(name string) Func {
		return func(context.Context) {
			mu.Lock()
			got = append(got, name)
			mu.Unlock()
		}
	}

	now := time.Now()
	s.At(now.Add(60*time.Millisecond), "second", record("second"))
	s.At(now.Add(20*time.Millisecond), "first", record("first"))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"first", "second"}, got)
}

func TestCancelBeforeFire(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var fired atomic.Int32
	task := s.At(time.Now().Add(80*time.Millisecond), "doomed", func(context.Context) {
		fired.Add(1)
	})
	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second cancel reports nothing pending")

	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestEveryReArmsUntilCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var runs atomic.Int32
	task := s.Every(15*time.Millisecond, "tick", func(context.Context) {
		runs.Add(1)
	})

	require.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.True(t, task.Cancel())

	settled := runs.Load()
	time.Sleep(80 * time.Millisecond)
	// A straggler started right at cancel time may add one run, no more.
	assert.LessOrEqual(t, runs.Load(), settled+1)
}

func TestPanickingTaskDoesNotKillDispatcher(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	var ran atomic.Bool
	s.At(time.Now(), "bad", func(context.Context) { panic("boom") })
	s.At(time.Now().Add(20*time.Millisecond), "good", func(context.Context) { ran.Store(true) })

	require.Eventually(t, func() bool { return ran.Load() }, 2*time.Second, 5*time.Millisecond)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop")
	}
}
