package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/garyjia/claims-workflow/internal/domain/event"
)

// mockLogger implements Logger for testing
type mockLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, msg)
}

func (m *mockLogger) ErrorCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

func (m *mockLogger) HasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, info := range m.infos {
		if info == msg {
			return true
		}
	}
	return false
}

func stageChanged(claimID int64) *event.Event {
	return event.NewEvent(event.TypeStageChanged, claimID, claimID, map[string]interface{}{
		event.KeyNewStage: "UnderReview",
	})
}

func TestSubscribe(t *testing.T) {
	logger := &mockLogger{}
	d := NewDispatcher(WithLogger(logger))

	d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error { return nil })
	d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error { return nil })
	d.SubscribeNamed(event.TypeClaimFinalized, "finance", func(ctx context.Context, evt *event.Event) error { return nil })

	handlers := d.ListHandlers(event.TypeStageChanged)
	if len(handlers) != 2 {
		t.Fatalf("expected 2 handlers, got %d", len(handlers))
	}
	if handlers[0].Name != "handler-0" || handlers[1].Name != "handler-1" {
		t.Errorf("unexpected generated names: %s, %s", handlers[0].Name, handlers[1].Name)
	}
	if handlers[0].Handler != nil {
		t.Error("ListHandlers should not expose handler functions")
	}

	if got := d.ListHandlers(event.TypeClaimFinalized); len(got) != 1 || got[0].Name != "finance" {
		t.Errorf("unexpected finalized handlers: %+v", got)
	}
	if !logger.HasInfo("Handler registered") {
		t.Error("expected registration to be logged")
	}
}

func TestUnsubscribe(t *testing.T) {
	d := NewDispatcher()
	var called atomic.Int32

	d.SubscribeNamed(event.TypeStageChanged, "keep", func(ctx context.Context, evt *event.Event) error {
		called.Add(1)
		return nil
	})
	d.SubscribeNamed(event.TypeStageChanged, "drop", func(ctx context.Context, evt *event.Event) error {
		called.Add(10)
		return nil
	})

	d.Unsubscribe(event.TypeStageChanged, "drop")

	if err := d.Dispatch(context.Background(), stageChanged(1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called.Load() != 1 {
		t.Errorf("expected only remaining handler to run, got %d", called.Load())
	}
}

func TestDispatch(t *testing.T) {
	t.Run("runs handlers in order", func(t *testing.T) {
		d := NewDispatcher()
		var order []string

		d.SubscribeNamed(event.TypeStageChanged, "first", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "first")
			return nil
		})
		d.SubscribeNamed(event.TypeStageChanged, "second", func(ctx context.Context, evt *event.Event) error {
			order = append(order, "second")
			return nil
		})

		if err := d.Dispatch(context.Background(), stageChanged(1)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(order) != 2 || order[0] != "first" || order[1] != "second" {
			t.Errorf("unexpected order: %v", order)
		}
	})

	t.Run("stops at first error", func(t *testing.T) {
		d := NewDispatcher(WithLogger(&mockLogger{}))
		errBoom := errors.New("boom")
		var secondCalled bool

		d.SubscribeNamed(event.TypeStageChanged, "failing", func(ctx context.Context, evt *event.Event) error {
			return errBoom
		})
		d.SubscribeNamed(event.TypeStageChanged, "second", func(ctx context.Context, evt *event.Event) error {
			secondCalled = true
			return nil
		})

		err := d.Dispatch(context.Background(), stageChanged(1))
		if !errors.Is(err, errBoom) {
			t.Errorf("expected wrapped handler error, got %v", err)
		}
		if secondCalled {
			t.Error("second handler should not run after an error")
		}
	})

	t.Run("recovers from panic", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			panic("bad handler")
		})

		if err := d.Dispatch(context.Background(), stageChanged(1)); err == nil {
			t.Error("expected error from panicking handler")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected panic to be logged")
		}
	})

	t.Run("no handlers", func(t *testing.T) {
		d := NewDispatcher()
		if err := d.Dispatch(context.Background(), stageChanged(1)); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("closed dispatcher", func(t *testing.T) {
		d := NewDispatcher()
		_ = d.Close()
		if err := d.Dispatch(context.Background(), stageChanged(1)); !errors.Is(err, ErrClosed) {
			t.Errorf("expected ErrClosed, got %v", err)
		}
	})
}

func TestDispatchAsync(t *testing.T) {
	t.Run("runs every handler", func(t *testing.T) {
		d := NewDispatcher()
		var called atomic.Int32

		for i := 0; i < 3; i++ {
			d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
				called.Add(1)
				return nil
			})
		}

		d.DispatchAsync(context.Background(), stageChanged(1))

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if called.Load() != 3 {
			t.Errorf("expected 3 calls, got %d", called.Load())
		}
	})

	t.Run("handlers survive caller cancellation", func(t *testing.T) {
		d := NewDispatcher()
		var ctxErr atomic.Value
		release := make(chan struct{})

		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			<-release
			ctxErr.Store(fmt.Sprint(ctx.Err()))
			return nil
		})

		ctx, cancel := context.WithCancel(context.Background())
		d.DispatchAsync(ctx, stageChanged(1))
		cancel()
		close(release)

		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if got := ctxErr.Load(); got != "<nil>" {
			t.Errorf("handler context should not be cancelled, got %v", got)
		}
	})

	t.Run("applies handler timeout", func(t *testing.T) {
		d := NewDispatcher(WithHandlerTimeout(20 * time.Millisecond))
		var timedOut atomic.Bool

		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			select {
			case <-ctx.Done():
				timedOut.Store(true)
				return ctx.Err()
			case <-time.After(2 * time.Second):
				return nil
			}
		})

		d.DispatchAsync(context.Background(), stageChanged(1))
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if !timedOut.Load() {
			t.Error("expected handler deadline to fire")
		}
	})

	t.Run("errors and panics are logged not propagated", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))

		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			return errors.New("lark unavailable")
		})
		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			panic("async panic")
		})

		d.DispatchAsync(context.Background(), stageChanged(1))
		if err := d.Close(); err != nil {
			t.Fatalf("close failed: %v", err)
		}
		if logger.ErrorCount() < 2 {
			t.Errorf("expected both failures logged, got %d", logger.ErrorCount())
		}
	})

	t.Run("closed dispatcher drops event", func(t *testing.T) {
		logger := &mockLogger{}
		d := NewDispatcher(WithLogger(logger))
		var called atomic.Int32
		d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
			called.Add(1)
			return nil
		})

		_ = d.Close()
		d.DispatchAsync(context.Background(), stageChanged(1))

		if called.Load() != 0 {
			t.Error("handler should not run after close")
		}
		if logger.ErrorCount() == 0 {
			t.Error("expected dropped event to be logged")
		}
	})
}

func TestClose_Twice(t *testing.T) {
	d := NewDispatcher()
	if err := d.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := d.Close(); err == nil {
		t.Error("expected error on second close")
	}
}

func TestConcurrentSubscribeAndDispatch(t *testing.T) {
	d := NewDispatcher()
	var wg sync.WaitGroup
	var called atomic.Int32

	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			d.Subscribe(event.TypeStageChanged, func(ctx context.Context, evt *event.Event) error {
				called.Add(1)
				return nil
			})
		}()
		go func(id int64) {
			defer wg.Done()
			d.DispatchAsync(context.Background(), stageChanged(id))
		}(int64(i))
	}

	wg.Wait()
	if err := d.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if got := len(d.ListHandlers(event.TypeStageChanged)); got != 20 {
		t.Errorf("expected 20 handlers, got %d", got)
	}
}
