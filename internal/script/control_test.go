package script

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestControlThreadExecute(t *testing.T) {
	f := newFixture(t)
	f.write(t, "ct.lua", registerSrc("ct"))

	ct := NewControlThread(f.ctrl, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go ct.Run(ctx)
	defer ct.Close()

	err := ct.Execute(ctx, func(c *Controller) error {
		_, err := c.Load(ctx, "ct.lua", true)
		return err
	})
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !f.ctrl.Registry().Has("ct") {
		t.Error("script should be loaded through the control thread")
	}

	err = ct.Execute(ctx, func(c *Controller) error {
		return c.Unload("missing", true)
	})
	if !errors.Is(err, ErrScriptNotLoaded) {
		t.Errorf("Execute() error = %v, want ErrScriptNotLoaded", err)
	}
}

func TestControlThreadDefaultQueueSize(t *testing.T) {
	ct := NewControlThread(nil, 0)
	if cap(ct.queue) != 64 {
		t.Errorf("queue size = %d, want 64", cap(ct.queue))
	}
}

func TestControlThreadSerializes(t *testing.T) {
	ct := NewControlThread(nil, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	go ct.Run(ctx)
	defer ct.Close()

	var wg sync.WaitGroup
	var active, maxActive, counter int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				err := ct.Execute(ctx, func(*Controller) error {
					n := atomic.AddInt32(&active, 1)
					if n > atomic.LoadInt32(&maxActive) {
						atomic.StoreInt32(&maxActive, n)
					}
					atomic.AddInt32(&counter, 1)
					atomic.AddInt32(&active, -1)
					return nil
				})
				if err != nil {
					t.Errorf("Execute() error = %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
	if maxActive != 1 {
		t.Errorf("max concurrent jobs = %d, want 1", maxActive)
	}
}

func TestControlThreadSubmit(t *testing.T) {
	ct := NewControlThread(nil, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go ct.Run(ctx)
	defer ct.Close()

	done := make(chan struct{})
	if err := ct.Submit(func(*Controller) error {
		close(done)
		return nil
	}); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatal("submitted job did not run")
	}
}

func TestControlThreadClose(t *testing.T) {
	ct := NewControlThread(nil, 10)
	go ct.Run(context.Background())

	ct.Close()
	ct.Close()

	if !ct.IsClosed() {
		t.Error("control thread should be closed")
	}
	if err := ct.Execute(context.Background(), func(*Controller) error { return nil }); err != ErrControlClosed {
		t.Errorf("Execute() error = %v, want ErrControlClosed", err)
	}
	if err := ct.Submit(func(*Controller) error { return nil }); err != ErrControlClosed {
		t.Errorf("Submit() error = %v, want ErrControlClosed", err)
	}
}

func TestControlThreadPanicRecovery(t *testing.T) {
	ct := NewControlThread(nil, 10)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	go ct.Run(ctx)
	defer ct.Close()

	if err := ct.Execute(ctx, func(*Controller) error { panic("test panic") }); err == nil {
		t.Fatal("expected error from panic")
	}

	ran := false
	if err := ct.Execute(ctx, func(*Controller) error {
		ran = true
		return nil
	}); err != nil {
		t.Fatalf("Execute() after panic error = %v", err)
	}
	if !ran {
		t.Error("job after panic did not run")
	}
}

func TestControlThreadQueueFull(t *testing.T) {
	ct := NewControlThread(nil, 1)
	defer ct.Close()

	// Not running: the first job fills the queue.
	if err := ct.Submit(func(*Controller) error { return nil }); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if err := ct.Submit(func(*Controller) error { return nil }); err != ErrControlQueueFull {
		t.Errorf("Submit() error = %v, want ErrControlQueueFull", err)
	}
}
