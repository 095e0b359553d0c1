package eventbus

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewTyped[string]()
	ch := bus.Subscribe()
	bus.Publish("hello")
	v := <-ch
	if v != "hello" {
		t.Fatalf("expected hello got %v", v)
	}
	bus.Unsubscribe(ch)
}

func TestBusClose(t *testing.T) {
	bus := NewTyped[int]()
	ch1 := bus.Subscribe()
	ch2 := bus.Subscribe()
	bus.Close()
	if _, ok := <-ch1; ok {
		t.Fatalf("expected ch1 closed")
	}
	if _, ok := <-ch2; ok {
		t.Fatalf("expected ch2 closed")
	}
}

func TestBusUnsubscribeAfterClose(t *testing.T) {
	bus := NewTyped[int]()
	ch := bus.Subscribe()
	bus.Close()
	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("panic on Unsubscribe after Close: %v", r)
		}
	}()
	bus.Unsubscribe(ch)
}

func TestSubscribeFuncRelease(t *testing.T) {
	bus := NewTyped[int]()
	var seen atomic.Int32
	release := bus.SubscribeFunc(func(int) { seen.Add(1) })
	bus.Publish(1)
	deadline := time.Now().Add(time.Second)
	for seen.Load() != 1 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if seen.Load() != 1 {
		t.Fatalf("event not delivered")
	}
	release()
	release() // must be idempotent
	bus.Publish(2)
	time.Sleep(10 * time.Millisecond)
	if seen.Load() != 1 {
		t.Fatalf("event delivered after release")
	}
}
