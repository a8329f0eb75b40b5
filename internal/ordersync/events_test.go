package ordersync

import (
	"sync"
	"testing"
	"time"
)

func TestBusDispatchOrder(t *testing.T) {
	var bus Bus
	var got []string
	bus.Subscribe(func(ev StatusChanged) { got = append(got, "a:"+ev.NewStatus) })
	bus.Subscribe(func(ev StatusChanged) { got = append(got, "b:"+ev.NewStatus) })

	bus.Dispatch(StatusChanged{OrderID: "1", OldStatus: "PENDING", NewStatus: "CONFIRMED"})

	if len(got) != 2 || got[0] != "a:CONFIRMED" || got[1] != "b:CONFIRMED" {
		t.Fatalf("unexpected dispatch order: %v", got)
	}
}

func TestBusCancel(t *testing.T) {
	bus := NewBus()
	calls := 0
	cancel := bus.Subscribe(func(StatusChanged) { calls++ })
	if bus.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", bus.Len())
	}
	cancel()
	cancel()
	bus.Dispatch(StatusChanged{OrderID: "1"})
	if calls != 0 {
		t.Fatalf("cancelled handler called %d times", calls)
	}
	if bus.Len() != 0 {
		t.Fatalf("Len() = %d after cancel, want 0", bus.Len())
	}
}

func TestBusNil(t *testing.T) {
	var bus *Bus
	bus.Dispatch(StatusChanged{})
	bus.Subscribe(func(StatusChanged) {})()
	if bus.Len() != 0 {
		t.Fatal("nil bus should report no subscribers")
	}
}

func TestBusHandlerMaySubscribe(t *testing.T) {
	bus := NewBus()
	bus.Subscribe(func(StatusChanged) {
		bus.Subscribe(func(StatusChanged) {})
	})
	bus.Dispatch(StatusChanged{Timestamp: time.Now()})
	if bus.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", bus.Len())
	}
}

func TestBusConcurrentDispatch(t *testing.T) {
	bus := NewBus()
	var mu sync.Mutex
	count := 0
	bus.Subscribe(func(StatusChanged) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Dispatch(StatusChanged{OrderID: "1"})
		}()
	}
	wg.Wait()
	if count != 20 {
		t.Fatalf("count = %d, want 20", count)
	}
}
