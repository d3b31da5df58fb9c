package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMailbox_FIFO(t *testing.T) {
	m := newMailbox[int]()
	for i := range 5 {
		m.Put(i)
	}
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}

	for want := range 5 {
		got, err := m.Get(context.Background())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got != want {
			t.Errorf("Get() = %d, want %d", got, want)
		}
	}
	if m.Len() != 0 {
		t.Errorf("Len() = %d after draining, want 0", m.Len())
	}
}

func TestMailbox_GetWaitsForPut(t *testing.T) {
	m := newMailbox[string]()
	got := make(chan string, 1)

	go func() {
		v, err := m.Get(context.Background())
		if err == nil {
			got <- v
		}
	}()

	select {
	case v := <-got:
		t.Fatalf("Get() returned %q before Put", v)
	case <-time.After(20 * time.Millisecond):
	}

	m.Put("hello")
	select {
	case v := <-got:
		if v != "hello" {
			t.Errorf("Get() = %q, want hello", v)
		}
	case <-time.After(time.Second):
		t.Fatal("Get() did not return after Put")
	}
}

func TestMailbox_GetHonoursContext(t *testing.T) {
	m := newMailbox[int]()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := m.Get(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Get() error = %v, want DeadlineExceeded", err)
	}
}

func TestMailbox_PutNeverBlocks(t *testing.T) {
	m := newMailbox[int]()
	done := make(chan struct{})
	go func() {
		for i := range 10000 {
			m.Put(i)
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Put blocked with no consumer")
	}
	if m.Len() != 10000 {
		t.Errorf("Len() = %d, want 10000", m.Len())
	}
}
