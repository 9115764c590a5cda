package requester

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestFrom_WithoutRequester(t *testing.T) {
	_, err := From(context.Background())
	if !errors.Is(err, ErrNoRequester) {
		t.Fatalf("From() error = %v, want %v", err, ErrNoRequester)
	}
}

func TestFrom_EmptyRequester(t *testing.T) {
	_, err := From(With(context.Background(), ""))
	if !errors.Is(err, ErrNoRequester) {
		t.Fatalf("From() error = %v, want %v", err, ErrNoRequester)
	}
}

func TestWithAndFrom(t *testing.T) {
	ctx := With(context.Background(), "user-1")

	got, err := From(ctx)
	if err != nil {
		t.Fatalf("From() error = %v", err)
	}
	if got != "user-1" {
		t.Errorf("From() = %q, want %q", got, "user-1")
	}
}

func TestMustFrom_Panics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("MustFrom() did not panic")
		}
		if err, ok := r.(error); !ok || !errors.Is(err, ErrNoRequester) {
			t.Errorf("MustFrom() panic = %v, want %v", r, ErrNoRequester)
		}
	}()

	MustFrom(context.Background())
}

func TestRequestIsolation(t *testing.T) {
	parent := context.Background()

	var wg sync.WaitGroup
	for _, id := range []string{"alice", "bob", "carol", "dave"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			ctx := With(parent, id)
			if got := MustFrom(ctx); got != id {
				t.Errorf("MustFrom() = %q, want %q", got, id)
			}
		}(id)
	}
	wg.Wait()

	if _, err := From(parent); !errors.Is(err, ErrNoRequester) {
		t.Errorf("parent context leaked a requester: %v", err)
	}
}
