package state

import (
	"fmt"
	"sync"
	"testing"
)

func TestSetOverwrites(t *testing.T) {
	t.Parallel()
	s := NewStore()
	s.Set("k", 1)
	s.Set("k", 2)
	v, ok := s.Get("k")
	if !ok || v.(int) != 2 {
		t.Fatalf("Get = (%v, %v), want (2, true)", v, ok)
	}
}

func TestGetMissing(t *testing.T) {
	t.Parallel()
	s := NewStore()
	if v, ok := s.Get("nope"); ok || v != nil {
		t.Fatalf("Get = (%v, %v), want (nil, false)", v, ok)
	}
}

func TestGetOrInitExactlyOnce(t *testing.T) {
	t.Parallel()
	s := NewStore()

	first := s.GetOrInit("k", "a")
	if first != "a" {
		t.Fatalf("first GetOrInit = %v, want a", first)
	}
	second := s.GetOrInit("k", "b")
	if second != "a" {
		t.Fatalf("second GetOrInit = %v, want a (existing value must win)", second)
	}
}

func TestGetOrInitConcurrentSingleWinner(t *testing.T) {
	t.Parallel()
	s := NewStore()

	const n = 64
	results := make([]any, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			// Every goroutine races a distinct default for the same key.
			results[i] = s.GetOrInit("race", fmt.Sprintf("default-%d", i))
		}()
	}
	wg.Wait()

	winner := results[0]
	for i, r := range results {
		if r != winner {
			t.Fatalf("goroutine %d observed %v, others observed %v", i, r, winner)
		}
	}
	if v, ok := s.Get("race"); !ok || v != winner {
		t.Fatalf("Get after race = (%v, %v), want (%v, true)", v, ok, winner)
	}
}
