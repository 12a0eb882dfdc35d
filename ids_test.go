package gotauth_test

import (
	"sync"
	"testing"

	ga "github.com/gotmoney/gotauth"
)

func TestClockIDGeneratorIncreases(t *testing.T) {
	g := ga.NewClockIDGenerator()
	prev := g.NextID()
	for i := 0; i < 1000; i++ {
		id := g.NextID()
		if id <= prev {
			t.Fatalf("id %d not greater than previous %d", id, prev)
		}
		prev = id
	}
}

func TestClockIDGeneratorConcurrent(t *testing.T) {
	g := ga.NewClockIDGenerator()
	const workers, each = 8, 200

	var mu sync.Mutex
	seen := make(map[int64]bool, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				id := g.NextID()
				mu.Lock()
				if seen[id] {
					t.Errorf("duplicate id %d", id)
				}
				seen[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != workers*each {
		t.Errorf("expected %d ids, got %d", workers*each, len(seen))
	}
}
