package mocks

import (
	"sync"

	"github.com/mcoot/lobbyengine/internal/dependencies/random"
)

// MockRandom returns queued values. When a queue is exhausted it falls back to
// the lower bound for IntRange and a counter-based string for String, so ids stay unique.
type MockRandom struct {
	mu      sync.Mutex
	ints    []int
	strings []string
	counter int
}

// Ensure MockRandom implements Random
var _ random.Random = (*MockRandom)(nil)

// NewMockRandom creates a new MockRandom
func NewMockRandom() *MockRandom {
	return &MockRandom{}
}

func (r *MockRandom) IntRange(lo, hi int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ints) == 0 {
		return lo
	}
	v := r.ints[0]
	r.ints = r.ints[1:]
	return v
}

func (r *MockRandom) String(length int, alphabet string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.strings) == 0 {
		r.counter++
		return fallbackString(r.counter, length)
	}
	v := r.strings[0]
	r.strings = r.strings[1:]
	return v
}

// QueueInts adds values to the IntRange result queue
func (r *MockRandom) QueueInts(values ...int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ints = append(r.ints, values...)
}

// QueueStrings adds values to the String result queue
func (r *MockRandom) QueueStrings(values ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strings = append(r.strings, values...)
}

func fallbackString(n, length int) string {
	const digits = "0123456789"
	out := make([]byte, length)
	for i := length - 1; i >= 0; i-- {
		out[i] = digits[n%10]
		n /= 10
	}
	return string(out)
}
