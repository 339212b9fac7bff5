package clock

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type frozen struct {
	at time.Time
}

func (f frozen) Now() time.Time {
	return f.at
}

func TestSystem_Now_IsUTC(t *testing.T) {
	now := System{}.Now()
	assert.Equal(t, time.UTC, now.Location())
	assert.WithinDuration(t, time.Now(), now, time.Second)
}

func TestMonotonic_Last_ZeroBeforeFirstCall(t *testing.T) {
	c := NewMonotonic(System{})
	assert.True(t, c.Last().IsZero())
}

func TestMonotonic_FrozenSourceStillAdvances(t *testing.T) {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewMonotonic(frozen{at: at})

	first := c.Now()
	second := c.Now()
	third := c.Now()

	assert.True(t, at.Equal(first))
	assert.True(t, second.After(first))
	assert.True(t, third.After(second))
	assert.True(t, third.Equal(c.Last()))
}

func TestMonotonic_ThreadSafe(t *testing.T) {
	c := NewMonotonic(frozen{at: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)})
	const goroutines = 50
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	readings := make(chan int64, goroutines*callsPerGoroutine)

	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				readings <- c.Now().UnixNano()
			}
		}()
	}

	wg.Wait()
	close(readings)

	seen := make(map[int64]bool)
	for r := range readings {
		assert.False(t, seen[r], "reading %d returned twice", r)
		seen[r] = true
	}
	assert.Len(t, seen, goroutines*callsPerGoroutine)
}
