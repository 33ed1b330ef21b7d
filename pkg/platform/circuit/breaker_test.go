package circuit

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// step reports one publish outcome to the breaker, 'f' for a failure and 's'
// for a success, and states what must hold afterwards.
type step struct {
	event    byte
	wantOpen bool
	opened   bool
	closed   bool
}

func TestBreakerSequences(t *testing.T) {
	tests := []struct {
		name      string
		failures  int
		successes int
		steps     []step
	}{
		{
			name:     "opens on the threshold failure only",
			failures: 3,
			steps: []step{
				{event: 'f'},
				{event: 'f'},
				{event: 'f', wantOpen: true, opened: true},
				{event: 'f', wantOpen: true},
			},
		},
		{
			name:      "closes after enough successes",
			failures:  1,
			successes: 2,
			steps: []step{
				{event: 'f', wantOpen: true, opened: true},
				{event: 's', wantOpen: true},
				{event: 's', closed: true},
			},
		},
		{
			name:     "success clears the failure streak",
			failures: 3,
			steps: []step{
				{event: 'f'},
				{event: 'f'},
				{event: 's'},
				{event: 'f'},
				{event: 'f'},
				{event: 'f', wantOpen: true, opened: true},
			},
		},
		{
			name:      "failure while open clears the success streak",
			failures:  1,
			successes: 3,
			steps: []step{
				{event: 'f', wantOpen: true, opened: true},
				{event: 's', wantOpen: true},
				{event: 's', wantOpen: true},
				{event: 'f', wantOpen: true},
				{event: 's', wantOpen: true},
				{event: 's', wantOpen: true},
				{event: 's', closed: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("audit-kafka", WithFailureThreshold(tt.failures), WithSuccessThreshold(tt.successes))
			for i, st := range tt.steps {
				var change StateChange
				if st.event == 'f' {
					fallback, c := b.RecordFailure()
					assert.Equal(t, st.wantOpen, fallback, "step %d fallback", i)
					change = c
				} else {
					primary, c := b.RecordSuccess()
					assert.Equal(t, !st.wantOpen, primary, "step %d primary", i)
					change = c
				}
				assert.Equal(t, StateChange{Opened: st.opened, Closed: st.closed}, change, "step %d change", i)
				assert.Equal(t, st.wantOpen, b.IsOpen(), "step %d open", i)
			}
		})
	}
}

func TestBreakerDefaultsAndReset(t *testing.T) {
	b := New("audit-kafka", WithFailureThreshold(0), WithSuccessThreshold(-1))
	require.Equal(t, "audit-kafka", b.Name())
	require.Equal(t, StateClosed, b.State())

	for range 4 {
		b.RecordFailure()
	}
	assert.False(t, b.IsOpen(), "non-positive thresholds keep the default of five")
	b.RecordFailure()
	require.Equal(t, StateOpen, b.State())

	b.Reset()
	assert.Equal(t, StateClosed, b.State())
	_, change := b.RecordFailure()
	assert.False(t, change.Opened, "reset clears the failure streak")
}

func TestBreakerOpensOnceUnderConcurrentFailures(t *testing.T) {
	b := New("audit-kafka", WithFailureThreshold(10))
	var (
		wg     sync.WaitGroup
		mu     sync.Mutex
		opened int
	)
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, change := b.RecordFailure(); change.Opened {
				mu.Lock()
				opened++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, opened)
	assert.True(t, b.IsOpen())
}
