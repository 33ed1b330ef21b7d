package servicegroup

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParticipantLocks(t *testing.T) {
	t.Run("one holder per participant", func(t *testing.T) {
		l := newParticipantLocks()
		var (
			wg      sync.WaitGroup
			mu      sync.Mutex
			inside  int
			maxSeen int
		)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				unlock := l.lock("iso6523-actorid-upis::9915:a")
				mu.Lock()
				inside++
				maxSeen = max(maxSeen, inside)
				mu.Unlock()

				mu.Lock()
				inside--
				mu.Unlock()
				unlock()
			}()
		}
		wg.Wait()
		assert.Equal(t, 1, maxSeen)
		assert.Zero(t, l.held())
	})

	t.Run("different participants do not block each other", func(t *testing.T) {
		l := newParticipantLocks()
		unlockA := l.lock("a")
		unlockB := l.lock("b")
		assert.Equal(t, 2, l.held())
		unlockA()
		unlockB()
		assert.Zero(t, l.held())
	})
}
