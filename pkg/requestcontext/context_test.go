package requestcontext

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAccessors(t *testing.T) {
	t.Run("empty context yields zero values", func(t *testing.T) {
		ctx := context.Background()
		assert.Empty(t, RequestID(ctx))
		assert.Empty(t, ClientIP(ctx))
		assert.Empty(t, UserAgent(ctx))
		assert.Zero(t, ClientDevice(ctx))
		assert.WithinDuration(t, time.Now(), Now(ctx), time.Second)
	})

	t.Run("injected values are returned", func(t *testing.T) {
		fixed := time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)
		ctx := WithTime(context.Background(), fixed)
		ctx = WithRequestID(ctx, "req-1")
		ctx = WithClientMetadata(ctx, "10.0.0.1", "curl/8")
		ctx = WithClientDevice(ctx, Device{Browser: "curl 8", Bot: true})

		assert.Equal(t, fixed, Now(ctx))
		assert.Equal(t, "req-1", RequestID(ctx))
		assert.Equal(t, "10.0.0.1", ClientIP(ctx))
		assert.Equal(t, "curl/8", UserAgent(ctx))
		assert.Equal(t, Device{Browser: "curl 8", Bot: true}, ClientDevice(ctx))
	})
}
