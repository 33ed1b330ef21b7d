package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock() time.Time {
	return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
}

func TestFileBackend(t *testing.T) {
	ctx := context.Background()

	t.Run("replays puts and deletes after reopen", func(t *testing.T) {
		dir := t.TempDir()
		backend, err := NewFileBackend(dir, WithFileClock(fixedClock))
		require.NoError(t, err)
		p, err := backend.Persister("service-groups")
		require.NoError(t, err)

		require.NoError(t, p.Put(ctx, "a", []byte("one")))
		require.NoError(t, p.Put(ctx, "b", []byte("two")))
		require.NoError(t, p.Put(ctx, "a", []byte("three")))
		require.NoError(t, p.Delete(ctx, "b"))
		require.NoError(t, backend.Close())

		reopened, err := NewFileBackend(dir)
		require.NoError(t, err)
		p2, err := reopened.Persister("service-groups")
		require.NoError(t, err)
		records, err := p2.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, "a", records[0].ID)
		assert.Equal(t, []byte("three"), records[0].Data)
	})

	t.Run("missing log loads empty", func(t *testing.T) {
		backend, err := NewFileBackend(t.TempDir())
		require.NoError(t, err)
		p, err := backend.Persister("redirects")
		require.NoError(t, err)
		records, err := p.LoadAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("torn tail is truncated", func(t *testing.T) {
		dir := t.TempDir()
		backend, err := NewFileBackend(dir)
		require.NoError(t, err)
		p, err := backend.Persister("spf")
		require.NoError(t, err)
		require.NoError(t, p.Put(ctx, "x", []byte("payload")))
		require.NoError(t, backend.Close())

		path := filepath.Join(dir, "spf.log")
		intact, err := os.ReadFile(path)
		require.NoError(t, err)
		torn := append(append([]byte{}, intact...), intact[:len(intact)/2]...)
		require.NoError(t, os.WriteFile(path, torn, 0o640))

		backend2, err := NewFileBackend(dir)
		require.NoError(t, err)
		p2, err := backend2.Persister("spf")
		require.NoError(t, err)
		records, err := p2.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)

		after, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, intact, after)
	})

	t.Run("superseded entries are compacted", func(t *testing.T) {
		dir := t.TempDir()
		backend, err := NewFileBackend(dir, WithFileClock(fixedClock))
		require.NoError(t, err)
		p, err := backend.Persister("settings")
		require.NoError(t, err)
		for i := 0; i < compactMinEntries; i++ {
			require.NoError(t, p.Put(ctx, "singleton", []byte(fmt.Sprintf("v%d", i))))
		}
		require.NoError(t, backend.Close())
		path := filepath.Join(dir, "settings.log")
		before, err := os.Stat(path)
		require.NoError(t, err)

		backend2, err := NewFileBackend(dir, WithFileClock(fixedClock))
		require.NoError(t, err)
		p2, err := backend2.Persister("settings")
		require.NoError(t, err)
		records, err := p2.LoadAll(ctx)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, []byte(fmt.Sprintf("v%d", compactMinEntries-1)), records[0].Data)

		after, err := os.Stat(path)
		require.NoError(t, err)
		assert.Less(t, after.Size(), before.Size())

		require.NoError(t, p2.Put(ctx, "other", []byte("z")))
		records, err = p2.LoadAll(ctx)
		require.NoError(t, err)
		assert.Len(t, records, 2)
	})

	t.Run("namespace must be a safe file name", func(t *testing.T) {
		backend, err := NewFileBackend(t.TempDir())
		require.NoError(t, err)
		_, err = backend.Persister("../escape")
		assert.Error(t, err)
	})
}
