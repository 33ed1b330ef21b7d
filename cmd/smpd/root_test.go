package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "smpd.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend:\n  kind: file\n  file:\n    dir: /var/lib/smp\naudit:\n  sink: none\n"), 0o600))

		var out bytes.Buffer
		cmd := newRootCmd()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--config", path, "check-config"})
		require.NoError(t, cmd.Execute())
		assert.Contains(t, out.String(), "backend=file")
		assert.Contains(t, out.String(), "audit=none")
	})

	t.Run("invalid backend kind", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "smpd.yaml")
		require.NoError(t, os.WriteFile(path, []byte("backend:\n  kind: tape\n"), 0o600))

		cmd := newRootCmd()
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", path, "check-config"})
		assert.Error(t, cmd.Execute())
	})

	t.Run("missing explicit file", func(t *testing.T) {
		cmd := newRootCmd()
		cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "check-config"})
		assert.Error(t, cmd.Execute())
	})
}
