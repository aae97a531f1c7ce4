package headless_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/valerio/go-advance/advance/backend"
	"github.com/valerio/go-advance/advance/backend/headless"
	"github.com/valerio/go-advance/advance/keypad"
	"github.com/valerio/go-advance/advance/video"
)

func TestHeadlessBackend(t *testing.T) {
	t.Run("quits after max frames", func(t *testing.T) {
		h := headless.New(3, headless.SnapshotConfig{})

		quits := 0
		config := backend.Config{
			Title:     "Test",
			Callbacks: backend.Callbacks{OnQuit: func() { quits++ }},
		}
		require.NoError(t, h.Init(config))

		frame := video.NewFrameBuffer()
		for i := 0; i < 3; i++ {
			require.NoError(t, h.Present(frame))
			if i < 2 {
				assert.Zero(t, quits, "should not quit before reaching max frames")
			}
		}
		assert.Equal(t, 1, quits)
		assert.Equal(t, 3, h.FrameCount())
		assert.Equal(t, keypad.Released, h.KeyState())

		assert.NoError(t, h.Cleanup())
	})

	t.Run("snapshots", func(t *testing.T) {
		dir := t.TempDir()
		snapshots, err := headless.CreateSnapshotConfig(2, dir, "/roms/demo.gba")
		require.NoError(t, err)
		assert.Equal(t, "demo", snapshots.ROMName)

		h := headless.New(3, snapshots)
		require.NoError(t, h.Init(backend.Config{}))

		frame := video.NewFrameBuffer()
		for i := 0; i < 3; i++ {
			require.NoError(t, h.Present(frame))
		}

		// frame 2 by interval, frame 3 as the final frame
		require.Len(t, h.Snapshots(), 2)
		for _, path := range h.Snapshots() {
			assert.Equal(t, dir, filepath.Dir(path))
			_, err := os.Stat(path)
			assert.NoError(t, err)
		}
	})

	t.Run("disabled snapshots", func(t *testing.T) {
		config, err := headless.CreateSnapshotConfig(0, "", "demo.gba")
		require.NoError(t, err)
		assert.False(t, config.Enabled)
	})
}
