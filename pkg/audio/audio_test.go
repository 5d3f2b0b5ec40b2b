package audio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNullOutputRejectsWriteBeforeOpen(t *testing.T) {
	var n NullOutput
	err := n.Write([]int16{1, 2, 3})
	assert.ErrorIs(t, err, ErrNotOpen)
	assert.False(t, n.IsPlaying())
}

func TestNullOutputAcceptsWriteAfterOpen(t *testing.T) {
	var n NullOutput
	require.NoError(t, n.Open(44100, 1, 2048))
	assert.True(t, n.IsPlaying())
	assert.NoError(t, n.Write([]int16{1, 2, 3}))
	require.NoError(t, n.Close())
	assert.False(t, n.IsPlaying())
}

func TestWAVOutputWritesPlayableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	out := NewWAVOutput(path)
	require.NoError(t, out.Open(44100, 1, 2048))
	assert.True(t, out.IsPlaying())

	samples := make([]int16, 256)
	for i := range samples {
		samples[i] = int16(i)
	}
	require.NoError(t, out.Write(samples))
	require.NoError(t, out.Close())
	assert.False(t, out.IsPlaying())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(44)) // at least the RIFF header
}
