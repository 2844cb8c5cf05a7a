package recorder

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/meetbot/core/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeekablePath(t *testing.T) {
	assert.Equal(t, "/tmp/file.seekable.webm", SeekablePath("/tmp/file.webm"))
	assert.Equal(t, "/tmp/file.seekable", SeekablePath("/tmp/file"))
}

func TestCleanup_MissingFileCreatesEmptyPlaceholder(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp4")
	logger, _ := logging.NewApplicationLogger()
	r := New(path, Dimensions{1280, 720}, false, logger)

	require.NoError(t, r.Cleanup())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestCleanup_AudioOnlySkipsRemux(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.mp3")
	require.NoError(t, os.WriteFile(path, []byte("id3 fake audio bytes"), 0o644))
	logger, _ := logging.NewApplicationLogger()
	r := New(path, Dimensions{0, 0}, true, logger)

	require.NoError(t, r.Cleanup())

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "id3 fake audio bytes", string(contents))
}

func TestCleanup_EmptyFileLocationIsNoOp(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	r := New("", Dimensions{1280, 720}, false, logger)
	assert.NoError(t, r.Cleanup())
}

func TestResumeRecording_NotPausedIsNoOp(t *testing.T) {
	// PauseRecording/ResumeRecording shell out to xterm/pactl, which aren't
	// available in this environment; only the not-paused guard of
	// ResumeRecording is exercised here.
	logger, _ := logging.NewApplicationLogger()
	r := New("/tmp/does-not-matter.mp4", Dimensions{1280, 720}, false, logger)
	assert.False(t, r.paused)
	assert.NoError(t, r.ResumeRecording())
	assert.False(t, r.paused)
}

func TestStopRecording_NoProcessIsNoOp(t *testing.T) {
	logger, _ := logging.NewApplicationLogger()
	r := New("/tmp/does-not-matter.mp4", Dimensions{1280, 720}, false, logger)
	assert.NoError(t, r.StopRecording())
}
