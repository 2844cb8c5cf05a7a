package audiooutput

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	pcm   []byte
	durMs int64
}

func (f *fakeSource) PCM(ctx context.Context, req *store.MediaRequest) ([]byte, int64, error) {
	return f.pcm, f.durMs, nil
}

func newTestManager(t *testing.T, src Source, onPlay func([]byte), onFinished func(*store.MediaRequest)) *Manager {
	t.Helper()
	logger, err := logging.NewApplicationLogger()
	require.NoError(t, err)
	playFn := func(chunk []byte) error {
		if onPlay != nil {
			onPlay(chunk)
		}
		return nil
	}
	return NewManager(logger, src, playFn, onFinished)
}

func TestStartPlaying_ChunksAllData(t *testing.T) {
	var mu sync.Mutex
	var totalBytes int
	// Three chunks play at 0, 900 and 1800ms; the nominal duration outlasts
	// them so Monitor doesn't cut playback short.
	src := &fakeSource{pcm: make([]byte, chunkSize*2+10), durMs: 2500}

	done := make(chan struct{})
	m := newTestManager(t, src, func(chunk []byte) {
		mu.Lock()
		totalBytes += len(chunk)
		mu.Unlock()
	}, func(req *store.MediaRequest) {
		close(done)
	})
	m.clock = time.Now

	req := &store.MediaRequest{}
	require.NoError(t, m.StartPlaying(context.Background(), req))

	// The finished callback only fires from Monitor, which the Supervisor
	// calls once per tick; drive it the same way here.
	deadline := time.After(5 * time.Second)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
waitLoop:
	for {
		select {
		case <-done:
			break waitLoop
		case <-deadline:
			t.Fatal("timed out waiting for playback to finish")
		case <-ticker.C:
			m.Monitor()
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, len(src.pcm), totalBytes)
}

func TestIsFinished_BeforeStartIsFalse(t *testing.T) {
	m := newTestManager(t, &fakeSource{}, nil, nil)
	assert.False(t, m.IsFinished())
}

func TestIsFinished_AfterDurationElapsed(t *testing.T) {
	m := newTestManager(t, &fakeSource{}, nil, nil)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }

	m.mu.Lock()
	m.current = &store.MediaRequest{}
	m.startedAt = now
	m.durMs = 100
	m.mu.Unlock()

	assert.False(t, m.IsFinished())

	now = now.Add(200 * time.Millisecond)
	assert.True(t, m.IsFinished())
}

func TestClear_StopsPlaybackWithoutFinishedCallback(t *testing.T) {
	called := false
	src := &fakeSource{pcm: make([]byte, chunkSize*5), durMs: 100000}
	m := newTestManager(t, src, nil, func(req *store.MediaRequest) {
		called = true
	})

	require.NoError(t, m.StartPlaying(context.Background(), &store.MediaRequest{}))
	m.Clear()

	assert.Nil(t, m.Current())
	assert.False(t, called, "Clear must not invoke the finished callback")
}
