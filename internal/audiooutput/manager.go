// Package audiooutput implements the Audio Output Manager (spec.md §4.6),
// grounded on
// original_source/bots/bot_controller/audio_output_manager.py: it plays one
// MediaRequest at a time by chunking PCM bytes onto a raw-audio callback at
// a fixed cadence, and reports when a request's nominal duration has
// elapsed so the Supervisor can advance the next request in the queue.
package audiooutput

import (
	"context"
	"sync"
	"time"

	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
)

// chunkSize and chunkInterval mirror audio_output_manager.py's
// _play_audio_chunks: 44100*2 bytes per chunk, one chunk every 900ms.
const (
	chunkSize     = 44100 * 2
	chunkInterval = 900 * time.Millisecond
)

// Source resolves a MediaRequest into playable PCM bytes and its nominal
// playback duration. The text-to-speech and raw-blob cases live behind this
// interface (internal/tts) so this package never imports a codec directly.
type Source interface {
	PCM(ctx context.Context, req *store.MediaRequest) (pcm []byte, durationMs int64, err error)
}

// PlayRawAudioFunc pushes one chunk of PCM audio into the meeting's outbound
// audio track.
type PlayRawAudioFunc func(chunk []byte) error

// FinishedFunc is invoked once a request's playback window has elapsed.
type FinishedFunc func(req *store.MediaRequest)

// Manager serializes playback of MediaRequests: only one plays at a time,
// and starting a new one preempts whatever is currently playing.
type Manager struct {
	logger   logging.Logger
	source   Source
	playRaw  PlayRawAudioFunc
	finished FinishedFunc
	clock    func() time.Time

	mu        sync.Mutex
	current   *store.MediaRequest
	startedAt time.Time
	durMs     int64
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewManager builds a Manager. playRaw and finished must be non-nil.
func NewManager(logger logging.Logger, source Source, playRaw PlayRawAudioFunc, finished FinishedFunc) *Manager {
	return &Manager{
		logger:   logger,
		source:   source,
		playRaw:  playRaw,
		finished: finished,
		clock:    time.Now,
	}
}

// StartPlaying preempts any in-flight request and begins playing req in a
// background goroutine, chunking PCM audio at chunkInterval cadence.
func (m *Manager) StartPlaying(ctx context.Context, req *store.MediaRequest) error {
	m.stopLocked()

	pcm, durMs, err := m.source.PCM(ctx, req)
	if err != nil {
		return err
	}

	m.mu.Lock()
	playCtx, cancel := context.WithCancel(context.Background())
	m.current = req
	m.startedAt = m.clock()
	m.durMs = durMs
	m.cancel = cancel
	m.mu.Unlock()

	m.wg.Add(1)
	go m.playChunks(playCtx, pcm)
	return nil
}

func (m *Manager) playChunks(ctx context.Context, data []byte) {
	defer m.wg.Done()
	ticker := time.NewTicker(chunkInterval)
	defer ticker.Stop()

	for i := 0; i < len(data); i += chunkSize {
		select {
		case <-ctx.Done():
			return
		default:
		}
		end := i + chunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := m.playRaw(data[i:end]); err != nil {
			m.logger.Errorw("play raw audio chunk failed", "error", err)
			return
		}
		if end == len(data) {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// IsFinished reports whether the currently playing request's nominal
// duration has elapsed (audio_output_manager.py:
// currently_playing_audio_media_request_is_finished).
func (m *Manager) IsFinished() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil || m.startedAt.IsZero() {
		return false
	}
	elapsedMs := m.clock().Sub(m.startedAt).Milliseconds()
	return elapsedMs > m.durMs
}

// Clear stops any in-flight playback goroutine and clears the current
// request without invoking the finished callback.
func (m *Manager) Clear() {
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	m.mu.Lock()
	cancel := m.cancel
	m.current = nil
	m.startedAt = time.Time{}
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

// Monitor should be called once per Supervisor tick
// (audio_output_manager.py: monitor_currently_playing_audio_media_request).
// If the current request has finished, it is cleared and the finished
// callback is invoked with the request that just completed.
func (m *Manager) Monitor() {
	if !m.IsFinished() {
		return
	}
	m.mu.Lock()
	finishedReq := m.current
	m.mu.Unlock()
	if finishedReq == nil {
		return
	}
	m.Clear()
	m.finished(finishedReq)
}

// Current returns the request currently playing, or nil.
func (m *Manager) Current() *store.MediaRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}
