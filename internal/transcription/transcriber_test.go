package transcription

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTranscriber struct {
	failuresBeforeSuccess int
	attempts              int
	result                Result
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (Result, error) {
	f.attempts++
	if f.attempts <= f.failuresBeforeSuccess {
		return Result{}, errors.New("transient provider error")
	}
	return f.result, nil
}

func TestRun_SucceedsAfterTransientFailures(t *testing.T) {
	logger, err := logging.NewApplicationLogger()
	require.NoError(t, err)

	ft := &fakeTranscriber{failuresBeforeSuccess: 2, result: Result{
		Transcript: "hello world",
		Words:      []Word{{Text: "hello", StartMs: 0, EndMs: 400}},
	}}
	w := NewWorker(ft, logger, 5*time.Second)

	u := &store.Utterance{ID: 1, AudioBlob: []byte{1, 2, 3}, SampleRate: 16000}
	transcription, failure, err := w.Run(context.Background(), u)

	require.NoError(t, err)
	assert.Nil(t, failure)
	assert.NotEmpty(t, transcription)
	assert.Equal(t, 3, ft.attempts)
}

func TestRun_GivesUpAfterMaxElapsed(t *testing.T) {
	logger, err := logging.NewApplicationLogger()
	require.NoError(t, err)

	ft := &fakeTranscriber{failuresBeforeSuccess: 1000}
	w := NewWorker(ft, logger, 300*time.Millisecond)

	u := &store.Utterance{ID: 1, AudioBlob: []byte{1}, SampleRate: 16000}
	_, failure, err := w.Run(context.Background(), u)

	assert.Error(t, err)
	assert.NotEmpty(t, failure)
}
