// Package transcription runs Utterance audio through a provider-agnostic
// Transcriber with bounded exponential-backoff retry (spec.md §4.11).
// Concrete vendor adapters (Deepgram, AssemblyAI, ...) are out of scope;
// this package only provides the interface and the retry/worker shape
// those adapters plug into.
package transcription

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/meetbot/core/internal/logging"
	"github.com/meetbot/core/internal/store"
)

// Word is one recognized token with its timing, the common subset every
// vendor transcript format reduces to.
type Word struct {
	Text       string
	StartMs    int64
	EndMs      int64
	Confidence float64
}

// Result is a completed transcription.
type Result struct {
	Transcript string
	Words      []Word
}

// Transcriber converts one Utterance's audio into a Result. Implementations
// wrap a specific vendor API.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int, language string) (Result, error)
}

// Worker drives a bounded number of retries over a Transcriber call before
// giving up and recording the Utterance as failed.
type Worker struct {
	transcriber Transcriber
	logger      logging.Logger
	maxElapsed  time.Duration
}

// NewWorker builds a Worker. maxElapsed bounds the total retry budget; zero
// selects a 30s default.
func NewWorker(transcriber Transcriber, logger logging.Logger, maxElapsed time.Duration) *Worker {
	if maxElapsed == 0 {
		maxElapsed = 30 * time.Second
	}
	return &Worker{transcriber: transcriber, logger: logger, maxElapsed: maxElapsed}
}

// Run transcribes one Utterance, retrying transient failures with
// exponential backoff, and returns the populated JSON transcription or the
// failure payload to store on the row.
func (w *Worker) Run(ctx context.Context, u *store.Utterance) (transcription store.JSON, failure store.JSON, err error) {
	var result Result
	op := func() error {
		var opErr error
		result, opErr = w.transcriber.Transcribe(ctx, u.AudioBlob, u.SampleRate, "")
		return opErr
	}

	policy := backoff.WithContext(w.retryPolicy(), ctx)
	err = backoff.RetryNotify(op, policy, func(retryErr error, wait time.Duration) {
		w.logger.Warnw("transcription attempt failed, retrying", "utteranceId", u.ID, "error", retryErr, "wait", wait)
	})
	if err != nil {
		return nil, store.NewJSONMap(map[string]any{"error": err.Error()}), err
	}

	words := make([]map[string]any, 0, len(result.Words))
	for _, wd := range result.Words {
		words = append(words, map[string]any{
			"text": wd.Text, "startMs": wd.StartMs, "endMs": wd.EndMs, "confidence": wd.Confidence,
		})
	}
	return store.NewJSONMap(map[string]any{"transcript": result.Transcript, "words": words}), nil, nil
}

func (w *Worker) retryPolicy() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = w.maxElapsed
	return b
}
