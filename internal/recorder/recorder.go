// Package recorder implements screen-and-audio recording for
// browser-automation adapters (spec.md §4.10), grounded on
// original_source/bots/bot_controller/screen_and_audio_recorder.py. It
// shells out to ffmpeg/xterm/pactl exactly as the original does — there is
// no in-process screen-capture library in the retrieval pack, and the
// original itself is a thin subprocess wrapper, so the idiomatic Go
// rendition is the same.
package recorder

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/meetbot/core/internal/logging"
)

const maxSeekableBytes = 3 * 1024 * 1024 * 1024 // 3 GB

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width, Height int
}

// Recorder drives an ffmpeg screen/audio capture subprocess, with an
// xterm-overlay pause mechanism, mirroring ScreenAndAudioRecorder.
type Recorder struct {
	fileLocation        string
	screenDimensions    Dimensions
	recordingDimensions Dimensions
	audioOnly           bool
	logger              logging.Logger

	mu        sync.Mutex
	ffmpegCmd *exec.Cmd
	xtermCmd  *exec.Cmd
	paused    bool
}

// New builds a Recorder. recordingDimensions is padded by 10px on each axis
// for screenDimensions, matching the original's crop-margin comment.
func New(fileLocation string, recordingDimensions Dimensions, audioOnly bool, logger logging.Logger) *Recorder {
	return &Recorder{
		fileLocation:        fileLocation,
		screenDimensions:    Dimensions{recordingDimensions.Width + 10, recordingDimensions.Height + 10},
		recordingDimensions: recordingDimensions,
		audioOnly:           audioOnly,
		logger:              logger,
	}
}

// StartRecording launches the ffmpeg capture process against displayVar
// (an X11 DISPLAY value, e.g. ":99"), mirroring start_recording.
func (r *Recorder) StartRecording(displayVar string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Infow("starting screen recorder", "display", displayVar, "dimensions", r.screenDimensions, "file", r.fileLocation)

	var args []string
	if r.audioOnly {
		args = []string{
			"-y",
			"-thread_queue_size", "4096",
			"-f", "alsa",
			"-i", "default",
			"-c:a", "libmp3lame",
			"-b:a", "192k",
			"-ar", "44100",
			"-ac", "1",
			r.fileLocation,
		}
	} else {
		args = []string{
			"-y",
			"-thread_queue_size", "4096",
			"-framerate", "30",
			"-video_size", fmt.Sprintf("%dx%d", r.screenDimensions.Width, r.screenDimensions.Height),
			"-f", "x11grab",
			"-draw_mouse", "0",
			"-probesize", "32",
			"-i", displayVar,
			"-thread_queue_size", "4096",
			"-f", "alsa",
			"-i", "default",
			"-vf", fmt.Sprintf("crop=%d:%d:10:10", r.recordingDimensions.Width, r.recordingDimensions.Height),
			"-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p", "-g", "30",
			"-c:a", "aac", "-strict", "experimental", "-b:a", "128k",
			r.fileLocation,
		}
	}

	r.logger.Infow("starting ffmpeg command", "args", strings.Join(args, " "))

	cmd := exec.Command("ffmpeg", args...)
	cmd.Stdout = nil
	cmd.Stderr = nil
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("recorder: start ffmpeg: %w", err)
	}
	r.ffmpegCmd = cmd
	return nil
}

// PauseRecording mutes the default audio sink and raises a black xterm
// window covering the capture area, mirroring pause_recording. It is a
// no-op if already paused.
func (r *Recorder) PauseRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.paused {
		return nil
	}

	geometry := fmt.Sprintf("%dx%d+0+0", r.screenDimensions.Width, r.screenDimensions.Height)
	xterm := exec.Command("xterm", "-bg", "black", "-fg", "black", "-geometry", geometry,
		"-xrm", "*borderWidth:0", "-xrm", "*scrollBar:false")
	if err := xterm.Start(); err != nil {
		return fmt.Errorf("recorder: start xterm overlay: %w", err)
	}
	r.xtermCmd = xterm

	if err := exec.Command("pactl", "set-sink-mute", "@DEFAULT_SINK@", "1").Run(); err != nil {
		return fmt.Errorf("recorder: mute sink: %w", err)
	}

	r.paused = true
	return nil
}

// ResumeRecording unmutes the sink and kills the pause overlay, mirroring
// resume_recording. It is a no-op if not paused.
func (r *Recorder) ResumeRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.paused {
		return nil
	}

	if r.xtermCmd != nil {
		r.xtermCmd.Process.Kill()
		r.xtermCmd.Wait()
		r.xtermCmd = nil
	}

	if err := exec.Command("pactl", "set-sink-mute", "@DEFAULT_SINK@", "0").Run(); err != nil {
		return fmt.Errorf("recorder: unmute sink: %w", err)
	}

	r.paused = false
	return nil
}

// StopRecording terminates the ffmpeg process and waits for it to exit,
// mirroring stop_recording.
func (r *Recorder) StopRecording() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ffmpegCmd == nil {
		return nil
	}
	r.ffmpegCmd.Process.Kill()
	err := r.ffmpegCmd.Wait()
	r.ffmpegCmd = nil
	r.logger.Infow("stopped screen and audio recorder", "dimensions", r.screenDimensions, "file", r.fileLocation)
	if err != nil {
		return fmt.Errorf("recorder: ffmpeg exited with error: %w", err)
	}
	return nil
}

// SeekablePath inserts ".seekable" before the file extension, mirroring
// get_seekable_path.
func SeekablePath(path string) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return base + ".seekable" + ext
}

// Cleanup remuxes the recorded file with the moov atom moved to the front
// (faststart), mirroring cleanup/make_file_seekable. A missing input file
// is replaced with an empty placeholder rather than treated as an error,
// audio-only recordings are left as-is, and files over 3GB skip the remux
// to bound ffmpeg's run time.
func (r *Recorder) Cleanup() error {
	if r.fileLocation == "" {
		return nil
	}

	info, err := os.Stat(r.fileLocation)
	if os.IsNotExist(err) {
		r.logger.Infow("input file does not exist, creating empty file", "path", r.fileLocation)
		f, createErr := os.Create(r.fileLocation)
		if createErr != nil {
			return fmt.Errorf("recorder: create empty placeholder: %w", createErr)
		}
		return f.Close()
	}
	if err != nil {
		return fmt.Errorf("recorder: stat input file: %w", err)
	}

	if r.audioOnly {
		return nil
	}

	if info.Size() > maxSeekableBytes {
		r.logger.Infow("input file exceeds seekability size limit, skipping remux", "size", info.Size())
		return nil
	}

	tempPath := SeekablePath(r.fileLocation)
	if err := makeFileSeekable(r.fileLocation, tempPath); err != nil {
		r.logger.Errorw("failed to make file seekable", "error", err)
		return nil
	}
	return nil
}

// makeFileSeekable moves the moov atom to the front via ffmpeg -movflags
// +faststart, then replaces the input file with the remuxed copy.
func makeFileSeekable(inputPath, tempPath string) error {
	cmd := exec.Command("ffmpeg",
		"-i", inputPath,
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-movflags", "+faststart",
		"-y",
		tempPath,
	)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed to make file seekable: %s: %w", output, err)
	}

	if err := os.Rename(tempPath, inputPath); err != nil {
		return fmt.Errorf("replace original file with seekable version: %w", err)
	}
	return nil
}
