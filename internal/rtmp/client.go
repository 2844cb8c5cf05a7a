// Package rtmp streams muxed FLV data to an RTMP endpoint by piping it
// through an ffmpeg subprocess (spec.md §4.9's rtmp_destination_url output),
// grounded on original_source/bots/bot_controller/rtmp_client.py. No RTMP
// muxer exists in the retrieval pack, so this shells out to ffmpeg the same
// way the original does, following the exec.CommandContext +
// StdinPipe/goroutine-drain shape dmzoneill-ollama-proxy's
// pkg/device/virtual/audiobridge.go uses for subprocess audio plumbing.
package rtmp

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"sync"
	"time"

	"github.com/meetbot/core/internal/logging"
)

// Client streams FLV-muxed audio+video to an RTMP endpoint via ffmpeg.
type Client struct {
	rtmpURL string
	logger  logging.Logger

	mu      sync.Mutex
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	running bool
}

// NewClient builds a Client for rtmpURL. Nothing is started until Start.
func NewClient(rtmpURL string, logger logging.Logger) *Client {
	return &Client{rtmpURL: rtmpURL, logger: logger}
}

// Start launches the ffmpeg subprocess, copying the FLV input on stdin
// straight through to rtmpURL, mirroring RTMPClient.start's ffmpeg_cmd.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-y",
		"-f", "flv",
		"-i", "pipe:0",
		"-c", "copy",
		"-f", "flv",
		c.rtmpURL,
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("rtmp: create stdin pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("rtmp: start ffmpeg: %w", err)
	}

	c.cmd = cmd
	c.stdin = stdin
	c.running = true
	c.logger.Infow("rtmp client started", "pid", cmd.Process.Pid, "url", c.rtmpURL)
	return nil
}

// WriteData writes one chunk of FLV data to the stream, per write_data.
func (c *Client) WriteData(flv []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.stdin == nil {
		return fmt.Errorf("rtmp: client not running")
	}

	if _, err := c.stdin.Write(flv); err != nil {
		c.running = false
		return fmt.Errorf("rtmp: write data: %w", err)
	}
	return nil
}

// Stop gracefully closes stdin, terminates ffmpeg, and force-kills it if it
// does not exit within 5 seconds, mirroring RTMPClient.stop.
func (c *Client) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.cmd == nil {
		c.running = false
		return nil
	}
	c.running = false

	if c.stdin != nil {
		c.stdin.Close()
	}

	done := make(chan error, 1)
	go func() { done <- c.cmd.Wait() }()

	c.cmd.Process.Signal(terminateSignal())

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		c.cmd.Process.Kill()
		<-done
	}

	c.cmd = nil
	c.stdin = nil
	return nil
}

// IsRunning reports whether the ffmpeg subprocess is currently active.
func (c *Client) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
