package rtmp

import (
	"os"
	"syscall"
)

// terminateSignal returns the signal used to request a graceful ffmpeg
// shutdown before falling back to Process.Kill.
func terminateSignal() os.Signal {
	return syscall.SIGTERM
}
