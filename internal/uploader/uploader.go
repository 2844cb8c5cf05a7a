// Package uploader implements the Uploader contract for recordings and
// other large blobs (spec.md §6.6), grounded on
// original_source/bots/bot_controller/file_uploader.py: object storage
// itself is out of scope (§1 Non-goals), so only the interface and the
// local-file half of the contract — temp file placement, async upload with
// a completion callback, and cleanup — are implemented.
package uploader

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/meetbot/core/internal/logging"
)

// Key returns the object-storage key for a recording, mirroring
// spec.md §6.6's "{objectID}.{ext}" format.
func Key(objectID, ext string) string {
	return fmt.Sprintf("%s.%s", objectID, ext)
}

// TempPath returns the local staging path for a recording before it is
// uploaded, mirroring spec.md §6.6's "/tmp/{objectID}.{ext}".
func TempPath(objectID, ext string) string {
	return filepath.Join(os.TempDir(), Key(objectID, ext))
}

// Callback is invoked once an upload finishes, reporting success.
type Callback func(success bool)

// Uploader uploads a local file to its configured destination under a key.
type Uploader interface {
	// UploadFile starts an upload of filePath to key, invoking cb on
	// completion if non-nil. It must not block the caller.
	UploadFile(ctx context.Context, filePath, key string, cb Callback)
	// Wait blocks until the most recently started upload completes.
	Wait()
}

// FileUploader is the local-storage implementation: it copies the file to
// destDir under key, standing in for the object-storage client
// file_uploader.py wraps (boto3 in the original; no object-storage SDK is
// in scope here).
type FileUploader struct {
	destDir string
	logger  logging.Logger
	done    chan struct{}
}

// NewFileUploader builds a FileUploader that stages uploads under destDir.
func NewFileUploader(destDir string, logger logging.Logger) *FileUploader {
	return &FileUploader{destDir: destDir, logger: logger, done: make(chan struct{})}
}

// UploadFile copies filePath into destDir/key in a background goroutine,
// mirroring _upload_worker's async-copy-then-callback shape.
func (f *FileUploader) UploadFile(ctx context.Context, filePath, key string, cb Callback) {
	f.done = make(chan struct{})
	go func() {
		defer close(f.done)
		ok := f.upload(filePath, key)
		if cb != nil {
			cb(ok)
		}
	}()
}

func (f *FileUploader) upload(filePath, key string) bool {
	if _, err := os.Stat(filePath); err != nil {
		f.logger.Errorw("upload source file not found", "path", filePath, "error", err)
		return false
	}

	dest := filepath.Join(f.destDir, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		f.logger.Errorw("upload: create dest dir failed", "error", err)
		return false
	}

	src, err := os.Open(filePath)
	if err != nil {
		f.logger.Errorw("upload: open source failed", "error", err)
		return false
	}
	defer src.Close()

	out, err := os.Create(dest)
	if err != nil {
		f.logger.Errorw("upload: create dest failed", "error", err)
		return false
	}
	defer out.Close()

	if _, err := io.Copy(out, src); err != nil {
		f.logger.Errorw("upload: copy failed", "error", err)
		return false
	}

	f.logger.Infow("upload succeeded", "source", filePath, "destination", dest)
	return true
}

// Wait blocks until the most recently started upload completes.
func (f *FileUploader) Wait() {
	<-f.done
}

// DeleteFile removes a local file from disk, mirroring delete_file.
func DeleteFile(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return os.Remove(path)
}
