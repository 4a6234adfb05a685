// Package download streams a resolved URL to disk with byte-range resume
// and per-chunk progress reporting.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	apperrors "github.com/inkleafapp/inkleaf-server/internal/errors"
	"github.com/inkleafapp/inkleaf-server/internal/retry"
)

// maxAttempts is deliberately low; downloads are expensive and a failed
// attempt usually leaves a partial file to resume from instead.
const maxAttempts = 2

const defaultTimeout = 10 * time.Minute

// ProgressFunc receives the overall completed fraction in [0,1]. It fires
// once per received chunk and never fires when the server does not announce
// a total length.
type ProgressFunc func(fraction float64)

// Downloader writes remote files below a base directory. Safe for
// concurrent use; concurrent downloads to the same destination are not.
type Downloader struct {
	baseDir string
	client  *http.Client
	retrier *retry.Executor
	logger  *slog.Logger
}

// New builds a downloader rooted at baseDir. The directory is created on
// first use.
func New(baseDir string, retrier *retry.Executor, logger *slog.Logger) *Downloader {
	return &Downloader{
		baseDir: baseDir,
		client:  &http.Client{Timeout: defaultTimeout},
		retrier: retrier,
		logger:  logger,
	}
}

// Download fetches url into baseDir/fileName and returns the final path.
// An existing file at the destination is treated as a partial download: its
// length becomes the resume offset and the request asks for the remaining
// range. Cancellation is surfaced as context.Canceled, never retried and
// never wrapped as a download failure; the partial file stays on disk for
// a later resume.
func (d *Downloader) Download(ctx context.Context, url, fileName string, onProgress ProgressFunc) (string, error) {
	if err := os.MkdirAll(d.baseDir, 0o755); err != nil {
		return "", apperrors.DownloadFailedf("create download dir: %v", err)
	}
	dest := filepath.Join(d.baseDir, filepath.Base(fileName))

	err := d.retrier.Do(ctx, "download "+fileName, maxAttempts, func(ctx context.Context) error {
		return d.attempt(ctx, url, dest, onProgress)
	})
	if err != nil {
		// User cancellation is not a failure; everything else, deadline
		// expiry included, is.
		if context.Cause(ctx) == context.Canceled {
			return "", context.Canceled
		}
		return "", apperrors.DownloadFailedf("download %s", fileName).WithCause(err)
	}

	d.logger.Info("download complete", "file", dest, "url", url)
	return dest, nil
}

// attempt performs one transfer, resuming from however many bytes are
// already on disk. The partial file is removed after a failure only when
// this attempt started from offset zero; a failed resume keeps its bytes.
func (d *Downloader) attempt(ctx context.Context, url, dest string, onProgress ProgressFunc) error {
	offset := existingLength(dest)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return d.fail(dest, offset, err)
	}
	defer resp.Body.Close()

	flags := os.O_CREATE | os.O_WRONLY | os.O_APPEND
	switch resp.StatusCode {
	case http.StatusPartialContent:
		// resuming as requested
	case http.StatusOK:
		// Server ignored the range header; start over from byte zero.
		if offset > 0 {
			d.logger.Debug("server does not support resume, restarting", "url", url)
			offset = 0
			flags = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		}
	default:
		return d.fail(dest, offset, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	out, err := os.OpenFile(dest, flags, 0o644)
	if err != nil {
		return err
	}

	total := int64(-1)
	if resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	received, copyErr := copyWithProgress(ctx, out, resp.Body, offset, total, onProgress)
	closeErr := out.Close()

	if copyErr != nil {
		d.logger.Warn("transfer interrupted",
			"url", url,
			"offset", offset,
			"received", received,
			"error", copyErr,
		)
		return d.fail(dest, offset, copyErr)
	}
	return closeErr
}

// fail applies the partial-file policy before returning err: an attempt
// that started at offset zero leaves nothing worth resuming.
func (d *Downloader) fail(dest string, offset int64, err error) error {
	if offset == 0 {
		os.Remove(dest)
	}
	return err
}

// copyWithProgress streams body to out, reporting overall progress after
// every chunk. Progress is skipped entirely when total is unknown.
func copyWithProgress(ctx context.Context, out io.Writer, body io.Reader, offset, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, 32*1024)
	var received int64

	for {
		if err := ctx.Err(); err != nil {
			return received, err
		}

		n, readErr := body.Read(buf)
		if n > 0 {
			if _, err := out.Write(buf[:n]); err != nil {
				return received, err
			}
			received += int64(n)
			if onProgress != nil && total > 0 {
				fraction := float64(offset+received) / float64(total)
				onProgress(min(max(fraction, 0), 1))
			}
		}
		if readErr == io.EOF {
			return received, nil
		}
		if readErr != nil {
			return received, readErr
		}
	}
}

// existingLength returns the byte length of a previous partial download,
// or zero when none exists.
func existingLength(path string) int64 {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return 0
	}
	return info.Size()
}
