package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"video-clipper/internal/logging"
	"video-clipper/internal/mediatypes"
	"video-clipper/internal/metrics"
	"video-clipper/internal/registry"
)

// Upload accepts a multipart upload on field "file", streams it to the
// upload directory, probes its duration, and registers it. The size limit
// is enforced while streaming so an oversized body is rejected without
// being fully written to disk.
func (h *Handlers) Upload(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		metrics.UploadDuration.Observe(time.Since(start).Seconds())
	}()

	ctx := r.Context()
	if h.cfg.Limits.UploadTimeoutSeconds > 0 {
		var cancel context.CancelFunc
		timeout := time.Duration(h.cfg.Limits.UploadTimeoutSeconds * float64(time.Second))
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
		r = r.WithContext(ctx)
	}

	reader, err := r.MultipartReader()
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, "request must be multipart/form-data", http.StatusBadRequest)
		return
	}

	part, err := nextFilePart(reader)
	if err != nil {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, "multipart field \"file\" is required", http.StatusBadRequest)
		return
	}
	defer part.Close()

	originalName := filepath.Base(part.FileName())
	ext := strings.ToLower(filepath.Ext(originalName))
	if ext == "" {
		ext = ".mp4"
	}

	contentType := part.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		// Some clients omit per-part types; fall back to the extension.
		contentType = mediatypes.GetMimeType(ext)
	}
	if !mediatypes.IsVideoContentType(contentType) {
		metrics.UploadsTotal.WithLabelValues("rejected").Inc()
		writeJSONError(w, fmt.Sprintf("unsupported content type %q, expected video/*", contentType), http.StatusBadRequest)
		return
	}

	videoID := registry.NewVideoID()
	destPath := filepath.Join(h.cfg.Server.UploadDir, videoID+ext)

	written, err := h.streamToFile(ctx, part, destPath)
	if err != nil {
		removeQuietly(destPath)
		if errors.Is(err, errFileTooLarge) {
			metrics.UploadsTotal.WithLabelValues("rejected").Inc()
			writeJSONError(w, fmt.Sprintf("file exceeds maximum size of %d bytes", h.cfg.Server.MaxFileSizeBytes), http.StatusRequestEntityTooLarge)
			return
		}
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logging.Error("Upload of %s failed: %v", originalName, err)
		writeJSONError(w, "failed to store upload", http.StatusInternalServerError)
		return
	}

	probeStart := time.Now()
	duration, err := h.prober.Duration(ctx, destPath)
	metrics.ProbeDuration.Observe(time.Since(probeStart).Seconds())
	if err != nil {
		removeQuietly(destPath)
		metrics.ProbesTotal.WithLabelValues("error").Inc()
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logging.Error("Duration probe for %s failed: %v", originalName, err)
		writeJSONError(w, "could not determine video duration", http.StatusInternalServerError)
		return
	}
	metrics.ProbesTotal.WithLabelValues("success").Inc()

	err = h.store.Register(ctx, registry.Video{
		ID:           videoID,
		SourcePath:   destPath,
		Duration:     duration,
		OriginalName: originalName,
		SizeBytes:    written,
	})
	if err != nil {
		removeQuietly(destPath)
		metrics.UploadsTotal.WithLabelValues("error").Inc()
		logging.Error("Registering video %s failed: %v", videoID, err)
		writeJSONError(w, "failed to register video", http.StatusInternalServerError)
		return
	}

	metrics.UploadsTotal.WithLabelValues("success").Inc()
	metrics.UploadBytesTotal.Add(float64(written))
	logging.Info("Uploaded %s as video %s (%.1fs, %d bytes)", originalName, videoID, duration, written)

	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]interface{}{
		"video_id": videoID,
		"duration": duration,
		"size":     written,
	})
}

// nextFilePart scans the multipart stream for the "file" field.
func nextFilePart(reader *multipart.Reader) (*multipart.Part, error) {
	for {
		part, err := reader.NextPart()
		if err != nil {
			return nil, err
		}
		if part.FormName() == "file" {
			return part, nil
		}
		_ = part.Close()
	}
}

var errFileTooLarge = errors.New("file too large")

// streamToFile copies the part to destPath with the configured buffer,
// enforcing the size limit as bytes arrive. Returns the byte count written.
func (h *Handlers) streamToFile(ctx context.Context, src io.Reader, destPath string) (int64, error) {
	dest, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("creating upload file: %w", err)
	}
	defer dest.Close()

	bufSize := h.cfg.Performance.UploadBufferSize
	if bufSize <= 0 {
		bufSize = 1024 * 1024
	}
	buf := make([]byte, bufSize)

	logInterval := h.cfg.Performance.UploadLogIntervalChunks
	var total int64
	var chunks int

	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if total > h.cfg.Server.MaxFileSizeBytes {
				return total, errFileTooLarge
			}
			if _, writeErr := dest.Write(buf[:n]); writeErr != nil {
				return total, fmt.Errorf("writing upload: %w", writeErr)
			}

			chunks++
			if logInterval > 0 && chunks%logInterval == 0 {
				logging.Debug("Upload progress: %d MiB written to %s", total/(1024*1024), filepath.Base(destPath))
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, fmt.Errorf("reading upload: %w", readErr)
		}
	}

	if err := dest.Sync(); err != nil {
		return total, fmt.Errorf("syncing upload: %w", err)
	}
	return total, nil
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove %s: %v", path, err)
	}
}
