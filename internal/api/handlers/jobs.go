package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"audiototext-backend/internal/cleanup"
	"audiototext-backend/internal/config"
	"audiototext-backend/internal/job"
	"audiototext-backend/internal/metrics"
)

// multipart framing and the email field need a little headroom beyond
// the audio payload itself.
const formOverhead = 1 << 20

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

var audioExtensions = map[string]bool{
	".wav": true, ".mp3": true, ".m4a": true, ".aac": true,
	".ogg": true, ".oga": true, ".flac": true, ".webm": true,
	".wma": true,
}

var errPayloadTooLarge = errors.New("payload exceeds configured maximum")

// JobsHandler accepts audio submissions and answers status queries.
type JobsHandler struct {
	store    *job.Store
	maxBytes int64
	tempDir  string
	inflight chan struct{}
}

func NewJobsHandler(store *job.Store, cfg config.UploadConfig) *JobsHandler {
	return &JobsHandler{
		store:    store,
		maxBytes: cfg.MaxBytes,
		tempDir:  cfg.TempDir,
		inflight: make(chan struct{}, cfg.MaxInFlight),
	}
}

// Submit validates a multipart submission, stages the audio under a
// unique temp path and creates the job. It returns the job id without
// waiting for transcription. The body is consumed as a stream: an
// oversized payload is cut off mid-copy, not after buffering.
func (h *JobsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	select {
	case h.inflight <- struct{}{}:
		defer func() { <-h.inflight }()
	default:
		metrics.IncUploadRejected("busy")
		writeError(w, http.StatusServiceUnavailable, "busy", "too many concurrent uploads")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formOverhead)
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "multipart form required")
		return
	}

	var (
		email, filename, contentType string
		staged                       string
		size                         int64
	)
	discard := func() {
		if staged != "" {
			os.Remove(staged)
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			discard()
			metrics.IncUploadRejected("bad_request")
			writeError(w, http.StatusBadRequest, "bad_request", "malformed multipart body")
			return
		}

		switch part.FormName() {
		case "email":
			b, err := io.ReadAll(io.LimitReader(part, 512))
			if err != nil {
				discard()
				writeError(w, http.StatusBadRequest, "bad_request", "unreadable email field")
				return
			}
			email = strings.TrimSpace(string(b))
		case "audio":
			filename = part.FileName()
			contentType = part.Header.Get("Content-Type")
			if !looksLikeAudio(contentType, filename) {
				discard()
				metrics.IncUploadRejected("bad_content_type")
				writeError(w, http.StatusUnsupportedMediaType, "bad_content_type", "audio content required")
				return
			}
			staged, size, err = h.stage(part, filename)
			if errors.Is(err, errPayloadTooLarge) {
				metrics.IncUploadRejected("oversized")
				writeError(w, http.StatusRequestEntityTooLarge, "oversized",
					fmt.Sprintf("payload exceeds %d bytes", h.maxBytes))
				return
			}
			if err != nil {
				metrics.IncUploadRejected("storage")
				writeError(w, http.StatusInternalServerError, "storage", "failed to stage upload")
				return
			}
		}
		part.Close()
	}

	if !emailRe.MatchString(email) {
		discard()
		metrics.IncUploadRejected("bad_email")
		writeError(w, http.StatusBadRequest, "bad_email", "valid email address required")
		return
	}
	if staged == "" {
		metrics.IncUploadRejected("bad_request")
		writeError(w, http.StatusBadRequest, "bad_request", "audio file required")
		return
	}

	id := h.store.Create(job.Job{
		Email:       email,
		Filename:    filename,
		ByteSize:    size,
		ContentType: contentType,
		TempPath:    staged,
	})
	metrics.IncJobCreated()

	writeJSON(w, http.StatusAccepted, map[string]string{"job_id": id})
}

// Status reports the job's current state and, when failed, the failure
// category. The transcript itself is never exposed here.
func (h *JobsHandler) Status(w http.ResponseWriter, r *http.Request) {
	j, err := h.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	writeJSON(w, http.StatusOK, j)
}

// stage streams the part into a uniquely named file in the temp dir,
// counting bytes as it copies. Crossing the limit aborts the copy and
// removes the partial file.
func (h *JobsHandler) stage(src io.Reader, filename string) (string, int64, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".wav"
	}
	dst := filepath.Join(h.tempDir, fmt.Sprintf("%s%s%s", cleanup.StagePrefix(), uuid.NewString(), ext))

	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", 0, fmt.Errorf("create staging file: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(src, h.maxBytes+1))
	closeErr := f.Close()
	if err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(dst)
		return "", 0, fmt.Errorf("stage upload: %w", err)
	}
	if n > h.maxBytes {
		os.Remove(dst)
		return "", 0, errPayloadTooLarge
	}
	return dst, n, nil
}

func looksLikeAudio(contentType, filename string) bool {
	if strings.HasPrefix(contentType, "audio/") {
		return true
	}
	if contentType == "" || contentType == "application/octet-stream" {
		return audioExtensions[strings.ToLower(filepath.Ext(filename))]
	}
	return false
}

func writeError(w http.ResponseWriter, status int, category, msg string) {
	writeJSON(w, status, map[string]string{"error": msg, "category": category})
}
