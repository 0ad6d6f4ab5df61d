package httpapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/thesamsai/transcode-dispatch/internal/coordinator/config"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/httpapi/httputil"
	"github.com/thesamsai/transcode-dispatch/internal/coordinator/registry"
	"github.com/thesamsai/transcode-dispatch/internal/platform/logger"
)

type handler struct {
	reg *registry.Registry
	log *logger.Logger
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	httputil.WriteText(w, http.StatusOK, "ok")
}

func (h *handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	id := h.reg.Register()
	h.log.Info("worker registered", "uuid", id.String())
	httputil.WriteText(w, http.StatusOK, id.URN())
}

func (h *handler) handlePing(w http.ResponseWriter, r *http.Request) {
	id, _ := httputil.WorkerIDFromContext(r.Context())
	h.reg.Ping(id)
	httputil.WriteText(w, http.StatusOK, "Ok")
}

func (h *handler) handlePull(w http.ResponseWriter, r *http.Request) {
	id, _ := httputil.WorkerIDFromContext(r.Context())
	path, ok := h.reg.PullFor(id)
	if !ok {
		// "no work" and "unknown worker" are deliberately the same empty
		// body (spec.md section 4.4) — clients treat both as try-again-later.
		httputil.WriteText(w, http.StatusOK, "")
		return
	}
	httputil.WriteText(w, http.StatusOK, path)
}

func (h *handler) handlePush(w http.ResponseWriter, r *http.Request) {
	id, _ := httputil.WorkerIDFromContext(r.Context())

	jobEnv, missing := loadJobEnv()
	if missing != "" {
		h.log.Error("push: missing configuration", "uuid", id.String(), "missing", missing)
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("missing configuration: %s", missing))
		return
	}

	cfg := registry.CompletionConfig{
		FileExtension: jobEnv.FileExtension,
		CompletedDir:  jobEnv.CompletedPath,
	}
	switch h.reg.CompleteFor(id, cfg) {
	case registry.Ok:
		httputil.WriteText(w, http.StatusOK, "Thanks!")
	case registry.NotYet:
		httputil.WriteText(w, http.StatusOK, "file not submitted")
	default: // registry.Missing
		httputil.WriteText(w, http.StatusOK, "no assignment for this worker")
	}
}

// FailureReport mirrors the worker agent's /failure body. ffmepgConversion
// preserves a misspelling present in the wire format from the original
// implementation; changing it would break compatibility with workers built
// against this contract.
type FailureReport struct {
	UUID             string       `json:"uuid"`
	TimestampUTC     string       `json:"timestamp_utc"`
	FfmepgConversion CommandError `json:"ffmepg_conversion"`
	RsyncFrom        CommandError `json:"rsync_from"`
	RsyncTo          CommandError `json:"rsync_to"`
}

type CommandError struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (h *handler) handleFailure(w http.ResponseWriter, r *http.Request) {
	var report FailureReport
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "malformed failure report")
		return
	}

	id, err := uuid.Parse(strings.TrimSpace(report.UUID))
	if err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "malformed uuid in failure report")
		return
	}

	h.log.Warn("worker reported failure",
		"uuid", id.String(),
		"timestamp_utc", report.TimestampUTC,
		"ffmpeg_exit", report.FfmepgConversion.ExitCode,
		"rsync_from_exit", report.RsyncFrom.ExitCode,
		"rsync_to_exit", report.RsyncTo.ExitCode,
	)

	known := h.reg.FailFor(id)
	if !known {
		httputil.WriteText(w, http.StatusOK, "")
		return
	}
	httputil.WriteText(w, http.StatusOK, "Ok")
}

func (h *handler) handleInfo(w http.ResponseWriter, r *http.Request) {
	jobEnv, missing := loadJobEnv()
	if missing != "" {
		httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("missing configuration: %s", missing))
		return
	}
	body := fmt.Sprintf(
		"ffmpeg: %s\nfile_extension: %s\ncompleted: %s\nrsync_user: %s\n",
		jobEnv.FFmpegCommand, jobEnv.FileExtension, jobEnv.CompletedPath, jobEnv.RsyncUser,
	)
	httputil.WriteText(w, http.StatusOK, body)
}

func (h *handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	paths := h.reg.SnapshotPending()
	httputil.WriteText(w, http.StatusOK, strings.Join(paths, "\n")+"\n")
}

func (h *handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.reg.Stats()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stats)
}

// loadJobEnv reads the four per-request job environment variables,
// returning the name of the first missing one (empty if all present).
func loadJobEnv() (jobEnv, string) {
	ffmpeg := strings.TrimSpace(os.Getenv(config.EnvFFmpegCommand))
	if ffmpeg == "" {
		ffmpeg = config.DefaultFFmpegCommand
	}
	ext := strings.TrimSpace(os.Getenv(config.EnvFileExtension))
	completed := strings.TrimSpace(os.Getenv(config.EnvCompletedPath))
	rsyncUser := strings.TrimSpace(os.Getenv(config.EnvRsyncUser))

	switch {
	case ext == "":
		return jobEnv{}, config.EnvFileExtension
	case completed == "":
		return jobEnv{}, config.EnvCompletedPath
	case rsyncUser == "":
		return jobEnv{}, config.EnvRsyncUser
	}

	return jobEnv{
		FFmpegCommand: ffmpeg,
		FileExtension: strings.TrimPrefix(ext, "."),
		CompletedPath: completed,
		RsyncUser:     rsyncUser,
	}, ""
}

type jobEnv struct {
	FFmpegCommand string
	FileExtension string
	CompletedPath string
	RsyncUser     string
}
