package api

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/okian/buzz/internal/adapters/mq/jobs"
	"github.com/okian/buzz/internal/adapters/mq/queue"
	"github.com/okian/buzz/internal/domain/model"
	"github.com/okian/buzz/pkg/logger"
)

// IdempotencyHeader carries a caller-chosen job id for manual triggers.
const IdempotencyHeader = "Idempotency-Key"

const maxBodyBytes = 64 << 10

// JobsHandler controls recalculation runs.
type JobsHandler struct {
	queue JobQueue
	log   logger.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(queue JobQueue, log logger.Logger) *JobsHandler {
	return &JobsHandler{queue: queue, log: log}
}

// recalculateRequest mirrors the OpenAPI schema for POST /explore/jobs/recalculate.
type recalculateRequest struct {
	SinceHours  *float64 `json:"since_hours" validate:"omitempty,gte=0.1"`
	MaxAgeHours *float64 `json:"max_age_hours" validate:"omitempty,gte=1"`
	BatchSize   *int     `json:"batch_size" validate:"omitempty,gte=10"`
	ForceAll    *bool    `json:"force_all"`
	Priority    string   `json:"priority" validate:"omitempty,oneof=normal high"`
}

func (req recalculateRequest) payload() model.JobPayload {
	return model.JobPayload{
		SinceHours:  req.SinceHours,
		MaxAgeHours: req.MaxAgeHours,
		BatchSize:   req.BatchSize,
		ForceAll:    req.ForceAll,
	}
}

func (req recalculateRequest) priority() queue.Priority {
	if req.Priority == "high" {
		return queue.PriorityHigh
	}
	return queue.PriorityNormal
}

// HandleRecalculate handles POST /explore/jobs/recalculate. An empty body
// runs with the configured defaults.
func (h *JobsHandler) HandleRecalculate(w http.ResponseWriter, r *http.Request) {
	const op = "api.recalculate"
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var req recalculateRequest
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}

	res := h.queue.Trigger(r.Context(), req.payload(), jobs.EnqueueOptions{
		Priority: req.priority(),
		JobID:    strings.TrimSpace(r.Header.Get(IdempotencyHeader)),
	})
	if !res.Success {
		writeJSON(w, http.StatusServiceUnavailable, res)
		return
	}
	h.log.Info(r.Context(), "recalculation triggered",
		logger.String("job_id", res.JobID),
		logger.String("priority", req.priority().String()),
		logger.Bool("duplicate", res.Duplicate),
	)
	writeJSON(w, http.StatusAccepted, res)
}

// HandleStats handles GET /explore/jobs/stats.
func (h *JobsHandler) HandleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.queue.Stats())
}

// HandleGetJob handles GET /explore/jobs/{jobID}.
func (h *JobsHandler) HandleGetJob(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_job"
	job, err := h.queue.Get(chi.URLParam(r, "jobID"))
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
			return
		}
		writeError(w, http.StatusInternalServerError, "internal_error", Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// HandlePause handles POST /explore/jobs/pause.
func (h *JobsHandler) HandlePause(w http.ResponseWriter, _ *http.Request) {
	h.queue.Pause()
	writeJSON(w, http.StatusOK, h.queue.Stats())
}

// HandleResume handles POST /explore/jobs/resume.
func (h *JobsHandler) HandleResume(w http.ResponseWriter, _ *http.Request) {
	h.queue.Resume()
	writeJSON(w, http.StatusOK, h.queue.Stats())
}

type cleanQuery struct {
	State string `validate:"oneof=completed failed"`
	Grace string
}

type cleanResponse struct {
	Removed int `json:"removed"`
}

// HandleClean handles POST /explore/jobs/clean?state=completed&grace=1h.
func (h *JobsHandler) HandleClean(w http.ResponseWriter, r *http.Request) {
	const op = "api.clean"
	q := cleanQuery{State: string(jobs.StateCompleted), Grace: r.URL.Query().Get("grace")}
	if v := r.URL.Query().Get("state"); v != "" {
		q.State = v
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var grace time.Duration
	if q.Grace != "" {
		d, err := time.ParseDuration(q.Grace)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		grace = d
	}

	n, err := h.queue.Clean(grace, jobs.State(q.State))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	writeJSON(w, http.StatusOK, cleanResponse{Removed: n})
}
