package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"loa-bot/internal/models"

	"github.com/go-chi/chi/v5"
)

type LeaveReader interface {
	ListLeaves(ctx context.Context) ([]models.Leave, error)
	GetLeave(ctx context.Context, subjectID string) (*models.Leave, error)
}

type SweepRunner interface {
	RunNow(ctx context.Context) (int, error)
}

type Handler struct {
	Leaves  LeaveReader
	Sweeper SweepRunner
	Now     func() time.Time
}

func NewHandler(leaves LeaveReader, sweeper SweepRunner) *Handler {
	return &Handler{Leaves: leaves, Sweeper: sweeper, Now: time.Now}
}

type LeaveDTO struct {
	SubjectID string    `json:"subject_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	Reason    string    `json:"reason"`
	Expired   bool      `json:"expired"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ListLeaves(w http.ResponseWriter, r *http.Request) {
	leaves, err := h.Leaves.ListLeaves(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list leaves", err)
		return
	}

	now := h.Now()
	out := make([]LeaveDTO, 0, len(leaves))
	for _, l := range leaves {
		out = append(out, toLeaveDTO(l, now))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) GetLeave(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	leave, err := h.Leaves.GetLeave(r.Context(), subjectID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load leave", err)
		return
	}
	if leave == nil {
		writeError(w, http.StatusNotFound, "member is not on leave", nil)
		return
	}
	writeJSON(w, http.StatusOK, toLeaveDTO(*leave, h.Now()))
}

func (h *Handler) RunSweep(w http.ResponseWriter, r *http.Request) {
	closed, err := h.Sweeper.RunNow(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"closed": closed})
}

func toLeaveDTO(l models.Leave, now time.Time) LeaveDTO {
	return LeaveDTO{
		SubjectID: l.SubjectID,
		StartDate: l.StartDate,
		EndDate:   l.EndDate,
		Reason:    l.Reason,
		Expired:   l.Expired(now),
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
