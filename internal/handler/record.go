package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/attendance-tracker/internal/apperror"
	"github.com/sakif/attendance-tracker/internal/auth"
	"github.com/sakif/attendance-tracker/internal/model"
)

// RecordService is what the record routes need from the service layer.
// *service.RecordService implements it.
type RecordService interface {
	Create(ctx context.Context, owner model.Identity, className, role string, date time.Time) (*model.Record, error)
	List(ctx context.Context, owner model.Identity, classNameFilter string) ([]model.Record, error)
	Delete(ctx context.Context, caller model.Identity, id string) error
	DailyStats(ctx context.Context, owner model.Identity, day time.Time) ([]model.ClassCount, error)
	TodayStats(ctx context.Context, owner model.Identity) ([]model.ClassCount, error)
	ParseDay(day string) (time.Time, error)
	Location() *time.Location
}

// RecordHandler serves the authenticated record routes.
type RecordHandler struct {
	records RecordService
	logger  *slog.Logger
}

// NewRecordHandler creates a RecordHandler.
func NewRecordHandler(records RecordService, logger *slog.Logger) *RecordHandler {
	return &RecordHandler{records: records, logger: logger}
}

// RecordResponse is the public view of a record. The id and owner stay
// internal.
type RecordResponse struct {
	ClassName string    `json:"className"`
	Role      string    `json:"role"`
	Date      time.Time `json:"date"`
}

func toRecordResponse(r model.Record) RecordResponse {
	return RecordResponse{ClassName: r.ClassName, Role: r.Role, Date: r.Date}
}

// identity pulls the caller out of the context, answering 401 when absent.
func (h *RecordHandler) identity(w http.ResponseWriter, r *http.Request) (model.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, h.logger, apperror.Unauthorized(auth.MsgTokenNotProvided))
	}
	return id, ok
}

// HandleCreate stores a record for the caller.
//
// HTTP: POST /api/records
// BODY (JSON or form): className, role, date?
func (h *RecordHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	body, err := readFields(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	date, err := parseDate(body.get("date"), h.records.Location())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.records.Create(r.Context(), id, body.get("className"), body.get("role"), date)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, toRecordResponse(*rec))
}

// HandleList returns the caller's records, oldest first.
//
// HTTP: GET /api/records?className=
func (h *RecordHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	records, err := h.records.List(r.Context(), id, r.URL.Query().Get("className"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]RecordResponse, 0, len(records))
	for _, rec := range records {
		out = append(out, toRecordResponse(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleStats returns per-class counts for one day, today by default.
//
// HTTP: GET /api/records/stats?day=YYYY-MM-DD
func (h *RecordHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var (
		stats []model.ClassCount
		err   error
	)
	if day := r.URL.Query().Get("day"); day != "" {
		var t time.Time
		t, err = h.records.ParseDay(day)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		stats, err = h.records.DailyStats(r.Context(), id, t)
	} else {
		stats, err = h.records.TodayStats(r.Context(), id)
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// HandleDelete removes a record.
//
// HTTP: DELETE /api/records/{id}, or DELETE /api/records with the id in the
// body or the query string
func (h *RecordHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	recordID := chi.URLParam(r, "id")
	if recordID == "" {
		recordID = r.URL.Query().Get("id")
	}
	if recordID == "" {
		body, err := readFields(w, r)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
		recordID = body.get("id")
	}

	if err := h.records.Delete(r.Context(), id, recordID); err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, resultOK)
}
