// Package faults exposes fault reporting, status changes and technician
// scheduling over HTTP.
package faults

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/techsched/core/logger"
	"github.com/kilianp07/techsched/core/model"
	"github.com/kilianp07/techsched/core/monitoring"
	"github.com/kilianp07/techsched/core/scheduler"
	"github.com/kilianp07/techsched/infra/runlog"
	"github.com/kilianp07/techsched/infra/store"
	"github.com/kilianp07/techsched/pkg/export"
)

// Service is the application surface used by the handlers.
type Service interface {
	Faults(ctx context.Context, flt store.Filter) ([]model.Fault, error)
	ReportFault(ctx context.Context, n store.NewFault) (model.Fault, error)
	TransitionFault(ctx context.Context, id string, to model.Status, technician string) (model.Fault, error)
	DeleteFault(ctx context.Context, id string) error
	Schedule(ctx context.Context, technicians int) (scheduler.Result, error)
	DefaultTechnicians() int
	Students(ctx context.Context) ([]model.Student, error)
	Runs(ctx context.Context, q runlog.Query) ([]runlog.Record, error)
}

const maxBodyBytes = 1 << 20

type handler struct {
	svc Service
	log logger.Logger
}

// NewHandler returns the API routes:
//
//	GET    /api/faults?status=&student_id=
//	POST   /api/faults
//	POST   /api/faults/status
//	DELETE /api/faults/{id}
//	POST   /api/schedule?format=json|csv
//	GET    /api/students
//	GET    /api/runs?since=&until=&school=&technician=&limit=
func NewHandler(svc Service, log logger.Logger) http.Handler {
	h := &handler{svc: svc, log: log}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/faults", h.listFaults)
	mux.HandleFunc("POST /api/faults", h.createFault)
	mux.HandleFunc("POST /api/faults/status", h.updateStatus)
	mux.HandleFunc("DELETE /api/faults/{id}", h.deleteFault)
	mux.HandleFunc("POST /api/schedule", h.schedule)
	mux.HandleFunc("GET /api/students", h.students)
	mux.HandleFunc("GET /api/runs", h.runs)
	return mux
}

func (h *handler) listFaults(w http.ResponseWriter, r *http.Request) {
	flt := store.Filter{StudentID: r.URL.Query().Get("student_id")}
	if s := r.URL.Query().Get("status"); s != "" {
		st, err := model.ParseStatus(s)
		if err != nil {
			h.writeError(w, err)
			return
		}
		flt.Status = st
	}
	faults, err := h.svc.Faults(r.Context(), flt)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if faults == nil {
		faults = []model.Fault{}
	}
	writeJSON(w, http.StatusOK, faults)
}

func (h *handler) createFault(w http.ResponseWriter, r *http.Request) {
	var req store.NewFault
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	f, err := h.svc.ReportFault(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f)
}

// faultID accepts both numeric and string identifiers.
type faultID string

func (id *faultID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = faultID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("fault_id must be a string or number")
	}
	*id = faultID(n.String())
	return nil
}

type statusRequest struct {
	FaultID    faultID `json:"fault_id"`
	Status     string  `json:"status"`
	Technician string  `json:"technician,omitempty"`
}

func (h *handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := decodeBody(r, &req, false); err != nil {
		h.writeError(w, err)
		return
	}
	if req.FaultID == "" {
		h.writeError(w, badRequest("fault_id is required"))
		return
	}
	to, err := model.ParseStatus(req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	f, err := h.svc.TransitionFault(r.Context(), string(req.FaultID), to, req.Technician)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (h *handler) deleteFault(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteFault(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type scheduleRequest struct {
	NumTechnicians *int `json:"num_technicians"`
}

func (h *handler) schedule(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		h.writeError(w, badRequest(err.Error()))
		return
	}
	var req scheduleRequest
	if err := decodeBody(r, &req, true); err != nil {
		h.writeError(w, err)
		return
	}
	n := h.svc.DefaultTechnicians()
	if req.NumTechnicians != nil {
		n = *req.NumTechnicians
	}
	res, err := h.svc.Schedule(r.Context(), n)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if res.Assignments == nil {
		res.Assignments = []scheduler.TechnicianAssignment{}
	}
	w.Header().Set("Content-Type", format.ContentType())
	if format == export.FormatCSV {
		w.Header().Set("Content-Disposition", "attachment; filename=schedule-"+res.RunID+".csv")
	}
	w.WriteHeader(http.StatusOK)
	if err := export.Write(w, format, res); err != nil {
		h.log.Errorf("write schedule response: %v", err)
	}
}

type studentView struct {
	model.Student
	DisplayName string `json:"display_name"`
}

func (h *handler) students(w http.ResponseWriter, r *http.Request) {
	students, err := h.svc.Students(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	out := make([]studentView, 0, len(students))
	for _, s := range students {
		parts := []string{s.FullName()}
		if s.StudentID != "" {
			parts = append(parts, s.StudentID)
		}
		parts = append(parts, s.School())
		out = append(out, studentView{Student: s, DisplayName: strings.Join(parts, " | ")})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	q, err := parseRunQuery(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	recs, err := h.svc.Runs(r.Context(), q)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []runlog.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func parseRunQuery(r *http.Request) (runlog.Query, error) {
	v := r.URL.Query()
	q := runlog.Query{School: v.Get("school"), Limit: 50}
	for key, dst := range map[string]*time.Time{"since": &q.Start, "until": &q.End} {
		if s := v.Get(key); s != "" {
			t, err := time.Parse(time.RFC3339, s)
			if err != nil {
				return q, badRequest(key + " must be an RFC 3339 timestamp")
			}
			*dst = t
		}
	}
	for key, dst := range map[string]*int{"technician": &q.TechnicianID, "limit": &q.Limit} {
		if s := v.Get(key); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 0 {
				return q, badRequest(key + " must be a non-negative integer")
			}
			*dst = n
		}
	}
	return q, nil
}

type requestError struct{ msg string }

func (e requestError) Error() string { return e.msg }

func badRequest(msg string) error { return requestError{msg: msg} }

func decodeBody(r *http.Request, out any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		if errors.Is(err, io.EOF) && allowEmpty {
			return nil
		}
		return badRequest("invalid request body: " + err.Error())
	}
	return nil
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr requestError
	switch {
	case errors.As(err, &reqErr),
		errors.Is(err, store.ErrInvalidFault),
		errors.Is(err, model.ErrUnknownStatus),
		errors.Is(err, scheduler.ErrInvalidTechnicianCount):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrFaultNotFound),
		errors.Is(err, runlog.ErrDisabled):
		return http.StatusNotFound
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, scheduler.ErrMissingCreatedAt),
		errors.Is(err, scheduler.ErrInvalidFault):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	if code == http.StatusInternalServerError {
		h.log.Errorf("request failed: %v", err)
		monitoring.CaptureException(err, map[string]string{"component": "api"})
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
