package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/MimoJanra/AuditPulse/internal/auditor"
	"github.com/MimoJanra/AuditPulse/internal/delivery"
	"github.com/MimoJanra/AuditPulse/internal/models"
	"github.com/MimoJanra/AuditPulse/internal/report"
	"github.com/MimoJanra/AuditPulse/internal/service"
	"github.com/MimoJanra/AuditPulse/internal/storage"
)

type Server struct {
	Service  *service.Service
	Delivery *delivery.Service
	Limiter  *KeyedLimiter
	Metrics  http.Handler
	Log      *zap.Logger
}

type ctxKey struct{}

func requester(r *http.Request) *models.Subscriber {
	sub, _ := r.Context().Value(ctxKey{}).(*models.Subscriber)
	return sub
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	http.Error(w, msg, status)
}

// writeServiceError maps domain errors onto HTTP statuses. Messages for 403
// and 5xx never carry record details.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auditor.ErrInvalidTarget),
		errors.Is(err, delivery.ErrInvalidAddress),
		errors.Is(err, service.ErrInvalidAccount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, service.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrDuplicateEmail):
		writeError(w, http.StatusConflict, "email already registered")
	case errors.Is(err, report.ErrRender):
		writeError(w, http.StatusInternalServerError, "report generation failed")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusServiceUnavailable, "request cancelled")
	default:
		s.Log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// authenticate resolves HTTP Basic credentials to a subscriber.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, password, ok := r.BasicAuth()
		if !ok {
			w.Header().Set("WWW-Authenticate", `Basic realm="auditpulse"`)
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		sub, err := s.Service.Authenticate(r.Context(), email, password)
		if err != nil {
			if errors.Is(err, service.ErrInvalidCredentials) {
				w.Header().Set("WWW-Authenticate", `Basic realm="auditpulse"`)
			}
			s.writeServiceError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, sub)))
	})
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.Log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func recordID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

type credentialsRequest struct {
	Email    string `json:"email" example:"ops@example.org"`
	Password string `json:"password" example:"correct horse"`
}

type auditRequest struct {
	TargetURL string `json:"target_url" example:"https://example.com"`
}

type scheduleRequest struct {
	TargetURL       string `json:"target_url" example:"https://example.org"`
	DeliveryAddress string `json:"delivery_address" example:"ops@example.org"`
}

// Health godoc
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200 {object} map[string]string
// @Router   /healthz [get]
func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Register godoc
// @Summary  Create a subscriber account
// @Tags     accounts
// @Accept   json
// @Produce  json
// @Param    body body credentialsRequest true "Credentials"
// @Success  201 {object} models.Subscriber
// @Failure  400 {string} string
// @Failure  409 {string} string
// @Router   /register [post]
func (s *Server) Register(w http.ResponseWriter, r *http.Request) {
	var body credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	sub, err := s.Service.Register(r.Context(), body.Email, body.Password)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, sub)
}

// Dashboard godoc
// @Summary   Recent reports and schedule state of the caller
// @Tags      reports
// @Produce   json
// @Security  BasicAuth
// @Success   200 {object} models.Dashboard
// @Router    /dashboard [get]
func (s *Server) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.Service.Dashboard(r.Context(), requester(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// RunAudit godoc
// @Summary   Audit a website now
// @Tags      reports
// @Accept    json
// @Produce   json
// @Security  BasicAuth
// @Param     body body auditRequest true "Target"
// @Success   201 {object} models.AuditSnapshot
// @Failure   400 {string} string
// @Failure   429 {string} string
// @Router    /audits [post]
func (s *Server) RunAudit(w http.ResponseWriter, r *http.Request) {
	sub := requester(r)
	if !s.Limiter.Allow(sub.ID) {
		writeError(w, http.StatusTooManyRequests, "audit rate limit exceeded, try again later")
		return
	}

	var body auditRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	snap, err := s.Service.RunAudit(r.Context(), sub, body.TargetURL)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, snap)
}

// ViewReport godoc
// @Summary   Categorized report
// @Tags      reports
// @Produce   json
// @Security  BasicAuth
// @Param     id path int true "Record ID"
// @Success   200 {object} service.ReportView
// @Failure   403 {string} string
// @Failure   404 {string} string
// @Router    /reports/{id} [get]
func (s *Server) ViewReport(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	view, err := s.Service.ViewReport(r.Context(), requester(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DownloadReport godoc
// @Summary   Report as PDF
// @Tags      reports
// @Produce   application/pdf
// @Security  BasicAuth
// @Param     id path int true "Record ID"
// @Success   200 {file} binary
// @Failure   403 {string} string
// @Failure   404 {string} string
// @Failure   500 {string} string
// @Router    /reports/{id}/pdf [get]
func (s *Server) DownloadReport(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid report id")
		return
	}
	dl, err := s.Service.DownloadReport(r.Context(), requester(r), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", dl.ContentType)
	w.Header().Set("Content-Disposition", `inline; filename="`+dl.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(dl.Data)
}

// Schedule godoc
// @Summary   Schedule daily report delivery
// @Tags      schedule
// @Accept    json
// @Produce   json
// @Security  BasicAuth
// @Param     body body scheduleRequest true "Schedule"
// @Success   202 {object} delivery.ScheduleResult
// @Failure   400 {string} string
// @Router    /schedule [post]
func (s *Server) Schedule(w http.ResponseWriter, r *http.Request) {
	var body scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	res, err := s.Delivery.Schedule(r.Context(), requester(r).ID, body.TargetURL, body.DeliveryAddress)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, res)
}

// Unschedule godoc
// @Summary   Stop daily report delivery
// @Tags      schedule
// @Security  BasicAuth
// @Success   204
// @Router    /schedule [delete]
func (s *Server) Unschedule(w http.ResponseWriter, r *http.Request) {
	if err := s.Delivery.Unschedule(r.Context(), requester(r).ID); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Admin godoc
// @Summary   All subscribers and the latest reports
// @Tags      admin
// @Produce   json
// @Security  BasicAuth
// @Success   200 {object} models.AdminOverview
// @Failure   403 {string} string
// @Router    /admin [get]
func (s *Server) Admin(w http.ResponseWriter, r *http.Request) {
	o, err := s.Service.AdminOverview(r.Context(), requester(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
