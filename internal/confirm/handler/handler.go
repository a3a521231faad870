// Package handler exposes the confirmation engine over HTTP for mobile
// clients: geofence transition reports, position fix uploads, manual
// resolution, and session inspection.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"egress/internal/confirm/models"
	"egress/internal/geo"
	"egress/internal/platform/middleware"
	"egress/internal/platform/ratelimit"
	"egress/pkg/domainerrors"
	"egress/pkg/sentinel"
)

// Engine defines the confirmation operations the transport layer needs.
type Engine interface {
	OnExitDetected(ctx context.Context, trackingSessionID string, fence geo.Fence, detectedAt time.Time) (*models.ExitSession, error)
	OnReEntryDetected(ctx context.Context, trackingSessionID string) error
	OnManualResolution(ctx context.Context, trackingSessionID string, action models.ManualAction) error
	ActiveSession(ctx context.Context, trackingSessionID string) (*models.ExitSession, error)
}

// FixReceiver accepts position fixes pushed by devices.
type FixReceiver interface {
	Report(trackingSessionID string, fix geo.Point)
}

// Handler handles geofence confirmation endpoints.
type Handler struct {
	logger       *slog.Logger
	engine       Engine
	fixes        FixReceiver
	jwtValidator middleware.JWTValidator
	fixLimiter   *ratelimit.SlidingWindow
}

// Option configures a Handler.
type Option func(*Handler)

// WithFixRateLimit throttles fix uploads per device.
func WithFixRateLimit(limiter *ratelimit.SlidingWindow) Option {
	return func(h *Handler) { h.fixLimiter = limiter }
}

// New creates a new confirmation Handler.
func New(
	engine Engine,
	fixes FixReceiver,
	logger *slog.Logger,
	jwtValidator middleware.JWTValidator,
	opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		engine:       engine,
		fixes:        fixes,
		jwtValidator: jwtValidator,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register registers the confirmation routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	confirmRouter := chi.NewRouter()
	confirmRouter.Use(middleware.Recovery(h.logger))
	confirmRouter.Use(middleware.RequestID)
	confirmRouter.Use(middleware.Logger(h.logger))
	confirmRouter.Use(middleware.Timeout(30 * time.Second))
	confirmRouter.Use(middleware.ContentTypeJSON)
	confirmRouter.Use(middleware.RequireAuth(h.jwtValidator, h.logger))
	confirmRouter.Post("/v1/geofence/exit", h.handleExitDetected)
	confirmRouter.Post("/v1/geofence/enter", h.handleReEntry)
	if h.fixLimiter != nil {
		confirmRouter.With(middleware.RateLimit(h.fixLimiter, h.logger)).
			Post("/v1/location/fix", h.handleLocationFix)
	} else {
		confirmRouter.Post("/v1/location/fix", h.handleLocationFix)
	}
	confirmRouter.Post("/v1/sessions/{trackingSessionID}/resolve", h.handleManualResolution)
	confirmRouter.Get("/v1/sessions/{trackingSessionID}", h.handleGetSession)

	r.Mount("/", confirmRouter)
}

type exitDetectedRequest struct {
	TrackingSessionID string    `json:"tracking_session_id"`
	Fence             geo.Fence `json:"fence"`
	DetectedAt        time.Time `json:"detected_at"`
}

// handleExitDetected opens a confirmation session for a reported boundary
// crossing. A repeat report for the same tracking session supersedes the
// session already in flight.
func (h *Handler) handleExitDetected(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req exitDetectedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid exit report",
			"request_id", requestID,
			"error", err.Error(),
		)
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.TrackingSessionID == "" {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "tracking_session_id is required"))
		return
	}
	detectedAt := req.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = time.Now().UTC()
	}

	session, err := h.engine.OnExitDetected(ctx, req.TrackingSessionID, req.Fence, detectedAt)
	if err != nil {
		if domainerrors.Is(err, domainerrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "rejected exit report",
				"request_id", requestID,
				"tracking_session_id", req.TrackingSessionID,
				"error", err.Error(),
			)
			writeError(w, err)
			return
		}
		h.logger.ErrorContext(ctx, "failed to open exit session",
			"request_id", requestID,
			"tracking_session_id", req.TrackingSessionID,
			"error", err.Error(),
		)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "failed to open exit session"))
		return
	}

	writeJSON(w, http.StatusAccepted, session)
}

type reEntryRequest struct {
	TrackingSessionID string `json:"tracking_session_id"`
}

// handleReEntry cancels any pending confirmation for the tracking session.
// Idempotent: a re-entry with nothing pending is a 204 no-op.
func (h *Handler) handleReEntry(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	var req reEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.TrackingSessionID == "" {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "tracking_session_id is required"))
		return
	}

	if err := h.engine.OnReEntryDetected(ctx, req.TrackingSessionID); err != nil {
		h.logger.ErrorContext(ctx, "failed to process re-entry",
			"request_id", requestID,
			"tracking_session_id", req.TrackingSessionID,
			"error", err.Error(),
		)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "failed to process re-entry"))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type locationFixRequest struct {
	TrackingSessionID string    `json:"tracking_session_id"`
	Latitude          float64   `json:"latitude"`
	Longitude         float64   `json:"longitude"`
	AccuracyMeters    float64   `json:"accuracy_m"`
	CapturedAt        time.Time `json:"captured_at"`
}

// handleLocationFix feeds a device-reported fix to any check currently waiting
// on one. Fixes with no waiter are dropped; 202 either way.
func (h *Handler) handleLocationFix(w http.ResponseWriter, r *http.Request) {
	var req locationFixRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.TrackingSessionID == "" {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "tracking_session_id is required"))
		return
	}
	capturedAt := req.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = time.Now().UTC()
	}

	h.fixes.Report(req.TrackingSessionID, geo.NewPoint(req.Latitude, req.Longitude, req.AccuracyMeters, capturedAt))
	w.WriteHeader(http.StatusAccepted)
}

type manualResolutionRequest struct {
	Action models.ManualAction `json:"action"`
}

// handleManualResolution applies a user decision (clock out now, or dismiss)
// to the pending session.
func (h *Handler) handleManualResolution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	trackingSessionID := chi.URLParam(r, "trackingSessionID")

	var req manualResolutionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domainerrors.New(domainerrors.CodeBadRequest, "invalid request body"))
		return
	}

	err := h.engine.OnManualResolution(ctx, trackingSessionID, req.Action)
	if err != nil {
		switch {
		case domainerrors.Is(err, domainerrors.CodeBadRequest):
			writeError(w, err)
		case domainerrors.Is(err, domainerrors.CodeNotFound):
			writeError(w, err)
		default:
			h.logger.ErrorContext(ctx, "failed to resolve session",
				"request_id", requestID,
				"tracking_session_id", trackingSessionID,
				"error", err.Error(),
			)
			writeError(w, domainerrors.New(domainerrors.CodeInternal, "failed to resolve session"))
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleGetSession returns the pending session for a tracking session, for
// client UI state after app restarts.
func (h *Handler) handleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trackingSessionID := chi.URLParam(r, "trackingSessionID")

	session, err := h.engine.ActiveSession(ctx, trackingSessionID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) || domainerrors.Is(err, domainerrors.CodeNotFound) {
			writeError(w, domainerrors.New(domainerrors.CodeNotFound, "no pending exit session"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to load session",
			"request_id", middleware.GetRequestID(ctx),
			"tracking_session_id", trackingSessionID,
			"error", err.Error(),
		)
		writeError(w, domainerrors.New(domainerrors.CodeInternal, "failed to load session"))
		return
	}

	writeJSON(w, http.StatusOK, session)
}
