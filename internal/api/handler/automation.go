package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/mentionwatch/console/internal/api/middleware"
	"github.com/mentionwatch/console/internal/api/models"
	"github.com/mentionwatch/console/internal/api/response"
	"github.com/mentionwatch/console/internal/automation"
)

// AutomationHandler serves the automated fetch status and run requests.
type AutomationHandler struct {
	service *automation.Service
	logger  zerolog.Logger
}

// NewAutomationHandler creates an AutomationHandler.
func NewAutomationHandler(service *automation.Service, logger zerolog.Logger) *AutomationHandler {
	return &AutomationHandler{service: service, logger: logger}
}

// GetStatus handles GET /v1/automation/{userId}.
func (h *AutomationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.Status(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, r, toAutomationStatus(status))
}

// SetEnabled handles PUT /v1/automation/{userId}/enabled.
func (h *AutomationHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req models.SetEnabledRequest
	if err := response.DecodeJSON(w, r, &req); err != nil {
		response.BadRequest(w, r, err.Error(), nil)
		return
	}
	if errs := req.Validate(); len(errs) > 0 {
		response.BadRequest(w, r, "invalid request body", errs)
		return
	}

	status, err := h.service.SetEnabled(r.Context(), chi.URLParam(r, "userId"), *req.Enabled)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.OK(w, r, toAutomationStatus(status))
}

// RequestRun handles POST /v1/automation/{userId}/runs.
func (h *AutomationHandler) RequestRun(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	run, err := h.service.RequestRun(r.Context(), userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	response.Accepted(w, r, "/v1/automation/"+userID, models.RunAccepted{
		ID:          run.ID,
		UserID:      run.UserID,
		RequestedAt: models.Timestamp(run.RequestedAt),
	})
}

func (h *AutomationHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, automation.ErrSettingsNotFound):
		response.NotFound(w, r, "no automation settings for user")
	case errors.Is(err, automation.ErrNotEligible):
		response.Conflict(w, r, err.Error())
	case errors.Is(err, automation.ErrInvalidFrequency):
		response.Unprocessable(w, r, "automation needs a positive fetch frequency")
	default:
		h.logger.Error().Err(err).
			Str("request_id", middleware.GetRequestID(r.Context())).
			Str("user_id", chi.URLParam(r, "userId")).
			Msg("automation request failed")
		response.InternalError(w, r)
	}
}

func toAutomationStatus(s *automation.Status) models.AutomationStatus {
	return models.AutomationStatus{
		UserID:           s.Settings.UserID,
		Enabled:          s.Settings.Enabled,
		FrequencyMinutes: s.Settings.FrequencyMinutes,
		LastFetchAt:      models.TimestampPtr(s.Settings.LastFetchAt),
		Gate:             s.Gate,
		ToggleEnabled:    s.ToggleEnabled,
		StatusLine:       s.StatusLine,
	}
}
