package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/leshachaplin/mmpgen/internal/apierror"
	"github.com/leshachaplin/mmpgen/internal/domain"
	"github.com/leshachaplin/mmpgen/internal/service"
)

type EventService interface {
	Sample(n, historicalDays int) []domain.Event
	ValidateRecords(records []domain.Record) (service.ValidationResult, error)
}

type Handler struct {
	events EventService
	logger zerolog.Logger
}

func NewHandler(events EventService, logger zerolog.Logger) *Handler {
	return &Handler{
		events: events,
		logger: logger,
	}
}

func (h *Handler) error(err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")

	var apiErr apierror.Error
	if !errors.As(err, &apiErr) {
		h.logger.Error().Err(err).Msg("Request failed.")
		apiErr = apierror.NewAPIError(err.Error(), http.StatusInternalServerError)
	}

	w.WriteHeader(apiErr.StatusCode())
	if err = json.NewEncoder(w).Encode(apiErr); err != nil {
		h.logger.Error().Err(err).Msg("Could not write error response.")
	}
}
