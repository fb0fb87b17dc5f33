package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/leshachaplin/mmpgen/internal/apierror"
	"github.com/leshachaplin/mmpgen/internal/generator"
	"github.com/leshachaplin/mmpgen/internal/service"
	"github.com/leshachaplin/mmpgen/internal/storage/jsonl"
)

const (
	defaultGenerateEvents = 100
	maxGenerateEvents     = 10_000
	maxValidateBody       = 32 << 20

	contentTypeJSONL = "application/x-ndjson"
)

// Generate streams a freshly sampled batch as JSON lines.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	n, err := intParam(r, "n", defaultGenerateEvents, 1, maxGenerateEvents)
	if err != nil {
		h.error(err, w)
		return
	}
	days, err := intParam(r, "days", generator.DefaultHistoricalDays, 0, generator.MaxHistoricalDays)
	if err != nil {
		h.error(err, w)
		return
	}

	body, err := jsonl.Encode(h.events.Sample(n, days))
	if err != nil {
		h.error(err, w)
		return
	}

	w.Header().Set("Content-Type", contentTypeJSONL)
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(body); err != nil {
		h.logger.Warn().Err(err).Msg("Could not write generated events.")
	}
}

// Validate checks a JSON lines body. An invalid batch is answered with 422 and the report.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	records, err := jsonl.Decode(http.MaxBytesReader(w, r.Body, maxValidateBody))
	if err != nil {
		h.error(apierror.BadRequest(err.Error()), w)
		return
	}

	res, err := h.events.ValidateRecords(records)
	switch {
	case errors.Is(err, service.ErrInvalidBatch):
		h.respond(w, http.StatusUnprocessableEntity, res)
	case err != nil:
		h.error(apierror.BadRequest(err.Error()), w)
	default:
		h.respond(w, http.StatusOK, res)
	}
}

func (h *Handler) respond(w http.ResponseWriter, code int, data any) {
	if err := encodeJSONResponse(w, code, data); err != nil {
		h.logger.Warn().Err(err).Msg("Could not write response.")
	}
}

func intParam(r *http.Request, name string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || v > hi {
		return 0, apierror.BadRequest(fmt.Sprintf("%s must be an integer in [%d, %d]", name, lo, hi)).
			WithDetail("param", name)
	}
	return v, nil
}
