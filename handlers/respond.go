package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timekeeper/hours"
	"timekeeper/logger"
	"timekeeper/services"
	"timekeeper/workflow"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type ErrorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	// the status line is already out, so a failed encode can only be logged
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Logger().Error().Err(err).Int("status", status).Msg("encode response")
	}
}

// writeError maps domain errors to a status code. Anything unrecognised is
// logged and reported as a bare 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error().Err(err).Msg("request failed")
		writeJSON(w, status, ErrorResponse{Error: "internal server error"})
		return
	}
	writeJSON(w, status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var (
		invalidHours *hours.InvalidHoursError
		policy       *hours.PolicyResolutionError
		locked       *workflow.RecordLockedError
		transition   *workflow.TransitionError
		validation   validator.ValidationErrors
	)
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, workflow.ErrStateConflict),
		errors.As(err, &locked),
		errors.As(err, &transition):
		return http.StatusConflict
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, hours.ErrWeekEndingNotSaturday),
		errors.Is(err, hours.ErrDateOutsideWeek),
		errors.Is(err, workflow.ErrAttestationRequired),
		errors.Is(err, workflow.ErrReasonRequired),
		errors.Is(err, errBadRequest),
		errors.As(err, &invalidHours),
		errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &policy):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, services.ErrNotFound)
	}
	return err
}

func badRequest(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// decode reads a JSON body into dst and runs its validate tags.
func decode(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return validate.Struct(dst)
}

func urlID(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 32)
	if err != nil || id == 0 {
		return 0, badRequest("invalid %s", name)
	}
	return uint(id), nil
}

func queryUint(r *http.Request, name string) (uint, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, badRequest("invalid %s", name)
	}
	return uint(id), nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	return parseDate(r.URL.Query().Get(name), name)
}

func parseDate(raw, name string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(hours.DateLayout, raw)
	if err != nil {
		return time.Time{}, badRequest("%s must be a date like 2006-01-02", name)
	}
	return t, nil
}

func queryBool(r *http.Request, name string) bool {
	v, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return v
}
