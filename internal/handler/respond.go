package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/thebackstage/backstage/internal/repository"
	"github.com/thebackstage/backstage/internal/service"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(v)
	if err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeServiceError maps domain errors onto HTTP statuses. Anything unmapped
// is a 500 with a generic body; the real error goes to the log only.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrGateNotFound),
		errors.Is(err, service.ErrSubmissionNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrGateInactive),
		errors.Is(err, service.ErrGateExpired):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrDuplicateSubmission):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrConsentRequired),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrFileRequired),
		errors.Is(err, service.ErrArtistNameRequired),
		errors.Is(err, service.ErrNoEmailColumn),
		errors.Is(err, service.ErrEmptyImport):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrRequirementsNotMet):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrSubmissionGateMismatch):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrGateLimit):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, repository.ErrDuplicateSlug):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTokenUsed),
		errors.Is(err, service.ErrStateUsed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrTokenExpired),
		errors.Is(err, service.ErrStateExpired):
		writeError(w, http.StatusGone, err.Error())
	case errors.Is(err, service.ErrTokenInvalid),
		errors.Is(err, service.ErrStateInvalid),
		errors.Is(err, service.ErrGateFileUnavailable):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrStateProviderMismatch),
		errors.Is(err, service.ErrStateVerifierMissing),
		errors.Is(err, service.ErrStateNotForSubmission),
		errors.Is(err, service.ErrStateNotForUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidMagicLink):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrEmailAlreadyExists):
		writeError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

func decodeJSON(r *http.Request, v any) error {
	defer func() { _ = r.Body.Close() }()
	dec := json.NewDecoder(r.Body)
	return dec.Decode(v)
}
