package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/skynet/fieldvisit-bfa/internal/domain"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Shared helper functions
// ============================================================

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeDownload sends a file as an attachment.
func writeDownload(w http.ResponseWriter, d *domain.Download) {
	w.Header().Set("Content-Type", d.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", d.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(d.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(d.Body)
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formID reads an optional positive integer form field.
func formID(r *http.Request, name string) *int64 {
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" {
		return nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}

// formFloat reads an optional float form field.
func formFloat(r *http.Request, name string) *float64 {
	v := strings.TrimSpace(r.PostFormValue(name))
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return nil
	}
	return &f
}

// redirectWith sends the browser to path with a flash parameter.
func redirectWith(w http.ResponseWriter, r *http.Request, path, key, msg string) {
	u := path
	if msg != "" {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		u += sep + url.Values{key: {msg}}.Encode()
	}
	http.Redirect(w, r, u, http.StatusSeeOther)
}

// alertFor turns an error into the text of the page's dismissible alert.
// Backend and validation messages are shown verbatim.
func alertFor(err error) string {
	var (
		apiErr      *domain.ErrAPI
		validation  *domain.ErrValidation
		location    *domain.ErrLocationUnavailable
		notify      *domain.ErrNotification
		notFound    *domain.ErrNotFound
		circuitOpen *domain.ErrCircuitOpen
		timeout     *domain.ErrTimeout
		network     *domain.ErrNetwork
		forbidden   *domain.ErrForbidden
	)
	switch {
	case errors.As(err, &validation):
		return validation.Message
	case errors.As(err, &location):
		return location.Error()
	case errors.As(err, &notify):
		return "El reporte se guardó, pero no se pudo notificar al cliente."
	case errors.As(err, &apiErr) && apiErr.Message != "":
		return apiErr.Message
	case errors.As(err, &forbidden):
		if forbidden.Message != "" {
			return forbidden.Message
		}
		return "No tienes permiso para ver esta información."
	case errors.As(err, &notFound):
		return "No se encontró el recurso solicitado."
	case errors.As(err, &circuitOpen), errors.As(err, &network):
		return "No se pudo conectar con el servidor. Intenta de nuevo en unos momentos."
	case errors.As(err, &timeout):
		return "El servidor tardó demasiado en responder."
	}
	return "Ocurrió un error inesperado."
}

// handleServiceError maps domain errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var notFound *domain.ErrNotFound
	var circuitOpen *domain.ErrCircuitOpen
	var timeout *domain.ErrTimeout
	var network *domain.ErrNetwork
	var validation *domain.ErrValidation
	var location *domain.ErrLocationUnavailable
	var forbidden *domain.ErrForbidden
	var unauthorized *domain.ErrUnauthorized
	var apiErr *domain.ErrAPI

	switch {
	case errors.As(err, &notFound):
		logger.Debug("not found", zap.String("error", err.Error()))
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &circuitOpen):
		logger.Error("circuit breaker open", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.As(err, &timeout):
		logger.Error("request timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, err.Error())
	case errors.As(err, &network):
		logger.Error("backend unreachable", zap.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &validation):
		logger.Debug("validation error", zap.String("error", err.Error()))
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &location):
		logger.Debug("location unavailable", zap.String("reason", location.Reason))
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &forbidden):
		logger.Warn("forbidden access", zap.String("error", err.Error()))
		writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &unauthorized):
		logger.Warn("unauthorized", zap.String("error", err.Error()))
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &apiErr) && apiErr.Status < 500:
		logger.Debug("backend rejected request", zap.Int("status", apiErr.Status), zap.String("error", err.Error()))
		writeError(w, apiErr.Status, err.Error())
	default:
		logger.Error("unhandled error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
