package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"FortuneBox/internal/logger"
	"FortuneBox/internal/services"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("encode response", zap.Error(err))
	}
}

func writeOK(w http.ResponseWriter, data any, message string) {
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, status int, msg, detail string) {
	writeJSON(w, status, envelope{Success: false, Error: msg, Message: detail})
}

func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindInvalidState, services.KindValidation, services.KindPaymentDeclined:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError maps a service error to its status. Errors outside the
// domain are logged and replaced by fallback.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	var de *services.Error
	if !errors.As(err, &de) || de.Message == "" {
		logger.Error(fallback,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusInternalServerError, fallback, "")
		return
	}
	status := statusFor(de.Kind)
	if status == http.StatusInternalServerError {
		logger.Error(de.Message,
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("kind", de.Kind.String()),
			zap.Error(err))
	}
	writeError(w, status, de.Message, de.Detail)
}
