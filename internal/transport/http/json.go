package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"arithmetic-practice-service/internal/domain"
)

// envelope is the response shape for every JSON endpoint.
type envelope struct {
	Code    int    `json:"code"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, data any, message string) {
	writeEnvelope(w, http.StatusOK, envelope{Code: http.StatusOK, Data: data, Message: message})
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeEnvelope(w, status, envelope{Code: status, Message: err.Error()})
}

func writeEnvelope(w http.ResponseWriter, status int, body envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("encode response: %v", err)
	}
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidGrade),
		errors.Is(err, domain.ErrMalformedInput),
		errors.Is(err, domain.ErrInvalidOperation),
		errors.Is(err, domain.ErrDivisionByZero):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrProblemNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
