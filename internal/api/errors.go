package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"drive-go/internal/auth"
	"drive-go/internal/drive"
)

type errorBody struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// statusOf maps an error to the HTTP status it is reported with.
func statusOf(err error) int {
	if errors.Is(err, auth.ErrInvalidToken) {
		return http.StatusUnauthorized
	}
	var bre *badRequestError
	if errors.As(err, &bre) {
		return http.StatusBadRequest
	}
	code, ok := drive.CodeOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch code {
	case drive.ErrNotFound:
		return http.StatusNotFound
	case drive.ErrConflict:
		return http.StatusConflict
	case drive.ErrBadRequest:
		return http.StatusBadRequest
	case drive.ErrForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writeError reports err as JSON. Internal errors are logged and their
// details kept from the client.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	msg := err.Error()

	var de *drive.Error
	switch {
	case errors.As(err, &de):
		msg = de.Message
	case status == http.StatusUnauthorized:
		msg = "Unauthorized"
	case status == http.StatusInternalServerError:
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		msg = "Internal server error"
	}

	writeJSON(w, status, errorBody{StatusCode: status, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type messageBody struct {
	Message string `json:"message"`
}
