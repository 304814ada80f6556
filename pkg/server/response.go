package server

import (
	"encoding/json"
	"net/http"

	"goingviral/pkg/apify"
	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// ErrorDetails is sent with failures that carry no upstream detail.
const ErrorDetails = "Check the function logs for more information"

// Envelope is the body of every JSON response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Raw     apify.Items `json:"raw,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details string      `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// functionError answers a fetch function failure. Statuses follow the
// strict_status_codes setting.
func (s *Server) functionError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err, s.cfg.StrictStatusCodes)
}

// apiError answers a failure on the supporting routes, which always map
// error kinds to their own status.
func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	s.writeError(w, r, err, true)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, strict bool) {
	status := errors.HTTPStatus(err, strict)
	logger.FromContext(r.Context(), s.logger).WithError(err).WarnWithFields("request failed", map[string]interface{}{
		"path":       r.URL.Path,
		"error_type": string(errors.TypeOf(err)),
		"status":     status,
	})
	details := errors.Detail(err)
	if details == "" {
		details = ErrorDetails
	}
	writeJSON(w, status, Envelope{
		Success: false,
		Error:   errors.Message(err),
		Details: details,
	})
}
