package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const allowedMethods = "GET, POST, OPTIONS"

// cors adds the CORS headers to every response and answers preflight
// requests before any route runs.
func (s *Server) cors(next http.Handler) http.Handler {
	origin := s.cfg.AllowedOrigin
	if origin == "" {
		origin = "*"
	}
	headers := s.cfg.AllowedHeaders
	if headers == "" {
		headers = "authorization, x-client-info, apikey, content-type"
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Headers", headers)
		h.Set("Access-Control-Allow-Methods", allowedMethods)

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		l := s.logger.WithField("request_id", id)
		next.ServeHTTP(w, r.WithContext(logger.IntoContext(r.Context(), l)))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		if rec.status == 0 {
			rec.status = http.StatusOK
		}
		elapsed := float64(s.now().Sub(start)) / float64(time.Millisecond)
		logger.LogRequest(logger.FromContext(r.Context(), s.logger), r.Method, r.URL.Path, rec.status, elapsed)
	})
}

// recoverPanics turns a handler panic into the regular failure envelope.
func (s *Server) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rv := recover()
			if rv == nil {
				return
			}
			if rv == http.ErrAbortHandler {
				panic(rv)
			}
			logger.FromContext(r.Context(), s.logger).ErrorWithFields("handler panicked", map[string]interface{}{
				"path":  r.URL.Path,
				"panic": fmt.Sprint(rv),
			})
			s.writeError(w, r, &errors.Error{Type: errors.ErrorTypeUnknown, Message: "Internal server error"}, false)
		}()
		next.ServeHTTP(w, r)
	})
}
