package server

import (
	"net/http"

	"goingviral/pkg/identity"
)

func (s *Server) routes() {
	gate := func(h http.HandlerFunc) http.Handler { return h }
	if s.cfg.RequireSession {
		gate = func(h http.HandlerFunc) http.Handler {
			return identity.RequireSession(s.ident, s.functionError)(h)
		}
	}

	s.mux.HandleFunc("GET /healthz", s.handleHealth)
	s.mux.HandleFunc("GET /api/v1/variants", s.handleVariants)

	s.mux.Handle("POST /functions/v1/{variant}", gate(s.handleFunction))
	s.mux.Handle("GET /api/v1/accounts/{username}/snapshots", gate(s.handleSnapshots))

	s.mux.HandleFunc("GET /api/v1/demo/posts", s.handleDemoPosts)
	s.mux.HandleFunc("GET /api/v1/demo/growth", s.handleDemoGrowth)

	s.mux.HandleFunc("POST /auth/v1/magic-link", s.handleMagicLink)
	if s.ident != nil {
		s.mux.Handle("GET /auth/v1/session", identity.RequireSession(s.ident, s.apiError)(http.HandlerFunc(s.handleSession)))
	}
}
