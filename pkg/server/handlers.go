package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"goingviral/pkg/apify"
	"goingviral/pkg/errors"
	"goingviral/pkg/identity"
	"goingviral/pkg/logger"
	"goingviral/pkg/metrics"
	"goingviral/pkg/mockdata"
	"goingviral/pkg/storage"
)

const (
	maxBodyBytes     = 1 << 20
	maxDemoPosts     = 500
	maxDemoDays      = 365
	defaultDemoDays  = 30
	defaultSnapshots = 30
)

// FunctionRequest is the body of a fetch function call.
type FunctionRequest struct {
	Username string `json:"username"`
	Debug    bool   `json:"debug,omitempty"`
}

// MagicLinkRequest is the body of a login link request.
type MagicLinkRequest struct {
	Email      string `json:"email"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// decodeBody reads a JSON body into v. An empty body leaves v untouched.
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !stderrors.Is(err, io.EOF) {
		return errors.Validation("Invalid JSON body")
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"app":       AppName,
		"status":    "ok",
		"startedAt": s.startedAt,
		"variants":  s.fetcher.Variants().Names(),
	})
}

type variantInfo struct {
	Name         string `json:"name"`
	ActorID      string `json:"actorId"`
	PollInterval string `json:"pollInterval"`
	MaxAttempts  int    `json:"maxAttempts"`
	Engagement   string `json:"engagement"`
}

func (s *Server) handleVariants(w http.ResponseWriter, r *http.Request) {
	all := s.fetcher.Variants().All()
	out := make([]variantInfo, 0, len(all))
	for _, v := range all {
		out = append(out, variantInfo{
			Name:         v.Name,
			ActorID:      v.ActorID,
			PollInterval: v.PollInterval.String(),
			MaxAttempts:  v.MaxAttempts,
			Engagement:   string(v.Formula),
		})
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: out})
}

func (s *Server) handleFunction(w http.ResponseWriter, r *http.Request) {
	variant := r.PathValue("variant")

	var req FunctionRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.functionError(w, r, err)
		return
	}

	ctx := r.Context()
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	result, err := s.fetcher.Fetch(ctx, variant, req.Username)
	if err != nil {
		s.functionError(w, r, err)
		return
	}

	resp := Envelope{
		Success: true,
		Data:    result.Posts,
		Message: fmt.Sprintf("Successfully fetched %d posts for @%s", len(result.Posts), result.Username),
	}
	if req.Debug {
		resp.Raw = result.Raw
	}
	writeJSON(w, http.StatusOK, resp)
}

type snapshotHistory struct {
	Username  string             `json:"username"`
	Snapshots []storage.Snapshot `json:"snapshots"`
	Growth    []metrics.Delta    `json:"growth"`
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.apiError(w, r, errors.NotFound("Snapshot storage is not enabled"))
		return
	}
	username := apify.SanitizeUsername(r.PathValue("username"))
	if !apify.IsValidUsername(username) {
		s.apiError(w, r, errors.Validation("A valid username is required"))
		return
	}
	limit, err := queryInt(r, "limit", defaultSnapshots, 0, 1000)
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	snaps, err := s.store.List(r.Context(), username, limit)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	growth := metrics.Growth(storage.FollowerPoints(snaps))
	if growth == nil {
		growth = []metrics.Delta{}
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Data:    snapshotHistory{Username: username, Snapshots: snaps, Growth: growth},
	})
}

func (s *Server) handleDemoPosts(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "count", mockdata.DefaultPostCount, 1, maxDemoPosts)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	gen := s.demo
	if raw := r.URL.Query().Get("seed"); raw != "" {
		seed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.apiError(w, r, errors.Validation("seed must be an integer"))
			return
		}
		gen = mockdata.New(seed, s.now)
	}

	posts := gen.Posts(n)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    posts,
		"summary": metrics.Summarize(posts),
	})
}

func (s *Server) handleDemoGrowth(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultDemoDays, 2, maxDemoDays)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	points := s.demo.FollowerGrowth(days)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    points,
		"growth":  metrics.Growth(points),
	})
}

func (s *Server) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	if s.ident == nil {
		s.apiError(w, r, errors.Config("Supabase is not configured"))
		return
	}

	var req MagicLinkRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.apiError(w, r, err)
		return
	}
	email, err := identity.NormalizeEmail(req.Email)
	if err != nil {
		s.apiError(w, r, err)
		return
	}

	if s.linkLimit != nil && !s.linkLimit.Allow(email) {
		logger.LogRateLimit(logger.FromContext(r.Context(), s.logger), "magic-link")
		retry := s.linkLimit.RetryAfter(email)
		w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())+1))
		s.apiError(w, r, errors.RateLimited("Too many login links requested, try again later"))
		return
	}

	redirect := req.RedirectTo
	if redirect == "" {
		redirect = s.identCfg.RedirectTo
	}
	if err := s.ident.SendMagicLink(r.Context(), email, redirect); err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "We've sent you a magic link to sign in.",
	})
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	u, ok := identity.UserFromContext(r.Context())
	if !ok {
		s.apiError(w, r, errors.Auth("Missing session"))
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: u})
}

func queryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < lo || n > hi {
		return 0, errors.Validation(fmt.Sprintf("%s must be between %d and %d", key, lo, hi))
	}
	return n, nil
}
