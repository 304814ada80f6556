// Package apifytest runs an in-process fake of the actor-run API.
package apifytest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"goingviral/pkg/apify"
)

// Token is the only token the fake accepts.
const Token = "test-token"

// Launch records one accepted run launch.
type Launch struct {
	ActorID string
	Input   map[string]interface{}
}

type fakeRun struct {
	id        string
	actorID   string
	datasetID string
	polls     int
}

// Server simulates launch, status, and dataset endpoints. Every run walks
// through the scripted statuses, one per status request, and stays on the
// last one.
type Server struct {
	*httptest.Server

	mu             sync.Mutex
	statuses       []apify.RunStatus
	items          []map[string]interface{}
	rawDataset     string
	launchStatus   int
	launchBody     string
	statusFailures int
	datasetStatus  int
	datasetFails   int
	launches       []Launch
	runs           map[string]*fakeRun

	seq          int64
	statusCalls  int64
	datasetCalls int64
	datasetByID  int64
}

// NewServer starts a fake that reports SUCCEEDED immediately and an empty
// dataset. It is closed when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		statuses: []apify.RunStatus{apify.StatusSucceeded},
		runs:     make(map[string]*fakeRun),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /acts/{actor}/runs", s.handleLaunch)
	mux.HandleFunc("GET /acts/{actor}/runs/{run}", s.handleStatus)
	mux.HandleFunc("GET /acts/{actor}/runs/{run}/dataset/items", s.handleRunItems)
	mux.HandleFunc("GET /datasets/{dataset}/items", s.handleDatasetItems)

	s.Server = httptest.NewServer(s.requireToken(mux))
	t.Cleanup(s.Close)
	return s
}

// Script sets the status sequence every run reports.
func (s *Server) Script(statuses ...apify.RunStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = statuses
}

// SetItems sets the dataset items returned for every run.
func (s *Server) SetItems(items ...map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.rawDataset = ""
}

// SetRawDataset makes dataset endpoints return body verbatim.
func (s *Server) SetRawDataset(body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rawDataset = body
}

// FailLaunch makes launches answer with status and body.
func (s *Server) FailLaunch(status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.launchStatus = status
	s.launchBody = body
}

// FailStatusChecks makes the next n status requests answer 502.
func (s *Server) FailStatusChecks(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statusFailures = n
}

// FailDataset makes dataset requests answer with status.
func (s *Server) FailDataset(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetStatus = status
}

// FailDatasetRequests makes only the next n dataset requests answer with
// status.
func (s *Server) FailDatasetRequests(n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.datasetFails = n
	s.datasetStatus = status
}

// Launches returns every accepted launch.
func (s *Server) Launches() []Launch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Launch, len(s.launches))
	copy(out, s.launches)
	return out
}

// StatusCalls counts status requests, failed ones included.
func (s *Server) StatusCalls() int { return int(atomic.LoadInt64(&s.statusCalls)) }

// DatasetCalls counts dataset requests on either path.
func (s *Server) DatasetCalls() int { return int(atomic.LoadInt64(&s.datasetCalls)) }

// DatasetByIDCalls counts requests on the /datasets/{id}/items path.
func (s *Server) DatasetByIDCalls() int { return int(atomic.LoadInt64(&s.datasetByID)) }

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != Token {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{
				"error": map[string]string{"type": "token-not-valid", "message": "Authentication token is not valid."},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var input map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid input"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.launchStatus != 0 {
		w.WriteHeader(s.launchStatus)
		_, _ = w.Write([]byte(s.launchBody))
		return
	}

	n := atomic.AddInt64(&s.seq, 1)
	run := &fakeRun{
		id:        fmt.Sprintf("run-%d", n),
		actorID:   r.PathValue("actor"),
		datasetID: fmt.Sprintf("dataset-%d", n),
	}
	s.runs[run.id] = run
	s.launches = append(s.launches, Launch{ActorID: run.actorID, Input: input})

	writeJSON(w, http.StatusCreated, map[string]interface{}{"data": s.runJSON(run, apify.StatusReady)})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.statusCalls, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.statusFailures > 0 {
		s.statusFailures--
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream unavailable"})
		return
	}

	run, ok := s.runs[r.PathValue("run")]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}

	i := run.polls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	run.polls++
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": s.runJSON(run, s.statuses[i])})
}

func (s *Server) handleRunItems(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	_, ok := s.runs[r.PathValue("run")]
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "run not found"})
		return
	}
	s.writeItems(w)
}

func (s *Server) handleDatasetItems(w http.ResponseWriter, r *http.Request) {
	atomic.AddInt64(&s.datasetByID, 1)
	s.writeItems(w)
}

func (s *Server) writeItems(w http.ResponseWriter) {
	atomic.AddInt64(&s.datasetCalls, 1)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.datasetStatus != 0 {
		status := s.datasetStatus
		if s.datasetFails > 0 {
			s.datasetFails--
			if s.datasetFails == 0 {
				s.datasetStatus = 0
			}
		}
		writeJSON(w, status, map[string]string{"error": "dataset unavailable"})
		return
	}
	if s.rawDataset != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(s.rawDataset))
		return
	}
	items := s.items
	if items == nil {
		items = []map[string]interface{}{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) runJSON(run *fakeRun, status apify.RunStatus) map[string]interface{} {
	return map[string]interface{}{
		"id":               run.id,
		"actId":            run.actorID,
		"status":           status,
		"defaultDatasetId": run.datasetID,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
