package apify

import (
	"encoding/json"
	"time"
)

// RunStatus is the status vocabulary of the actor-run API.
type RunStatus string

const (
	StatusReady     RunStatus = "READY"
	StatusRunning   RunStatus = "RUNNING"
	StatusSucceeded RunStatus = "SUCCEEDED"
	StatusFailed    RunStatus = "FAILED"
	StatusTimingOut RunStatus = "TIMING-OUT"
	StatusTimedOut  RunStatus = "TIMED-OUT"
	StatusAborting  RunStatus = "ABORTING"
	StatusAborted   RunStatus = "ABORTED"
)

// JobStatus is the normalized lifecycle of a scrape job.
type JobStatus string

const (
	JobPending   JobStatus = "PENDING"
	JobSucceeded JobStatus = "SUCCEEDED"
	JobFailed    JobStatus = "FAILED"
	JobAborted   JobStatus = "ABORTED"
	JobTimedOut  JobStatus = "TIMED_OUT"
)

// Normalize maps a run status onto JobStatus. Transitional and unknown
// statuses are pending.
func (s RunStatus) Normalize() JobStatus {
	switch s {
	case StatusSucceeded:
		return JobSucceeded
	case StatusFailed:
		return JobFailed
	case StatusAborted:
		return JobAborted
	case StatusTimedOut:
		return JobTimedOut
	default:
		return JobPending
	}
}

// IsTerminal reports whether no further transition is possible.
func (s JobStatus) IsTerminal() bool {
	return s != JobPending
}

// Proxy selects the scraping service's proxy pool.
type Proxy struct {
	UseApifyProxy    bool     `json:"useApifyProxy"`
	ApifyProxyGroups []string `json:"apifyProxyGroups,omitempty"`
}

// ActorInput is the run configuration accepted by the Instagram actors.
// Only the fields an actor understands need to be set.
type ActorInput struct {
	Usernames        []string `json:"usernames,omitempty"`
	Username         []string `json:"username,omitempty"`
	DirectURLs       []string `json:"directUrls,omitempty"`
	ResultsLimit     int      `json:"resultsLimit,omitempty"`
	ResultsType      string   `json:"resultsType,omitempty"`
	SearchType       string   `json:"searchType,omitempty"`
	ScrapePosts      *bool    `json:"scrapePosts,omitempty"`
	ScrapeStories    *bool    `json:"scrapeStories,omitempty"`
	ScrapeHighlights *bool    `json:"scrapeHighlights,omitempty"`
	ScrapeFollowers  *bool    `json:"scrapeFollowers,omitempty"`
	ScrapeFollowing  *bool    `json:"scrapeFollowing,omitempty"`
	Proxy            *Proxy   `json:"proxy,omitempty"`
}

// JobHandle identifies a launched run.
type JobHandle struct {
	JobID     string `json:"jobId"`
	ActorID   string `json:"actorId"`
	DatasetID string `json:"datasetId,omitempty"`
}

// Run is the subset of the actor-run object goingviral reads.
type Run struct {
	ID               string     `json:"id"`
	ActID            string     `json:"actId"`
	Status           RunStatus  `json:"status"`
	StatusMessage    string     `json:"statusMessage,omitempty"`
	DefaultDatasetID string     `json:"defaultDatasetId"`
	StartedAt        *time.Time `json:"startedAt,omitempty"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// envelope is the {"data": ...} wrapper around every API object.
type envelope[T any] struct {
	Data T `json:"data"`
}

// Items is a dataset page kept undecoded so callers can both transform it
// and echo it back verbatim.
type Items []json.RawMessage
