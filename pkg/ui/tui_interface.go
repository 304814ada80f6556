package ui

import "time"

// Reporter receives progress from fetches. ProgressDisplay prints it on
// the console and the dashboard shows it in its status panel.
type Reporter interface {
	RunStatus(username, runID string, attempt, maxAttempts int, status string)
	FetchDone(username string, posts int, elapsed time.Duration)
	FetchFailed(username string, err error)
	LogInfo(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
}
