package apify

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

const (
	// DefaultBaseURL is the public actor-run API
	DefaultBaseURL = "https://api.apify.com/v2"

	// Actors used by the built-in variants
	ProfileScraperActor = "apify~instagram-profile-scraper"
	PostScraperActor    = "apify~instagram-post-scraper"
	GeneralScraperActor = "apify~instagram-scraper"
)

// ActorPath converts "owner/name" into the "owner~name" form used in URLs.
func ActorPath(actorID string) string {
	return strings.ReplaceAll(strings.TrimSpace(actorID), "/", "~")
}

func withToken(raw, token string) string {
	params := url.Values{}
	params.Set("token", token)
	return raw + "?" + params.Encode()
}

// RunsURL is where runs of actorID are launched.
func RunsURL(baseURL, actorID, token string) string {
	return withToken(fmt.Sprintf("%s/acts/%s/runs", baseURL, url.PathEscape(ActorPath(actorID))), token)
}

// RunURL reports the status of one run.
func RunURL(baseURL, actorID, runID, token string) string {
	return withToken(fmt.Sprintf("%s/acts/%s/runs/%s", baseURL, url.PathEscape(ActorPath(actorID)), url.PathEscape(runID)), token)
}

// RunDatasetItemsURL lists the items of a run's default dataset.
func RunDatasetItemsURL(baseURL, actorID, runID, token string) string {
	return withToken(fmt.Sprintf("%s/acts/%s/runs/%s/dataset/items", baseURL, url.PathEscape(ActorPath(actorID)), url.PathEscape(runID)), token)
}

// DatasetItemsURL lists the items of a dataset by id.
func DatasetItemsURL(baseURL, datasetID, token string) string {
	return withToken(fmt.Sprintf("%s/datasets/%s/items", baseURL, url.PathEscape(datasetID)), token)
}

var tokenParam = regexp.MustCompile(`token=[^&"\s]*`)

// Redact hides the token query parameter of a request URL.
func Redact(u string) string {
	return tokenParam.ReplaceAllString(u, "token=REDACTED")
}

// SanitizeUsername trims whitespace and one leading "@".
func SanitizeUsername(username string) string {
	username = strings.TrimSpace(username)
	username = strings.TrimPrefix(username, "@")
	return strings.TrimSpace(username)
}

var validUsername = regexp.MustCompile(`^[A-Za-z0-9._]{1,30}$`)

// IsValidUsername reports whether username could be an Instagram handle.
func IsValidUsername(username string) bool {
	return validUsername.MatchString(username)
}

// ProfileURL is the public profile page of username.
func ProfileURL(username string) string {
	return fmt.Sprintf("https://www.instagram.com/%s/", username)
}
