package apify_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goingviral/pkg/apify"
	"goingviral/pkg/apify/apifytest"
	errs "goingviral/pkg/errors"
	"goingviral/pkg/logger"
)

// mockRoundTripper allows us to intercept HTTP requests
type mockRoundTripper struct {
	handler func(req *http.Request) (*http.Response, error)
}

func (m *mockRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	return m.handler(req)
}

func newResponse(statusCode int, body string) *http.Response {
	return &http.Response{
		StatusCode: statusCode,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
		Header:     make(http.Header),
	}
}

func newFakeClient(t *testing.T, log logger.Logger) (*apify.Client, *apifytest.Server) {
	t.Helper()
	srv := apifytest.NewServer(t)
	c := apify.NewClient(apifytest.Token, 5*time.Second, log, apify.WithBaseURL(srv.URL))
	return c, srv
}

func TestStartRun(t *testing.T) {
	c, srv := newFakeClient(t, nil)

	limit := true
	h, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{
		Usernames:    []string{"natgeo"},
		ResultsLimit: 100,
		ScrapePosts:  &limit,
		Proxy:        &apify.Proxy{UseApifyProxy: true, ApifyProxyGroups: []string{"RESIDENTIAL"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", h.JobID)
	assert.Equal(t, "dataset-1", h.DatasetID)
	assert.Equal(t, apify.ProfileScraperActor, h.ActorID)

	launches := srv.Launches()
	require.Len(t, launches, 1)
	assert.Equal(t, "apify~instagram-profile-scraper", launches[0].ActorID)
	assert.Equal(t, []interface{}{"natgeo"}, launches[0].Input["usernames"])
	assert.Equal(t, float64(100), launches[0].Input["resultsLimit"])
	assert.Equal(t, true, launches[0].Input["scrapePosts"])
	assert.NotContains(t, launches[0].Input, "scrapeStories")
	proxy := launches[0].Input["proxy"].(map[string]interface{})
	assert.Equal(t, true, proxy["useApifyProxy"])
}

func TestStartRunWithoutTokenMakesNoRequest(t *testing.T) {
	called := false
	hc := &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		called = true
		return newResponse(http.StatusCreated, `{"data":{"id":"x"}}`), nil
	}}}
	c := apify.NewClient("", time.Second, nil, apify.WithHTTPClient(hc))

	_, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeConfig))
	assert.Equal(t, "APIFY_API_KEY is not configured", errs.Message(err))
	assert.False(t, called)
	assert.False(t, c.HasToken())
}

func TestStartRunRejected(t *testing.T) {
	c, srv := newFakeClient(t, nil)
	srv.FailLaunch(http.StatusPaymentRequired, `{"error":{"type":"not-enough-usage"}}`)

	_, err := c.StartRun(context.Background(), apify.PostScraperActor, apify.ActorInput{Username: []string{"a"}})
	require.Error(t, err)

	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeLaunchFailed, apiErr.Type)
	assert.Equal(t, http.StatusPaymentRequired, apiErr.Code)
	assert.Contains(t, apiErr.Details, "not-enough-usage")
}

func TestStartRunMissingID(t *testing.T) {
	hc := &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		return newResponse(http.StatusCreated, `{"data":{}}`), nil
	}}}
	c := apify.NewClient("tok", time.Second, nil, apify.WithHTTPClient(hc))

	_, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	assert.True(t, errs.Is(err, errs.ErrorTypeLaunchFailed))
	assert.Contains(t, errs.Message(err), "no run id")
}

func TestStartRunTransportErrorRedactsToken(t *testing.T) {
	hc := &http.Client{Transport: &mockRoundTripper{handler: func(req *http.Request) (*http.Response, error) {
		return nil, errors.New("dial tcp: connection refused")
	}}}
	log := logger.NewTestLogger()
	c := apify.NewClient("super-secret", time.Second, log, apify.WithHTTPClient(hc))

	_, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.ErrorTypeLaunchFailed))
	assert.NotContains(t, err.Error(), "super-secret")
	assert.False(t, log.Contains("super-secret"))
	assert.True(t, log.HasError())
}

func TestGetRun(t *testing.T) {
	c, srv := newFakeClient(t, nil)
	srv.Script(apify.StatusRunning, apify.StatusSucceeded)

	h, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.NoError(t, err)

	run, err := c.GetRun(context.Background(), *h)
	require.NoError(t, err)
	assert.Equal(t, apify.StatusRunning, run.Status)
	assert.Equal(t, apify.JobPending, run.Status.Normalize())

	run, err = c.GetRun(context.Background(), *h)
	require.NoError(t, err)
	assert.Equal(t, apify.StatusSucceeded, run.Status)
	assert.Equal(t, "dataset-1", run.DefaultDatasetID)
}

func TestGetRunServerError(t *testing.T) {
	c, srv := newFakeClient(t, nil)
	h, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.NoError(t, err)

	srv.FailStatusChecks(1)
	_, err = c.GetRun(context.Background(), *h)
	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeServerError, apiErr.Type)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)

	_, err = c.GetRun(context.Background(), apify.JobHandle{JobID: "nope", ActorID: apify.ProfileScraperActor})
	assert.True(t, errs.Is(err, errs.ErrorTypeNotFound))
}

func TestDatasetItems(t *testing.T) {
	c, srv := newFakeClient(t, nil)
	srv.SetItems(
		map[string]interface{}{"id": "1", "likesCount": 10},
		map[string]interface{}{"id": "2", "likesCount": 20},
	)
	h, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.NoError(t, err)

	items, err := c.DatasetItems(context.Background(), *h, false)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.JSONEq(t, `{"id":"1","likesCount":10}`, string(items[0]))
	assert.Zero(t, srv.DatasetByIDCalls())

	items, err = c.DatasetItems(context.Background(), *h, true)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 1, srv.DatasetByIDCalls())
}

func TestDatasetItemsFailures(t *testing.T) {
	c, srv := newFakeClient(t, nil)
	h, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	require.NoError(t, err)

	srv.SetRawDataset(`{"not":"an array"}`)
	_, err = c.DatasetItems(context.Background(), *h, false)
	assert.True(t, errs.Is(err, errs.ErrorTypeParsing))

	srv.FailDataset(http.StatusServiceUnavailable)
	_, err = c.DatasetItems(context.Background(), *h, false)
	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, errs.ErrorTypeDatasetFetch, apiErr.Type)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Code)
}

func TestWrongTokenIsRejected(t *testing.T) {
	srv := apifytest.NewServer(t)
	c := apify.NewClient("wrong", time.Second, nil, apify.WithBaseURL(srv.URL+"/"))

	_, err := c.StartRun(context.Background(), apify.ProfileScraperActor, apify.ActorInput{})
	var apiErr *errs.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Code)
}
