package upload

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastClient() *Client {
	return New(WithRetry(3, time.Millisecond))
}

func TestPublishCreatesPrivatePaste(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		f, hdr, err := r.FormFile("c")
		require.NoError(t, err)
		defer f.Close()
		body, _ := io.ReadAll(f)
		assert.Equal(t, "BEGIN:VCALENDAR", string(body))
		assert.Equal(t, "family.ics", hdr.Filename)
		assert.Equal(t, "true", r.FormValue("p"))
		assert.Equal(t, "3600", r.FormValue("e"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"url":"https://paste.example/abc","manage_url":"https://paste.example/abc/secret","status":"ok"}`)
	}))
	defer srv.Close()

	res, err := fastClient().Publish(context.Background(), []byte("BEGIN:VCALENDAR"), Options{
		BaseURL:    srv.URL,
		Expiration: "3600",
		Filename:   "family.ics",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://paste.example/abc", res.URL)
	assert.Equal(t, "https://paste.example/abc/secret", res.ManageURL)
	assert.Equal(t, "ok", res.Raw["status"])
}

func TestPublishUpdatesWithManageURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/abc/secret", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Empty(t, r.FormValue("p"))
		assert.Empty(t, r.FormValue("e"))
		_, _ = io.WriteString(w, `{"url":"https://paste.example/abc"}`)
	}))
	defer srv.Close()

	res, err := fastClient().Publish(context.Background(), []byte("x"), Options{
		BaseURL:   "http://unused.invalid",
		ManageURL: srv.URL + "/abc/secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://paste.example/abc", res.URL)
	assert.Empty(t, res.ManageURL)
}

func TestPublishRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "busy", http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"url":"u"}`)
	}))
	defer srv.Close()

	res, err := fastClient().Publish(context.Background(), []byte("x"), Options{BaseURL: srv.URL})
	require.NoError(t, err)
	assert.Equal(t, "u", res.URL)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPublishGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := fastClient().Publish(context.Background(), []byte("x"), Options{BaseURL: srv.URL})
	require.Error(t, err)

	var serr *StatusError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, http.StatusServiceUnavailable, serr.Code)
	assert.Equal(t, int32(4), calls.Load())
}

func TestPublishDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "too large", http.StatusRequestEntityTooLarge)
	}))
	defer srv.Close()

	_, err := fastClient().Publish(context.Background(), []byte("x"), Options{BaseURL: srv.URL})

	var serr *StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusRequestEntityTooLarge, serr.Code)
	assert.Equal(t, "too large", serr.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPublishRejectsNonJSONReply(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "https://paste.example/abc")
	}))
	defer srv.Close()

	_, err := fastClient().Publish(context.Background(), []byte("x"), Options{BaseURL: srv.URL})
	assert.ErrorContains(t, err, "decode reply")
}

func TestPublishRequiresTarget(t *testing.T) {
	_, err := fastClient().Publish(context.Background(), []byte("x"), Options{})
	assert.Error(t, err)
}

func TestPublishHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := New(WithRetry(10, time.Hour))
	_, err := c.Publish(ctx, []byte("x"), Options{BaseURL: srv.URL})
	assert.Error(t, err)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://paste.example/...(redacted)", RedactURL("https://paste.example/abc/secret?x=1"))
	assert.Equal(t, "http://host:8080/...(redacted)", RedactURL("http://host:8080"))
	assert.Equal(t, "...(redacted)", RedactURL("not a url"))
}
