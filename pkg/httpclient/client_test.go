package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apiforge/console-core/pkg/apierr"
)

func TestDo_DefaultHeaders(t *testing.T) {
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Do(context.Background(), srv.URL, Options{})
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.True(t, resp.IsJSON())
	assert.Equal(t, "application/json", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"))
	assert.NotEmpty(t, gotHeader.Get("X-Request-Id"))
}

func TestDo_CallerHeaderOverridesSingleDefault(t *testing.T) {
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Clone()
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("Content-Type", "application/x-www-form-urlencoded")

	c := New()
	_, err := c.Do(context.Background(), srv.URL, Options{
		Method: http.MethodPost,
		Header: header,
		Body:   []byte("a=b"),
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", gotHeader.Get("Content-Type"))
	assert.Equal(t, "application/json", gotHeader.Get("Accept"), "untouched defaults still sent")
}

func TestDo_TimeoutBeatsLateResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(`{"late":true}`))
	}))
	defer srv.Close()

	c := New()
	start := time.Now()
	_, err := c.Do(context.Background(), srv.URL, Options{Timeout: 50 * time.Millisecond})

	var terr *apierr.TimeoutError
	require.ErrorAs(t, err, &terr, "deadline failures are timeouts, never generic network errors")
	assert.Equal(t, 50*time.Millisecond, terr.Timeout)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "caller is not held until the late payload")
}

func TestDo_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	c := New()
	_, err := c.Do(context.Background(), srv.URL, Options{})
	var nerr *apierr.NetworkError
	require.ErrorAs(t, err, &nerr)
}

func TestDo_QueryAppended(t *testing.T) {
	var gotQuery url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
	}))
	defer srv.Close()

	q := url.Values{}
	q.Set("status", "active")

	c := New()
	_, err := c.Do(context.Background(), srv.URL+"/path?fixed=1", Options{Query: q})
	require.NoError(t, err)
	assert.Equal(t, "1", gotQuery.Get("fixed"))
	assert.Equal(t, "active", gotQuery.Get("status"))
}

func TestDo_InvalidURL(t *testing.T) {
	c := New()
	_, err := c.Do(context.Background(), "http://bad url\x7f", Options{})
	var verr *apierr.ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestDo_NonOKStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"message":"short and stout"}`))
	}))
	defer srv.Close()

	c := New()
	resp, err := c.Do(context.Background(), srv.URL, Options{})
	require.NoError(t, err, "status interpretation belongs to the caller")
	assert.False(t, resp.OK())
	assert.Equal(t, http.StatusTeapot, resp.Status)
	assert.JSONEq(t, `{"message":"short and stout"}`, string(resp.Body))
}
