package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientUnwrapsEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/documents/1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"code":200,"message":"success","data":{"id":1,"filename":"a.pdf"}}`))
	}))
	defer srv.Close()

	c := New(srv.URL)
	var out struct {
		ID       int64  `json:"id"`
		Filename string `json:"filename"`
	}
	require.NoError(t, c.Get(context.Background(), "/documents/1", &out))
	assert.Equal(t, int64(1), out.ID)
	assert.Equal(t, "a.pdf", out.Filename)
}

func TestClientStatusMapping(t *testing.T) {
	cases := []struct {
		status  int
		body    string
		message string
	}{
		{http.StatusBadRequest, `{}`, "invalid parameters"},
		{http.StatusUnauthorized, `{}`, "unauthorized"},
		{http.StatusForbidden, `{}`, "forbidden"},
		{http.StatusNotFound, `{}`, "not found"},
		{http.StatusInternalServerError, `{}`, "server error"},
		{http.StatusTeapot, `{}`, "request failed"},
		// server-supplied message takes precedence
		{http.StatusNotFound, `{"code":404,"message":"document not found"}`, "document not found"},
	}

	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(tc.body))
		}))

		err := New(srv.URL).Get(context.Background(), "/documents/9", nil)
		srv.Close()

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, tc.status, apiErr.Status)
		assert.Equal(t, tc.message, apiErr.Message)
	}
}

func TestClientNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // closed up front so the dial fails

	err := New(srv.URL).Get(context.Background(), "/documents", nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 0, apiErr.Status)
	assert.Equal(t, "cannot reach server", apiErr.Message)
}
