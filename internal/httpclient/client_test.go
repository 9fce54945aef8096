package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echo struct {
	Method string `json:"method"`
}

func TestPost_EncodesAndDecodes(t *testing.T) {
	var gotHeader, gotType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotHeader = r.Header.Get("X-Test")
		gotType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	c, err := New("test")
	require.NoError(t, err)

	var out echo
	resp, err := c.Post(context.Background(), Call{
		URL:     srv.URL,
		Op:      "echo",
		Body:    echo{Method: "eth_sendBundle"},
		Headers: map[string]string{"X-Test": "yes"},
		Out:     &out,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.Decoded)
	assert.Equal(t, "eth_sendBundle", out.Method)
	assert.Equal(t, "yes", gotHeader)
	assert.Equal(t, "application/json", gotType)
}

func TestPost_RawBodyIsVerbatim(t *testing.T) {
	var got []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	c, err := New("test")
	require.NoError(t, err)

	raw := []byte(`{"a":1}`)
	_, err = c.Post(context.Background(), Call{URL: srv.URL, Body: raw})
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestPost_DefaultStatusCheck(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"ok", http.StatusOK, `{"method":"x"}`, false},
		{"error with json body decodes", http.StatusBadRequest, `{"method":"x"}`, false},
		{"error with text body", http.StatusBadGateway, "bad gateway", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c, err := New("test")
			require.NoError(t, err)

			var out echo
			resp, err := c.Post(context.Background(), Call{URL: srv.URL, Out: &out})
			if tt.wantErr {
				require.Error(t, err)
				require.NotNil(t, resp)
				assert.Equal(t, tt.status, resp.StatusCode)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestPost_CustomCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	c, err := New("test")
	require.NoError(t, err)

	sentinel := errors.New("not 200")
	_, err = c.Post(context.Background(), Call{
		URL: srv.URL,
		Check: func(status int, _ []byte) error {
			if status != http.StatusOK {
				return sentinel
			}
			return nil
		},
	})
	assert.ErrorIs(t, err, sentinel)
}

func TestPost_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	c, err := New("test", WithTimeout(20*time.Millisecond))
	require.NoError(t, err)

	resp, err := c.Post(context.Background(), Call{URL: srv.URL, Body: json.RawMessage(`{}`)})
	require.Error(t, err)
	assert.Nil(t, resp)
}
