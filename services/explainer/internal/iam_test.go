package internal

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIAMTokenSuccess(t *testing.T) {
	var gotForm map[string]string
	var gotContentType string
	srv := newUpstream(t, func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"grant_type": r.PostForm.Get("grant_type"),
			"apikey":     r.PostForm.Get("apikey"),
		}
		tokenHandler("T")(w, r)
	})

	c := NewIAMClient(srv.URL, nil, fastRetry)
	token, err := c.Token(context.Background(), "my-key")

	require.NoError(t, err)
	assert.Equal(t, "T", token)
	assert.Equal(t, "application/x-www-form-urlencoded", gotContentType)
	assert.Equal(t, "urn:ibm:params:oauth:grant-type:apikey", gotForm["grant_type"])
	assert.Equal(t, "my-key", gotForm["apikey"])
}

func TestIAMTokenRejected(t *testing.T) {
	srv := newUpstream(t, statusHandler(400, `{"errorMessage":"Provided API key could not be found"}`))

	c := NewIAMClient(srv.URL, nil, fastRetry)
	_, err := c.Token(context.Background(), "bad")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAuthenticationFailed))
	assert.Equal(t, `Failed to get access token: {"errorMessage":"Provided API key could not be found"}`, err.Error())

	var ae *AuthError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, 400, ae.Status)
	assert.Equal(t, int32(1), srv.hits.Load(), "authentication failures must not be retried")
}

func TestIAMTokenServerErrorNotRetried(t *testing.T) {
	srv := newUpstream(t, statusHandler(503, "unavailable"))

	_, err := NewIAMClient(srv.URL, nil, fastRetry).Token(context.Background(), "key")

	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, int32(1), srv.hits.Load())
}

func TestIAMTokenEmptyKey(t *testing.T) {
	srv := newUpstream(t, tokenHandler("T"))

	_, err := NewIAMClient(srv.URL, nil, fastRetry).Token(context.Background(), "")

	assert.ErrorIs(t, err, ErrAuthenticationFailed)
	assert.Equal(t, int32(0), srv.hits.Load())
}

func TestIAMTokenMalformed(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"InvalidJSON", "not json"},
		{"MissingToken", `{"token_type":"Bearer"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, statusHandler(200, tt.body))

			_, err := NewIAMClient(srv.URL, nil, fastRetry).Token(context.Background(), "key")

			require.Error(t, err)
			assert.False(t, errors.Is(err, ErrAuthenticationFailed))
			assert.Equal(t, int32(1), srv.hits.Load())
		})
	}
}

func TestIAMTokenNetworkErrorRetried(t *testing.T) {
	srv := newUpstream(t, tokenHandler("T"))
	url := srv.URL
	srv.Close()

	_, err := NewIAMClient(url, nil, fastRetry).Token(context.Background(), "key")

	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrAuthenticationFailed))
	assert.True(t, transient(err))
}
