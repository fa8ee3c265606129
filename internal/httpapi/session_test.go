package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessions_IssueVerifyRoundtrip(t *testing.T) {
	sessions := NewSessions(testSecret, time.Hour)

	token, err := sessions.Issue("user-1234567890")
	require.NoError(t, err)

	userID, err := sessions.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1234567890", userID)
}

func TestSessions_ExpiredTokenRejected(t *testing.T) {
	sessions := NewSessions(testSecret, time.Hour)

	issued := time.Now()
	sessions.now = func() time.Time { return issued }

	token, err := sessions.Issue("user-1234567890")
	require.NoError(t, err)

	sessions.now = func() time.Time { return issued.Add(2 * time.Hour) }

	_, err = sessions.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestSessions_TamperedTokenRejected(t *testing.T) {
	sessions := NewSessions(testSecret, time.Hour)
	other := NewSessions("another-secret-another-secret-xx", time.Hour)

	token, err := other.Issue("user-1234567890")
	require.NoError(t, err)

	_, err = sessions.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidSession)
}

func TestUserID_HeaderPrecedence(t *testing.T) {
	sessions := NewSessions(testSecret, time.Hour)

	signed, err := sessions.Issue("signed-user-id")
	require.NoError(t, err)

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			"signed bearer token wins",
			map[string]string{
				"Authorization": "Bearer " + signed,
				HeaderUserID:    "custom-user-id",
			},
			"signed-user-id",
		},
		{
			"raw bearer value accepted past length check",
			map[string]string{"Authorization": "Bearer raw-user-12345"},
			"raw-user-12345",
		},
		{
			"short bearer value falls through to custom header",
			map[string]string{
				"Authorization": "Bearer short",
				HeaderUserID:    "custom-user-id",
			},
			"custom-user-id",
		},
		{
			"custom header before fallback header",
			map[string]string{
				HeaderUserID:    "custom-user-id",
				HeaderAuthToken: "fallback-user-id",
			},
			"custom-user-id",
		},
		{
			"fallback header last",
			map[string]string{HeaderAuthToken: "fallback-user-id"},
			"fallback-user-id",
		},
		{
			"short values everywhere means unauthenticated",
			map[string]string{
				"Authorization": "Bearer tiny",
				HeaderUserID:    "tiny",
				HeaderAuthToken: "tiny",
			},
			"",
		},
		{"no headers", nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}

			assert.Equal(t, tt.want, sessions.UserID(r))
		})
	}
}

func TestSessionHeaders_SetAndClear(t *testing.T) {
	w := httptest.NewRecorder()

	setSessionHeaders(w, "user-1234567890")
	assert.Equal(t, "user-1234567890", w.Header().Get(HeaderUserID))
	assert.Equal(t, "user-1234567890", w.Header().Get(HeaderAuthToken))

	clearSessionHeaders(w)
	assert.Empty(t, w.Header().Get(HeaderUserID))
	assert.Empty(t, w.Header().Get(HeaderAuthToken))
}
