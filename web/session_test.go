package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func issue(t *testing.T, s *Sessions, draftID string) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, s.Issue(rec, draftID))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func requestWith(c *http.Cookie) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/review", nil)
	if c != nil {
		r.AddCookie(c)
	}
	return r
}

func TestSessionRoundTrip(t *testing.T) {
	s, err := NewSessions("secret", time.Hour, true)
	require.NoError(t, err)

	c := issue(t, s, "draft-1")
	assert.Equal(t, CookieName, c.Name)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)

	id, err := s.DraftID(requestWith(c))
	require.NoError(t, err)
	assert.Equal(t, "draft-1", id)
}

func TestSessionRejects(t *testing.T) {
	now := time.Date(2026, 10, 15, 8, 0, 0, 0, time.UTC)
	s, err := NewSessions("secret", time.Hour, false)
	require.NoError(t, err)
	s.now = func() time.Time { return now }

	valid := issue(t, s, "draft-1")

	other, err := NewSessions("other-secret", time.Hour, false)
	require.NoError(t, err)
	other.now = s.now
	forged := issue(t, other, "draft-1")

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sid": "draft-1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name   string
		cookie *http.Cookie
		at     time.Time
	}{
		{"missing cookie", nil, now},
		{"garbage", &http.Cookie{Name: CookieName, Value: "not-a-jwt"}, now},
		{"wrong secret", forged, now},
		{"unsigned", &http.Cookie{Name: CookieName, Value: noneToken}, now},
		{"expired", valid, now.Add(2 * time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			at := tt.at
			s.now = func() time.Time { return at }
			_, err := s.DraftID(requestWith(tt.cookie))
			assert.ErrorIs(t, err, ErrNoSession)
		})
	}
}

func TestNewSessionsRequiresSecret(t *testing.T) {
	_, err := NewSessions("", time.Hour, false)
	assert.Error(t, err)
}

func TestSessionClear(t *testing.T) {
	s, err := NewSessions("secret", time.Hour, false)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	s.Clear(rec)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
