package auth

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/attendance-tracker/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// captureHandler records whether it ran, the identity it saw and the body
// that reached it.
type captureHandler struct {
	called   bool
	identity model.Identity
	body     string
}

func (c *captureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.called = true
	c.identity, _ = IdentityFromContext(r.Context())
	b, _ := io.ReadAll(r.Body)
	c.body = string(b)
	w.WriteHeader(http.StatusOK)
}

func serve(t *testing.T, ts *TokenService, req *http.Request) (*httptest.ResponseRecorder, *captureHandler) {
	t.Helper()
	next := &captureHandler{}
	rr := httptest.NewRecorder()
	RequireAuth(ts, discardLogger())(next).ServeHTTP(rr, req)
	return rr, next
}

func decodeFailure(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestRequireAuth_NoToken(t *testing.T) {
	ts := newTestTokenService(t, time.Now())

	rr, next := serve(t, ts, httptest.NewRequest(http.MethodGet, "/api/records", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, next.called, "downstream handler must not run")
	body := decodeFailure(t, rr)
	assert.EqualValues(t, 0, body["result"])
	assert.Equal(t, MsgTokenNotProvided, body["message"])
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	ts := newTestTokenService(t, time.Now())

	req := httptest.NewRequest(http.MethodGet, "/api/records?token=garbage", nil)
	rr, next := serve(t, ts, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, next.called)
	assert.Equal(t, MsgTokenInvalid, decodeFailure(t, rr)["message"])
}

func TestRequireAuth_ExpiredTokenLooksLikeAnyInvalidToken(t *testing.T) {
	issued := time.Now().Add(-9 * 24 * time.Hour)
	old := newTestTokenService(t, issued)
	token, err := old.Generate(alice)
	require.NoError(t, err)

	ts := newTestTokenService(t, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(TokenHeader, token)
	rr, next := serve(t, ts, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, next.called)
	assert.Equal(t, MsgTokenInvalid, decodeFailure(t, rr)["message"])
}

func TestRequireAuth_TokenSources(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	cases := []struct {
		name string
		req  func() *http.Request
	}{
		{"json body", func() *http.Request {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"`+token+`","className":"math"}`))
			r.Header.Set("Content-Type", "application/json")
			return r
		}},
		{"form body", func() *http.Request {
			form := url.Values{"token": {token}}
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}},
		{"form body on delete", func() *http.Request {
			form := url.Values{"token": {token}, "id": {"rec-1"}}
			r := httptest.NewRequest(http.MethodDelete, "/api/records", strings.NewReader(form.Encode()))
			r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			return r
		}},
		{"query", func() *http.Request {
			return httptest.NewRequest(http.MethodGet, "/?token="+url.QueryEscape(token), nil)
		}},
		{"header", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set(TokenHeader, token)
			return r
		}},
		{"bearer", func() *http.Request {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.Header.Set("Authorization", "Bearer "+token)
			return r
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr, next := serve(t, ts, tc.req())
			assert.Equal(t, http.StatusOK, rr.Code)
			require.True(t, next.called)
			assert.Equal(t, alice, next.identity)
		})
	}
}

func TestRequireAuth_BodyWinsOverQueryAndHeader(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	// The body token is valid; the lower-priority ones are garbage and must
	// never be consulted.
	req := httptest.NewRequest(http.MethodPost, "/?token=garbage", strings.NewReader(`{"token":"`+token+`"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, "also-garbage")

	rr, next := serve(t, ts, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, next.called)

	// And the other way: an invalid body token is not rescued by a valid header.
	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"token":"garbage"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, token)

	rr, next = serve(t, ts, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, next.called)
}

func TestRequireAuth_QueryWinsOverHeader(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/?token=garbage", nil)
	req.Header.Set(TokenHeader, token)

	rr, next := serve(t, ts, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.False(t, next.called)
}

func TestRequireAuth_BodyIsRestoredForHandler(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	payload := `{"token":"` + token + `","className":"Math","role":"student"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	_, next := serve(t, ts, req)
	require.True(t, next.called)
	assert.Equal(t, payload, next.body)
}

func TestRequireAuth_FormBodyIsRestoredForHandler(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	payload := url.Values{"token": {token}, "id": {"rec-1"}}.Encode()
	req := httptest.NewRequest(http.MethodDelete, "/api/records", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rr, next := serve(t, ts, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	require.True(t, next.called)
	assert.Equal(t, payload, next.body)
}

func TestRequireAuth_NonJSONBodyFallsThroughToHeader(t *testing.T) {
	ts := newTestTokenService(t, time.Now())
	token, err := ts.Generate(alice)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("plain text"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set(TokenHeader, token)

	_, next := serve(t, ts, req)
	assert.True(t, next.called)
	assert.Equal(t, "plain text", next.body)
}

func TestIdentityFromContext_Anonymous(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, ok := IdentityFromContext(req.Context())
	assert.False(t, ok)

	ctx := WithIdentity(req.Context(), alice)
	got, ok := IdentityFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, alice, got)
}
