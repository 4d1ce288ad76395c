package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/mailfeed/internal/google"
	"github.com/teemow/mailfeed/internal/imap"
	"github.com/teemow/mailfeed/internal/instrumentation"
	"github.com/teemow/mailfeed/internal/processor"
	"github.com/teemow/mailfeed/internal/secrets"
	"github.com/teemow/mailfeed/internal/store"
)

// fakeGoogle serves the token and userinfo endpoints for the OAuth2 flow.
func fakeGoogle(t *testing.T, email string) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("code") == "bad-code" && r.PostForm.Get("grant_type") == "authorization_code" {
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, `{"error":"invalid_grant"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"at-1","refresh_token":"rt-1","token_type":"Bearer","expires_in":3600}`)
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"email":%q,"name":"Test User"}`, email)
	})

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return ts
}

type harness struct {
	server *Server
	store  *store.SQLiteStore
	states *google.MemoryStateVerifier
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	key, err := secrets.GenerateEncryptionKey()
	require.NoError(t, err)
	enc, err := secrets.NewTokenEncryption(key)
	require.NoError(t, err)
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"), enc)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	upstream := fakeGoogle(t, "user@gmail.com")
	secretsJSON := fmt.Sprintf(
		`{"client_id":"id-123","client_secret":"sec-456","auth_uri":%q,"token_uri":%q}`,
		upstream.URL+"/auth", upstream.URL+"/token",
	)

	oauth := google.NewClient(google.ClientOptions{
		UserinfoEndpoint: upstream.URL + "/userinfo",
	})

	sel := imap.NewSelector(s, oauth, secretsJSON, nil)
	proc := processor.New(s, sel, nil)
	states := google.NewMemoryStateVerifier(google.DefaultStateTTL)

	srv := NewServer(
		Config{
			Addr:              ":0",
			ClientSecretsJSON: secretsJSON,
			RedirectURI:       "http://localhost:8000/auth/google/callback",
		},
		s, s, oauth, states, proc, &instrumentation.Metrics{}, nil,
	)
	return &harness{server: srv, store: s, states: states}
}

func (h *harness) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthorizeRedirectsToGoogle(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/auth/google/authorize", nil)
	require.Equal(t, http.StatusFound, rec.Code)

	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	q := loc.Query()
	assert.Equal(t, "id-123", q.Get("client_id"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.NotEmpty(t, q.Get("state"))
}

func TestAuthorizeWithoutSecrets(t *testing.T) {
	h := newHarness(t)
	h.server.config.ClientSecretsJSON = ""

	rec := h.do(t, http.MethodGet, "/auth/google/authorize", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestCallbackStoresCredential(t *testing.T) {
	h := newHarness(t)
	h.states.Issue("state-1")

	rec := h.do(t, http.MethodGet, "/auth/google/callback?code=good&state=state-1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp callbackResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "connected", resp.Status)
	assert.Equal(t, "user@gmail.com", resp.Email)

	tokens, err := h.store.GetDecrypted(t.Context(), "user@gmail.com")
	require.NoError(t, err)
	assert.Equal(t, "at-1", tokens.AccessToken)
	assert.Equal(t, "rt-1", tokens.RefreshToken)

	cred, err := h.store.Get(t.Context(), "user@gmail.com")
	require.NoError(t, err)
	require.NotNil(t, cred.TokenExpiry)
	assert.WithinDuration(t, time.Now().Add(time.Hour), *cred.TokenExpiry, 2*time.Minute)
}

func TestCallbackRejectsUnknownState(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/auth/google/callback?code=good&state=forged", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackRejectsReusedState(t *testing.T) {
	h := newHarness(t)
	h.states.Issue("state-1")

	rec := h.do(t, http.MethodGet, "/auth/google/callback?code=good&state=state-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/auth/google/callback?code=good&state=state-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallbackProviderDenied(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "access_denied")
}

func TestCallbackExchangeFailure(t *testing.T) {
	h := newHarness(t)
	h.states.Issue("state-1")

	rec := h.do(t, http.MethodGet, "/auth/google/callback?code=bad-code&state=state-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCredentialLifecycle(t *testing.T) {
	h := newHarness(t)
	ctx := t.Context()

	expiry := time.Now().Add(time.Hour)
	_, err := h.store.Upsert(ctx, "a@gmail.com", "access-secret", "refresh-secret", &expiry)
	require.NoError(t, err)
	_, err = h.store.Upsert(ctx, "b@gmail.com", "access-secret", "refresh-secret", &expiry)
	require.NoError(t, err)

	rec := h.do(t, http.MethodGet, "/credentials", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var list credentialListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Credentials, 2)
	assert.Equal(t, "a@gmail.com", list.Credentials[0].Email)
	// The public view must not leak token material.
	assert.NotContains(t, rec.Body.String(), "access-secret")
	assert.False(t, strings.Contains(rec.Body.String(), "encrypted"))

	rec = h.do(t, http.MethodGet, "/credentials/a@gmail.com", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(t, http.MethodGet, "/credentials/missing@gmail.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = h.do(t, http.MethodDelete, "/credentials/a@gmail.com", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = h.do(t, http.MethodDelete, "/credentials/a@gmail.com", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSettingsRoundtrip(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPut, "/imap/settings", settingsRequest{
		IMAPServer:   "imap.gmail.com",
		IMAPUsername: "user@gmail.com",
		IMAPPassword: "hunter2",
		SearchFolder: "Newsletters",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = h.do(t, http.MethodGet, "/imap/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"imap_server":"imap.gmail.com"`)
	assert.Contains(t, rec.Body.String(), `"password_set":true`)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestSettingsValidation(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodPut, "/imap/settings", settingsRequest{IMAPServer: "imap.gmail.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPut, "/imap/settings", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSettingsDefaultsWhenUnconfigured(t *testing.T) {
	h := newHarness(t)

	rec := h.do(t, http.MethodGet, "/imap/settings", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"search_folder":"INBOX"`)
	assert.Contains(t, rec.Body.String(), `"password_set":false`)
}

type fakeProcessor struct {
	err error
}

func (f *fakeProcessor) TestConnection(ctx context.Context) (string, error) {
	return "password", f.err
}

func (f *fakeProcessor) ListFolders(ctx context.Context) ([]string, error) {
	return nil, f.err
}

func (f *fakeProcessor) Run(ctx context.Context) (*processor.Result, error) {
	return nil, f.err
}

func TestIMAPAuthFailureIsClientError(t *testing.T) {
	h := newHarness(t)
	h.server.processor = &fakeProcessor{err: &imap.AuthenticationError{
		User: "user:ab12cd34",
		Err:  errors.New("LOGIN rejected"),
	}}

	rec := h.do(t, http.MethodPost, "/imap/test", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "authentication failed")

	rec = h.do(t, http.MethodGet, "/imap/folders", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIMAPConnectionFaultIsServerError(t *testing.T) {
	h := newHarness(t)
	h.server.processor = &fakeProcessor{err: errors.New("dial tcp: connection refused")}

	rec := h.do(t, http.MethodPost, "/imap/test", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIMAPOperationsWithoutSettings(t *testing.T) {
	h := newHarness(t)

	for _, tc := range []struct {
		method string
		target string
	}{
		{http.MethodPost, "/imap/test"},
		{http.MethodGet, "/imap/folders"},
		{http.MethodPost, "/imap/process"},
	} {
		rec := h.do(t, tc.method, tc.target, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", tc.method, tc.target)
	}
}
