package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "github.com/dukerupert/smartshop/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL + "/api")
	require.NoError(t, err)
	return c
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api")
	assert.Error(t, err)
}

func TestBearerTokenAttached(t *testing.T) {
	var gotAuth, gotPath, gotAccept string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotAccept = r.Header.Get("Accept")
		json.NewEncoder(w).Encode(map[string]any{"user": map[string]any{"type": "client", "name": "Ana", "email": "ana@example.com", "points": 10}})
	})

	id, err := c.WithToken(StaticToken("abc")).Me(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "/api/user", gotPath)
	assert.Equal(t, "application/json", gotAccept)
	assert.Equal(t, "Ana", id.Name)
	require.NotNil(t, id.Points)
	assert.Equal(t, 10, *id.Points)
}

func TestNoTokenNoHeader(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		w.Write([]byte(`{"data":[]}`))
	})
	_, err := c.WithToken(StaticToken("")).Categories(context.Background())
	require.NoError(t, err)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   *apperrors.Error
	}{
		{"unauthorized", http.StatusUnauthorized, `{"message":"Unauthenticated."}`, apperrors.ErrUnauthorized},
		{"session expired", 419, ``, apperrors.ErrUnauthorized},
		{"forbidden", http.StatusForbidden, ``, apperrors.ErrForbidden},
		{"not found", http.StatusNotFound, ``, apperrors.ErrNotFound},
		{"validation", http.StatusUnprocessableEntity, `{"message":"invalid","errors":{"name":["required"]}}`, apperrors.ErrValidation},
		{"server error", http.StatusInternalServerError, `oops`, apperrors.ErrInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				io.WriteString(w, tt.body)
			})
			_, err := c.Me(context.Background())
			require.Error(t, err)
			assert.True(t, apperrors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestValidationFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"The given data was invalid.","errors":{"email":["taken","bad"]}}`)
	})
	_, err := c.Login(context.Background(), Credentials{Email: "a@b.c", Password: "x", Role: "client"})
	require.Error(t, err)
	assert.Equal(t, map[string][]string{"email": {"taken", "bad"}}, apperrors.FieldErrors(err))
	assert.Equal(t, "The given data was invalid.", apperrors.Message(err))
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url + "/api")
	require.NoError(t, err)
	_, err = c.Me(context.Background())
	assert.True(t, apperrors.Is(err, apperrors.ErrNetwork), "got %v", err)
}

func TestCancelledContextIsNotNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.Me(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, apperrors.Is(err, apperrors.ErrNetwork))
}

func TestLoginResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var cr Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&cr))
		assert.Equal(t, "company", string(cr.Role))
		io.WriteString(w, `{"type":"company","user":{"name":"Mercado","email":"m@example.com"},"token":"t-1"}`)
	})
	res, err := c.Login(context.Background(), Credentials{Email: "m@example.com", Password: "secret", Role: "company"})
	require.NoError(t, err)
	assert.Equal(t, "t-1", res.Token)
	assert.Equal(t, "company", string(res.Identity.Role))
	assert.Equal(t, "Mercado", res.Identity.Name)
}

func TestRegisterAccessToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var reg map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&reg))
		assert.Equal(t, "secret12", reg["password_confirmation"])
		io.WriteString(w, `{"access_token":"t-2"}`)
	})
	res, err := c.Register(context.Background(), Registration{
		Name: "Ana", Email: "ana@example.com", Password: "secret12", PasswordConfirmation: "secret12", Role: "client",
	})
	require.NoError(t, err)
	assert.Equal(t, "t-2", res.Token)
	assert.Equal(t, "client", string(res.Identity.Role))
	assert.Equal(t, "Ana", res.Identity.Name)
}

func TestLoginWithoutToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user":{"name":"x"}}`)
	})
	_, err := c.Login(context.Background(), Credentials{})
	assert.Error(t, err)
}

func TestVerifyEmailHostCheck(t *testing.T) {
	var hit bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hit = true
		assert.Equal(t, "/api/email/verify/1/abc", r.URL.Path)
		assert.Equal(t, "sig", r.URL.Query().Get("signature"))
	})

	err := c.VerifyEmail(context.Background(), "http://evil.example.com/api/email/verify/1/abc")
	assert.Error(t, err)
	assert.False(t, hit)

	err = c.VerifyEmail(context.Background(), c.Origin()+"/api/email/verify/1/abc?signature=sig")
	require.NoError(t, err)
	assert.True(t, hit)
}
