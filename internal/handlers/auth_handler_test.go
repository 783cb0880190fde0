package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"holophrame-api/internal/database"
	"holophrame-api/internal/testutil"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAuthRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := testutil.NewInMemoryDB()
	require.NoError(t, err)
	database.DB = db

	h := NewAuthHandler(zap.NewNop().Sugar())
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterThenLogin(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "correcthorse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice",
		"password": "correcthorse",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string `json:"token"`
		User  struct {
			Username string `json:"username"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	require.Equal(t, "alice", resp.User.Username)
}

func TestRegister_RejectsBadInput(t *testing.T) {
	r := newAuthRouter(t)

	cases := []map[string]string{
		{"username": "x", "email": "a@b.com", "password": "longenough"},       // short username
		{"username": "has space", "email": "a@b.com", "password": "longenough"}, // bad chars
		{"username": "bob", "email": "not-an-email", "password": "longenough"},
		{"username": "bob", "email": "a@b.com", "password": "short"},
	}
	for _, payload := range cases {
		w := doJSON(t, r, http.MethodPost, "/api/auth/register", payload)
		require.Equal(t, http.StatusBadRequest, w.Code, "payload %v", payload)
	}
}

func TestRegister_DuplicateUsername(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "correcthorse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "other@example.com", "password": "correcthorse",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "Username already taken")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	r := newAuthRouter(t)

	w := doJSON(t, r, http.MethodPost, "/api/auth/register", map[string]string{
		"username": "alice", "email": "alice@example.com", "password": "correcthorse",
	})
	require.Equal(t, http.StatusCreated, w.Code)

	// Wrong password and unknown user look identical
	w = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "alice", "password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(t, r, http.MethodPost, "/api/auth/login", map[string]string{
		"username": "nobody", "password": "wrongpassword",
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)
}
