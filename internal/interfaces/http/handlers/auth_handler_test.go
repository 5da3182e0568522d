package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopsync/backend/internal/infrastructure/auth"
	"github.com/shopsync/backend/internal/infrastructure/config"
	"github.com/shopsync/backend/internal/interfaces/http/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthFixture(t *testing.T, passwordHash string) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{}
	cfg.Admin.Username = "admin"
	cfg.Admin.PasswordHash = passwordHash
	cfg.JWT.TokenExpiration = time.Hour

	jwtService := auth.NewJWTService("0123456789abcdef0123456789abcdef", time.Hour, "test")

	engine := gin.New()
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(NewAuthHandler(cfg, jwtService, nil).Routes())
	r.Setup()
	return engine
}

func postLogin(engine *gin.Engine, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAuthLogin(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	engine := newAuthFixture(t, hash)

	w := postLogin(engine, `{"username":"admin","password":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Success bool `json:"success"`
		Data    struct {
			Token     string `json:"token"`
			ExpiresIn int64  `json:"expires_in"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Success)
	assert.NotEmpty(t, body.Data.Token)
	assert.Equal(t, int64(3600), body.Data.ExpiresIn)
}

func TestAuthLogin_WrongPassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	engine := newAuthFixture(t, hash)

	w := postLogin(engine, `{"username":"admin","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthLogin_UnknownUser(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	engine := newAuthFixture(t, hash)

	w := postLogin(engine, `{"username":"root","password":"s3cret"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthLogin_NoHashConfigured(t *testing.T) {
	// Without a configured hash no password can ever match.
	engine := newAuthFixture(t, "")

	w := postLogin(engine, `{"username":"admin","password":"anything"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthLogin_MalformedBody(t *testing.T) {
	hash, err := auth.HashPassword("s3cret")
	require.NoError(t, err)
	engine := newAuthFixture(t, hash)

	w := postLogin(engine, `{"username":"admin"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
