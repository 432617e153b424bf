package auth

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/vibeboard/vibeboard/store"
)

type MiddlewareTestSuite struct {
	suite.Suite
	router *gin.Engine
	tokens *Tokens
	store  *store.FileStore
}

func (s *MiddlewareTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	s.router = gin.New()
	s.tokens = NewTokens("test-secret", time.Hour)

	var err error
	s.store, err = store.NewFileStore(
		filepath.Join(s.T().TempDir(), "db.json"),
		store.AdminCredentials{Username: "admin", Password: "supersecretpassword"},
	)
	require.NoError(s.T(), err)

	s.router.GET("/protected", s.tokens.RequireUser(), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user": Identity(c).Username})
	})
	s.router.GET("/admin", RequireAdmin(s.store), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
}

func (s *MiddlewareTestSuite) get(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *MiddlewareTestSuite) TestRequireUser_MissingToken() {
	w := s.get("/protected", nil)
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireUser_MalformedHeader() {
	w := s.get("/protected", map[string]string{"Authorization": "Token abc"})
	assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireUser_InvalidToken() {
	w := s.get("/protected", map[string]string{"Authorization": "Bearer garbage"})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireUser_ExpiredToken() {
	expired, err := NewTokens("test-secret", -time.Minute).Issue("user-1", "alice")
	require.NoError(s.T(), err)

	w := s.get("/protected", map[string]string{"Authorization": "Bearer " + expired})
	assert.Equal(s.T(), http.StatusForbidden, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireUser_ValidToken() {
	token, err := s.tokens.Issue("user-1", "alice")
	require.NoError(s.T(), err)

	w := s.get("/protected", map[string]string{"Authorization": "Bearer " + token})
	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Contains(s.T(), w.Body.String(), "alice")
}

func (s *MiddlewareTestSuite) TestRequireAdmin_ValidCredentials() {
	w := s.get("/admin", map[string]string{
		"admin_username": "admin",
		"admin_password": "supersecretpassword",
	})
	assert.Equal(s.T(), http.StatusOK, w.Code)
}

func (s *MiddlewareTestSuite) TestRequireAdmin_RejectsMismatches() {
	cases := []map[string]string{
		nil,
		{"admin_username": "admin"},
		{"admin_username": "admin", "admin_password": "wrong"},
		{"admin_username": "root", "admin_password": "supersecretpassword"},
	}
	for _, headers := range cases {
		w := s.get("/admin", headers)
		assert.Equal(s.T(), http.StatusUnauthorized, w.Code)
	}
}

func TestMiddlewareTestSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
