package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-notes-api/internal/middleware"
	"github.com/noah-isme/sma-notes-api/internal/models"
)

type responseEnvelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRouter(session *models.Session) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	if session != nil {
		r.Use(func(c *gin.Context) {
			c.Set(middleware.ContextUserKey, &models.JWTClaims{
				UserID:           session.UserID,
				Username:         session.Username,
				Role:             session.Role,
				RegisteredClaims: jwt.RegisteredClaims{ID: session.SessionID},
			})
			c.Next()
		})
	}
	return r
}

func perform(r http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var env responseEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

var testSession = &models.Session{SessionID: "sess-1", UserID: "u1", Username: "alice", Role: models.RoleStudent}
