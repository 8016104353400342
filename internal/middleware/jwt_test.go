package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWTAuth(secret), func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(OperatorKey))
	})
	return r
}

func get(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestJWTAuth_ValidToken(t *testing.T) {
	token, expires, err := IssueToken(secret, "admin", time.Now())
	require.NoError(t, err)
	require.WithinDuration(t, time.Now().Add(24*time.Hour), expires, time.Minute)

	rr := get(newRouter(), "Bearer "+token)

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "admin", rr.Body.String())
}

func TestJWTAuth_Rejects(t *testing.T) {
	wrongSecret, _, err := IssueToken("other-secret", "admin", time.Now())
	require.NoError(t, err)
	expired, _, err := IssueToken(secret, "admin", time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{Operator: "admin"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]string{
		"missing header": "",
		"not bearer":     "Basic abc",
		"garbage":        "Bearer not.a.token",
		"wrong secret":   "Bearer " + wrongSecret,
		"expired":        "Bearer " + expired,
		"none alg":       "Bearer " + noneAlg,
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			rr := get(newRouter(), header)
			require.Equal(t, http.StatusUnauthorized, rr.Code)
		})
	}
}
