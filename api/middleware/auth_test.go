package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func authRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/me", HeaderAuth(), func(c *gin.Context) {
		id, ok := UserID(c)
		if !ok {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, strconv.FormatInt(id, 10))
	})
	return r
}

func TestHeaderAuth(t *testing.T) {
	tests := []struct {
		name   string
		header string
		value  string
		status int
		body   string
	}{
		{"user id header", "X-User-ID", "42", http.StatusOK, "42"},
		{"bad user id", "X-User-ID", "abc", http.StatusBadRequest, ""},
		{"negative user id", "X-User-ID", "-1", http.StatusBadRequest, ""},
		{"test token", "Authorization", "Bearer test_token_7", http.StatusOK, "7"},
		{"bad test token", "Authorization", "Bearer test_token_x", http.StatusUnauthorized, ""},
		{"foreign token", "Authorization", "Bearer eyJhbGciOi", http.StatusUnauthorized, ""},
		{"no credentials", "", "", http.StatusUnauthorized, ""},
	}

	r := authRouter()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, w.Body.String())
			}
		})
	}
}

func TestUserIDMissing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	_, ok := UserID(c)
	assert.False(t, ok)

	c.Set(UserIDKey, "not an id")
	_, ok = UserID(c)
	assert.False(t, ok)
}
