package response

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveWithRequestID(t *testing.T, header string, handler gin.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.GET("/", handler)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(HeaderRequestID, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRequestIDMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		keep   bool
	}{
		{"missing", "", false},
		{"plain", "abc-123_x.y", true},
		{"too long", strings.Repeat("a", 65), false},
		{"header injection", "abc\r\nSet-Cookie: x=y", false},
		{"spaces", "two words", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			w := serveWithRequestID(t, tt.header, func(c *gin.Context) {
				seen = RequestID(c)
				c.Status(http.StatusNoContent)
			})

			got := w.Header().Get(HeaderRequestID)
			assert.Equal(t, seen, got)
			if tt.keep {
				assert.Equal(t, tt.header, got)
				return
			}
			_, err := uuid.Parse(got)
			assert.NoError(t, err, "replaced with a fresh UUID")
		})
	}
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	serveWithRequestID(t, "req-42", func(c *gin.Context) {
		l := RequestLogger(c, base)
		l.Info().Msg("hello")
		c.Status(http.StatusNoContent)
	})
	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"request_id":"req-42"`)

	buf.Reset()
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	l := RequestLogger(c, base)
	l.Info().Msg("bare")
	assert.NotContains(t, buf.String(), "request_id")
}
