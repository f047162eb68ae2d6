package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func TestRedact(t *testing.T) {
	cases := []struct{ in, want string }{
		{"", ""},
		{"q=go", "q=go"},
		{"next=/profile/1b4e28ba-2fa1-41d2-883f-0016d3cca427", "next=/profile/[REDACTED:id]"},
		{"email=alice@example.com", "email=[REDACTED:email]"},
		{"email=alice%40example.com", "email=[REDACTED:email]"},
		{"call 212-555-1212", "call [REDACTED:phone]"},
	}
	for _, tc := range cases {
		if got := Redact(tc.in); got != tc.want {
			t.Errorf("Redact(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestRedactingLogger_ScrubsAndMasks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), withActor(alice), RedactingLogger(RedactOptions{MaskHeaders: []string{"X-Api-Key"}}))
	r.GET("/profile/:id", func(c *gin.Context) {
		zerolog.Ctx(c.Request.Context()).Info().Msg("inside")
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/profile/1b4e28ba-2fa1-41d2-883f-0016d3cca427?email=bob@example.com", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("Cookie", "forum_session=secret-cookie")
	req.Header.Set("X-Api-Key", "k")
	req.Header.Set("X-Forwarded-For", "alice@example.com")
	r.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	for _, leak := range []string{"secret-token", "secret-cookie", "bob@example.com", "alice@example.com", `"k"`} {
		if strings.Contains(out, leak) {
			t.Fatalf("log leaked %q: %s", leak, out)
		}
	}
	if !strings.Contains(out, `"message":"inside"`) {
		t.Fatalf("request logger not attached: %s", out)
	}
	m := lastLine(t, buf)
	if m["path"] != "/profile/:id" || m["level"] != "info" || m["user_id"] != "u-alice" {
		t.Fatalf("access line = %v", m)
	}
}

func TestRedactingLogger_Levels(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RedactingLogger(RedactOptions{}))
	r.GET("/warn", func(c *gin.Context) { c.Status(http.StatusForbidden) })
	r.GET("/fail", func(c *gin.Context) { c.Status(http.StatusBadGateway) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/warn", nil))
	if lvl := lastLine(t, buf)["level"]; lvl != "warn" {
		t.Fatalf("403 level = %v", lvl)
	}
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))
	if lvl := lastLine(t, buf)["level"]; lvl != "error" {
		t.Fatalf("502 level = %v", lvl)
	}
}
