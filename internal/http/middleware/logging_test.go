package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func captureLogger(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := log.Logger
	t.Cleanup(func() { log.Logger = prev })
	log.Logger = zerolog.New(&buf)
	return &buf
}

// logLines decodes every JSON line written to buf.
func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("bad log line %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestRequestID_GenerateAndPropagate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(RequestID())
	r.GET("/rid", func(c *gin.Context) {
		if c.GetString(requestIDKey) == "" {
			t.Fatal("requestID not set in context")
		}
		if _, ok := StartedAt(c); !ok {
			t.Fatal("start time not recorded")
		}
		c.Status(http.StatusNoContent)
	})

	serve := func(rid string) string {
		req := httptest.NewRequest(http.MethodGet, "/rid", nil)
		if rid != "" {
			req.Header.Set(strings.ToLower(requestIDHeader), rid)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w.Header().Get(requestIDHeader)
	}

	if serve("") == "" {
		t.Fatal("expected a generated request id")
	}
	if got := serve("abc-123"); got != "abc-123" {
		t.Fatalf("propagated id = %q", got)
	}
	long := strings.Repeat("x", maxRequestIDLen+1)
	if got := serve(long); got == long || got == "" {
		t.Fatalf("oversized id should be replaced, got %q", got)
	}
}

func TestStartedAt_WithoutRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	if _, ok := StartedAt(c); ok {
		t.Fatal("StartedAt should report false without RequestID")
	}
}

func TestRecovery_PanicsToJSON500AndLogs(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), RedactingLogger(RedactOptions{}), Recovery())
	r.GET("/leaderboards/:type", func(c *gin.Context) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/leaderboards/Overall", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	var body struct {
		Success   bool   `json:"success"`
		RequestID string `json:"requestId"`
		Errors    []struct {
			Code string `json:"code"`
		} `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json body: %v", err)
	}
	if body.Success || body.RequestID == "" || len(body.Errors) != 1 || body.Errors[0].Code != "internal_error" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	var sawPanic bool
	for _, m := range logLines(t, buf) {
		if m["message"] == "panic recovered" {
			sawPanic = true
			if m["request_id"] != body.RequestID || m["path"] != "/leaderboards/:type" {
				t.Fatalf("panic log lacks request fields: %v", m)
			}
		}
	}
	if !sawPanic {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestRecovery_PanicAfterWrite_NoJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	buf := captureLogger(t)

	r := gin.New()
	r.Use(RequestID(), Recovery())
	r.GET("/late", func(c *gin.Context) {
		c.String(http.StatusOK, "partial-body")
		panic("late kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/late", nil))

	if strings.Contains(w.Body.String(), "internal server error") ||
		strings.Contains(strings.ToLower(w.Header().Get("Content-Type")), "application/json") {
		t.Fatalf("no JSON envelope expected after a write; CT=%q body=%q", w.Header().Get("Content-Type"), w.Body.String())
	}
	if !strings.Contains(buf.String(), "panic recovered") {
		t.Fatalf("expected panic log, got:\n%s", buf.String())
	}
}

func TestLoggerFrom_FallbackAndRequestScoped(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("fallback", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID())
		r.GET("/use", func(c *gin.Context) {
			LoggerFrom(c).Info().Msg("custom")
			c.Status(http.StatusOK)
		})
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/use", nil))
		if !strings.Contains(buf.String(), `"message":"custom"`) || strings.Contains(buf.String(), `"request_id"`) {
			t.Fatalf("fallback logger output: %s", buf.String())
		}
	})

	t.Run("scoped with caller", func(t *testing.T) {
		buf := captureLogger(t)
		r := gin.New()
		r.Use(RequestID(), RedactingLogger(RedactOptions{}), Identity())
		r.GET("/squads/:id", func(c *gin.Context) {
			LoggerFrom(c).Info().Str("squad_id", c.Param("id")).Msg("custom")
			c.Status(http.StatusOK)
		})
		req := httptest.NewRequest(http.MethodGet, "/squads/sq-1", nil)
		req.Header.Set(HeaderPrincipalID, "gh-42")
		req.Header.Set(requestIDHeader, "rid-42")
		r.ServeHTTP(httptest.NewRecorder(), req)

		lines := logLines(t, buf)
		if len(lines) != 2 {
			t.Fatalf("want handler + access log, got %d:\n%s", len(lines), buf.String())
		}
		for _, m := range lines {
			if m["request_id"] != "rid-42" || m["user_id"] != "gh-42" || m["path"] != "/squads/:id" {
				t.Fatalf("missing scoped fields: %v", m)
			}
		}
		if lines[0]["squad_id"] != "sq-1" {
			t.Fatalf("handler fields lost: %v", lines[0])
		}
	})
}

func Test_truncate(t *testing.T) {
	if truncate("hello", 10) != "hello" {
		t.Fatal("short strings are untouched")
	}
	if got := truncate("abcdefgh", 5); got != "abcde…" {
		t.Fatalf("truncate = %q", got)
	}
	if truncate("abc", 0) != "abc" {
		t.Fatal("n <= 0 disables truncation")
	}
}
