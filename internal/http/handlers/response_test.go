package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/levelup-backend/internal/domain"
	"github.com/tbourn/levelup-backend/internal/errs"
)

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("json: %v body=%s", err, w.Body.String())
	}
	return env
}

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-500")
		c.Set("logger", &logger)
		c.Next()
	})
	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.RequestID != "rid-500" || env.Message != "kaboom" {
		t.Fatalf("unexpected body: %+v", env)
	}
	if len(env.Errors) != 1 || env.Errors[0].Code != ErrCodeInternal {
		t.Fatalf("errors = %+v", env.Errors)
	}
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_Fail_404_And_SuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("X-Request-ID", "rid-404")
		c.Next()
	})
	r.GET("/missing", func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "nope")
	})
	r.GET("/ok", func(c *gin.Context) {
		ok(c, http.StatusCreated, gin.H{"n": 1}, "")
	})
	r.DELETE("/gone", func(c *gin.Context) {
		noContent(c)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/missing", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("status=%d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Success || env.RequestID != "rid-404" || env.Errors[0].Code != ErrCodeNotFound {
		t.Fatalf("unexpected 404 body: %+v", env)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusCreated {
		t.Fatalf("status=%d", w.Code)
	}
	env = decodeEnvelope(t, w)
	data, _ := env.Data.(map[string]any)
	if !env.Success || env.Message != "Success" || data["n"] != float64(1) {
		t.Fatalf("unexpected ok body: %+v", env)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/gone", nil))
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Fatalf("204 expected with empty body, got %d %q", w.Code, w.Body.String())
	}
}

func TestPageOf(t *testing.T) {
	p := pageOf(domain.PagedList[int]{Items: []int{1, 2}, PageNumber: 2, PageSize: 2, TotalCount: 5, ContinuationToken: "tok"})
	if p.TotalPages != 3 || !p.HasPreviousPage || !p.HasNextPage || p.ContinuationToken != "tok" {
		t.Fatalf("pageOf = %+v", p)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[errs.Kind]int{
		errs.KindValidation:   http.StatusBadRequest,
		errs.KindUnauthorized: http.StatusUnauthorized,
		errs.KindForbidden:    http.StatusForbidden,
		errs.KindNotFound:     http.StatusNotFound,
		errs.KindConflict:     http.StatusConflict,
		errs.KindCanceled:     http.StatusRequestTimeout,
		errs.KindExternal:     http.StatusBadGateway,
		errs.KindDatabase:     http.StatusServiceUnavailable,
		errs.KindInternal:     http.StatusInternalServerError,
	}
	for k, want := range cases {
		if got := StatusFor(k); got != want {
			t.Errorf("StatusFor(%v) = %d; want %d", k, got, want)
		}
	}
}

func TestWriteError_SanitizesServerErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/db", func(c *gin.Context) {
		writeError(c, errs.Database("disk I/O error at /var/lib/x", errors.New("io")), false)
	})
	r.GET("/db-exposed", func(c *gin.Context) {
		writeError(c, errs.Database("disk I/O error", errors.New("io")), true)
	})
	r.GET("/plain", func(c *gin.Context) {
		writeError(c, errors.New("unclassified"), false)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/db", nil))
	env := decodeEnvelope(t, w)
	if w.Code != http.StatusServiceUnavailable || env.Message != genericServerMessage {
		t.Fatalf("db: %d %+v", w.Code, env)
	}
	if strings.Contains(w.Body.String(), "/var/lib") {
		t.Fatalf("internal detail leaked: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/db-exposed", nil))
	if env := decodeEnvelope(t, w); env.Message == genericServerMessage {
		t.Fatalf("expose=true should keep the message: %+v", env)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/plain", nil))
	env = decodeEnvelope(t, w)
	if w.Code != http.StatusInternalServerError || env.Errors[0].Code != ErrCodeInternal {
		t.Fatalf("plain: %d %+v", w.Code, env)
	}
}

func TestWriteError_DomainCodeSurvives(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/x", func(c *gin.Context) {
		writeError(c, errs.NotFound("User", "x"), false)
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	env := decodeEnvelope(t, w)
	if w.Code != http.StatusNotFound || env.Errors[0].Code != "User.NotFound" {
		t.Fatalf("got %d %+v", w.Code, env)
	}
}
