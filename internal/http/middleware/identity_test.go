package middleware

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveIdentity(t *testing.T, headers map[string]string) (Principal, bool, string) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Identity())

	var (
		got    Principal
		ok     bool
		userID string
	)
	r.GET("/me", func(c *gin.Context) {
		got, ok = PrincipalFrom(c)
		userID = c.GetString("userID")
		c.Status(http.StatusNoContent)
	})
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(httptest.NewRecorder(), req)
	return got, ok, userID
}

func TestIdentity_PlainHeaders(t *testing.T) {
	p, ok, uid := serveIdentity(t, map[string]string{
		HeaderPrincipalID:   " 583231 ",
		HeaderPrincipalName: "octocat",
		HeaderPrincipalIDP:  "github",
	})
	if !ok || p.ID != "583231" || p.Name != "octocat" || p.Provider != "github" {
		t.Fatalf("principal = %+v ok=%v", p, ok)
	}
	if uid != "583231" {
		t.Fatalf("userID = %q", uid)
	}
}

func TestIdentity_Anonymous(t *testing.T) {
	p, ok, uid := serveIdentity(t, nil)
	if ok || p.ID != "" || uid != "" {
		t.Fatalf("expected anonymous, got %+v ok=%v uid=%q", p, ok, uid)
	}
}

func TestIdentity_ClaimsBagFallback(t *testing.T) {
	bag := `{"auth_typ":"github","name_typ":"urn:github:login","claims":[` +
		`{"typ":"` + ClaimNameIdentifier + `","val":"77"},` +
		`{"typ":"urn:github:login","val":"hubot"},` +
		`{"typ":"urn:github:login","val":"ignored-duplicate"}]}`

	for name, enc := range map[string]*base64.Encoding{
		"std":     base64.StdEncoding,
		"raw url": base64.RawURLEncoding,
	} {
		t.Run(name, func(t *testing.T) {
			p, ok, uid := serveIdentity(t, map[string]string{HeaderPrincipal: enc.EncodeToString([]byte(bag))})
			if !ok || p.ID != "77" || uid != "77" {
				t.Fatalf("principal = %+v ok=%v uid=%q", p, ok, uid)
			}
			if p.Name != "hubot" || p.Provider != "github" {
				t.Fatalf("name/provider = %q/%q", p.Name, p.Provider)
			}
			if p.Claims["urn:github:login"] != "hubot" {
				t.Fatalf("claims = %v", p.Claims)
			}
		})
	}
}

func TestIdentity_HeaderWinsOverClaims(t *testing.T) {
	bag := base64.StdEncoding.EncodeToString([]byte(`{"claims":[{"typ":"sub","val":"from-claims"}]}`))
	p, ok, _ := serveIdentity(t, map[string]string{
		HeaderPrincipalID: "from-header",
		HeaderPrincipal:   bag,
	})
	if !ok || p.ID != "from-header" || p.Claims["sub"] != "from-claims" {
		t.Fatalf("principal = %+v", p)
	}
}

func TestIdentity_MalformedClaimsIgnored(t *testing.T) {
	p, ok, _ := serveIdentity(t, map[string]string{HeaderPrincipal: "%%%not-base64"})
	if ok || p.ID != "" {
		t.Fatalf("expected anonymous for malformed bag, got %+v", p)
	}

	notJSON := base64.StdEncoding.EncodeToString([]byte("not json"))
	p, ok, _ = serveIdentity(t, map[string]string{HeaderPrincipal: notJSON, HeaderPrincipalID: "9"})
	if !ok || p.ID != "9" || p.Claims != nil {
		t.Fatalf("principal = %+v", p)
	}
}
