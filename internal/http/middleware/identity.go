// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the caller's identity from the headers injected by the
// App Service authentication front door (Easy Auth). The service never
// validates credentials itself: it trusts the front door and only reads what
// it forwarded.
//
// Resolution order:
//   - X-MS-CLIENT-PRINCIPAL-ID / X-MS-CLIENT-PRINCIPAL-NAME when present.
//   - Otherwise the base64 JSON claims bag in X-MS-CLIENT-PRINCIPAL, from
//     which the name-identifier and name claims are taken.
//
// A request with no id is anonymous. The middleware never rejects a request;
// handlers that need a user answer 401 themselves.
package middleware

import (
	"encoding/base64"
	"strings"

	"github.com/gin-gonic/gin"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog"
)

// Easy Auth request headers.
const (
	HeaderPrincipalID   = "X-MS-CLIENT-PRINCIPAL-ID"
	HeaderPrincipalName = "X-MS-CLIENT-PRINCIPAL-NAME"
	HeaderPrincipalIDP  = "X-MS-CLIENT-PRINCIPAL-IDP"
	HeaderPrincipal     = "X-MS-CLIENT-PRINCIPAL"
)

// Claim types consulted when only the claims bag is forwarded.
const (
	ClaimNameIdentifier = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/nameidentifier"
	ClaimName           = "http://schemas.xmlsoap.org/ws/2005/05/identity/claims/name"
	claimSub            = "sub"
	claimShortName      = "name"
	claimGitHubLogin    = "urn:github:login"
)

const ctxKeyPrincipal = "auth.principal"

// easyAuthHeaders carry identity or tokens and are never logged.
var easyAuthHeaders = []string{
	HeaderPrincipal,
	HeaderPrincipalID,
	HeaderPrincipalName,
	"X-MS-TOKEN-GITHUB-ACCESS-TOKEN",
}

// Principal is the authenticated caller as forwarded by the front door.
type Principal struct {
	ID       string            `json:"id"`
	Name     string            `json:"name,omitempty"`
	Provider string            `json:"provider,omitempty"`
	Claims   map[string]string `json:"claims,omitempty"`
}

// easyAuthPrincipal is the decoded X-MS-CLIENT-PRINCIPAL payload.
type easyAuthPrincipal struct {
	AuthType string `json:"auth_typ"`
	NameType string `json:"name_typ"`
	Claims   []struct {
		Type  string `json:"typ"`
		Value string `json:"val"`
	} `json:"claims"`
}

var principalJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Identity stores the caller's Principal in the Gin context and, when the
// caller is known, its id under "userID" for the rate limiter. The
// request-scoped logger gains a user_id field.
func Identity() gin.HandlerFunc {
	return func(c *gin.Context) {
		p := principalFromHeaders(c)
		if p.ID != "" {
			c.Set(ctxKeyPrincipal, p)
			c.Set("userID", p.ID)
			withLogger(c, func(lc zerolog.Context) zerolog.Context {
				return lc.Str("user_id", p.ID)
			})
		}
		c.Next()
	}
}

// PrincipalFrom returns the caller set by Identity. ok is false for
// anonymous requests.
func PrincipalFrom(c *gin.Context) (Principal, bool) {
	v, ok := c.Get(ctxKeyPrincipal)
	if !ok {
		return Principal{}, false
	}
	p, ok := v.(Principal)
	return p, ok && p.ID != ""
}

func principalFromHeaders(c *gin.Context) Principal {
	p := Principal{
		ID:       strings.TrimSpace(c.GetHeader(HeaderPrincipalID)),
		Name:     strings.TrimSpace(c.GetHeader(HeaderPrincipalName)),
		Provider: strings.TrimSpace(c.GetHeader(HeaderPrincipalIDP)),
	}
	raw := strings.TrimSpace(c.GetHeader(HeaderPrincipal))
	if raw == "" {
		return p
	}
	ep, err := decodePrincipal(raw)
	if err != nil {
		// A malformed claims bag is ignored; the plain headers still count.
		LoggerFrom(c).Debug().Err(err).Msg("undecodable client principal")
		return p
	}
	p.Claims = make(map[string]string, len(ep.Claims))
	for _, cl := range ep.Claims {
		// First value wins for repeated claim types.
		if _, dup := p.Claims[cl.Type]; !dup {
			p.Claims[cl.Type] = cl.Value
		}
	}
	if p.Provider == "" {
		p.Provider = ep.AuthType
	}
	if p.ID == "" {
		p.ID = firstClaim(p.Claims, ClaimNameIdentifier, claimSub)
	}
	if p.Name == "" {
		p.Name = firstClaim(p.Claims, ep.NameType, claimGitHubLogin, ClaimName, claimShortName)
	}
	return p
}

// decodePrincipal accepts padded and unpadded standard or URL base64.
func decodePrincipal(raw string) (*easyAuthPrincipal, error) {
	var (
		b   []byte
		err error
	)
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err = enc.DecodeString(raw); err == nil {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	var ep easyAuthPrincipal
	if err := principalJSON.Unmarshal(b, &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

func firstClaim(claims map[string]string, types ...string) string {
	for _, t := range types {
		if t == "" {
			continue
		}
		if v := strings.TrimSpace(claims[t]); v != "" {
			return v
		}
	}
	return ""
}
