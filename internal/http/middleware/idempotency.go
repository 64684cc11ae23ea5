package middleware

import (
	"context"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey carries the client's key for an unsafe request.
const HeaderIdempotencyKey = "Idempotency-Key"

const (
	idempotencyKey   = "idempotency"
	ctxKeyRateBypass = "rate.bypass"

	defaultMaxKeyLen = 200
)

var defaultKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._~\-:]+$`)

// idempotencyState is what IdempotencyValidator learned about a request.
type idempotencyState struct {
	key        string
	replay     bool
	resourceID string
}

func stateFrom(c *gin.Context) idempotencyState {
	v, _ := c.Get(idempotencyKey)
	st, _ := v.(idempotencyState)
	return st
}

// IdempotencyKey returns the validated Idempotency-Key of the request.
func IdempotencyKey(c *gin.Context) (string, bool) {
	st := stateFrom(c)
	return st.key, st.key != ""
}

// IsReplay reports whether a completed request with the same caller, scope
// and key was found.
func IsReplay(c *gin.Context) bool {
	return stateFrom(c).replay
}

// ReplayedResource returns the id of the resource the original request
// produced.
func ReplayedResource(c *gin.Context) (string, bool) {
	st := stateFrom(c)
	return st.resourceID, st.replay && st.resourceID != ""
}

// IdempotencyScope is the method plus the matched route pattern, e.g.
// "POST /api/v1/squads/:id/join". A key reused on another route does not
// collide.
func IdempotencyScope(c *gin.Context) string {
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	return c.Request.Method + " " + route
}

// IdempotencyOptions bounds accepted keys. Zero values pick a 200 character
// limit and an RFC 7230 token-like pattern.
type IdempotencyOptions struct {
	MaxLen  int
	Pattern *regexp.Regexp
}

// IdempotencyLookup finds a still-valid record for (userID, scope, key) and
// returns the resource it produced.
type IdempotencyLookup func(ctx context.Context, userID, scope, key string, now time.Time) (resourceID string, exists bool, err error)

// IdempotencyValidator rejects malformed keys with 400 and, for signed-in
// callers, marks requests whose key already completed as replays. Replays
// skip the rate limiter; handlers decide how to answer them. A failing lookup
// is logged and treated as a miss.
func IdempotencyValidator(opts IdempotencyOptions, lookup IdempotencyLookup) gin.HandlerFunc {
	if opts.MaxLen <= 0 {
		opts.MaxLen = defaultMaxKeyLen
	}
	if opts.Pattern == nil {
		opts.Pattern = defaultKeyPattern
	}

	return func(c *gin.Context) {
		key := c.GetHeader(HeaderIdempotencyKey)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > opts.MaxLen || !opts.Pattern.MatchString(key) {
			abortWithError(c, http.StatusBadRequest, "bad_idempotency_key", "invalid Idempotency-Key")
			return
		}

		st := idempotencyState{key: key}
		if uid := userIDFromCtx(c); uid != "" && lookup != nil {
			rid, found, err := lookup(c.Request.Context(), uid, IdempotencyScope(c), key, time.Now().UTC())
			switch {
			case err != nil:
				LoggerFrom(c).Warn().Err(err).Str("idempotency_key", key).Msg("idempotency lookup failed")
			case found:
				st.replay, st.resourceID = true, rid
				c.Set(ctxKeyRateBypass, true)
			}
		}
		c.Set(idempotencyKey, st)
		c.Next()
	}
}

// userIDFromCtx returns the caller id Identity stored, or "" when anonymous.
func userIDFromCtx(c *gin.Context) string {
	return c.GetString("userID")
}
