package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/jewelbid-backend/api/responses"
	pkgerrors "github.com/angelmondragon/jewelbid-backend/pkg/errors"
	"github.com/angelmondragon/jewelbid-backend/pkg/logger"
	"github.com/angelmondragon/jewelbid-backend/pkg/redis"
)

// maxSniffBytes caps how much of an auth body is buffered to find the email.
const maxSniffBytes = 64 << 10

// AuthRateLimitPolicy throttles an auth surface per client IP and per
// submitted email. A zero limit disables that dimension.
type AuthRateLimitPolicy struct {
	Name       string
	Window     time.Duration
	IPLimit    int
	EmailLimit int
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.Window > 0 && (p.IPLimit > 0 || p.EmailLimit > 0)
}

func (p AuthRateLimitPolicy) name() string {
	if name := strings.ToLower(strings.TrimSpace(p.Name)); name != "" {
		return name
	}
	return "auth"
}

// limiter wraps a fixed-window store with the logging and response shape
// shared by every throttled route.
type limiter struct {
	store    redis.RateLimiter
	logg     *logger.Logger
	event    string
	failOpen bool
}

// admit reports whether the request may continue. When it returns false a
// response has already been written.
func (l limiter) admit(ctx context.Context, w http.ResponseWriter, scope string, limit int, window time.Duration, fields map[string]any) bool {
	allowed, count, err := l.store.FixedWindowAllow(ctx, scope, int64(limit), window)
	if err != nil {
		if l.logg != nil {
			l.logg.Error(ctx, l.event+".unavailable", err)
		}
		if l.failOpen {
			return true
		}
		responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
		return false
	}
	if allowed {
		return true
	}
	if l.logg != nil {
		logFields := map[string]any{
			"attempts":       count,
			"limit":          limit,
			"window_seconds": int(window.Seconds()),
		}
		for k, v := range fields {
			logFields[k] = v
		}
		l.logg.Warn(l.logg.WithFields(ctx, logFields), l.event+".blocked")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
	responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
	return false
}

// AuthRateLimit applies policy to login and registration. A limiter outage
// rejects the request.
func AuthRateLimit(policy AuthRateLimitPolicy, store redis.RateLimiter, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}
		l := limiter{store: store, logg: logg, event: "auth.rate_limit"}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			name := policy.name()

			if ip := clientIP(r); policy.IPLimit > 0 && ip != "" {
				if !l.admit(ctx, w, "ip:"+name+":"+ip, policy.IPLimit, policy.Window, map[string]any{"policy": name, "ip": ip}) {
					return
				}
			}

			if policy.EmailLimit > 0 && r.Body != nil {
				body, err := io.ReadAll(io.LimitReader(r.Body, maxSniffBytes))
				if err != nil {
					responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
				if hash := emailHash(body); hash != "" {
					if !l.admit(ctx, w, "email:"+name+":"+hash, policy.EmailLimit, policy.Window, map[string]any{"policy": name, "email_hash": hash}) {
						return
					}
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// BidRateLimit caps bid submissions per authenticated user. A limiter outage
// lets bids through.
func BidRateLimit(store redis.RateLimiter, limit int, window time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || limit <= 0 || window <= 0 {
			return next
		}
		l := limiter{store: store, logg: logg, event: "bids.rate_limit", failOpen: true}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())
			if userID != "" && !l.admit(r.Context(), w, "bids:"+userID, limit, window, nil) {
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	return r.RemoteAddr
}

// emailHash returns a hex digest of the normalized email in an auth body so
// raw addresses never reach redis keys or logs.
func emailHash(payload []byte) string {
	var body struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(body.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
