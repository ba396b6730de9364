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

	"github.com/angelmondragon/thriftlane-backend/api/responses"
	pkgerrors "github.com/angelmondragon/thriftlane-backend/pkg/errors"
	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
)

const maxAuthBodyBytes = 64 << 10

// RateLimiterStore counts attempts in fixed windows.
type RateLimiterStore interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
	RateLimitKey(parts ...string) string
}

// attemptLimit caps attempts per value of one request attribute.
type attemptLimit struct {
	dimension string
	max       int
	needsBody bool
	value     func(r *http.Request, body []byte) string
}

// AuthRateLimitPolicy throttles one auth surface (login, register) per client
// address and per submitted email.
type AuthRateLimitPolicy struct {
	name   string
	window time.Duration
	limits []attemptLimit
}

// NewAuthRateLimitPolicy builds a policy. A zero limit disables that dimension.
func NewAuthRateLimitPolicy(name string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "auth"
	}
	p := AuthRateLimitPolicy{name: name, window: window}
	if ipLimit > 0 {
		p.limits = append(p.limits, attemptLimit{
			dimension: "ip",
			max:       ipLimit,
			value:     func(r *http.Request, _ []byte) string { return clientIP(r) },
		})
	}
	if emailLimit > 0 {
		p.limits = append(p.limits, attemptLimit{
			dimension: "email",
			max:       emailLimit,
			needsBody: true,
			value:     emailDigest,
		})
	}
	return p
}

func (p AuthRateLimitPolicy) enabled() bool {
	return p.window > 0 && len(p.limits) > 0
}

func (p AuthRateLimitPolicy) needsBody() bool {
	for _, l := range p.limits {
		if l.needsBody {
			return true
		}
	}
	return false
}

// AuthRateLimit answers 429 with Retry-After once any dimension of policy is
// exhausted for the current window.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if !policy.enabled() || store == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.needsBody() {
				var err error
				body, err = io.ReadAll(io.LimitReader(r.Body, maxAuthBodyBytes))
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				r.Body = io.NopCloser(bytes.NewReader(body))
			}

			for _, limit := range policy.limits {
				value := limit.value(r, body)
				if value == "" {
					continue
				}
				attempts, err := store.Hit(ctx, store.RateLimitKey(policy.name, limit.dimension, value), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if attempts > int64(limit.max) {
					if logg != nil {
						logg.Warn(logg.WithFields(ctx, map[string]any{
							"policy":    policy.name,
							"dimension": limit.dimension,
							"attempts":  attempts,
							"limit":     limit.max,
						}), "auth.rate_limited")
					}
					w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second).Seconds())))
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many attempts, try again later"))
					return
				}
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

// emailDigest keys the email dimension by hash so raw addresses never land in redis.
func emailDigest(_ *http.Request, body []byte) string {
	var payload struct {
		Email string `json:"email"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	email := strings.ToLower(strings.TrimSpace(payload.Email))
	if email == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(email))
	return hex.EncodeToString(sum[:])
}
