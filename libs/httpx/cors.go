package httpx

import (
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"
)

// CORSPolicy defines the CORS headers to emit for matching origins.
type CORSPolicy struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
	MaxAge           time.Duration
}

// DefaultCORSPolicy allows the browser client of the booking API from origins.
func DefaultCORSPolicy(origins []string) CORSPolicy {
	return CORSPolicy{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           10 * time.Minute,
	}
}

type corsHeaders struct {
	origins     []string
	wildcard    bool
	credentials bool
	fixed       map[string]string
}

func (c corsHeaders) allowOrigin(origin string) (string, bool) {
	if c.wildcard {
		if c.credentials {
			return origin, true
		}
		return "*", true
	}
	if slices.ContainsFunc(c.origins, func(o string) bool { return strings.EqualFold(o, origin) }) {
		return origin, true
	}
	return "", false
}

// WithCORS answers preflights for allowed origins and decorates their actual
// requests. With no allowed origins the middleware does nothing.
func WithCORS(cfg CORSPolicy) Middleware {
	origins := normalizeList(cfg.AllowedOrigins)
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	c := corsHeaders{
		origins:     origins,
		wildcard:    slices.Contains(origins, "*"),
		credentials: cfg.AllowCredentials,
		fixed:       map[string]string{},
	}
	if cfg.AllowCredentials {
		c.fixed["Access-Control-Allow-Credentials"] = "true"
	}
	if m := normalizeList(cfg.AllowedMethods); len(m) > 0 {
		c.fixed["Access-Control-Allow-Methods"] = strings.Join(m, ", ")
	}
	if h := normalizeList(cfg.AllowedHeaders); len(h) > 0 {
		c.fixed["Access-Control-Allow-Headers"] = strings.Join(h, ", ")
	}
	if secs := int(cfg.MaxAge.Seconds()); secs > 0 {
		c.fixed["Access-Control-Max-Age"] = strconv.Itoa(secs)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			allow, ok := "", false
			if origin != "" {
				allow, ok = c.allowOrigin(origin)
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			h := w.Header()
			h.Set("Access-Control-Allow-Origin", allow)
			for k, v := range c.fixed {
				h.Set(k, v)
			}
			h.Add("Vary", "Origin")

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				h.Add("Vary", "Access-Control-Request-Method")
				h.Add("Vary", "Access-Control-Request-Headers")
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func normalizeList(values []string) []string {
	var out []string
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
