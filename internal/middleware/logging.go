package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// statusWriter captures the response status for request logging.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// callerRef carries the authenticated caller back out to the request
// logger. RequireAuth runs after Logging in the chain, so the context it
// derives is invisible to Logging; writing through this shared holder is
// how the caller crosses back.
type callerRef struct {
	addr string
}

func setCaller(ctx context.Context, addr string) {
	if ref, ok := ctx.Value(callerRefKey).(*callerRef); ok {
		ref.addr = addr
	}
}

// Logging logs every request with method, path, caller, status, and
// duration.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		ref := &callerRef{}
		ctx := context.WithValue(r.Context(), callerRefKey, ref)

		next.ServeHTTP(sw, r.WithContext(ctx))

		slog.Info("Request completed",
			"method", r.Method,
			"path", r.URL.Path,
			"caller", ref.addr,
			"status", sw.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

// CORS adds permissive CORS headers for browser access.
func CORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
