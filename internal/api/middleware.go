package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"pickup-address-matcher/pkg/logging"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags every request with an ID, reusing an inbound X-Request-ID
// when it parses as a UUID. The ID is echoed in the response header and
// stored in the context under logging.RequestIDKey.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := context.WithValue(r.Context(), logging.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFrom returns the request ID stored by RequestID, or "".
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(logging.RequestIDKey).(string)
	return id
}

type recorder struct {
	http.ResponseWriter
	status int
}

func (rec *recorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

// AccessLog writes one structured line per request.
func AccessLog(logger *logging.Logger) mux.MiddlewareFunc {
	log := logger.WithComponent("http")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rec.status),
				logging.Duration("duration", time.Since(start)),
			}
			if rec.status >= http.StatusInternalServerError {
				log.Ctx(r.Context()).Warn("request", fields...)
				return
			}
			log.Ctx(r.Context()).Info("request", fields...)
		})
	}
}
