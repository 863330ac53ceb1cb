package logging

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// RequestLabels returns extra attributes describing which route served r,
// for example the route template and the node it addressed.
type RequestLabels func(r *http.Request) []any

// Requests returns middleware that tags every request with an X-Request-ID
// (reusing the caller's when present) and logs one line per request. The level
// follows the status: 5xx is an error, 4xx a warning. labels may be nil, in which
// case the raw path is logged.
//
// Labels are computed after the handler ran, so routers that resolve the route
// before middleware (gorilla/mux) can report the matched template.
func Requests(labels RequestLabels) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			ctx := WithRequestID(r.Context(), requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			rec := &recorder{ResponseWriter: w, status: http.StatusOK}
			start := time.Now()
			next.ServeHTTP(rec, r)

			args := []any{"method", r.Method}
			if labels != nil {
				args = append(args, labels(r)...)
			} else {
				args = append(args, "path", r.URL.Path)
			}
			args = append(args,
				"status", rec.status,
				"bytes", rec.written,
				"durationMs", time.Since(start).Milliseconds(),
			)
			if rec.streamed {
				args = append(args, "streamed", true)
			}

			switch {
			case rec.status >= 500:
				ErrorContext(ctx, "request failed", args...)
			case rec.status >= 400:
				WarnContext(ctx, "request rejected", args...)
			default:
				InfoContext(ctx, "request completed", args...)
			}
		})
	}
}

// recorder captures what the handler sent
type recorder struct {
	http.ResponseWriter
	status   int
	written  int
	streamed bool
}

func (rw *recorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *recorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += n
	return n, err
}

// Flush passes through to the underlying writer; a flushed response is an event stream
func (rw *recorder) Flush() {
	if flusher, ok := rw.ResponseWriter.(http.Flusher); ok {
		rw.streamed = true
		flusher.Flush()
	}
}
