package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dukerupert/atelier/internal/domain"
)

const (
	KB = 1024
	MB = 1024 * KB

	// SmallMaxBodySize bounds JSON bodies: cart lines, orders, sales.
	SmallMaxBodySize = 1 * MB

	// UploadMaxBodySize bounds multipart product image uploads.
	UploadMaxBodySize = 20 * MB

	// DefaultTimeout bounds a whole request, including order transactions.
	DefaultTimeout = 30 * time.Second
)

// MaxBodySize rejects bodies that declare more than limit bytes up front and
// caps the rest with http.MaxBytesReader, which the JSON decoder reports as
// too_large.
func MaxBodySize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				respondTooLarge(w, r, "Request body too large")
				return
			}
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, limit)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Timeout cancels the request context after d. If the handler has not
// started its response by then, the client gets a 503 timeout error and
// anything the handler writes afterwards is discarded.
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()

			tw := &timeoutWriter{ResponseWriter: w, header: make(http.Header)}
			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(tw, r.WithContext(ctx))
			}()

			select {
			case <-done:
			case <-ctx.Done():
				tw.mu.Lock()
				defer tw.mu.Unlock()
				tw.timedOut = true
				if !tw.wroteHeader {
					respondWithError(w, r, domain.Errorf(domain.ETIMEOUT, "", "Request timed out"))
				}
			}
		})
	}
}

// timeoutWriter buffers header edits so the handler goroutine never touches
// the real header map after the timeout response has been written.
type timeoutWriter struct {
	http.ResponseWriter
	mu          sync.Mutex
	header      http.Header
	wroteHeader bool
	timedOut    bool
}

func (tw *timeoutWriter) Header() http.Header {
	return tw.header
}

func (tw *timeoutWriter) WriteHeader(code int) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	tw.writeHeaderLocked(code)
}

func (tw *timeoutWriter) writeHeaderLocked(code int) {
	if tw.wroteHeader || tw.timedOut {
		return
	}
	tw.wroteHeader = true
	dst := tw.ResponseWriter.Header()
	for k, v := range tw.header {
		dst[k] = v
	}
	tw.ResponseWriter.WriteHeader(code)
}

func (tw *timeoutWriter) Write(b []byte) (int, error) {
	tw.mu.Lock()
	defer tw.mu.Unlock()
	if tw.timedOut {
		return 0, context.DeadlineExceeded
	}
	tw.writeHeaderLocked(http.StatusOK)
	return tw.ResponseWriter.Write(b)
}
