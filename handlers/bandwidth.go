package handlers

import (
	"context"
	"net/http"

	"golang.org/x/time/rate"
)

// chunkSize is the maximum number of bytes written in a single pass through
// the rate limiter. Smaller values give smoother, more accurate limiting;
// 32 KiB balances accuracy and syscall overhead.
const chunkSize = 32 * 1024

// Throttle applies an optional server-wide cap on response bandwidth.
// Every client is the local machine, so one shared token bucket is enough;
// there is no per-peer fairness to arbitrate.
type Throttle struct {
	limiter *rate.Limiter // nil when unlimited
}

// NewThrottle creates a throttle with the given total cap in bytes per
// second. Pass 0 to disable rate limiting entirely.
func NewThrottle(bytesPerSec float64) *Throttle {
	if bytesPerSec <= 0 {
		return &Throttle{}
	}
	return &Throttle{limiter: rate.NewLimiter(rate.Limit(bytesPerSec), chunkSize)}
}

// Wrap returns an http.Handler that throttles h's response writes. When no
// cap is set, h is returned unchanged with zero overhead.
func (t *Throttle) Wrap(h http.Handler) http.Handler {
	if t.limiter == nil {
		return h
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(&limitedResponseWriter{
			ResponseWriter: w,
			ctx:            r.Context(),
			limiter:        t.limiter,
		}, r)
	})
}

// limitedResponseWriter wraps http.ResponseWriter and throttles Write calls
// through a token-bucket rate limiter.
type limitedResponseWriter struct {
	http.ResponseWriter
	ctx     context.Context
	limiter *rate.Limiter
}

func (lw *limitedResponseWriter) Write(p []byte) (int, error) {
	total := 0
	for len(p) > 0 {
		// Check if the client has gone away.
		select {
		case <-lw.ctx.Done():
			return total, lw.ctx.Err()
		default:
		}

		n := len(p)
		if n > chunkSize {
			n = chunkSize
		}

		// Block until the limiter grants tokens for this chunk.
		if err := lw.limiter.WaitN(lw.ctx, n); err != nil {
			return total, err
		}

		written, err := lw.ResponseWriter.Write(p[:n])
		total += written
		if err != nil {
			return total, err
		}
		p = p[n:]
	}
	return total, nil
}

// Unwrap lets http.ResponseController reach the underlying ResponseWriter.
func (lw *limitedResponseWriter) Unwrap() http.ResponseWriter {
	return lw.ResponseWriter
}
