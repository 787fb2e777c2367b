package middleware

import (
	"math"
	"net/http"
	"strconv"

	"github.com/phrazzld/mission-control/internal/api/shared"
	"golang.org/x/time/rate"
)

// RateLimit admits at most perSec requests per second with the given burst,
// shared by every caller. Excess requests get 429 with Retry-After. perSec <= 0
// disables the limit.
func RateLimit(perSec float64, burst int) func(http.Handler) http.Handler {
	if perSec <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst <= 0 {
		burst = max(1, int(math.Ceil(perSec)))
	}
	limiter := rate.NewLimiter(rate.Limit(perSec), burst)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			res := limiter.Reserve()
			if delay := res.Delay(); delay > 0 {
				res.Cancel()
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(delay.Seconds()))))
				shared.RespondWithError(w, r, http.StatusTooManyRequests, "Rate limit exceeded")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
