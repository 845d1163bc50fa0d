package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Log tags each request with a log_id and records its latency.
func Log(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var (
			start  = time.Now()
			logger = log.Ctx(r.Context()).With().
				Str("log_id", uuid.New().String()).
				Logger()
			ctx = logger.WithContext(r.Context())
		)

		next.ServeHTTP(w, r.WithContext(ctx))

		logger.Info().Msgf("%s %s took: %v", r.Method, r.URL.Path, time.Since(start))
	})
}
