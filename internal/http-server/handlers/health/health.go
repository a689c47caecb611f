package health

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/render"

	resp "github.com/lostmyescape/opsconsole/internal/lib/api/response"
	"github.com/lostmyescape/opsconsole/internal/lib/logger/sl"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

const pingTimeout = 2 * time.Second

// New reports liveness of the API and its primary store.
func New(log *slog.Logger, pinger Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			log.Warn("health check failed", sl.Err(err))
			resp.Fail(w, r, http.StatusServiceUnavailable, "storage unavailable")
			return
		}

		render.JSON(w, r, map[string]string{"status": "ok"})
	}
}
