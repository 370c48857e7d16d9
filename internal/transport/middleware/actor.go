package middleware

import (
	"net/http"
	"strings"

	"github.com/frahmantamala/expense-workflow/internal"
	"github.com/frahmantamala/expense-workflow/pkg/logger"
)

const ActorHeader = "X-User-ID"

// ActorContext tags the request with the caller id from X-User-ID. The header is informational
// only; operations take their actor ids from the request payload.
func ActorContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actorID := strings.TrimSpace(r.Header.Get(ActorHeader))
		if actorID == "" {
			next.ServeHTTP(w, r)
			return
		}

		ctx := internal.ContextWithActorID(r.Context(), actorID)
		ctx = logger.With(ctx, "actor_id", actorID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
