package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
)

type contextKey string

const actorKey contextKey = "actor_id"

// RequireActor reads the X-Actor-ID header the front-end sets after its
// own authentication and stashes the id in the request context. Requests
// without a parseable id are rejected; whether the user exists is checked
// downstream where the id is used.
func RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-Actor-ID")
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			json.NewEncoder(w).Encode(map[string]string{"error": "missing or invalid X-Actor-ID header"})
			return
		}

		ctx := context.WithValue(r.Context(), actorKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ActorID returns the acting user's id from the request context, or 0
// when the request did not pass through RequireActor.
func ActorID(ctx context.Context) int64 {
	id, _ := ctx.Value(actorKey).(int64)
	return id
}
