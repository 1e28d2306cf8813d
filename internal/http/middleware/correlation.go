package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/EvershineMarbles/EvershineBackend/pkg/correlationid"
)

// CorrelationID reuses the caller's X-Correlation-ID or mints one, stores it
// in the request context and echoes it on the response. The id follows the
// request into outbox headers and from there into Kafka.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(correlationid.Header)
			if id == "" || len(id) > 128 {
				id = uuid.NewString()
			}

			w.Header().Set(correlationid.Header, id)
			next.ServeHTTP(w, r.WithContext(correlationid.NewContext(r.Context(), id)))
		})
	}
}
