package endpoints

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"machine-metrics/internal/util"
)

const bearerPrefix = "Bearer "

// TokenAuthMiddleware rejects requests whose Authorization header does not
// carry one of tokens as a bearer token.
func TokenAuthMiddleware(tokens map[string]struct{}, logger *util.MetricsLogger) mux.MiddlewareFunc {
	var response APIResponse
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if _, valid := tokens[token]; valid {
					next.ServeHTTP(w, r)
					return
				}
			}
			logger.LogEvent(util.LOG_LEVEL_WARN, "Unauthorized request:", r.Method, r.RequestURI)
			response.WriteErrorResponseWithStatusCode(w, ErrUnauthorized, http.StatusUnauthorized)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := header[len(bearerPrefix):]
	return token, token != ""
}
