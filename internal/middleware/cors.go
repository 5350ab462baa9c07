package middleware

import (
	"context"
	"net/http"
	"strings"

	"cragline/backend/internal/logger"

	"github.com/go-chi/cors"
)

func CORS(allowedOrigins []string, log *logger.Logger) func(http.Handler) http.Handler {
	// empty means any origin; local development only
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	if log != nil {
		log.Info(log.WithField(context.Background(), "origins", strings.Join(allowedOrigins, ",")), "cors configured")
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With", RequestIDHeader},
		ExposedHeaders:   []string{"Link", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
