package middleware

import (
	"github.com/go-chi/cors"
)

// NewCORS creates a CORS middleware for the given origins.
func NewCORS(allowedOrigins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Content-Type",
			APIKeyHeader,
		},
		ExposedHeaders: []string{"Content-Type", "Location"},
		MaxAge:         300,
	})
}
