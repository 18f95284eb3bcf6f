package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS allows credentialed browser requests from the configured origins.
func CORS(origins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowCredentials: true,
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost,
			http.MethodHead, http.MethodPatch, http.MethodDelete, http.MethodPut,
		},
	})
	return c.Handler
}
