package graphql

import (
	"net/http"

	"github.com/rpattn/clientops/internal/middleware"

	"github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/99designs/gqlgen/graphql/playground"
)

// NewServer serves the executor over GET and POST with per-field timing logs.
// Introspection stays disabled.
func NewServer(executor *Executor) *handler.Server {
	srv := handler.New(executor)
	srv.AddTransport(transport.Options{})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	// Add the resolver logging extension
	srv.Use(&middleware.ResolverLoggerExtension{})
	return srv
}

// PlaygroundHandler serves the GraphQL playground page pointed at endpoint.
func PlaygroundHandler(endpoint string) http.HandlerFunc {
	return playground.Handler("GraphQL playground", endpoint)
}
