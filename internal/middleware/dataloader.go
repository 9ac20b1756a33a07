package middleware

import (
	"context"
	"net/http"

	"github.com/rpattn/clientops/internal/clientloader"
	"github.com/rpattn/clientops/internal/repository"

	"github.com/graph-gophers/dataloader"
)

type ctxKey string

const clientLoaderKey ctxKey = "clientLoader"

// DataLoaderMiddleware attaches a client dataloader to the request context
func DataLoaderMiddleware(repo repository.ClientRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			loader := clientloader.NewClientLoader(repo)

			// Store the underlying dataloader.Loader in context
			ctx := WithClientLoader(r.Context(), loader.Loader)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// WithClientLoader returns a context carrying loader.
func WithClientLoader(ctx context.Context, loader *dataloader.Loader) context.Context {
	return context.WithValue(ctx, clientLoaderKey, loader)
}

// ClientLoaderFromContext retrieves the dataloader from context
func ClientLoaderFromContext(ctx context.Context) *dataloader.Loader {
	if l, ok := ctx.Value(clientLoaderKey).(*dataloader.Loader); ok {
		return l
	}
	return nil
}
