package artifacts

import (
	"context"
	"errors"
	"path"
	"strings"
)

var ErrNotConfigured = errors.New("artifact store not configured")

type Store interface {
	Put(ctx context.Context, objectKey, contentType string, body []byte) error
	Close() error
}

type NoopStore struct{}

func NewNoopStore() *NoopStore {
	return &NoopStore{}
}

func (s *NoopStore) Put(_ context.Context, _ string, _ string, _ []byte) error {
	return ErrNotConfigured
}

func (s *NoopStore) Close() error {
	return nil
}

// ObjectKey joins non-empty key segments with "/".
func ObjectKey(parts ...string) string {
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.Trim(strings.TrimSpace(part), "/")
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return path.Join(cleaned...)
}
