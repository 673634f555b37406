package platform

import (
	"context"
	"log/slog"
)

// Mock is a mock publisher for local development.
type Mock struct {
	logger *slog.Logger
}

// NewMock creates a new mock publisher.
func NewMock(logger *slog.Logger) *Mock {
	return &Mock{
		logger: logger,
	}
}

// Publish logs the post instead of sending it.
func (m *Mock) Publish(_ context.Context, content string) (string, error) {
	m.logger.Info("MOCK PUBLISH",
		"content_length", len(content))
	return `{"id":"mock"}`, nil
}
