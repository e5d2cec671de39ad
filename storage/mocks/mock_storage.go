package mocks

import (
	"context"

	"go-link-redirector/types"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a mock Storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) InsertLink(ctx context.Context, link types.Link) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockStorage) GetURL(ctx context.Context, shortCode string) (string, error) {
	args := m.Called(ctx, shortCode)
	return args.String(0), args.Error(1)
}

func (m *MockStorage) RecordClick(ctx context.Context, event types.ClickEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockStorage) GetStats(ctx context.Context, shortCode string) (types.Stats, error) {
	args := m.Called(ctx, shortCode)
	return args.Get(0).(types.Stats), args.Error(1)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}
