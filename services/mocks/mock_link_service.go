package mocks

import (
	"context"

	"go-link-redirector/types"

	"github.com/stretchr/testify/mock"
)

// MockLinkService is a mock LinkService interface
type MockLinkService struct {
	mock.Mock
}

func (m *MockLinkService) Shorten(ctx context.Context, requester types.Requester, rawURL string) (types.Link, error) {
	args := m.Called(ctx, requester, rawURL)
	return args.Get(0).(types.Link), args.Error(1)
}

func (m *MockLinkService) Follow(ctx context.Context, shortCode, address string) (string, error) {
	args := m.Called(ctx, shortCode, address)
	return args.String(0), args.Error(1)
}

func (m *MockLinkService) Stats(ctx context.Context, shortCode string) (types.Stats, error) {
	args := m.Called(ctx, shortCode)
	return args.Get(0).(types.Stats), args.Error(1)
}
