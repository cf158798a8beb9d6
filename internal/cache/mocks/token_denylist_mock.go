package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type TokenDenylistMock struct {
	mock.Mock
}

func NewTokenDenylistMock() *TokenDenylistMock {
	return &TokenDenylistMock{}
}

func (m *TokenDenylistMock) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	args := m.Called(ctx, jti, ttl)
	return args.Error(0)
}

func (m *TokenDenylistMock) IsRevoked(ctx context.Context, jti string) (bool, error) {
	args := m.Called(ctx, jti)
	return args.Bool(0), args.Error(1)
}
