package auth

import "context"

// MockJWTService is a configurable JWTService implementation for tests.
type MockJWTService struct {
	// ValidateTokenFn overrides ValidateToken when set.
	ValidateTokenFn func(ctx context.Context, tokenString string) (*Claims, error)
}

var _ JWTService = (*MockJWTService)(nil)

// ValidateToken delegates to ValidateTokenFn, or rejects the token when unset.
func (m *MockJWTService) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	if m.ValidateTokenFn != nil {
		return m.ValidateTokenFn(ctx, tokenString)
	}
	return nil, ErrInvalidToken
}
