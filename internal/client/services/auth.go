package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/offlinekit/internal/client/client"
	"github.com/dmitrijs2005/offlinekit/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/offlinekit/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// AuthService stores the bearer token sent with every remote call. Tokens
// are issued elsewhere; JWTs are only inspected for their expiry, never
// verified.
type AuthService interface {
	SaveToken(ctx context.Context, token string) error
	Token(ctx context.Context) (string, error)
	TokenExpiry(ctx context.Context) (*time.Time, error)
	Logout(ctx context.Context) error
	TokenSource() client.TokenSource
}

type authService struct {
	repo metadata.Repository
	now  func() time.Time
}

func NewAuthService(repo metadata.Repository) AuthService {
	return &authService{repo: repo, now: time.Now}
}

// SaveToken stores token. An already expired JWT is rejected with
// common.ErrTokenExpired; opaque tokens are stored as is.
func (a *authService) SaveToken(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return common.ErrInvalidToken
	}

	exp, err := jwtExpiry(token)
	if err == nil && exp != nil && exp.Before(a.now()) {
		return common.ErrTokenExpired
	}

	if err := a.repo.Set(ctx, metadata.KeyAccessToken, []byte(token)); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Token returns the stored token, or "" when logged out.
func (a *authService) Token(ctx context.Context) (string, error) {
	b, err := a.repo.Get(ctx, metadata.KeyAccessToken)
	if err != nil {
		return "", fmt.Errorf("load token: %w", err)
	}
	return string(b), nil
}

// TokenExpiry returns the exp claim of a stored JWT. It returns nil for an
// opaque token or a JWT without exp, and common.ErrNoToken when logged out.
func (a *authService) TokenExpiry(ctx context.Context) (*time.Time, error) {
	tok, err := a.Token(ctx)
	if err != nil {
		return nil, err
	}
	if tok == "" {
		return nil, common.ErrNoToken
	}
	exp, err := jwtExpiry(tok)
	if errors.Is(err, common.ErrInvalidToken) {
		return nil, nil
	}
	return exp, err
}

func (a *authService) Logout(ctx context.Context) error {
	if err := a.repo.Delete(ctx, metadata.KeyAccessToken); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

func (a *authService) TokenSource() client.TokenSource {
	return a.Token
}

func jwtExpiry(token string) (*time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if exp == nil {
		return nil, nil
	}
	t := exp.Time
	return &t, nil
}
