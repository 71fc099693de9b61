package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/magabrotheeeer/threadforge/internal/models"
)

// CustomClaims описывает данные, хранящиеся в JWT.
type CustomClaims struct {
	Email                string           `json:"email"`
	Role                 models.Role      `json:"role"`
	Kind                 models.TokenKind `json:"kind"`
	Remember             bool             `json:"remember,omitempty"`
	jwt.RegisteredClaims                  // sub, iat, exp, jti
}

// IssueAccessToken выпускает короткоживущий access-токен.
func (m *MakerImpl) IssueAccessToken(sub Subject) (string, time.Time, error) {
	return m.issue(sub, models.TokenAccess, m.accessTTL, false)
}

// IssueRefreshToken выпускает refresh-токен. remember продлевает только срок refresh-токена.
func (m *MakerImpl) IssueRefreshToken(sub Subject, remember bool) (string, time.Time, error) {
	ttl := m.refreshTTL
	if remember {
		ttl = m.rememberTTL
	}
	return m.issue(sub, models.TokenRefresh, ttl, remember)
}

func (m *MakerImpl) issue(sub Subject, kind models.TokenKind, ttl time.Duration, remember bool) (string, time.Time, error) {
	const op = "jwt.issue"
	if sub.UserID == "" {
		return "", time.Time{}, fmt.Errorf("%s: empty subject", op)
	}
	issuedAt := m.now().Truncate(time.Second)
	expiresAt := issuedAt.Add(ttl)
	claims := CustomClaims{
		Email:    sub.Email,
		Role:     sub.Role,
		Kind:     kind,
		Remember: remember,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.UserID,
			Issuer:    m.issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("%s: %w", op, err)
	}
	return token, expiresAt, nil
}

// VerifyToken проверяет подпись, обязательные claims, срок действия и тип токена.
//
// Срок действия проверяется библиотекой после подписи, поэтому просроченный, но
// подлинный токен возвращает ErrTokenExpired, а поддельный всегда ErrInvalidToken.
// Токен истёк, только когда now > exp: сам момент exp ещё допустим.
func (m *MakerImpl) VerifyToken(tokenStr string, expected models.TokenKind) (*CustomClaims, error) {
	const op = "jwt.VerifyToken"
	now := m.now()
	claims := &CustomClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	_, err := parser.ParseWithClaims(tokenStr, claims, func(_ *jwt.Token) (any, error) {
		return m.secret, nil
	})
	switch {
	case err == nil:
	case errors.Is(err, jwt.ErrTokenExpired) && atExpiry(claims, now) &&
		!errors.Is(err, jwt.ErrTokenUsedBeforeIssued) && !errors.Is(err, jwt.ErrTokenNotValidYet):
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, fmt.Errorf("%s: %w", op, ErrTokenExpired)
	default:
		return nil, fmt.Errorf("%s: %w: %s", op, ErrInvalidToken, err.Error())
	}

	if claims.Subject == "" || claims.ID == "" || claims.IssuedAt == nil {
		return nil, fmt.Errorf("%s: %w: missing required claim", op, ErrInvalidToken)
	}
	if claims.Kind != expected {
		return nil, fmt.Errorf("%s: %w: unexpected token kind %q", op, ErrInvalidToken, claims.Kind)
	}
	return claims, nil
}

func atExpiry(claims *CustomClaims, now time.Time) bool {
	return claims.ExpiresAt != nil && now.Equal(claims.ExpiresAt.Time)
}
