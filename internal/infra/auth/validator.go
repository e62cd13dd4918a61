package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/xela07ax/embedins-infra-prototype/internal/domain"
)

// Эмитент токенов — консоль. Шлюз токены не выпускает, только проверяет.
const tokenIssuer = "embedins-console"

// BaseValidator проверяет RS256-токены операторской консоли. Владеет только
// публичным ключом: проверка возможна на любом инстансе без доступа к
// приватной части.
type BaseValidator struct {
	publicKey *rsa.PublicKey
}

func NewBaseValidator(pubKey *rsa.PublicKey) *BaseValidator {
	return &BaseValidator{publicKey: pubKey}
}

// VerifyToken принимает значение заголовка Authorization (с "Bearer " или
// без) и возвращает клеймы. Алгоритм зажат до RS256, эмитент — до консоли:
// токен с alg=none или чужим issuer не проходит.
func (v *BaseValidator) VerifyToken(tokenStr string) (*domain.CustomClaims, error) {
	tokenStr = strings.TrimSpace(strings.TrimPrefix(tokenStr, "Bearer "))

	claims := &domain.CustomClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims,
		func(*jwt.Token) (interface{}, error) { return v.publicKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: token rejected: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("auth: token invalid")
	}
	return claims, nil
}

// ParseRSAPublicKey разбирает PEM в ключ проверки подписи
func ParseRSAPublicKey(data []byte) (*rsa.PublicKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("auth: public key data is empty")
	}
	key, err := jwt.ParseRSAPublicKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to parse public key: %w", err)
	}
	return key, nil
}

// ParseRSAPrivateKey разбирает PEM в ключ подписи — нужен только консоли
func ParseRSAPrivateKey(data []byte) (*rsa.PrivateKey, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("auth: private key data is empty")
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to parse private key: %w", err)
	}
	return key, nil
}
