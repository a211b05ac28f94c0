package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the session cookie carrying the signed token
const CookieName = "access_token"

// ErrNoToken is returned when a request carries neither cookie nor bearer token
var ErrNoToken = errors.New("no access token")

// Claims identify the authenticated borrower
type Claims struct {
	NumeroCuenta string `json:"numeroCuenta"`
	UserID       uint   `json:"id"`
	FirstName    string `json:"firstName"`
	Tipo         int    `json:"tipo"`
	jwt.RegisteredClaims
}

// JWTManager handles JWT token creation and validation
type JWTManager struct {
	secret  []byte
	timeout time.Duration
	now     func() time.Time
}

// NewJWTManager creates a token manager signing with HS256
func NewJWTManager(secret string, timeout time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required but was empty")
	}
	return &JWTManager{
		secret:  []byte(secret),
		timeout: timeout,
		now:     time.Now,
	}, nil
}

// Timeout is how long issued tokens stay valid
func (m *JWTManager) Timeout() time.Duration {
	return m.timeout
}

// GenerateToken signs a token for the given borrower
func (m *JWTManager) GenerateToken(numeroCuenta string, userID uint, firstName string, tipo int) (string, error) {
	now := m.now()
	claims := &Claims{
		NumeroCuenta: numeroCuenta,
		UserID:       userID,
		FirstName:    firstName,
		Tipo:         tipo,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   numeroCuenta,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.timeout)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signedToken, nil
}

// ValidateToken checks signature, algorithm and expiry and returns the claims
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.NumeroCuenta == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}

// TokenFromRequest reads the session cookie, falling back to a bearer header
func TokenFromRequest(r *http.Request) (string, error) {
	if cookie, err := r.Cookie(CookieName); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}
	header := r.Header.Get("Authorization")
	if token, found := strings.CutPrefix(header, "Bearer "); found && token != "" {
		return token, nil
	}
	return "", ErrNoToken
}
