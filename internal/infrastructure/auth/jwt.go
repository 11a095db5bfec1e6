// Package auth verifies the bearer tokens issued by the marketplace's identity
// service. This service never issues sessions itself; IssueToken exists for
// operator tooling and tests.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/zetta/backend/internal/infrastructure/config"
)

// Role is the caller's marketplace role
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleSeller Role = "seller"
)

// Common errors
var (
	ErrInvalidToken      = errors.New("invalid token")
	ErrExpiredToken      = errors.New("token has expired")
	ErrInvalidClaims     = errors.New("invalid token claims")
	ErrTokenNotYetValid  = errors.New("token is not yet valid")
	ErrMissingUserID     = errors.New("missing user_id in claims")
	ErrMissingSellerID   = errors.New("seller token without seller_id")
	ErrUnknownRole       = errors.New("unknown role in claims")
	ErrTokenRevoked      = errors.New("token has been revoked")
	ErrSecretNotProvided = errors.New("jwt secret is not configured")
)

// Claims represents custom JWT claims
type Claims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Role     Role   `json:"role"`
	SellerID string `json:"seller_id,omitempty"`
}

// IsAdmin reports whether the caller may act on any seller's data
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// SellerUUID parses the seller the caller acts for
func (c *Claims) SellerUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SellerID)
}

// GetIssuedAtTime returns the token's issued-at time as time.Time
func (c *Claims) GetIssuedAtTime() time.Time {
	if c.IssuedAt != nil {
		return c.IssuedAt.Time
	}
	return time.Time{}
}

// GetRemainingTTL returns the remaining time until the token expires
func (c *Claims) GetRemainingTTL() time.Duration {
	if c.ExpiresAt == nil {
		return 0
	}
	remaining := time.Until(c.ExpiresAt.Time)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// JWTService handles JWT token operations
type JWTService struct {
	secret []byte
	issuer string
}

// NewJWTService creates a new JWT service
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// IssueTokenInput contains input for token generation
type IssueTokenInput struct {
	UserID   uuid.UUID
	Role     Role
	SellerID uuid.UUID
	TTL      time.Duration
}

// IssueToken signs an access token with HS256
func (s *JWTService) IssueToken(input IssueTokenInput) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrSecretNotProvided
	}
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   input.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(input.TTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		UserID: input.UserID.String(),
		Role:   input.Role,
	}
	if input.SellerID != uuid.Nil {
		claims.SellerID = input.SellerID.String()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateAccessToken validates a token and returns its claims
func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	if len(s.secret) == 0 {
		return nil, ErrSecretNotProvided
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	if claims.UserID == "" {
		return nil, ErrMissingUserID
	}
	switch claims.Role {
	case RoleAdmin:
	case RoleSeller:
		if _, err := claims.SellerUUID(); err != nil {
			return nil, ErrMissingSellerID
		}
	default:
		return nil, ErrUnknownRole
	}

	return claims, nil
}
