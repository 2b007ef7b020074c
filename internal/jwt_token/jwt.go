package jwttoken

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"

	dErrors "helios/pkg/domain-errors"
)

// Claims are the access-token claims the portal's login service mints.
// The gateway validates these tokens; it never issues them.
type Claims struct {
	OrganizationID string `json:"org_id"`
	ActorID        string `json:"actor_id"`
	jwt.RegisteredClaims
}

// Service validates session JWTs.
type Service struct {
	signingKey []byte
	issuer     string
	audience   string
}

func NewService(signingKey, issuer, audience string) *Service {
	return &Service{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
	}
}

// ValidateToken parses and verifies a session token, returning its claims.
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, dErrors.New(dErrors.CodeUnauthenticated, "token has expired")
		}
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "invalid token claims")
	}
	if claims.OrganizationID == "" || claims.ActorID == "" {
		return nil, dErrors.New(dErrors.CodeUnauthenticated, "token missing identity claims")
	}
	return claims, nil
}
