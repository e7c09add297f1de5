// Package auth issues and checks the operator bearer tokens used by the
// gRPC operator service. Client access links use accesstoken instead.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/contractsign/internal/common"
)

const issuer = "contractsign"

// Claims are the registered claims plus the operator name.
type Claims struct {
	jwt.RegisteredClaims
	Operator string `json:"operator"`
}

func GenerateToken(operator string, secretKey []byte, validityDuration time.Duration) (string, error) {
	if operator == "" {
		return "", errors.New("operator name is required")
	}
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   operator,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
		Operator: operator,
	})

	return token.SignedString(secretKey)
}

// GetOperatorFromToken validates tokenString and returns the operator name.
// Expired tokens yield common.ErrTokenExpired, anything else
// common.ErrorUnauthorized.
func GetOperatorFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", common.ErrorUnauthorized
	}

	if !token.Valid || claims.Operator == "" {
		return "", common.ErrorUnauthorized
	}

	return claims.Operator, nil
}
