package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/isoflow/clinicorder/pkg/common/code"
	"github.com/isoflow/clinicorder/pkg/repo/model"
)

var (
	USERKEY   = "AUTH_USER_KEY"
	CALLERKEY = "AUTH_CALLER_KEY"
)

type Claims struct {
	Name  string   `json:"name,omitempty"`
	Email string   `json:"email,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// SignToken issues an HS256 token for user. It backs local development and
// tests; production tokens come from the identity provider.
func SignToken(secret, issuer string, user *model.UserData, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Name:  user.Name,
		Email: user.Email,
		Roles: user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func ParseToken(secret, issuer, token string) (*model.UserData, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, code.InvalidToken.WithErr(err)
	}
	if claims.Subject == "" {
		return nil, code.InvalidToken.WithMsg("token has no subject")
	}
	return &model.UserData{
		ID:          claims.Subject,
		Name:        claims.Name,
		DisplayName: claims.Name,
		Email:       claims.Email,
		Roles:       claims.Roles,
	}, nil
}
