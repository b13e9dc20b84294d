// Package auth issues and verifies the signed tokens used by the identity
// engine: bearer access tokens and the short-lived state tokens that carry
// pre-registration data across the OAuth redirect boundary.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/userhub/internal/common"
)

// AccessClaims are the persisted claims of an access token.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email     string `json:"email"`
	OAuthUser bool   `json:"isOAuthUser"`
}

// StateClaims carry tax-ID and phone across a redirect-based flow.
type StateClaims struct {
	jwt.RegisteredClaims
	TaxID string `json:"taxId"`
	Phone string `json:"phone"`
}

// Issuer signs and verifies tokens with a process-wide symmetric secret.
type Issuer struct {
	secret    []byte
	accessTTL time.Duration
	stateTTL  time.Duration
}

func NewIssuer(secret []byte, accessTTL, stateTTL time.Duration) *Issuer {
	return &Issuer{secret: secret, accessTTL: accessTTL, stateTTL: stateTTL}
}

// IssueAccessToken signs an HS256 bearer token for the given subject.
func (i *Issuer) IssueAccessToken(subjectID, email string, oauthUser bool) (string, error) {
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.accessTTL)),
		},
		Email:     email,
		OAuthUser: oauthUser,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// IssueStateToken signs an ephemeral token holding pre-registration data.
func (i *Issuer) IssueStateToken(taxID, phone string) (string, error) {
	claims := StateClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.stateTTL)),
		},
		TaxID: taxID,
		Phone: phone,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// VerifyAccessToken parses and validates a bearer token.
func (i *Issuer) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := i.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyStateToken parses and validates a state token.
func (i *Issuer) VerifyStateToken(tokenString string) (*StateClaims, error) {
	claims := &StateClaims{}
	if err := i.verify(tokenString, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (i *Issuer) verify(tokenString string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return common.ErrTokenExpired
		}
		return common.ErrInvalidToken
	}

	if !token.Valid {
		return common.ErrInvalidToken
	}

	return nil
}
