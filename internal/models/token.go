package models

import "github.com/golang-jwt/jwt/v5"

// Token types carried in the claims "type" field
const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

// TokenClaims is the claim set carried by both access and refresh tokens.
// Subject holds the account id.
type TokenClaims struct {
	Type  string `json:"type"`
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// TokenPair is the result of a successful sign-in or refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	AccountID    string `json:"account_id"`
}
