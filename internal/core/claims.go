package core

import "github.com/golang-jwt/jwt/v4"

// SessionClaims session token 內容；Subject 即 userID
type SessionClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
