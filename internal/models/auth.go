package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials forwarded to the authority.
type LoginRequest struct {
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required"`
	IP        string `json:"-"`
	UserAgent string `json:"-"`
}

// LoginResponse returns the gateway session token and the actor profile.
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	User        ActorInfo `json:"user"`
	IssuedAt    time.Time `json:"issued_at"`
}

// ActorInfo describes the signed-in actor in responses. It never carries tokens.
type ActorInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// Info projects an actor onto its public profile.
func (a ActorContext) Info() ActorInfo {
	return ActorInfo{Name: a.Name, Email: a.Email, Role: a.Role}
}

// SessionClaims is the payload of a gateway session JWT.
type SessionClaims struct {
	SessionID string `json:"sid"`
	Role      Role   `json:"role"`
	jwt.RegisteredClaims
}
