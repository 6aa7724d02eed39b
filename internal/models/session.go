package models

import "time"

// Session is the server-side record behind a gateway session token.
// The authority token only lives here and is never sent to the browser.
type Session struct {
	ID             string    `json:"id"`
	Role           Role      `json:"role"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	AuthorityToken string    `json:"authority_token"`
	CreatedAt      time.Time `json:"created_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// Actor converts the session into an ActorContext.
func (s Session) Actor() ActorContext {
	return ActorContext{
		Role:           s.Role,
		Name:           s.Name,
		Email:          s.Email,
		AuthorityToken: s.AuthorityToken,
		SessionID:      s.ID,
	}
}
