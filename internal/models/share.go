package models

import "time"

// ShareLink is a signed, expiring public link to a diploma's verification view.
type ShareLink struct {
	DiplomaID string    `json:"diploma_id"`
	Token     string    `json:"token"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SharedDiploma is what a share link resolves to: the current verification file and a live verdict.
type SharedDiploma struct {
	File         VerificationFile   `json:"file"`
	Verification VerificationResult `json:"verification"`
	ExpiresAt    time.Time          `json:"expires_at"`
}
