package domain

import "time"

// Account is the local record of an externally verified identity. Subject is
// the identity provider's stable identifier and is unique across accounts.
type Account struct {
	ID          string // ULID
	Subject     string
	Email       string
	DisplayName string
	CreatedAt   time.Time
}

// VerifiedSubject is what the credential verifier yields for a valid assertion.
type VerifiedSubject struct {
	Subject     string
	Email       string
	DisplayName string
}
